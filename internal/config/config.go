package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all aibuddies client configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Backend API
	API APIConfig `yaml:"api"`

	// Identity provider
	Auth AuthConfig `yaml:"auth"`

	// Local session persistence
	Session SessionConfig `yaml:"session"`

	// Payment checkout
	Checkout CheckoutConfig `yaml:"checkout"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the backend service.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// AuthConfig configures the identity provider (Supabase GoTrue).
type AuthConfig struct {
	ProjectURL   string   `yaml:"project_url"`
	AnonKey      string   `yaml:"anon_key"`
	Providers    []string `yaml:"providers"`     // OAuth providers offered on the login screen
	CallbackAddr string   `yaml:"callback_addr"` // host:port of the local OAuth callback listener
	LoginTimeout string   `yaml:"login_timeout"`
}

// SessionConfig configures where the session is persisted.
type SessionConfig struct {
	File  string `yaml:"file"`
	Watch bool   `yaml:"watch"` // pick up sign-in/out from other processes
}

// CheckoutConfig configures the third-party checkout widget.
type CheckoutConfig struct {
	ScriptURL    string `yaml:"script_url"`
	CallbackAddr string `yaml:"callback_addr"`
	Timeout      string `yaml:"timeout"`
}

// envOverrides is decoded from the process environment.
type envOverrides struct {
	APIURL      string `envconfig:"AIBUDDIES_API_URL"`
	SupabaseURL string `envconfig:"SUPABASE_URL"`
	AnonKey     string `envconfig:"SUPABASE_ANON_KEY"`
	SessionFile string `envconfig:"AIBUDDIES_SESSION_FILE"`
	LogLevel    string `envconfig:"AIBUDDIES_LOG_LEVEL"`
	DebugMode   *bool  `envconfig:"AIBUDDIES_DEBUG"`
	DarkMode    *bool  `envconfig:"AIBUDDIES_DARK_MODE"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "aibuddies",
		Version: "0.3.0",

		API: APIConfig{
			BaseURL: "https://aibuddies-backend.onrender.com",
			Timeout: "120s",
		},

		Auth: AuthConfig{
			Providers:    []string{"google", "github"},
			CallbackAddr: "localhost:51121",
			LoginTimeout: "5m",
		},

		Session: SessionConfig{
			File:  filepath.Join(DefaultDataDir(), "session.json"),
			Watch: true,
		},

		Checkout: CheckoutConfig{
			ScriptURL:    "https://checkout.razorpay.com/v1/checkout.js",
			CallbackAddr: "localhost:51122",
			Timeout:      "10m",
		},

		UI: DefaultUIConfig(),

		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join(DefaultDataDir(), "logs"),
		},
	}
}

// DefaultDataDir returns ~/.aibuddies, or .aibuddies when the home dir is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aibuddies"
	}
	return filepath.Join(home, ".aibuddies")
}

// DefaultConfigPath returns the default path to config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// A .env file in the working directory is loaded first, so SUPABASE_URL and
// SUPABASE_ANON_KEY can live next to the project.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	if env.APIURL != "" {
		c.API.BaseURL = env.APIURL
	}
	if env.SupabaseURL != "" {
		c.Auth.ProjectURL = env.SupabaseURL
	}
	if env.AnonKey != "" {
		c.Auth.AnonKey = env.AnonKey
	}
	if env.SessionFile != "" {
		c.Session.File = env.SessionFile
	}
	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
	if env.DebugMode != nil {
		c.Logging.DebugMode = *env.DebugMode
	}
	if env.DarkMode != nil {
		if *env.DarkMode {
			c.UI.Theme = ThemeDark
		} else {
			c.UI.Theme = ThemeLight
		}
	}
	return nil
}

// GetAPITimeout returns the backend request timeout.
func (c *Config) GetAPITimeout() time.Duration {
	return parseDuration(c.API.Timeout, 120*time.Second)
}

// GetLoginTimeout returns how long the OAuth callback listener waits.
func (c *Config) GetLoginTimeout() time.Duration {
	return parseDuration(c.Auth.LoginTimeout, 5*time.Minute)
}

// GetCheckoutTimeout returns how long the checkout page waits for completion.
func (c *Config) GetCheckoutTimeout() time.Duration {
	return parseDuration(c.Checkout.Timeout, 10*time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ValidProviders lists the OAuth providers the login screen can offer.
var ValidProviders = []string{"google", "github", "gitlab", "azure", "discord"}

// ValidateBackend checks only what anonymous use needs: the backend URL
// and the UI settings. The tool catalog can be read with just this.
func (c *Config) ValidateBackend() error {
	if err := validateURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	switch c.UI.Theme {
	case "", ThemeAuto, ThemeDark, ThemeLight:
	default:
		return fmt.Errorf("invalid ui.theme: %s", c.UI.Theme)
	}
	return nil
}

// Validate validates the configuration, including the identity provider
// settings every signed-in flow needs.
func (c *Config) Validate() error {
	if err := c.ValidateBackend(); err != nil {
		return err
	}
	if c.Auth.ProjectURL == "" {
		return fmt.Errorf("identity provider not configured (set SUPABASE_URL or auth.project_url)")
	}
	if err := validateURL("auth.project_url", c.Auth.ProjectURL); err != nil {
		return err
	}
	if c.Auth.AnonKey == "" {
		return fmt.Errorf("identity provider key not configured (set SUPABASE_ANON_KEY or auth.anon_key)")
	}

	for _, p := range c.Auth.Providers {
		valid := false
		for _, v := range ValidProviders {
			if p == v {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid OAuth provider: %s (valid: %v)", p, ValidProviders)
		}
	}

	if c.Session.File == "" {
		return fmt.Errorf("session.file must not be empty")
	}

	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s: %q must be http(s)", field, raw)
	}
	if strings.TrimSpace(u.Host) == "" {
		return fmt.Errorf("invalid %s: %q has no host", field, raw)
	}
	return nil
}
