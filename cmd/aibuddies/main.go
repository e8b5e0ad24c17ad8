package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aibuddies/internal/config"
	"aibuddies/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	apiURL     string

	// Set in PersistentPreRunE
	logger *zap.Logger
	cfg    *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "aibuddies",
	Short: "AIBUDDIES - credit-metered AI tools from the terminal",
	Long: `aibuddies is a terminal client for the AIBUDDIES service.

Sign in, earn or buy credits, and spend them on AI tools: text generation,
code generation, image captioning and more.

Run without arguments to start the interactive dashboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if apiURL != "" {
			cfg.API.BaseURL = apiURL
		}
		if err := logging.Initialize(cfg.Logging); err != nil {
			logger.Warn("file logging disabled", zap.Error(err))
		}
		logging.Boot("aibuddies %s starting (%s)", cfg.Version, cmd.CommandPath())
		logging.BootDebug("config path %s, api %s", path, cfg.API.BaseURL)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runDashboard,
}

// versionCmd prints the client version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "aibuddies %s\n", cfg.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.aibuddies/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Override the backend base URL")

	authLoginCmd.Flags().StringVar(&loginProvider, "provider", "", "Sign in through an OAuth provider (google, github)")
	authLoginCmd.Flags().StringVar(&loginEmail, "email", "", "Email address for password sign-in")
	authSignupCmd.Flags().StringVar(&loginEmail, "email", "", "Email address for the new account")
	authCmd.AddCommand(authLoginCmd, authSignupCmd, authLogoutCmd, authStatusCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)

	runCmd.Flags().StringVarP(&runPrompt, "prompt", "p", "", "Prompt text")
	runCmd.Flags().StringVarP(&runImage, "image", "i", "", "Image file for image tools")

	rootCmd.AddCommand(
		authCmd,
		configCmd,
		toolsCmd,
		profileCmd,
		bonusCmd,
		adCmd,
		buyCmd,
		runCmd,
		versionCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
