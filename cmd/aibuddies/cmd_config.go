package main

import (
	"fmt"
	"os"

	"aibuddies/internal/config"
	"aibuddies/internal/logging"

	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current configuration to the config file",
	Long: `Writes the effective configuration (defaults, .env, environment and
--api-url applied) to the config file so it can be edited by hand.

An existing file is left alone unless --force is given.`,
	RunE: runConfigInit,
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		if !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		logging.BootWarn("overwriting config file %s", path)
	}

	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
