// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dailypuzzle/dailypuzzle/internal/config"
	"github.com/dailypuzzle/dailypuzzle/internal/logging"
)

const serviceName = "dailypuzzle"

// NewRootCmd creates the root command for the dailypuzzle CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dailypuzzle",
		Short: "dailypuzzle - one puzzle a day",
		Long: `dailypuzzle serves a new puzzle every day at 09:00 UTC, with
passwordless email login and scored attempts.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (default: XDG_CONFIG_HOME/dailypuzzle/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewSweepCmd())

	return cmd
}

// addConfigFlags registers flags that override config keys. Defaults shown
// in help come from the built-in configuration; a flag only takes effect
// when it is set explicitly.
func addConfigFlags(fs *pflag.FlagSet, names ...string) {
	defaults := config.Defaults()
	for _, name := range names {
		key := config.FlagKey(name)
		fs.String(name, fmt.Sprint(defaults[key]), "overrides "+key)
	}
}

// loadConfig layers the config file, environment, and the command's flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path = ""
	}
	return config.Load(config.LoadOptions{Path: path, Flags: cmd.Flags()})
}

// setupLogging installs the configured default logger.
func setupLogging(cfg *config.Config) {
	logging.SetDefault(serviceName, version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
}
