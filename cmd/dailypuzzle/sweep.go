// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/dailypuzzle/dailypuzzle/internal/auth"
)

const defaultSweepTimeout = time.Minute

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	return newSweepCmd(openBackend)
}

func newSweepCmd(open backendFactory) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired login credentials and sessions",
		Long: `Deletes expired login credentials and sessions once and exits.
serve sweeps on its own schedule; this is for deployments that prefer cron.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, timeout, open)
		},
	}

	addConfigFlags(cmd.Flags(), "database-url", "log-format", "log-level")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultSweepTimeout, "timeout for the sweep")

	return cmd
}

func runSweep(cmd *cobra.Command, timeout time.Duration, open backendFactory) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requirePersistent(cfg, "sweep"); err != nil {
		return err
	}
	setupLogging(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	backend, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	sweeper, err := auth.NewSweeper(backend.Credentials, backend.Sessions, auth.SweeperConfig{})
	if err != nil {
		return err
	}
	res, err := sweeper.Sweep(ctx)
	cmd.Printf("Deleted %d expired credentials and %d expired sessions\n", res.Credentials, res.Sessions)
	return err
}
