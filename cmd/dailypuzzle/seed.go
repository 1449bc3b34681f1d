// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/dailypuzzle/dailypuzzle/internal/config"
	"github.com/dailypuzzle/dailypuzzle/internal/seed"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

type backendFactory func(ctx context.Context, cfg *config.Config) (*Backend, error)

// seedOptions holds configuration for the seed command.
type seedOptions struct {
	timeout time.Duration
	dryRun  bool
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	return newSeedCmd(openBackend)
}

func newSeedCmd(open backendFactory) *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Import puzzles from a seed file",
		Long: `Validates a YAML seed file and imports its puzzles.
This command is idempotent: puzzles whose release date already exists are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args[0], opts, open)
		},
	}

	addConfigFlags(cmd.Flags(), "database-url", "log-format", "log-level")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate the file without importing")

	return cmd
}

func runSeed(cmd *cobra.Command, path string, opts *seedOptions, open backendFactory) error {
	if opts.dryRun {
		puzzles, err := seed.Load(path)
		if err != nil {
			return err
		}
		cmd.Printf("%s is valid: %d puzzles\n", path, len(puzzles))
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requirePersistent(cfg, "seed"); err != nil {
		return err
	}
	setupLogging(cfg)

	// cmd.Context() carries SIGINT/SIGTERM cancellation.
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	backend, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	return importSeedFile(ctx, cmd, backend.Puzzles, path)
}
