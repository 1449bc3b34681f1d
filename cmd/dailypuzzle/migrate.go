// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/dailypuzzle/dailypuzzle/internal/store"
)

// Migrator wraps the store.Migrator methods the migrate commands use.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

type migratorFactory func(databaseURL string) (Migrator, error)

func defaultMigratorFactory(databaseURL string) (Migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate command and its subcommands.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(defaultMigratorFactory)
}

func newMigrateCmd(factory migratorFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply, roll back, or inspect the embedded PostgreSQL migrations.
Without a subcommand, all pending migrations are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd, factory, migrateUp)
		},
	}
	addConfigFlags(cmd.PersistentFlags(), "database-url", "log-format", "log-level")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd, factory, migrateUp)
		},
	})

	var all bool
	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back the most recent migration, or --steps of them.
--all rolls back every migration and drops all data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return oops.Code("INVALID_STEPS").Errorf("steps must be at least 1, got %d", steps)
			}
			return runMigration(cmd, factory, func(cmd *cobra.Command, m Migrator) error {
				var err error
				if all {
					cmd.Println("Rolling back all migrations...")
					err = m.Down()
				} else {
					cmd.Printf("Rolling back %d migration(s)...\n", steps)
					err = m.Steps(-steps)
				}
				if err == nil {
					cmd.Println("Rollback complete")
				}
				return err
			})
		},
	}
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd, factory, printStatus)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied and clear the dirty flag",
		Long: `Record VERSION as the current migration without running anything.
Use it to recover a dirty database after repairing it by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return runMigration(cmd, factory, func(cmd *cobra.Command, m Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Forced version %d\n", version)
				return nil
			})
		},
	})

	return cmd
}

func migrateUp(cmd *cobra.Command, m Migrator) error {
	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return err
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

// runMigration loads config, opens a migrator, and runs action with it.
func runMigration(cmd *cobra.Command, factory migratorFactory, action func(*cobra.Command, Migrator) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requirePersistent(cfg, "migrate"); err != nil {
		return err
	}
	setupLogging(cfg)

	m, err := factory(cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "create migrator").Errorf("%v", err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			cmd.PrintErrln("Warning: failed to close migrator:", closeErr)
		}
	}()

	if err := action(cmd, m); err != nil {
		return oops.Code("MIGRATION_FAILED").Errorf("%v", err)
	}
	return nil
}

func printStatus(cmd *cobra.Command, m Migrator) error {
	st, err := m.Status()
	if err != nil {
		return err
	}

	state := "clean"
	if st.Dirty {
		state = "dirty"
	}
	cmd.Printf("Version: %d (%s)\n", st.Version, state)
	printMigrations(cmd, "Applied", st.Applied)
	printMigrations(cmd, "Pending", st.Pending)
	return nil
}

func printMigrations(cmd *cobra.Command, title string, list []store.Migration) {
	cmd.Println(title + ":")
	if len(list) == 0 {
		cmd.Println("  none")
		return
	}
	for _, mig := range list {
		cmd.Printf("  %06d %s\n", mig.Version, mig.Name)
	}
}

// parseForceVersion parses a non-negative migration version.
func parseForceVersion(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer: %v", err)
	}
	if v < 0 {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be non-negative, got %d", v)
	}
	return v, nil
}
