package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/clinic-assessment-server/internal/domain"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, logger, err := setup(false)
			if err != nil {
				return err
			}
			return migrateUp(cmd.Context(), manager, logger)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, logger, err := setup(false)
			if err != nil {
				return err
			}
			runner, err := newMigrationRunner(manager, logger)
			if err != nil {
				return err
			}
			defer runner.Close()
			return runner.Down(cmd.Context())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, logger, err := setup(false)
			if err != nil {
				return err
			}
			runner, err := newMigrationRunner(manager, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			status, err := runner.Status()
			if err != nil {
				return err
			}
			if status.Empty {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", status.Version, status.Dirty)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied and clear the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			manager, logger, err := setup(false)
			if err != nil {
				return err
			}
			runner, err := newMigrationRunner(manager, logger)
			if err != nil {
				return err
			}
			defer runner.Close()
			return runner.Force(version)
		},
	})

	return cmd
}

func migrateUp(ctx context.Context, manager domain.ConfigManager, logger *logrus.Logger) error {
	runner, err := newMigrationRunner(manager, logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	return runner.Up(ctx)
}
