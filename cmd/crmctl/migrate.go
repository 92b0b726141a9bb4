package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/growth-crm/internal/bootstrap"
	"github.com/example/growth-crm/internal/persistence/sqlite"
)

func newMigrateCmd(logger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var (
		dsn    string
		status bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlite.OpenWithoutMigrations(bootstrap.SQLiteConfigFor(dsn), logger(cmd))
			if err != nil {
				return err
			}
			defer store.Close()

			if !status {
				if err := store.Migrate(cmd.Context()); err != nil {
					return err
				}
			}

			report, err := store.MigrationStatus(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			current := report.CurrentVersion
			if current == "" {
				current = "none"
			}
			fmt.Fprintf(out, "schema version: %s\n", current)
			fmt.Fprintf(out, "pending migrations: %d\n", report.PendingCount)
			for _, pending := range report.PendingMigrations {
				fmt.Fprintf(out, "  %s %s\n", pending.Version, pending.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", defaultDSN(), "SQLite database path")
	cmd.Flags().BoolVar(&status, "status", false, "report without applying")
	return cmd
}
