package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/growth-crm/internal/logging"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "crmctl",
		Short:         "Operate a growth CRM database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")

	logger := func(cmd *cobra.Command) *slog.Logger {
		if !verbose {
			return slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		return logging.New(cmd.ErrOrStderr(), logging.Options{Level: slog.LevelDebug, Format: logging.FormatText})
	}

	root.AddCommand(
		newMigrateCmd(logger),
		newHashKeyCmd(),
		newPreviewCmd(),
		newBoardCmd(logger),
	)
	return root
}

// defaultDSN prefers CRM_SQLITE_DSN so crmctl and the server agree by default.
func defaultDSN() string {
	if dsn := os.Getenv("CRM_SQLITE_DSN"); dsn != "" {
		return dsn
	}
	return "growth-crm.db"
}
