package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/growth-crm/internal/bootstrap"
	"github.com/example/growth-crm/internal/config"
)

func newBoardCmd(logger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var (
		dsn            string
		vocabulary     string
		pipelineConfig string
	)

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print leads grouped by pipeline stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(cmd.Context(), config.Config{
				SQLiteDSN:      dsn,
				Location:       time.UTC,
				PipelineConfig: pipelineConfig,
			}, logger(cmd))
			if err != nil {
				return err
			}
			defer app.Close()

			board, err := app.Leads.Board(cmd.Context(), vocabulary)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "STAGE\tLEAD\tNAME\tCOMPANY\n")
			for _, column := range board.Board.Columns {
				if len(column.Items) == 0 {
					fmt.Fprintf(w, "%s\t-\t\t\n", column.Stage)
					continue
				}
				for _, lead := range column.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", column.Stage, lead.ID, lead.Name, lead.Company)
				}
			}
			for _, lead := range board.Board.Unrecognized {
				fmt.Fprintf(w, "?%s\t%s\t%s\t%s\n", lead.Status, lead.ID, lead.Name, lead.Company)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", defaultDSN(), "SQLite database path")
	cmd.Flags().StringVar(&vocabulary, "vocabulary", "", "vocabulary to label stages with (default: storage)")
	cmd.Flags().StringVar(&pipelineConfig, "pipeline-config", "", "YAML vocabulary file")
	return cmd
}
