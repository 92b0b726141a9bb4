package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/growth-crm/internal/application"
	"github.com/example/growth-crm/internal/recurrence"
)

func newPreviewCmd() *cobra.Command {
	var (
		start    string
		kind     string
		at       string
		weekdays []string
		until    string
		tz       string
		horizon  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "List the instants a recurrence rule produces",
		Example: `  crmctl preview --start 2025-03-03 --type custom --weekdays mon,wed --time 09:30 --until 2025-03-31
  crmctl preview --start 2025-03-03T09:00:00Z --type daily --tz Asia/Tokyo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("--tz: %w", err)
			}

			input := application.ScheduleInput{Type: kind, TimeOfDay: at, Weekdays: weekdays}
			if input.Start, err = parseDateFlag("--start", start, loc); err != nil {
				return err
			}
			if until != "" {
				end, err := recurrence.ParseEndDate(until, loc)
				if err != nil {
					return fmt.Errorf("--until: %w", err)
				}
				input.EndDate = &end
			}

			expander := recurrence.NewExpander(loc, nil, recurrence.WithHorizon(horizon))
			svc := application.NewPostService(nil, expander, nil, nil)
			preview, err := svc.PreviewSchedule(cmd.Context(), input)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, occurrence := range preview.Occurrences {
				fmt.Fprintf(out, "%s  %s\n", occurrence.In(loc).Format(time.RFC3339), occurrence.In(loc).Weekday().String()[:3])
			}
			fmt.Fprintf(out, "%d occurrence(s)\n", len(preview.Occurrences))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first day, as YYYY-MM-DD or RFC 3339")
	cmd.Flags().StringVar(&kind, "type", "daily", "none, daily, weekly or custom")
	cmd.Flags().StringVar(&at, "time", "", "time of day as HH:MM (defaults to the start time)")
	cmd.Flags().StringSliceVar(&weekdays, "weekdays", nil, "weekdays for custom rules, e.g. mon,thu")
	cmd.Flags().StringVar(&until, "until", "", "last day, inclusive")
	cmd.Flags().StringVar(&tz, "tz", "UTC", "IANA time zone for calendar days")
	cmd.Flags().DurationVar(&horizon, "horizon", recurrence.DefaultHorizon, "window used when --until is omitted")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func parseDateFlag(name, value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %q is neither YYYY-MM-DD nor RFC 3339", name, value)
	}
	return t, nil
}
