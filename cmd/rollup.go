package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/driveinsight/fleet/core/rollup"
	"github.com/driveinsight/fleet/pkg/export"
)

var (
	rollupFrom   string
	rollupTo     string
	rollupOutput string
)

var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Compute daily driving metrics from the tick history",
	RunE:  runRollup,
}

func init() {
	rollupCmd.Flags().StringVar(&rollupFrom, "from", "", "first day (YYYY-MM-DD), defaults to yesterday")
	rollupCmd.Flags().StringVar(&rollupTo, "to", "", "last day (YYYY-MM-DD), defaults to --from")
	rollupCmd.Flags().StringVarP(&rollupOutput, "output", "o", "csv", "output format: json or csv")
	rootCmd.AddCommand(rollupCmd)
}

func parseDay(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return d, nil
}

func runRollup(cmd *cobra.Command, args []string) error {
	from, err := parseDay(rollupFrom, rollup.Day(time.Now()).Add(-24*time.Hour))
	if err != nil {
		return err
	}
	to, err := parseDay(rollupTo, from)
	if err != nil {
		return err
	}
	svc, err := offlineService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if _, err := rollup.Backfill(background(cmd), svc.History(), svc.Store, from, to); err != nil {
		return err
	}
	rows := svc.Store.DailyMetrics()
	return export.Write(cmd.OutOrStdout(), rollupOutput, rows, func(w io.Writer) error {
		return export.WriteDailyMetricsCSV(w, rows)
	})
}
