package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/driveinsight/fleet/app"
	"github.com/driveinsight/fleet/config"
	"github.com/driveinsight/fleet/core/broadcast"
	"github.com/driveinsight/fleet/core/fleet"
)

var tickOutput string

var tickCmd = &cobra.Command{
	Use:   "tick [n]",
	Short: "Run n position updates offline and print the notifications and resulting fleet",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTick,
}

func init() {
	tickCmd.Flags().StringVarP(&tickOutput, "output", "o", "table", "fleet output format: table, json or csv")
	rootCmd.AddCommand(tickCmd)
}

// offlineService builds a service that never touches the broker.
func offlineService() (*app.Service, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.MQTT.Enabled = false
	cfg.Telemetry.Enabled = false
	return app.New(cfg)
}

func runTick(cmd *cobra.Command, args []string) error {
	n := 1
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return fmt.Errorf("tick count must be a positive integer, got %q", args[0])
		}
		n = v
	}
	svc, err := offlineService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	sub := broadcast.NewChanSubscriber("cli-tick", svc.Store.Len()+1)
	if err := svc.Hub.Register(sub); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	ctx := background(cmd)
	for i := 1; i <= n; i++ {
		res := svc.Updater.Tick(ctx)
		fmt.Fprintf(out, "tick %d: %d updated, %d skipped\n", i, len(res.Updated), len(res.Skipped))
		for range res.Updated {
			note := <-sub.C()
			fmt.Fprintf(out, "  %s %s\n", note.Type, note.VehicleID)
		}
	}
	return writeVehicles(cmd, tickOutput, svc.Store.List(fleet.Filter{}))
}
