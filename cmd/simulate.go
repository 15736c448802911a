package cmd

import (
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/driveinsight/fleet/config"
	"github.com/driveinsight/fleet/core/fleet"
	"github.com/driveinsight/fleet/core/model"
	"github.com/driveinsight/fleet/core/simulation"
	"github.com/driveinsight/fleet/infra/logger"
	infmqtt "github.com/driveinsight/fleet/infra/mqtt"
	"github.com/driveinsight/fleet/infra/telemetry"
)

var (
	simInterval time.Duration
	simBroker   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Publish simulated vehicle telemetry to the MQTT broker",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().DurationVar(&simInterval, "interval", 5*time.Second, "report interval")
	simulateCmd.Flags().StringVar(&simBroker, "broker", "", "MQTT broker URL, overrides mqtt.broker")
	rootCmd.AddCommand(simulateCmd)
}

func simulatedFleet(cfg config.SimulationConfig) ([]model.Vehicle, error) {
	switch {
	case cfg.FixtureFile != "":
		return fleet.LoadFixture(cfg.FixtureFile)
	case cfg.FleetSize > 0:
		seed := cfg.Seed
		if seed == 0 {
			seed = rand.Uint64()
		}
		return fleet.GenerateFleet(cfg.FleetSize, rand.New(rand.NewPCG(seed, seed))), nil
	default:
		return fleet.DemoVehicles(), nil
	}
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(background(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	mqttCfg := cfg.MQTT
	if simBroker != "" {
		mqttCfg.Broker = simBroker
	}
	if mqttCfg.Broker == "" {
		return fmt.Errorf("simulate needs mqtt.broker or --broker")
	}
	vs, err := simulatedFleet(cfg.Simulation)
	if err != nil {
		return err
	}
	logg := logger.New("simulator")
	cli, err := infmqtt.Dial(mqttCfg, "simulator", logg, nil)
	if err != nil {
		return err
	}
	defer cli.Disconnect(250)

	sim := telemetry.NewSimulator(cli, cfg.Telemetry, vs, simulation.NewUniformJitter(cfg.Simulation.Seed), telemetry.SimOptions{
		Interval:       simInterval,
		PositionJitter: cfg.Simulation.PositionJitterDeg,
		SpeedJitter:    cfg.Simulation.SpeedJitter,
	}, logg)
	logg.Infof("publishing telemetry for %d vehicles every %s", len(vs), simInterval)
	sent, err := sim.Run(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "sent %d reports\n", sent)
	return err
}
