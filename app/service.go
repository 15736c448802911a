package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/driveinsight/fleet/api"
	"github.com/driveinsight/fleet/api/ws"
	"github.com/driveinsight/fleet/config"
	"github.com/driveinsight/fleet/core/alerts"
	"github.com/driveinsight/fleet/core/broadcast"
	"github.com/driveinsight/fleet/core/fleet"
	"github.com/driveinsight/fleet/core/history"
	coremetrics "github.com/driveinsight/fleet/core/metrics"
	coremon "github.com/driveinsight/fleet/core/monitoring"
	"github.com/driveinsight/fleet/core/rollup"
	"github.com/driveinsight/fleet/core/simulation"
	"github.com/driveinsight/fleet/infra/logger"
	"github.com/driveinsight/fleet/infra/metrics"
	"github.com/driveinsight/fleet/infra/monitoring"
	"github.com/driveinsight/fleet/infra/mqtt"
	"github.com/driveinsight/fleet/infra/telemetry"
)

// Service owns the fleet store and every component that reads or writes it.
type Service struct {
	Store   *fleet.MemoryStore
	Hub     *broadcast.Hub
	Updater *simulation.Updater
	Alerts  *alerts.Monitor
	Rollup  *rollup.Scheduler

	cfg      *config.Config
	sink     coremetrics.MetricsSink
	history  history.Store
	bridge   *mqtt.Bridge
	ingestor *telemetry.Ingestor
	handler  http.Handler
	log      logger.Logger

	// ready is closed once the HTTP listener is bound.
	ready chan struct{}
	addr  net.Addr
}

// New creates a Service from the configuration. It seeds the store and
// connects the optional MQTT bridge but starts no goroutines.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, err
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	store := fleet.NewMemoryStore(nil)
	if err := seed(store, cfg.Simulation); err != nil {
		return nil, fmt.Errorf("seed fleet: %w", err)
	}
	if rec, ok := sink.(coremetrics.FleetSizeRecorder); ok {
		_ = rec.RecordFleetSize(store.Len())
	}

	hist, err := history.Open(cfg.History.Module())
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	hub := broadcast.NewHub(logger.New("hub"), sink)
	svc := &Service{
		Store:   store,
		Hub:     hub,
		cfg:     cfg,
		sink:    sink,
		history: hist,
		log:     logg,
		ready:   make(chan struct{}),
	}

	svc.Updater = simulation.NewUpdater(store, hub, simulation.Config{
		Interval:       cfg.Simulation.Interval(),
		PositionJitter: cfg.Simulation.PositionJitterDeg,
		SpeedJitter:    cfg.Simulation.SpeedJitter,
	},
		simulation.WithJitter(simulation.NewUniformJitter(cfg.Simulation.Seed)),
		simulation.WithMetrics(sink),
		simulation.WithHistory(hist),
		simulation.WithLogger(logger.New("updater")),
	)
	svc.Alerts = alerts.NewMonitor(store, store, alerts.DefaultRules(cfg.Alerts), sink, logger.New("alerts"))
	svc.Rollup = rollup.NewScheduler(hist, store, logger.New("rollup"))

	if cfg.MQTT.Enabled {
		b, err := mqtt.NewBridge(cfg.MQTT, logger.New("mqtt-bridge"))
		if err != nil {
			_ = hist.Close()
			return nil, fmt.Errorf("mqtt bridge: %w", err)
		}
		if err := hub.Register(b); err != nil {
			_ = hist.Close()
			return nil, err
		}
		svc.bridge = b
	}
	if cfg.Telemetry.Enabled {
		svc.ingestor = telemetry.NewIngestor(cfg.Telemetry, store, hub, sink, logger.New("telemetry"))
	}

	svc.handler = api.NewRouter(api.Deps{
		Store:          store,
		Hub:            hub,
		History:        hist,
		Gatherer:       prometheus.DefaultGatherer,
		APIToken:       cfg.Server.APIToken,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		WS: ws.Options{
			WriteTimeout: time.Duration(cfg.Server.WSWriteTimeoutSeconds) * time.Second,
			PingInterval: time.Duration(cfg.Server.WSPingIntervalSeconds) * time.Second,
			QueueSize:    cfg.Server.WSQueueSize,
		},
		Log: logger.New("http"),
	})
	return svc, nil
}

func seed(store *fleet.MemoryStore, cfg config.SimulationConfig) error {
	switch {
	case cfg.FixtureFile != "":
		vs, err := fleet.LoadFixture(cfg.FixtureFile)
		if err != nil {
			return err
		}
		return fleet.Populate(store, vs)
	case cfg.FleetSize > 0:
		s := cfg.Seed
		if s == 0 {
			s = rand.Uint64()
		}
		return fleet.Populate(store, fleet.GenerateFleet(cfg.FleetSize, rand.New(rand.NewPCG(s, s))))
	default:
		return fleet.Seed(store)
	}
}

// History exposes the tick store for offline jobs.
func (s *Service) History() history.Store { return s.history }

// Handler returns the HTTP surface without starting a listener.
func (s *Service) Handler() http.Handler { return s.handler }

// Addr returns the bound listener address once Run has started serving.
func (s *Service) Addr() net.Addr {
	<-s.ready
	return s.addr
}

// Run serves HTTP and runs the background loops until ctx is cancelled or
// one of them fails. In-flight requests get the configured shutdown timeout.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Address, err)
	}
	s.addr = ln.Addr()
	close(s.ready)

	srv := &http.Server{Handler: s.handler, ReadHeaderTimeout: 10 * time.Second}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Infof("listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout())
		defer cancel()
		// Close WebSocket subscribers first; hijacked connections are not
		// tracked by Shutdown.
		s.Hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	if s.cfg.Simulation.Paused {
		s.log.Infof("position updater paused")
	} else {
		g.Go(func() error { return s.Updater.Run(ctx) })
	}
	if !s.cfg.Alerts.Disabled {
		g.Go(func() error { return s.Alerts.Run(ctx, s.Hub) })
	}
	if s.cfg.History.Backend != "nop" {
		g.Go(func() error { return s.Rollup.Run(ctx) })
	}
	if s.ingestor != nil {
		g.Go(func() error { return s.ingestor.Start(ctx, s.cfg.MQTT) })
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		g.Go(func() error { return metrics.StartPromServer(ctx, addr) })
	}
	return g.Wait()
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	s.Hub.Close()
	if s.bridge != nil {
		if d := s.bridge.Dropped(); d > 0 {
			s.log.Warnf("mqtt bridge dropped %d notifications", d)
		}
	}
	if err := s.history.Close(); err != nil {
		errs = append(errs, fmt.Errorf("history: %w", err))
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
