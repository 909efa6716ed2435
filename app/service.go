package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/smartcharge/api/status"
	"github.com/kilianp07/smartcharge/config"
	"github.com/kilianp07/smartcharge/core/cycle"
	"github.com/kilianp07/smartcharge/core/device"
	"github.com/kilianp07/smartcharge/core/factory"
	coremetrics "github.com/kilianp07/smartcharge/core/metrics"
	"github.com/kilianp07/smartcharge/core/model"
	coremon "github.com/kilianp07/smartcharge/core/monitoring"
	"github.com/kilianp07/smartcharge/core/notify"
	"github.com/kilianp07/smartcharge/core/pricing"
	"github.com/kilianp07/smartcharge/core/scheduler"
	"github.com/kilianp07/smartcharge/core/state"
	"github.com/kilianp07/smartcharge/infra/chart"
	"github.com/kilianp07/smartcharge/infra/logger"
	"github.com/kilianp07/smartcharge/infra/metrics"
	"github.com/kilianp07/smartcharge/infra/monitoring"
	"github.com/kilianp07/smartcharge/infra/mqtt"
	"github.com/kilianp07/smartcharge/infra/pricefeed"
	"github.com/kilianp07/smartcharge/infra/store"
	"github.com/kilianp07/smartcharge/internal/eventbus"
)

// Job names.
const (
	JobPlan    = "plan"
	JobExecute = "execute"
	JobBalance = "balance"
)

// Deps overrides the adapters built from the configuration. Nil fields are
// built from the configuration.
type Deps struct {
	Devices  device.State
	Notifier notify.Notifier
	Vars     state.VariableStore
	Feed     pricing.Feed
	Sink     coremetrics.MetricsSink
	Clock    scheduler.Clock
}

// Service wires the cycles, adapters and scheduler.
type Service struct {
	cfg *config.Config
	loc *time.Location
	log logger.Logger

	Store   *state.Store
	Catalog *pricing.Catalog

	planner  *cycle.Planner
	executor *cycle.Executor
	balancer *cycle.Balancer
	sched    *scheduler.Scheduler

	bus     *eventbus.Bus
	sink    coremetrics.MetricsSink
	closers []io.Closer
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	return NewWithDeps(cfg, Deps{})
}

// NewWithDeps creates a Service, using the provided adapters where set.
func NewWithDeps(cfg *config.Config, deps Deps) (svc *Service, err error) {
	logg := logger.New("service")
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	loc := cfg.Location.Load()
	now := func() time.Time { return time.Now().In(loc) }
	s := &Service{cfg: cfg, loc: loc, log: logg, bus: eventbus.New()}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if deps.Vars == nil {
		backend, err := store.New(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		s.closers = append(s.closers, backend)
		deps.Vars = backend
	}
	s.Store = state.New(deps.Vars, logger.New("state"))

	if deps.Devices == nil {
		if cfg.MQTT.Broker == "" {
			return nil, errors.New("mqtt broker is required")
		}
		gw, err := mqtt.NewGateway(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt gateway: %w", err)
		}
		s.closers = append(s.closers, gw)
		deps.Devices = gw
		if deps.Notifier == nil {
			deps.Notifier = gw
		}
	}
	if deps.Notifier == nil || !*cfg.Notifications.Enabled {
		deps.Notifier = notify.Nop{}
	}

	if deps.Feed == nil {
		deps.Feed = pricefeed.New(cfg.Pricing.Feed, loc)
	}
	s.Catalog = pricing.NewCatalog(deps.Feed, cfg.Pricing.Fallback(), logger.New("pricing"))

	if deps.Sink == nil {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		if c, ok := sink.(io.Closer); ok {
			s.closers = append(s.closers, c)
		}
		deps.Sink = sink
	}
	s.sink = deps.Sink

	selector, err := device.Selectors.Create(factory.ModuleConfig{Type: cfg.Planning.CarSelector})
	if err != nil {
		return nil, fmt.Errorf("car selector: %w", err)
	}
	attrs := cfg.Devices.Attributes
	primary := cfg.Chargers[0]
	windowStart, departure := cfg.Planning.Clocks()
	chargerIDs := make([]string, len(cfg.Chargers))
	for i, c := range cfg.Chargers {
		chargerIDs[i] = c.ID
	}
	cars := make([]device.CarInfo, len(cfg.Cars))
	for i, c := range cfg.Cars {
		cars[i] = device.CarInfo{ID: c.ID, Name: c.Name, CapacityKWh: c.CapacityKWh}
	}

	s.planner, err = cycle.NewPlanner(cycle.PlannerConfig{
		WindowStart:      windowStart,
		DefaultDeparture: departure,
		MinBlock:         cfg.Planning.MinBlock,
		TargetSoC:        cfg.Planning.TargetSoC,
		Efficiency:       cfg.Planning.Efficiency,
		MaxPower:         primary.MaxPower(cfg.Grid),
		Markup:           cfg.Pricing.ToMarkup(),
		Chargers:         chargerIDs,
		Cars:             cars,
	}, cycle.PlannerDeps{
		Prices:   s.Catalog,
		Store:    s.Store,
		Devices:  deps.Devices,
		Attrs:    attrs,
		Selector: selector,
		Bus:      s.bus,
		Log:      logger.New("plan"),
		Now:      now,
	})
	if err != nil {
		return nil, err
	}
	s.executor, err = cycle.NewExecutor(cycle.ExecutorDeps{
		Store:        s.Store,
		Devices:      deps.Devices,
		Attrs:        attrs,
		Notifier:     deps.Notifier,
		Messages:     cfg.Notifications.Messages,
		Bus:          s.bus,
		Log:          logger.New("execute"),
		Now:          now,
		SmartDefault: *cfg.Planning.SmartDefault,
	})
	if err != nil {
		return nil, err
	}
	s.balancer, err = cycle.NewBalancer(primary.Allocator(cfg.Grid), cycle.BalancerDeps{
		Store:    s.Store,
		Devices:  deps.Devices,
		Attrs:    attrs,
		MeterID:  cfg.Meter.ID,
		Notifier: deps.Notifier,
		Messages: cfg.Notifications.Messages,
		Bus:      s.bus,
		Log:      logger.New("balance"),
		Now:      now,
	})
	if err != nil {
		return nil, err
	}

	s.sched, err = scheduler.New(logger.New("scheduler"), s.jobs()...)
	if err != nil {
		return nil, err
	}
	clock := deps.Clock
	if clock == nil {
		clock = locClock{loc: loc}
	}
	s.sched.WithClock(clock)
	return s, nil
}

func (s *Service) jobs() []scheduler.Job {
	sc := s.cfg.Schedule
	runOnStart := *sc.RunOnStart
	plan := scheduler.Job{Name: JobPlan, Every: sc.PlanEvery, RunOnStart: runOnStart, Run: s.planner.Run}
	if sc.PlanEvery <= 0 {
		at, _ := model.ParseClock(sc.PlanAt)
		plan.At = &at
	}
	return []scheduler.Job{
		plan,
		{Name: JobExecute, Every: sc.ExecuteEvery, RunOnStart: runOnStart, Run: s.executor.Run},
		{Name: JobBalance, Every: sc.BalanceEvery, RunOnStart: runOnStart, Run: s.balancer.Run},
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	return status.NewRouter(status.Deps{
		Store:   s.Store,
		Prices:  s.Catalog,
		Metrics: promhttp.Handler(),
		Chart: func(prices []model.PricedInterval, plan model.ChargePlan) (string, error) {
			return chart.PriceChartHTML(prices, plan, s.loc)
		},
		DefaultDeparture: s.departure(),
		SmartDefault:     *s.cfg.Planning.SmartDefault,
		Location:         s.loc,
		Log:              logger.New("api"),
	})
}

func (s *Service) departure() model.Clock {
	_, dep := s.cfg.Planning.Clocks()
	return dep
}

// Location returns the configured time zone.
func (s *Service) Location() *time.Location { return s.loc }

// Run starts the metrics collector, the HTTP API when enabled and the
// scheduler. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	collected := metrics.StartEventCollector(ctx, s.bus, s.sink)

	errCh := make(chan error, 1)
	if s.cfg.API.Enabled {
		go func() {
			if err := status.Serve(ctx, s.cfg.API.Address, s.Handler(), logger.New("api")); err != nil {
				s.log.Errorf("http server: %v", err)
				errCh <- err
				cancel()
			}
		}()
	}
	err := s.sched.Run(ctx)
	cancel()
	<-collected
	select {
	case serr := <-errCh:
		return errors.Join(err, serr)
	default:
		return err
	}
}

// RunCycle runs one cycle immediately.
func (s *Service) RunCycle(ctx context.Context, name string) error {
	return s.sched.RunOnce(ctx, name)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}

type locClock struct{ loc *time.Location }

func (c locClock) Now() time.Time                         { return time.Now().In(c.loc) }
func (c locClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
