package cycle

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/smartcharge/core/demand"
	"github.com/kilianp07/smartcharge/core/device"
	"github.com/kilianp07/smartcharge/core/events"
	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/model"
	"github.com/kilianp07/smartcharge/core/planner"
	"github.com/kilianp07/smartcharge/core/pricing"
	"github.com/kilianp07/smartcharge/core/state"
	"github.com/kilianp07/smartcharge/internal/eventbus"
)

// PriceSource returns price intervals for whole days. Prune releases days
// before the given one; the planner calls it once per run.
type PriceSource interface {
	Prices(ctx context.Context, days ...time.Time) []model.PricedInterval
	Fallback() time.Duration
	Prune(before time.Time)
}

// PlannerConfig holds the planning parameters.
type PlannerConfig struct {
	WindowStart      model.Clock
	DefaultDeparture model.Clock
	MinBlock         time.Duration
	TargetSoC        float64
	Efficiency       float64
	MaxPower         float64 // kW
	Markup           pricing.Markup
	Chargers         []string
	Cars             []device.CarInfo
}

// PlannerDeps are the collaborators of the plan cycle.
type PlannerDeps struct {
	Prices   PriceSource
	Store    *state.Store
	Devices  device.State
	Attrs    device.Attributes
	Selector device.CarSelector
	Bus      eventbus.EventBus
	Log      logger.Logger
	Now      func() time.Time
}

// Planner generates and persists the charge plan.
type Planner struct {
	cfg  PlannerConfig
	deps PlannerDeps
	log  logger.Logger
	now  func() time.Time
}

// NewPlanner creates the plan cycle.
func NewPlanner(cfg PlannerConfig, deps PlannerDeps) (*Planner, error) {
	if deps.Prices == nil || deps.Store == nil || deps.Devices == nil {
		return nil, fmt.Errorf("planner: prices, store and devices are required")
	}
	if len(cfg.Chargers) == 0 {
		return nil, fmt.Errorf("planner: no chargers configured")
	}
	if deps.Selector == nil {
		deps.Selector = device.LowestSoC{}
	}
	return &Planner{cfg: cfg, deps: deps, log: logger.OrNop(deps.Log), now: nowFunc(deps.Now)}, nil
}

// Run plans for the first charger with a connected car. Missing data never
// fails the run: without a connected charger nothing is written, without
// prices an empty plan with a note is persisted.
func (p *Planner) Run(ctx context.Context) error {
	now := p.now()
	dep := p.deps.Store.Departure(ctx, p.cfg.DefaultDeparture)
	ws, we := Window(now, p.cfg.WindowStart, dep)

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	prices := p.deps.Prices.Prices(ctx, today, today.AddDate(0, 0, 1))
	p.deps.Prices.Prune(today)

	for _, id := range p.cfg.Chargers {
		ch := device.NewCharger(p.deps.Devices, id, p.deps.Attrs)
		if !ch.CarConnected(ctx) {
			p.log.Debugf("no car connected to %s", id)
			continue
		}
		car, ok := p.selectCar(ctx)
		if !ok {
			p.log.Warnf("car connected to %s but no car reports a battery level", id)
			return nil
		}
		return p.plan(ctx, now, ws, we, id, car, prices)
	}
	p.log.Infof("no car connected, keeping previous plan")
	return nil
}

func (p *Planner) selectCar(ctx context.Context) (model.Car, bool) {
	infos := make([]device.CarInfo, len(p.cfg.Cars))
	for i, c := range p.cfg.Cars {
		if v, ok := p.deps.Store.CarCapacity(ctx, c.ID); ok {
			c.CapacityKWh = v
		}
		infos[i] = c
	}
	cars := device.NewCars(p.deps.Devices, p.deps.Attrs).Snapshot(ctx, infos)
	return p.deps.Selector.Select(cars)
}

func (p *Planner) plan(ctx context.Context, now, ws, we time.Time, chargerID string, car model.Car, prices []model.PricedInterval) error {
	needed := demand.Estimate(demand.Input{
		CapacityKWh: car.CapacityKWh,
		SoC:         car.SoC,
		Target:      p.cfg.TargetSoC,
		Efficiency:  p.cfg.Efficiency,
	})
	if needed < 0 {
		p.log.Debugw("car above target", map[string]any{"car": car.ID, "needed_kwh": needed})
		needed = 0
	}

	res := planner.Plan(planner.Request{
		Prices:       prices,
		WindowStart:  ws,
		WindowEnd:    we,
		NeededEnergy: needed,
		MaxPower:     p.cfg.MaxPower,
		MinBlock:     p.cfg.MinBlock,
		Markup:       p.cfg.Markup.Apply,
	})
	sum := planner.Summarize(res.Slots, p.cfg.MaxPower)

	plan := model.ChargePlan{
		ID:                      uuid.NewString(),
		GeneratedAt:             now,
		DepartureAt:             we,
		ChargerID:               chargerID,
		CarID:                   car.ID,
		NeededEnergy:            planner.Round2(needed),
		PlannedEnergy:           sum.PlannedEnergy,
		ApproxCost:              sum.ApproxCost,
		MaxPower:                planner.Round2(p.cfg.MaxPower),
		CurrentSoC:              math.Round(car.SoC * 100),
		IntervalFallbackMinutes: int(p.deps.Prices.Fallback() / time.Minute),
		Slots:                   res.Slots,
		Note:                    res.Note,
	}
	if err := p.deps.Store.SavePlan(ctx, plan); err != nil {
		return err
	}
	publish(p.deps.Bus, events.PlanEvent{Plan: plan})
	p.log.Infof("plan %s for %s/%s: %.2f kWh needed, %d slots, %.2f kWh planned, cost %.2f",
		plan.ID, chargerID, car.ID, plan.NeededEnergy, len(plan.Slots), plan.PlannedEnergy, plan.ApproxCost)
	if res.Note != "" {
		p.log.Warnf("plan note: %s", res.Note)
	}
	return nil
}
