package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/smartcharge/core/allocator"
	"github.com/kilianp07/smartcharge/core/device"
	"github.com/kilianp07/smartcharge/core/events"
	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/model"
	"github.com/kilianp07/smartcharge/core/notify"
	"github.com/kilianp07/smartcharge/core/state"
	"github.com/kilianp07/smartcharge/internal/eventbus"
)

// BalancerDeps are the collaborators of the balance cycle.
type BalancerDeps struct {
	Store    *state.Store
	Devices  device.State
	Attrs    device.Attributes
	MeterID  string
	Notifier notify.Notifier
	Messages notify.Messages
	Bus      eventbus.EventBus
	Log      logger.Logger
	Now      func() time.Time
}

// Balancer keeps the charger under the installation's fuse budget.
type Balancer struct {
	cfg  allocator.Config
	deps BalancerDeps
	log  logger.Logger
	now  func() time.Time
}

// NewBalancer creates the balance cycle.
func NewBalancer(cfg allocator.Config, deps BalancerDeps) (*Balancer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("balancer: %w", err)
	}
	if deps.Store == nil || deps.Devices == nil {
		return nil, fmt.Errorf("balancer: store and devices are required")
	}
	if deps.MeterID == "" {
		return nil, fmt.Errorf("balancer: meter id is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	deps.Messages = deps.Messages.WithDefaults()
	return &Balancer{cfg: cfg, deps: deps, log: logger.OrNop(deps.Log), now: nowFunc(deps.Now)}, nil
}

// Run performs one allocation. It only acts while the charger is charging
// or paused for capacity.
func (b *Balancer) Run(ctx context.Context) error {
	status := b.deps.Store.Status(ctx)
	if status != model.StatusCharging && status != model.StatusOffCapacity {
		return nil
	}
	plan, ok := b.deps.Store.Plan(ctx)
	if !ok {
		return nil
	}
	now := b.now()
	ch := device.NewCharger(b.deps.Devices, plan.ChargerID, b.deps.Attrs)
	meter := device.NewMeter(b.deps.Devices, b.deps.MeterID, b.deps.Attrs)

	meterCur, missing := meter.Currents(ctx)
	if len(missing) > 0 {
		b.log.Warnf("meter %s: %v unavailable, reading 0", meter.ID(), missing)
	}
	chCur, _ := ch.Currents(ctx)
	ceiling := ch.Ceiling(ctx)

	d := allocator.Allocate(b.cfg, allocator.Input{
		Meter:   meterCur,
		Charger: chCur,
		Ceiling: ceiling,
		Status:  status,
	})
	for _, p := range d.Anomalies {
		b.log.Debugw("negative baseline floored", map[string]any{
			"phase":   fmt.Sprintf("L%d", p+1),
			"meter":   meterCur.At(p),
			"charger": chCur.At(p),
		})
	}

	prev := b.deps.Store.Limits(ctx, model.Uniform(b.cfg.MaxChargeCurrent))
	if prev != d.MaxSettable {
		b.log.Infof("limits for %s changed to %.0f/%.0f/%.0f A",
			plan.ChargerID, d.MaxSettable.L1, d.MaxSettable.L2, d.MaxSettable.L3)
	}
	if err := b.deps.Store.SaveLimits(ctx, d.MaxSettable); err != nil {
		return err
	}

	if d.StatusChanged {
		if err := setStatus(ctx, b.deps.Store, b.deps.Bus, plan.ChargerID, "balance", status, d.Status, now); err != nil {
			return err
		}
		if d.Status == model.StatusOffCapacity {
			notify.Send(ctx, b.deps.Notifier, b.log, b.deps.Messages.CapacityShort)
		}
	}

	publish(b.deps.Bus, events.AllocationEvent{
		ChargerID:     plan.ChargerID,
		Meter:         meterCur,
		Charger:       chCur,
		MaxSettable:   d.MaxSettable,
		Ceiling:       ceiling,
		Target:        d.Target,
		Overload:      d.Overload,
		CapacityShort: d.CapacityShort,
		Time:          now,
	})
	if d.Overload {
		b.log.Warnf("phase above %.0f A, emergency limit %.0f A", d.FuseLimit, d.EmergencyLimit)
	}

	err := ch.SetCurrent(ctx, d.Command)
	actuated(b.deps.Bus, b.log, plan.ChargerID, "set_current", err, now)
	return nil
}
