package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/smartcharge/core/device"
	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/notify"
	"github.com/kilianp07/smartcharge/core/state"
	"github.com/kilianp07/smartcharge/core/statemachine"
	"github.com/kilianp07/smartcharge/internal/eventbus"
)

// ExecutorDeps are the collaborators of the execute cycle.
type ExecutorDeps struct {
	Store    *state.Store
	Devices  device.State
	Attrs    device.Attributes
	Notifier notify.Notifier
	Messages notify.Messages
	Bus      eventbus.EventBus
	Log      logger.Logger
	Now      func() time.Time
	// SmartDefault applies when the smart charging variable is unset.
	SmartDefault bool
}

// Executor switches the charger on and off according to the plan.
type Executor struct {
	deps ExecutorDeps
	log  logger.Logger
	now  func() time.Time
}

// NewExecutor creates the execute cycle.
func NewExecutor(deps ExecutorDeps) (*Executor, error) {
	if deps.Store == nil || deps.Devices == nil {
		return nil, fmt.Errorf("executor: store and devices are required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	deps.Messages = deps.Messages.WithDefaults()
	return &Executor{deps: deps, log: logger.OrNop(deps.Log), now: nowFunc(deps.Now)}, nil
}

// Run evaluates the plan once. A failed command leaves the status untouched
// so the next run evaluates the same transition again.
func (e *Executor) Run(ctx context.Context) error {
	plan, ok := e.deps.Store.Plan(ctx)
	if !ok {
		e.log.Debugf("no plan yet")
		return nil
	}
	now := e.now()
	ch := device.NewCharger(e.deps.Devices, plan.ChargerID, e.deps.Attrs)
	status := e.deps.Store.Status(ctx)

	d := statemachine.Decide(statemachine.Input{
		Now:           now,
		Plan:          plan,
		Status:        status,
		SmartCharging: e.deps.Store.SmartCharging(ctx, e.deps.SmartDefault),
		CarConnected:  ch.CarConnected(ctx),
	})
	e.log.Debugw("execute decision", map[string]any{
		"charger": plan.ChargerID,
		"status":  status.String(),
		"next":    d.Status.String(),
		"action":  d.Action.String(),
		"in_slot": d.InSlot,
	})

	var err error
	switch d.Action {
	case statemachine.Start:
		err = ch.Start(ctx)
		actuated(e.deps.Bus, e.log, plan.ChargerID, d.Action.String(), err, now)
	case statemachine.Stop:
		err = ch.Stop(ctx)
		actuated(e.deps.Bus, e.log, plan.ChargerID, d.Action.String(), err, now)
	}
	if err != nil {
		return nil
	}

	switch d.Notify {
	case statemachine.NotifyStarted:
		notify.Send(ctx, e.deps.Notifier, e.log, e.deps.Messages.Started)
	case statemachine.NotifyPaused:
		notify.Send(ctx, e.deps.Notifier, e.log, e.deps.Messages.Paused)
	}

	if d.StatusChanged(status) {
		return setStatus(ctx, e.deps.Store, e.deps.Bus, plan.ChargerID, "execute", status, d.Status, now)
	}
	return nil
}
