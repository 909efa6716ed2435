package cycle

import (
	"context"
	"time"

	"github.com/kilianp07/smartcharge/core/events"
	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/model"
	"github.com/kilianp07/smartcharge/core/monitoring"
	"github.com/kilianp07/smartcharge/core/state"
	"github.com/kilianp07/smartcharge/internal/eventbus"
)

// Runner is one periodic evaluation.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Window returns the demand window for a planning run at now.
//
// Inside an overnight window that began on the previous day the window
// starts now and ends at today's departure. Otherwise it starts at the later
// of now and today's window start and ends at the next departure after that.
func Window(now time.Time, start, departure model.Clock) (time.Time, time.Time) {
	prevStart := start.On(now).AddDate(0, 0, -1)
	if end := departure.Next(prevStart); now.Before(end) && !now.Before(prevStart) {
		return now, end
	}
	ws := start.On(now)
	if now.After(ws) {
		ws = now
	}
	return ws, departure.Next(ws)
}

// publish is a nil-safe bus publish.
func publish(bus eventbus.EventBus, ev eventbus.Event) {
	if bus != nil {
		bus.Publish(ev)
	}
}

func nowFunc(f func() time.Time) func() time.Time {
	if f == nil {
		return time.Now
	}
	return f
}

// actuated logs and reports a charger command outcome.
func actuated(bus eventbus.EventBus, log logger.Logger, chargerID, action string, err error, at time.Time) {
	publish(bus, events.ActuationEvent{ChargerID: chargerID, Action: action, Err: err, Time: at})
	if err == nil {
		log.Infof("%s sent to %s", action, chargerID)
		return
	}
	log.Errorf("%s failed: %v", action, err)
	monitoring.CaptureException(err, map[string]string{"charger": chargerID, "action": action})
}

// setStatus persists a status change and publishes it.
func setStatus(ctx context.Context, st *state.Store, bus eventbus.EventBus, chargerID, source string, from, to model.ChargeStatus, at time.Time) error {
	if err := st.SetStatus(ctx, to); err != nil {
		return err
	}
	publish(bus, events.StatusEvent{ChargerID: chargerID, From: from, To: to, Source: source, Time: at})
	return nil
}
