// Package device provides typed accessors for the meter, charger and cars
// over a generic attribute/command interface.
package device

import (
	"context"
	"fmt"

	"github.com/kilianp07/smartcharge/core/model"
)

// State reads device attributes and sends commands. ok is false when the
// attribute is unavailable; implementations never return a zero value as a
// reading.
type State interface {
	Number(ctx context.Context, deviceID, attribute string) (float64, bool)
	String(ctx context.Context, deviceID, attribute string) (string, bool)
	Bool(ctx context.Context, deviceID, attribute string) (bool, bool)
	Command(ctx context.Context, deviceID, action string, args map[string]any) error
}

// Attributes names the device attributes and actions used by the accessors.
type Attributes struct {
	MeterCurrent    [model.Phases]string `json:"meter_current"`
	ChargerCurrent  [model.Phases]string `json:"charger_current"`
	ChargerCeiling  string               `json:"charger_ceiling"`
	CarConnected    string               `json:"car_connected"`
	CarBattery      string               `json:"car_battery"`
	CarChargeState  string               `json:"car_charge_state"`
	ActionStart     string               `json:"action_start"`
	ActionStop      string               `json:"action_stop"`
	ActionSetLimits string               `json:"action_set_limits"`
}

// DefaultAttributes returns the attribute names of a Homey style installation.
func DefaultAttributes() Attributes {
	return Attributes{
		MeterCurrent:    [model.Phases]string{"measure_current.L1", "measure_current.L2", "measure_current.L3"},
		ChargerCurrent:  [model.Phases]string{"measure_current.phase1", "measure_current.phase2", "measure_current.phase3"},
		ChargerCeiling:  "available_installation_current",
		CarConnected:    "alarm_generic.car_connected",
		CarBattery:      "measure_battery",
		CarChargeState:  "ev_charging_state",
		ActionStart:     "start_charging",
		ActionStop:      "stop_charging",
		ActionSetLimits: "installation_current_control",
	}
}

// Meter is the installation's per-phase current meter.
type Meter struct {
	state State
	id    string
	attrs Attributes
}

// NewMeter returns a Meter accessor for deviceID.
func NewMeter(state State, deviceID string, attrs Attributes) Meter {
	return Meter{state: state, id: deviceID, attrs: attrs}
}

// ID returns the device id.
func (m Meter) ID() string { return m.id }

// Currents returns the total draw per phase. Unavailable phases read 0 and
// are listed in missing.
func (m Meter) Currents(ctx context.Context) (cur model.PhaseCurrents, missing []string) {
	return readPhases(ctx, m.state, m.id, m.attrs.MeterCurrent)
}

// Charger is an EV charger.
type Charger struct {
	state State
	id    string
	attrs Attributes
}

// NewCharger returns a Charger accessor for deviceID.
func NewCharger(state State, deviceID string, attrs Attributes) Charger {
	return Charger{state: state, id: deviceID, attrs: attrs}
}

// ID returns the device id.
func (c Charger) ID() string { return c.id }

// CarConnected reports whether a car is plugged in. Unknown reads as false.
func (c Charger) CarConnected(ctx context.Context) bool {
	v, ok := c.state.Bool(ctx, c.id, c.attrs.CarConnected)
	return ok && v
}

// Currents returns the charger's own draw per phase.
func (c Charger) Currents(ctx context.Context) (cur model.PhaseCurrents, missing []string) {
	return readPhases(ctx, c.state, c.id, c.attrs.ChargerCurrent)
}

// Ceiling returns the currently configured current ceiling, 0 when unknown.
func (c Charger) Ceiling(ctx context.Context) float64 {
	v, ok := c.state.Number(ctx, c.id, c.attrs.ChargerCeiling)
	if !ok {
		return 0
	}
	return v
}

// Start commands the charger to start charging.
func (c Charger) Start(ctx context.Context) error {
	if err := c.state.Command(ctx, c.id, c.attrs.ActionStart, nil); err != nil {
		return fmt.Errorf("start %s: %w", c.id, err)
	}
	return nil
}

// Stop commands the charger to stop charging.
func (c Charger) Stop(ctx context.Context) error {
	if err := c.state.Command(ctx, c.id, c.attrs.ActionStop, nil); err != nil {
		return fmt.Errorf("stop %s: %w", c.id, err)
	}
	return nil
}

// SetCurrent sends the per-phase current ceiling.
func (c Charger) SetCurrent(ctx context.Context, l model.ChargerLimit) error {
	args := map[string]any{
		"current1": l.L1,
		"current2": l.L2,
		"current3": l.L3,
	}
	if err := c.state.Command(ctx, c.id, c.attrs.ActionSetLimits, args); err != nil {
		return fmt.Errorf("set current %s: %w", c.id, err)
	}
	return nil
}

// CarInfo is the static description of a car.
type CarInfo struct {
	ID          string
	Name        string
	CapacityKWh float64
}

// Cars reads live car data.
type Cars struct {
	state State
	attrs Attributes
}

// NewCars returns a Cars accessor.
func NewCars(state State, attrs Attributes) Cars {
	return Cars{state: state, attrs: attrs}
}

// Snapshot reads SoC and charging state of every car. Cars without a battery
// reading are skipped.
func (c Cars) Snapshot(ctx context.Context, infos []CarInfo) []model.Car {
	out := make([]model.Car, 0, len(infos))
	for _, info := range infos {
		pct, ok := c.state.Number(ctx, info.ID, c.attrs.CarBattery)
		if !ok {
			continue
		}
		st, _ := c.state.String(ctx, info.ID, c.attrs.CarChargeState)
		out = append(out, model.Car{
			ID:            info.ID,
			Name:          info.Name,
			CapacityKWh:   info.CapacityKWh,
			SoC:           pct / 100,
			ChargingState: st,
		})
	}
	return out
}

func readPhases(ctx context.Context, s State, id string, attrs [model.Phases]string) (model.PhaseCurrents, []string) {
	vals := make([]float64, model.Phases)
	var missing []string
	for i, a := range attrs {
		v, ok := s.Number(ctx, id, a)
		if !ok {
			missing = append(missing, a)
			continue
		}
		vals[i] = v
	}
	return model.PhaseCurrentsFrom(vals), missing
}
