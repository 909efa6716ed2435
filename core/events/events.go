package events

import (
	"time"

	"github.com/kilianp07/smartcharge/core/model"
)

// PlanEvent is published after the plan cycle persisted a plan.
type PlanEvent struct {
	Plan model.ChargePlan
}

// StatusEvent is published when a cycle writes a different status.
// Source is the cycle name.
type StatusEvent struct {
	ChargerID string
	From      model.ChargeStatus
	To        model.ChargeStatus
	Source    string
	Time      time.Time
}

// AllocationEvent carries the inputs and outcome of one balance cycle.
type AllocationEvent struct {
	ChargerID     string
	Meter         model.PhaseCurrents
	Charger       model.PhaseCurrents
	MaxSettable   model.ChargerLimit
	Ceiling       float64
	Target        float64
	Overload      bool
	CapacityShort bool
	Time          time.Time
}

// ActuationEvent reports a command sent to a charger. Err is nil on success.
type ActuationEvent struct {
	ChargerID string
	Action    string
	Err       error
	Time      time.Time
}
