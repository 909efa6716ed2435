// Package statemachine turns the current plan and charge status into an
// on/off decision for the charger.
package statemachine

import (
	"time"

	"github.com/kilianp07/smartcharge/core/model"
)

// Action is the command the executor should send.
type Action int

// Actions; None leaves the charger as it is.
const (
	None Action = iota
	Start
	Stop
)

func (a Action) String() string {
	switch a {
	case Start:
		return "start"
	case Stop:
		return "stop"
	default:
		return "none"
	}
}

// Notification identifies the user message attached to a decision.
type Notification int

// Notifications sent on entering or leaving a planned interval.
const (
	NotifyNone Notification = iota
	NotifyStarted
	NotifyPaused
)

// Input is the data read at the start of an execute cycle.
type Input struct {
	Now           time.Time
	Plan          model.ChargePlan
	Status        model.ChargeStatus
	SmartCharging bool
	CarConnected  bool
}

// Decision is the outcome of Decide.
type Decision struct {
	Action Action
	Status model.ChargeStatus
	Notify Notification
	InSlot bool
}

// StatusChanged reports whether the decision moves away from prev.
func (d Decision) StatusChanged(prev model.ChargeStatus) bool {
	return d.Status != prev
}

// InSlot reports whether now falls in one of the slots, each taken as
// [start, end).
func InSlot(slots []model.PlanSlot, now time.Time) bool {
	for _, s := range slots {
		if s.Contains(now) {
			return true
		}
	}
	return false
}

// Decide computes the charger command and the next status. off_capacity is
// owned by the allocator: it is never entered here and it blocks starts.
func Decide(in Input) Decision {
	d := Decision{Status: in.Status, InSlot: InSlot(in.Plan.Slots, in.Now)}
	if !in.CarConnected {
		return d
	}

	if !d.InSlot && in.SmartCharging {
		d.Action = Stop
		if in.Status != model.StatusOffCapacity {
			d.Status = model.StatusOffOutsidePlan
		}
		if in.Status == model.StatusCharging {
			d.Notify = NotifyPaused
		}
		return d
	}

	switch in.Status {
	case model.StatusOffCapacity:
		return d
	case model.StatusCharging:
		return d
	default:
		d.Action = Start
		d.Status = model.StatusCharging
		d.Notify = NotifyStarted
		return d
	}
}
