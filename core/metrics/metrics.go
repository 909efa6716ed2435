package metrics

import (
	"time"

	"github.com/kilianp07/smartcharge/core/model"
)

// PlanRecord summarizes a generated plan.
type PlanRecord struct {
	PlanID        string
	ChargerID     string
	CarID         string
	NeededEnergy  float64
	PlannedEnergy float64
	ApproxCost    float64
	Slots         int
	PlannedMins   int
	Note          string
	Time          time.Time
}

// MetricsSink records plan summaries. Other records are optional and
// detected through the recorder interfaces below.
type MetricsSink interface {
	RecordPlan(rec PlanRecord) error
}

// AllocationRecord is the outcome of one balance cycle.
type AllocationRecord struct {
	ChargerID     string
	Meter         model.PhaseCurrents
	MaxSettable   model.ChargerLimit
	Ceiling       float64
	Target        float64
	Overload      bool
	CapacityShort bool
	Time          time.Time
}

// AllocationRecorder records balance cycles.
type AllocationRecorder interface {
	RecordAllocation(rec AllocationRecord) error
}

// StatusRecord is a status transition.
type StatusRecord struct {
	ChargerID string
	From      model.ChargeStatus
	To        model.ChargeStatus
	Source    string
	Time      time.Time
}

// StatusRecorder records status transitions.
type StatusRecorder interface {
	RecordStatus(rec StatusRecord) error
}

// ActuationRecord is a command sent to a charger.
type ActuationRecord struct {
	ChargerID string
	Action    string
	Success   bool
	Error     string
	Time      time.Time
}

// ActuationRecorder records charger commands.
type ActuationRecorder interface {
	RecordActuation(rec ActuationRecord) error
}

// NopSink implements every recorder and discards the records.
type NopSink struct{}

func (NopSink) RecordPlan(PlanRecord) error             { return nil }
func (NopSink) RecordAllocation(AllocationRecord) error { return nil }
func (NopSink) RecordStatus(StatusRecord) error         { return nil }
func (NopSink) RecordActuation(ActuationRecord) error   { return nil }
