package model

import "time"

// PricedInterval is one row of a price table: a unit price per kWh valid
// between Start and End.
type PricedInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Price float64   `json:"price"`
}

// Duration returns End - Start.
func (p PricedInterval) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// NormalizedSlot is a PricedInterval clipped to a demand window together with
// the energy deliverable in it at the configured power ceiling.
type NormalizedSlot struct {
	Start          time.Time
	End            time.Time
	Minutes        int
	Hours          float64
	EnergyCapacity float64 // kWh at max power
	Price          float64
}

// PlanSlot is a time span during which the charger is commanded on.
type PlanSlot struct {
	Start   time.Time `json:"start" yaml:"start"`
	End     time.Time `json:"end" yaml:"end"`
	Minutes int       `json:"minutes" yaml:"minutes"`
	Price   float64   `json:"price" yaml:"price"`
}

// Contains reports whether t lies in [Start, End).
func (s PlanSlot) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End)
}

// ChargePlan is the hand-off artifact between the planning cycle and the
// execution and allocation cycles.
type ChargePlan struct {
	ID                      string     `json:"id" yaml:"id"`
	GeneratedAt             time.Time  `json:"generatedAt" yaml:"generated_at"`
	DepartureAt             time.Time  `json:"departureAt" yaml:"departure_at"`
	ChargerID               string     `json:"chargerId" yaml:"charger_id"`
	CarID                   string     `json:"carId,omitempty" yaml:"car_id,omitempty"`
	NeededEnergy            float64    `json:"neededEnergy" yaml:"needed_energy"`
	PlannedEnergy           float64    `json:"plannedEnergyKwh" yaml:"planned_energy_kwh"`
	ApproxCost              float64    `json:"approxCost" yaml:"approx_cost"`
	MaxPower                float64    `json:"maxKw" yaml:"max_kw"`
	CurrentSoC              float64    `json:"currentSoC" yaml:"current_soc"`
	IntervalFallbackMinutes int        `json:"intervalFallbackMin,omitempty" yaml:"interval_fallback_min,omitempty"`
	Slots                   []PlanSlot `json:"slots" yaml:"slots"`
	Note                    string     `json:"note,omitempty" yaml:"note,omitempty"`
}

// Empty reports whether the plan has no charger assigned, which is how an
// absent or unreadable plan is represented.
func (p ChargePlan) Empty() bool {
	return p.ChargerID == ""
}

// ActiveSlot returns the slot containing t, if any.
func (p ChargePlan) ActiveSlot(t time.Time) (PlanSlot, bool) {
	for _, s := range p.Slots {
		if s.Contains(t) {
			return s, true
		}
	}
	return PlanSlot{}, false
}
