// Package allocator computes the charger current ceiling that keeps every
// phase of a shared installation under its fuse rating.
package allocator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/smartcharge/core/model"
)

// Config holds the fixed installation parameters.
type Config struct {
	FuseRating       float64 // A per phase
	SafetyHeadroom   float64 // A kept free for other loads
	MaxChargeCurrent float64 // A per phase
	MinActiveCurrent float64 // below this the charger is paused
	// Phases is 1 for a single-phase charger, otherwise 3.
	Phases int
	// SinglePhaseFuse is the 1-based fuse a single-phase charger is wired to.
	SinglePhaseFuse int
	// Asymmetric chargers accept an independent setpoint per phase.
	Asymmetric bool
}

// DefaultConfig mirrors a 25 A installation with a 16 A charger.
func DefaultConfig() Config {
	return Config{
		FuseRating:       25,
		SafetyHeadroom:   4,
		MaxChargeCurrent: 16,
		MinActiveCurrent: 6,
		Phases:           model.Phases,
		SinglePhaseFuse:  1,
	}
}

// Validate checks the parameters for consistency.
func (c Config) Validate() error {
	if c.FuseRating <= 0 {
		return fmt.Errorf("fuse rating must be positive")
	}
	if c.SafetyHeadroom < 0 {
		return fmt.Errorf("safety headroom must not be negative")
	}
	if c.MaxChargeCurrent <= 0 {
		return fmt.Errorf("max charge current must be positive")
	}
	if c.MinActiveCurrent < 0 || c.MinActiveCurrent > c.MaxChargeCurrent {
		return fmt.Errorf("min active current must be within [0, %v]", c.MaxChargeCurrent)
	}
	if c.Phases != 1 && c.Phases != model.Phases {
		return fmt.Errorf("phases must be 1 or %d", model.Phases)
	}
	if c.Phases == 1 && (c.SinglePhaseFuse < 1 || c.SinglePhaseFuse > model.Phases) {
		return fmt.Errorf("single phase fuse must be 1, 2 or 3")
	}
	return nil
}

// FuseLimit is the budget per phase after headroom.
func (c Config) FuseLimit() float64 {
	return math.Max(0, c.FuseRating-c.SafetyHeadroom)
}

// Input is the live data of one allocation cycle.
type Input struct {
	Meter   model.PhaseCurrents // total draw per phase
	Charger model.PhaseCurrents // charger's own draw per phase
	Ceiling float64             // currently configured charger ceiling
	Status  model.ChargeStatus
}

// Decision is the result of one allocation cycle.
type Decision struct {
	FuseLimit float64
	Baseline  model.PhaseCurrents
	// MaxSettable is the per-phase ceiling before emergency and hysteresis;
	// it is persisted as the last applied limits.
	MaxSettable    model.ChargerLimit
	Target         float64
	Overload       bool
	EmergencyLimit float64
	// CapacityShort is set when Target fell below the minimum active current.
	CapacityShort bool
	Status        model.ChargeStatus
	StatusChanged bool
	// Command is the per-phase setpoint to send to the charger.
	Command model.ChargerLimit
	// Anomalies lists the phases whose baseline went negative and was floored.
	Anomalies []int
}

// Allocate runs one allocation cycle. It has no side effects.
func Allocate(cfg Config, in Input) Decision {
	fuseLimit := cfg.FuseLimit()
	meter := in.Meter.Slice()
	charger := in.Charger.Slice()
	if cfg.Phases == 1 {
		charger = singlePhase(in.Charger.L1, cfg.SinglePhaseFuse)
	}
	phases := activePhases(cfg)

	d := Decision{FuseLimit: fuseLimit, Status: in.Status}

	baseline := make([]float64, model.Phases)
	maxSet := make([]float64, model.Phases)
	for p := 0; p < model.Phases; p++ {
		b := meter[p] - charger[p]
		if b < 0 {
			d.Anomalies = append(d.Anomalies, p)
			b = 0
		}
		baseline[p] = b
		maxSet[p] = clamp(math.Floor(fuseLimit-b), 0, cfg.MaxChargeCurrent)
	}
	d.Baseline = model.PhaseCurrentsFrom(baseline)
	d.MaxSettable = model.PhaseCurrentsFrom(maxSet)

	target := clamp(floats.Min(pick(maxSet, phases)), 0, cfg.MaxChargeCurrent)

	for _, p := range phases {
		if meter[p] > fuseLimit {
			d.Overload = true
		}
	}
	perPhase := append([]float64(nil), maxSet...)
	if d.Overload {
		need := make([]float64, model.Phases)
		for p := range need {
			need[p] = math.Floor(fuseLimit - meter[p] + charger[p])
		}
		d.EmergencyLimit = floats.Min(pick(need, phases))
		target = clamp(math.Min(target, d.EmergencyLimit), 0, cfg.MaxChargeCurrent)
		for p := range perPhase {
			perPhase[p] = clamp(math.Min(perPhase[p], d.EmergencyLimit), 0, cfg.MaxChargeCurrent)
		}
	}

	// Hysteresis never lifts the target above the emergency bound or the
	// charger maximum.
	if math.Abs(target-in.Ceiling) < 1 && in.Ceiling <= cfg.MaxChargeCurrent &&
		(!d.Overload || in.Ceiling <= target) {
		target = in.Ceiling
	}

	if target < cfg.MinActiveCurrent {
		target = 0
		d.CapacityShort = true
		d.Status = model.StatusOffCapacity
	} else if in.Status == model.StatusOffCapacity {
		d.Status = model.StatusOffOutsidePlan
	}
	d.StatusChanged = d.Status != in.Status
	d.Target = target

	switch {
	case d.CapacityShort:
		d.Command = model.Uniform(0)
	case cfg.Asymmetric && cfg.Phases != 1:
		d.Command = model.PhaseCurrentsFrom(perPhase)
	default:
		d.Command = model.Uniform(target)
	}
	return d
}

func activePhases(cfg Config) []int {
	if cfg.Phases == 1 {
		return []int{fuseIndex(cfg.SinglePhaseFuse)}
	}
	return []int{0, 1, 2}
}

func singlePhase(reading float64, fuse int) []float64 {
	out := make([]float64, model.Phases)
	out[fuseIndex(fuse)] = reading
	return out
}

func fuseIndex(fuse int) int {
	if fuse < 1 || fuse > model.Phases {
		return 0
	}
	return fuse - 1
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, p := range idx {
		out[i] = v[p]
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
