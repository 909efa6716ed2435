package model

import "math"

// Phases is the number of electrical phases of the installation.
const Phases = 3

// PhaseCurrents holds one current value in amperes per phase.
type PhaseCurrents struct {
	L1 float64 `json:"L1"`
	L2 float64 `json:"L2"`
	L3 float64 `json:"L3"`
}

// At returns the value of phase i (0-based). Out of range indices return 0.
func (p PhaseCurrents) At(i int) float64 {
	switch i {
	case 0:
		return p.L1
	case 1:
		return p.L2
	case 2:
		return p.L3
	default:
		return 0
	}
}

// Slice returns the phases in L1..L3 order.
func (p PhaseCurrents) Slice() []float64 {
	return []float64{p.L1, p.L2, p.L3}
}

// Max returns the largest phase value.
func (p PhaseCurrents) Max() float64 {
	return math.Max(p.L1, math.Max(p.L2, p.L3))
}

// Min returns the smallest phase value.
func (p PhaseCurrents) Min() float64 {
	return math.Min(p.L1, math.Min(p.L2, p.L3))
}

// PhaseCurrentsFrom builds PhaseCurrents from a slice of up to three values.
func PhaseCurrentsFrom(v []float64) PhaseCurrents {
	var p PhaseCurrents
	for i, x := range v {
		switch i {
		case 0:
			p.L1 = x
		case 1:
			p.L2 = x
		case 2:
			p.L3 = x
		}
	}
	return p
}

// Uniform returns PhaseCurrents with the same value on every phase.
func Uniform(a float64) PhaseCurrents {
	return PhaseCurrents{L1: a, L2: a, L3: a}
}

// ChargerLimit is the per-phase current ceiling applied to a charger.
type ChargerLimit = PhaseCurrents
