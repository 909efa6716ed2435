// Package demand estimates how much grid energy a car needs to reach its
// target state of charge.
package demand

// DefaultTarget is the state of charge charged to when none is configured.
const DefaultTarget = 0.8

// Input describes the car battery and charging losses.
type Input struct {
	CapacityKWh float64 // usable battery capacity
	SoC         float64 // current state of charge, 0..1
	Target      float64 // desired state of charge, 0..1; 0 means DefaultTarget
	Efficiency  float64 // charging efficiency in (0,1]; 0 means lossless
}

// Estimate returns the energy in kWh that has to be drawn from the grid.
// The battery deficit is inflated by the conversion losses (1-efficiency).
// The result is negative when the car is already above target; callers
// decide how to treat that.
func Estimate(in Input) float64 {
	target := in.Target
	if target == 0 {
		target = DefaultTarget
	}
	e := in.Efficiency
	if e <= 0 || e > 1 {
		e = 1
	}
	deficit := in.CapacityKWh*target - in.CapacityKWh*in.SoC
	return deficit * (1 + (1 - e))
}

// PowerFromCurrent returns the charging power in kW for a per-phase current.
func PowerFromCurrent(amps float64, phases int, voltage float64) float64 {
	return amps * float64(phases) * voltage / 1000
}
