package model

// Car describes an electric vehicle known to the planner.
type Car struct {
	ID          string
	Name        string
	CapacityKWh float64 // usable battery capacity
	SoC         float64 // state of charge between 0 and 1
	// ChargingState is the vehicle reported plug state, e.g. "plugged_out".
	ChargingState string
}

// PluggedOut reports whether the car explicitly reports being unplugged.
func (c Car) PluggedOut() bool {
	return c.ChargingState == "plugged_out"
}
