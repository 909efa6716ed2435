package model

// ChargeStatus is the persisted charging state label shared by the execution
// and allocation cycles.
type ChargeStatus string

const (
	StatusUnset          ChargeStatus = ""
	StatusCharging       ChargeStatus = "charging"
	StatusOffOutsidePlan ChargeStatus = "off_outside_plan"
	StatusOffCapacity    ChargeStatus = "off_capacity"
)

// String returns a human-readable representation of the status.
func (s ChargeStatus) String() string {
	if s == StatusUnset {
		return "unset"
	}
	return string(s)
}

// Valid reports whether s is one of the known labels.
func (s ChargeStatus) Valid() bool {
	switch s {
	case StatusUnset, StatusCharging, StatusOffOutsidePlan, StatusOffCapacity:
		return true
	default:
		return false
	}
}
