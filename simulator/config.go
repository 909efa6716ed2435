package main

import (
	"errors"
	"time"
)

// Config holds parameters for the simulator.
type Config struct {
	Broker    string
	Prefix    string
	ChargerID string
	MeterID   string
	CarID     string

	CapacityKWh float64
	InitialSoC  float64
	Phases      int
	Voltage     float64
	MaxCurrent  float64
	Ceiling     float64
	HouseLoad   float64

	Interval   time.Duration
	Speedup    float64
	AckLatency time.Duration
	DropRate   float64
	Verbose    bool
}

// Validate checks the simulator parameters.
func (c *Config) Validate() error {
	var errs []error
	if c.Broker == "" {
		errs = append(errs, errors.New("broker is required"))
	}
	if c.CapacityKWh <= 0 {
		errs = append(errs, errors.New("capacity must be positive"))
	}
	if c.InitialSoC < 0 || c.InitialSoC > 1 {
		errs = append(errs, errors.New("initial soc must be within [0,1]"))
	}
	if c.Phases != 1 && c.Phases != 3 {
		errs = append(errs, errors.New("phases must be 1 or 3"))
	}
	if c.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if c.Speedup <= 0 {
		c.Speedup = 1
	}
	if c.DropRate < 0 || c.DropRate > 1 {
		errs = append(errs, errors.New("drop rate must be within [0,1]"))
	}
	return errors.Join(errs...)
}
