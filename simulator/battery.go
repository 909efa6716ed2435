package main

import (
	"sync"
	"time"
)

// Battery models a car battery that only charges.
type Battery struct {
	CapacityKWh float64
	Soc         float64 // [0,1]
	mu          sync.Mutex
}

// Charge adds powerKW for dt and returns the power actually accepted, which
// drops once the battery is full.
func (b *Battery) Charge(powerKW float64, dt time.Duration) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	hours := dt.Hours()
	if hours <= 0 || powerKW <= 0 {
		return 0
	}
	avail := (1 - b.Soc) * b.CapacityKWh
	energy := powerKW * hours
	if energy > avail {
		energy = avail
	}
	b.Soc += energy / b.CapacityKWh
	if b.Soc > 1 {
		b.Soc = 1
	}
	return energy / hours
}

// Level returns the state of charge.
func (b *Battery) Level() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Soc
}
