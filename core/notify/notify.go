// Package notify sends best-effort user notifications.
package notify

import (
	"context"

	"github.com/kilianp07/smartcharge/core/logger"
)

// Notifier pushes a text message to the user.
type Notifier interface {
	Push(ctx context.Context, text string) error
}

// Messages holds the texts sent on charging events.
type Messages struct {
	Started       string `json:"started"`
	Paused        string `json:"paused"`
	CapacityShort string `json:"capacity_short"`
}

// DefaultMessages returns the built-in texts.
func DefaultMessages() Messages {
	return Messages{
		Started:       "Smart charging started.",
		Paused:        "Charging paused because of a high electricity price.",
		CapacityShort: "Not enough current available for smart charging, pausing until other consumption drops.",
	}
}

// WithDefaults fills empty texts from DefaultMessages.
func (m Messages) WithDefaults() Messages {
	d := DefaultMessages()
	if m.Started == "" {
		m.Started = d.Started
	}
	if m.Paused == "" {
		m.Paused = d.Paused
	}
	if m.CapacityShort == "" {
		m.CapacityShort = d.CapacityShort
	}
	return m
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Push(context.Context, string) error { return nil }

// Send pushes text and logs a failure instead of returning it.
func Send(ctx context.Context, n Notifier, log logger.Logger, text string) {
	if n == nil || text == "" {
		return
	}
	if err := n.Push(ctx, text); err != nil {
		logger.OrNop(log).Warnf("notification failed: %v", err)
	}
}
