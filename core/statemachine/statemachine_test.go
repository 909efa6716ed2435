package statemachine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/smartcharge/core/model"
)

var (
	slotStart = time.Date(2025, 1, 14, 23, 0, 0, 0, time.UTC)
	slotEnd   = slotStart.Add(6 * time.Hour)
	plan      = model.ChargePlan{
		ChargerID: "easee-1",
		Slots:     []model.PlanSlot{{Start: slotStart, End: slotEnd, Minutes: 360}},
	}
)

func TestInSlot_HalfOpen(t *testing.T) {
	assert.True(t, InSlot(plan.Slots, slotStart))
	assert.True(t, InSlot(plan.Slots, slotEnd.Add(-time.Second)))
	assert.False(t, InSlot(plan.Slots, slotEnd))
	assert.False(t, InSlot(nil, slotStart))
}

func TestDecide(t *testing.T) {
	inside := slotStart.Add(time.Hour)
	outside := slotEnd.Add(time.Hour)

	tests := []struct {
		name   string
		in     Input
		action Action
		status model.ChargeStatus
		notify Notification
	}{
		{
			name:   "no car",
			in:     Input{Now: inside, Plan: plan, Status: model.StatusOffOutsidePlan, SmartCharging: true},
			action: None, status: model.StatusOffOutsidePlan, notify: NotifyNone,
		},
		{
			name:   "start in slot",
			in:     Input{Now: inside, Plan: plan, Status: model.StatusOffOutsidePlan, SmartCharging: true, CarConnected: true},
			action: Start, status: model.StatusCharging, notify: NotifyStarted,
		},
		{
			name:   "start from unset",
			in:     Input{Now: inside, Plan: plan, SmartCharging: true, CarConnected: true},
			action: Start, status: model.StatusCharging, notify: NotifyStarted,
		},
		{
			name:   "already charging",
			in:     Input{Now: inside, Plan: plan, Status: model.StatusCharging, SmartCharging: true, CarConnected: true},
			action: None, status: model.StatusCharging, notify: NotifyNone,
		},
		{
			name:   "capacity blocks start",
			in:     Input{Now: inside, Plan: plan, Status: model.StatusOffCapacity, SmartCharging: true, CarConnected: true},
			action: None, status: model.StatusOffCapacity, notify: NotifyNone,
		},
		{
			name:   "pause at slot end",
			in:     Input{Now: outside, Plan: plan, Status: model.StatusCharging, SmartCharging: true, CarConnected: true},
			action: Stop, status: model.StatusOffOutsidePlan, notify: NotifyPaused,
		},
		{
			name:   "stays off outside plan without notification",
			in:     Input{Now: outside, Plan: plan, Status: model.StatusOffOutsidePlan, SmartCharging: true, CarConnected: true},
			action: Stop, status: model.StatusOffOutsidePlan, notify: NotifyNone,
		},
		{
			name:   "capacity kept outside plan",
			in:     Input{Now: outside, Plan: plan, Status: model.StatusOffCapacity, SmartCharging: true, CarConnected: true},
			action: Stop, status: model.StatusOffCapacity, notify: NotifyNone,
		},
		{
			name:   "smart charging off starts outside plan",
			in:     Input{Now: outside, Plan: plan, Status: model.StatusOffOutsidePlan, CarConnected: true},
			action: Start, status: model.StatusCharging, notify: NotifyStarted,
		},
		{
			name:   "empty plan stops",
			in:     Input{Now: inside, Status: model.StatusCharging, SmartCharging: true, CarConnected: true},
			action: Stop, status: model.StatusOffOutsidePlan, notify: NotifyPaused,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.in)
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.status, d.Status)
			assert.Equal(t, tt.notify, d.Notify)
		})
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "start", Start.String())
	assert.Equal(t, "stop", Stop.String())
	assert.Equal(t, "none", None.String())
}
