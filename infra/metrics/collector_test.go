package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/smartcharge/core/events"
	coremetrics "github.com/kilianp07/smartcharge/core/metrics"
	"github.com/kilianp07/smartcharge/core/model"
	"github.com/kilianp07/smartcharge/internal/eventbus"
)

type captureSink struct {
	mu          sync.Mutex
	plans       []coremetrics.PlanRecord
	allocations []coremetrics.AllocationRecord
	statuses    []coremetrics.StatusRecord
	actuations  []coremetrics.ActuationRecord
}

func (c *captureSink) RecordPlan(r coremetrics.PlanRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans = append(c.plans, r)
	return nil
}
func (c *captureSink) RecordAllocation(r coremetrics.AllocationRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allocations = append(c.allocations, r)
	return nil
}
func (c *captureSink) RecordStatus(r coremetrics.StatusRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, r)
	return nil
}
func (c *captureSink) RecordActuation(r coremetrics.ActuationRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actuations = append(c.actuations, r)
	return nil
}

func (c *captureSink) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.plans) + len(c.allocations) + len(c.statuses) + len(c.actuations)
}

func TestEventCollector(t *testing.T) {
	bus := eventbus.New()
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, sink)

	now := time.Date(2025, 1, 14, 1, 0, 0, 0, time.UTC)
	bus.Publish(events.PlanEvent{Plan: model.ChargePlan{
		ID: "p", ChargerID: "c1", GeneratedAt: now,
		Slots: []model.PlanSlot{{Minutes: 60}, {Minutes: 15}},
	}})
	bus.Publish(events.AllocationEvent{ChargerID: "c1", Target: 10, Time: now})
	bus.Publish(events.StatusEvent{ChargerID: "c1", From: model.StatusUnset, To: model.StatusCharging, Source: "execute", Time: now})
	bus.Publish(events.ActuationEvent{ChargerID: "c1", Action: "start", Err: errors.New("offline"), Time: now})
	bus.Publish("ignored")

	assert.Eventually(t, func() bool { return sink.total() == 4 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	require.Len(t, sink.plans, 1)
	assert.Equal(t, 75, sink.plans[0].PlannedMins)
	assert.Equal(t, 2, sink.plans[0].Slots)
	assert.Equal(t, now, sink.plans[0].Time)
	assert.Equal(t, 10.0, sink.allocations[0].Target)
	assert.Equal(t, "execute", sink.statuses[0].Source)
	assert.False(t, sink.actuations[0].Success)
	assert.Equal(t, "offline", sink.actuations[0].Error)
}

func TestEventCollectorPlanOnlySink(t *testing.T) {
	bus := eventbus.New()
	sink := &planOnly{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := StartEventCollector(ctx, bus, sink)

	bus.Publish(events.StatusEvent{ChargerID: "c1"})
	bus.Publish(events.PlanEvent{Plan: model.ChargePlan{ChargerID: "c1"}})
	bus.Close()
	<-done
	assert.Equal(t, 1, sink.n)
}

type planOnly struct{ n int }

func (p *planOnly) RecordPlan(coremetrics.PlanRecord) error { p.n++; return nil }

func TestEventCollectorNilBus(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, coremetrics.NopSink{})
	_, open := <-done
	assert.False(t, open)
}
