package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/smartcharge/core/events"
	coremetrics "github.com/kilianp07/smartcharge/core/metrics"
	"github.com/kilianp07/smartcharge/infra/logger"
	"github.com/kilianp07/smartcharge/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// events. It stops when the context is canceled or the bus is closed. The
// returned channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics_collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.PlanEvent:
		return sink.RecordPlan(PlanRecordFrom(e))
	case events.AllocationEvent:
		if r, ok := sink.(coremetrics.AllocationRecorder); ok {
			return r.RecordAllocation(coremetrics.AllocationRecord{
				ChargerID:     e.ChargerID,
				Meter:         e.Meter,
				MaxSettable:   e.MaxSettable,
				Ceiling:       e.Ceiling,
				Target:        e.Target,
				Overload:      e.Overload,
				CapacityShort: e.CapacityShort,
				Time:          e.Time,
			})
		}
	case events.StatusEvent:
		if r, ok := sink.(coremetrics.StatusRecorder); ok {
			return r.RecordStatus(coremetrics.StatusRecord{
				ChargerID: e.ChargerID,
				From:      e.From,
				To:        e.To,
				Source:    e.Source,
				Time:      e.Time,
			})
		}
	case events.ActuationEvent:
		if r, ok := sink.(coremetrics.ActuationRecorder); ok {
			rec := coremetrics.ActuationRecord{
				ChargerID: e.ChargerID,
				Action:    e.Action,
				Success:   e.Err == nil,
				Time:      e.Time,
			}
			if e.Err != nil {
				rec.Error = e.Err.Error()
			}
			return r.RecordActuation(rec)
		}
	}
	return nil
}

// PlanRecordFrom summarizes a plan event.
func PlanRecordFrom(e events.PlanEvent) coremetrics.PlanRecord {
	p := e.Plan
	mins := 0
	for _, s := range p.Slots {
		mins += s.Minutes
	}
	t := p.GeneratedAt
	if t.IsZero() {
		t = time.Now()
	}
	return coremetrics.PlanRecord{
		PlanID:        p.ID,
		ChargerID:     p.ChargerID,
		CarID:         p.CarID,
		NeededEnergy:  p.NeededEnergy,
		PlannedEnergy: p.PlannedEnergy,
		ApproxCost:    p.ApproxCost,
		Slots:         len(p.Slots),
		PlannedMins:   mins,
		Note:          p.Note,
		Time:          t,
	}
}
