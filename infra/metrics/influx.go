package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/smartcharge/core/metrics"
	"github.com/kilianp07/smartcharge/infra/logger"
)

// InfluxSink writes plan and balancing records to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPlan writes a plan summary.
func (s *InfluxSink) RecordPlan(rec coremetrics.PlanRecord) error {
	p := write.NewPointWithMeasurement("charge_plan").
		AddTag("plan_id", rec.PlanID).
		AddTag("charger_id", rec.ChargerID).
		AddTag("car_id", rec.CarID).
		AddField("needed_energy_kwh", round3(rec.NeededEnergy)).
		AddField("planned_energy_kwh", round3(rec.PlannedEnergy)).
		AddField("approx_cost", round3(rec.ApproxCost)).
		AddField("slots", rec.Slots).
		AddField("planned_minutes", rec.PlannedMins).
		AddField("note", rec.Note).
		SetTime(rec.Time)
	return s.write(p)
}

// RecordAllocation writes the currents seen by one balance cycle.
func (s *InfluxSink) RecordAllocation(rec coremetrics.AllocationRecord) error {
	p := write.NewPointWithMeasurement("allocation").
		AddTag("charger_id", rec.ChargerID).
		AddTag("overload", strconv.FormatBool(rec.Overload)).
		AddField("meter_l1", round3(rec.Meter.L1)).
		AddField("meter_l2", round3(rec.Meter.L2)).
		AddField("meter_l3", round3(rec.Meter.L3)).
		AddField("max_settable_l1", round3(rec.MaxSettable.L1)).
		AddField("max_settable_l2", round3(rec.MaxSettable.L2)).
		AddField("max_settable_l3", round3(rec.MaxSettable.L3)).
		AddField("ceiling", round3(rec.Ceiling)).
		AddField("target", round3(rec.Target)).
		AddField("capacity_short", rec.CapacityShort).
		SetTime(rec.Time)
	return s.write(p)
}

// RecordStatus writes a status transition.
func (s *InfluxSink) RecordStatus(rec coremetrics.StatusRecord) error {
	p := write.NewPointWithMeasurement("charge_status").
		AddTag("charger_id", rec.ChargerID).
		AddTag("source", rec.Source).
		AddField("from", rec.From.String()).
		AddField("to", rec.To.String()).
		SetTime(rec.Time)
	return s.write(p)
}

// RecordActuation writes a charger command outcome.
func (s *InfluxSink) RecordActuation(rec coremetrics.ActuationRecord) error {
	p := write.NewPointWithMeasurement("actuation").
		AddTag("charger_id", rec.ChargerID).
		AddTag("action", rec.Action).
		AddTag("success", strconv.FormatBool(rec.Success)).
		AddField("error", rec.Error).
		SetTime(rec.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
