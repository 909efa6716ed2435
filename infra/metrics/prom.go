package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/smartcharge/core/metrics"
	"github.com/kilianp07/smartcharge/core/model"
)

// PromSink exposes plan, allocation, status and actuation metrics.
type PromSink struct {
	plans         *prometheus.CounterVec
	neededEnergy  *prometheus.GaugeVec
	plannedEnergy *prometheus.GaugeVec
	planCost      *prometheus.GaugeVec
	planMinutes   *prometheus.GaugeVec

	meterCurrent  *prometheus.GaugeVec
	maxSettable   *prometheus.GaugeVec
	target        *prometheus.GaugeVec
	overloads     *prometheus.CounterVec
	capacityShort *prometheus.GaugeVec

	transitions *prometheus.CounterVec
	actuations  *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is served separately.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// that are already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	gauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "smartcharge", Name: name, Help: help}, labels)
		if err != nil {
			return g
		}
		g, err = register(reg, g)
		return g
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "smartcharge", Name: name, Help: help}, labels)
		if err != nil {
			return c
		}
		c, err = register(reg, c)
		return c
	}

	s.plans = counter("plans_total", "Number of generated charge plans", "charger_id", "result")
	s.neededEnergy = gauge("plan_needed_energy_kwh", "Energy needed to reach the target state of charge", "charger_id")
	s.plannedEnergy = gauge("plan_planned_energy_kwh", "Energy deliverable in the planned slots", "charger_id")
	s.planCost = gauge("plan_approx_cost", "Approximate cost of the current plan", "charger_id")
	s.planMinutes = gauge("plan_minutes", "Total planned charging minutes", "charger_id")

	s.meterCurrent = gauge("meter_current_amperes", "Installation current per phase", "phase")
	s.maxSettable = gauge("max_settable_current_amperes", "Highest safe charger ceiling per phase", "charger_id", "phase")
	s.target = gauge("target_current_amperes", "Uniform ceiling chosen by the balancer", "charger_id")
	s.overloads = counter("overloads_total", "Balance cycles with a phase above the fuse limit", "charger_id")
	s.capacityShort = gauge("capacity_short", "1 when the charger is paused for lack of current", "charger_id")

	s.transitions = counter("status_transitions_total", "Charge status changes", "charger_id", "from", "to", "source")
	s.actuations = counter("actuations_total", "Commands sent to chargers", "charger_id", "action", "success")
	if err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPlan implements coremetrics.MetricsSink.
func (s *PromSink) RecordPlan(rec coremetrics.PlanRecord) error {
	result := "planned"
	if rec.Slots == 0 {
		result = "empty"
	}
	s.plans.WithLabelValues(rec.ChargerID, result).Inc()
	s.neededEnergy.WithLabelValues(rec.ChargerID).Set(rec.NeededEnergy)
	s.plannedEnergy.WithLabelValues(rec.ChargerID).Set(rec.PlannedEnergy)
	s.planCost.WithLabelValues(rec.ChargerID).Set(rec.ApproxCost)
	s.planMinutes.WithLabelValues(rec.ChargerID).Set(float64(rec.PlannedMins))
	return nil
}

// RecordAllocation implements coremetrics.AllocationRecorder.
func (s *PromSink) RecordAllocation(rec coremetrics.AllocationRecord) error {
	for p := 0; p < model.Phases; p++ {
		phase := "L" + strconv.Itoa(p+1)
		s.meterCurrent.WithLabelValues(phase).Set(rec.Meter.At(p))
		s.maxSettable.WithLabelValues(rec.ChargerID, phase).Set(rec.MaxSettable.At(p))
	}
	s.target.WithLabelValues(rec.ChargerID).Set(rec.Target)
	if rec.Overload {
		s.overloads.WithLabelValues(rec.ChargerID).Inc()
	}
	short := 0.0
	if rec.CapacityShort {
		short = 1
	}
	s.capacityShort.WithLabelValues(rec.ChargerID).Set(short)
	return nil
}

// RecordStatus implements coremetrics.StatusRecorder.
func (s *PromSink) RecordStatus(rec coremetrics.StatusRecord) error {
	s.transitions.WithLabelValues(rec.ChargerID, rec.From.String(), rec.To.String(), rec.Source).Inc()
	return nil
}

// RecordActuation implements coremetrics.ActuationRecorder.
func (s *PromSink) RecordActuation(rec coremetrics.ActuationRecord) error {
	s.actuations.WithLabelValues(rec.ChargerID, rec.Action, strconv.FormatBool(rec.Success)).Inc()
	return nil
}
