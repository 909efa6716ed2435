package metrics

import "errors"

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlan forwards to all sinks and joins their errors.
func (m *MultiSink) RecordPlan(rec PlanRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordPlan(rec))
	}
	return errors.Join(errs...)
}

// RecordAllocation forwards to the sinks that support it.
func (m *MultiSink) RecordAllocation(rec AllocationRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(AllocationRecorder); ok {
			errs = append(errs, r.RecordAllocation(rec))
		}
	}
	return errors.Join(errs...)
}

// RecordStatus forwards to the sinks that support it.
func (m *MultiSink) RecordStatus(rec StatusRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(StatusRecorder); ok {
			errs = append(errs, r.RecordStatus(rec))
		}
	}
	return errors.Join(errs...)
}

// RecordActuation forwards to the sinks that support it.
func (m *MultiSink) RecordActuation(rec ActuationRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(ActuationRecorder); ok {
			errs = append(errs, r.RecordActuation(rec))
		}
	}
	return errors.Join(errs...)
}
