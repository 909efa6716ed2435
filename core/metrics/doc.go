// Package metrics defines the sinks that record planning and balancing
// activity. PromSink and InfluxSink live in infra/metrics and can be
// combined with MultiSink; NewMetricsSink returns a MultiSink automatically
// when more than one sink is configured.
package metrics
