// Package metrics defines the events the bridge reports for observability.
// Sinks such as PromSink and InfluxSink implement the optional recorder
// interfaces they support and can be combined with a MultiSink.
package metrics
