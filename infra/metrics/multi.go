package metrics

import (
	"errors"
	"sync"

	coremetrics "github.com/kilianp07/carbridge/core/metrics"
)

// MultiSink fans events out to multiple sinks. Sinks can be added while the
// bridge runs, so plugins can hold the MultiSink before the exporters exist.
type MultiSink struct {
	mu    sync.RWMutex
	sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Add appends a sink.
func (m *MultiSink) Add(s coremetrics.Sink) {
	m.mu.Lock()
	m.sinks = append(m.sinks, s)
	m.mu.Unlock()
}

// Len returns the number of sinks.
func (m *MultiSink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sinks)
}

func (m *MultiSink) snapshot() []coremetrics.Sink {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]coremetrics.Sink, len(m.sinks))
	copy(out, m.sinks)
	return out
}

// each calls fn for every sink and joins the errors.
func each[R any](m *MultiSink, fn func(R) error) error {
	var errs []error
	for _, s := range m.snapshot() {
		if r, ok := s.(R); ok {
			if err := fn(r); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordPublish forwards publish events.
func (m *MultiSink) RecordPublish(ev coremetrics.PublishEvent) error {
	return each(m, func(s coremetrics.Sink) error { return s.RecordPublish(ev) })
}

// RecordWrite forwards write events.
func (m *MultiSink) RecordWrite(ev coremetrics.WriteEvent) error {
	return each(m, func(r coremetrics.WriteRecorder) error { return r.RecordWrite(ev) })
}

// RecordDiscovery forwards discovery events.
func (m *MultiSink) RecordDiscovery(ev coremetrics.DiscoveryEvent) error {
	return each(m, func(r coremetrics.DiscoveryRecorder) error { return r.RecordDiscovery(ev) })
}

// RecordConnection forwards connection events.
func (m *MultiSink) RecordConnection(ev coremetrics.ConnectionEvent) error {
	return each(m, func(r coremetrics.ConnectionRecorder) error { return r.RecordConnection(ev) })
}

// RecordAttribute forwards attribute changes.
func (m *MultiSink) RecordAttribute(ev coremetrics.AttributeEvent) error {
	return each(m, func(r coremetrics.AttributeRecorder) error { return r.RecordAttribute(ev) })
}

// RecordGarageSize forwards the garage size.
func (m *MultiSink) RecordGarageSize(size int) error {
	return each(m, func(r coremetrics.GarageRecorder) error { return r.RecordGarageSize(size) })
}
