package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/carbridge/core/metrics"
)

// PromSink records bridge events in Prometheus metrics.
type PromSink struct {
	published *prometheus.CounterVec
	writes    *prometheus.CounterVec
	discovery *prometheus.CounterVec
	connected *prometheus.GaugeVec
	vehicles  prometheus.Gauge
}

// NewPromSink registers the bridge metrics on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on reg. A nil registerer
// defaults to the global one. Collectors already registered by an earlier
// sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	published, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "carbridge_mqtt_published_messages_total",
		Help: "MQTT publish attempts by plugin and result",
	}, []string{"plugin", "result", "retained"}))
	if err != nil {
		return nil, err
	}
	writes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "carbridge_mqtt_writes_total",
		Help: "Values written through MQTT write topics",
	}, []string{"plugin", "result"}))
	if err != nil {
		return nil, err
	}
	discovery, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "carbridge_homeassistant_discovery_total",
		Help: "Home Assistant discovery messages by outcome",
	}, []string{"plugin", "forced", "published"}))
	if err != nil {
		return nil, err
	}
	connected, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "carbridge_component_connected",
		Help: "1 when the component is connected",
	}, []string{"component"}))
	if err != nil {
		return nil, err
	}
	vehicles, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "carbridge_garage_vehicles",
		Help: "Number of vehicles in the garage",
	}))
	if err != nil {
		return nil, err
	}
	return &PromSink{published: published, writes: writes, discovery: discovery, connected: connected, vehicles: vehicles}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// RecordPublish counts a publish attempt.
func (s *PromSink) RecordPublish(ev coremetrics.PublishEvent) error {
	s.published.WithLabelValues(ev.Plugin, coremetrics.Result(ev.Err), strconv.FormatBool(ev.Retained)).Inc()
	return nil
}

// RecordWrite counts a write request.
func (s *PromSink) RecordWrite(ev coremetrics.WriteEvent) error {
	s.writes.WithLabelValues(ev.Plugin, coremetrics.Result(ev.Err)).Inc()
	return nil
}

// RecordDiscovery counts a discovery decision.
func (s *PromSink) RecordDiscovery(ev coremetrics.DiscoveryEvent) error {
	s.discovery.WithLabelValues(ev.Plugin, strconv.FormatBool(ev.Forced), strconv.FormatBool(ev.Published)).Inc()
	return nil
}

// RecordConnection sets the connected gauge.
func (s *PromSink) RecordConnection(ev coremetrics.ConnectionEvent) error {
	v := 0.0
	if ev.State == "connected" {
		v = 1
	}
	s.connected.WithLabelValues(ev.Component).Set(v)
	return nil
}

// RecordGarageSize sets the vehicle gauge.
func (s *PromSink) RecordGarageSize(size int) error {
	s.vehicles.Set(float64(size))
	return nil
}
