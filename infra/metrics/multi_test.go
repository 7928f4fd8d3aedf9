package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/carbridge/core/metrics"
)

type countingSink struct {
	publishes int
	writes    int
	err       error
}

func (c *countingSink) RecordPublish(coremetrics.PublishEvent) error {
	c.publishes++
	return c.err
}

func (c *countingSink) RecordWrite(coremetrics.WriteEvent) error {
	c.writes++
	return nil
}

func TestMultiSinkFanOut(t *testing.T) {
	a := &countingSink{}
	b := &countingSink{err: errors.New("down")}
	m := NewMultiSink(a)
	m.Add(b)
	m.Add(coremetrics.NopSink{})
	assert.Equal(t, 3, m.Len())

	err := m.RecordPublish(coremetrics.PublishEvent{})
	assert.ErrorContains(t, err, "down")
	require.NoError(t, m.RecordWrite(coremetrics.WriteEvent{}))
	require.NoError(t, m.RecordDiscovery(coremetrics.DiscoveryEvent{}))

	assert.Equal(t, 1, a.publishes)
	assert.Equal(t, 1, b.publishes)
	assert.Equal(t, 1, a.writes)
}

func TestPromSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordPublish(coremetrics.PublishEvent{Plugin: "mqtt", Retained: true}))
	require.NoError(t, sink.RecordPublish(coremetrics.PublishEvent{Plugin: "mqtt", Err: errors.New("x")}))
	require.NoError(t, sink.RecordConnection(coremetrics.ConnectionEvent{Component: "mqtt", State: "connected"}))
	require.NoError(t, sink.RecordGarageSize(3))

	expected := `
# HELP carbridge_mqtt_published_messages_total MQTT publish attempts by plugin and result
# TYPE carbridge_mqtt_published_messages_total counter
carbridge_mqtt_published_messages_total{plugin="mqtt",result="error",retained="false"} 1
carbridge_mqtt_published_messages_total{plugin="mqtt",result="ok",retained="true"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(sink.published, strings.NewReader(expected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.connected.WithLabelValues("mqtt")))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.vehicles))

	again, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	assert.Same(t, sink.published, again.published)
}
