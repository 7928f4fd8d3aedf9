package metrics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kilianp07/carbridge/core/component"
	coremetrics "github.com/kilianp07/carbridge/core/metrics"
	"github.com/kilianp07/carbridge/core/model"
	"github.com/kilianp07/carbridge/infra/logger"
)

func testEnv() (component.Env, *MultiSink) {
	hub := NewMultiSink()
	return component.Env{Tree: model.New("test"), Log: logger.NopLogger{}, Metrics: hub}, hub
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestPrometheusPlugin(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	defer http.DefaultClient.CloseIdleConnections()

	env, hub := testEnv()
	p, err := NewPrometheusPlugin(env, map[string]any{"address": "127.0.0.1:0"})
	require.NoError(t, err)
	env.Tree.Garage.AddVehicle("VIN1", model.VehicleTypeElectric)
	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, 1, hub.Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
		require.NoError(t, p.Stop())
	}()

	base := "http://" + p.Addr()
	env.Tree.Garage.AddVehicle("VIN2", model.VehicleTypeDiesel)
	require.NoError(t, hub.RecordDiscovery(coremetrics.DiscoveryEvent{Plugin: "mqtt_homeassistant", Published: true}))
	code, body := get(t, base+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "carbridge_garage_vehicles 2")
	assert.Contains(t, body, `carbridge_homeassistant_discovery_total{forced="false",plugin="mqtt_homeassistant",published="true"} 1`)
	assert.Contains(t, body, "go_goroutines")

	env.Tree.Garage.RemoveVehicle("VIN1")
	_, body = get(t, base+"/metrics")
	assert.Contains(t, body, "carbridge_garage_vehicles 1")

	code, body = get(t, base+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	var health struct {
		Components map[string]bool `json:"components"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, map[string]bool{"plugins/prometheus": true}, health.Components)

	code, body = get(t, base+"/api/vehicles/VIN2")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"type":"diesel"`)

	env.Tree.Connectors.Add("simulated", "Simulated", true)
	code, _ = get(t, base+"/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code, "components without health report are unhealthy")
}

func TestPrometheusPluginListenError(t *testing.T) {
	env, _ := testEnv()
	p, err := NewPrometheusPlugin(env, map[string]any{"address": "256.0.0.1:bad"})
	require.NoError(t, err)
	assert.Error(t, p.Start(context.Background()))
	assert.Error(t, p.Run(context.Background()))
}

type fakeRecorder struct {
	coremetrics.NopSink
	mu     sync.Mutex
	events []coremetrics.AttributeEvent
}

func (f *fakeRecorder) RecordAttribute(ev coremetrics.AttributeEvent) error {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
	return nil
}

func (f *fakeRecorder) find(path string) (coremetrics.AttributeEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].Path == path {
			return f.events[i], true
		}
	}
	return coremetrics.AttributeEvent{}, false
}

func swapRecorder(t *testing.T, r influxRecorder) {
	t.Helper()
	orig := newInfluxRecorder
	newInfluxRecorder = func(context.Context, InfluxConfig) influxRecorder { return r }
	t.Cleanup(func() { newInfluxRecorder = orig })
}

var influxConf = map[string]any{"url": "http://influx:8086", "org": "home", "bucket": "cars"}

func TestInfluxPluginRecordsAttributes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &fakeRecorder{}
	swapRecorder(t, rec)
	env, hub := testEnv()
	p, err := NewInfluxPlugin(env, influxConf)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, 1, hub.Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	v := env.Tree.Garage.AddVehicle("VIN1", model.VehicleTypeElectric)
	v.Odometer.SetValue(1234.5)
	v.State.SetValue(model.VehicleStateDriving)

	require.Eventually(t, func() bool {
		_, a := rec.find("odometer")
		_, b := rec.find("state")
		return a && b
	}, time.Second, 5*time.Millisecond)
	odo, _ := rec.find("odometer")
	assert.Equal(t, "VIN1", odo.VIN)
	require.NotNil(t, odo.Numeric)
	assert.Equal(t, 1234.5, *odo.Numeric)
	assert.Equal(t, "km", odo.Unit)
	state, _ := rec.find("state")
	assert.Nil(t, state.Numeric)
	assert.Equal(t, "driving", state.Value)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, p.Stop())
	healthy, _ := env.Tree.Plugins.List()[0].Healthy.Value()
	assert.False(t, healthy)
}

func TestInfluxPluginFallsBackToNop(t *testing.T) {
	swapRecorder(t, coremetrics.NopSink{})
	env, hub := testEnv()
	p, err := NewInfluxPlugin(env, influxConf)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, 0, hub.Len())
	healthy, ok := env.Tree.Plugins.List()[0].Healthy.Value()
	assert.True(t, ok)
	assert.False(t, healthy)
	require.NoError(t, p.Stop())
}

func TestInfluxConfigValidation(t *testing.T) {
	_, err := NewInfluxPlugin(component.Env{Tree: model.New("")}, map[string]any{"url": "http://x"})
	assert.ErrorContains(t, err, "is required")
}

func TestAttributeEventFor(t *testing.T) {
	tree := model.New("")
	v := tree.Garage.AddVehicle("VIN1", model.VehicleTypeGasoline)
	now := time.Now()

	_, ok := AttributeEventFor(v.Odometer, now)
	assert.False(t, ok, "no value yet")

	v.Odometer.SetValue(10)
	ev, ok := AttributeEventFor(v.Odometer, now)
	require.True(t, ok)
	assert.Equal(t, "odometer", ev.Path)
	assert.Equal(t, now, ev.Time)

	comp := tree.Plugins.Add("mqtt", "MQTT", true)
	comp.Healthy.SetValue(true)
	_, ok = AttributeEventFor(comp.Healthy, now)
	assert.False(t, ok, "outside the garage")

	_, ok = AttributeEventFor(v, now)
	assert.False(t, ok, "not an attribute")
}
