package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kilianp07/carbridge/app/plugins"
	"github.com/kilianp07/carbridge/config"
	"github.com/kilianp07/carbridge/core/component"
	"github.com/kilianp07/carbridge/core/factory"
	"github.com/kilianp07/carbridge/core/monitoring"
)

// passive is a plugin without a Run loop.
type passive struct{ stopped bool }

func (*passive) ID() string                  { return "passive" }
func (*passive) Start(context.Context) error { return nil }
func (p *passive) Stop() error               { p.stopped = true; return nil }

func init() {
	if err := plugins.RegisterPlugin("passive", func(component.Env, map[string]any) (*passive, error) {
		return &passive{}, nil
	}); err != nil {
		panic(err)
	}
}

func simulated() factory.ModuleConfig {
	return factory.ModuleConfig{Type: "simulated", Conf: map[string]any{
		"interval_seconds": 1,
		"vehicles":         []any{map[string]any{"vin": "SIM1", "type": "electric"}},
	}}
}

func newConfig(connectors, plugins []factory.ModuleConfig) *config.Config {
	return &config.Config{CarConnectivity: config.CarConnectivity{LogLevel: "error", Connectors: connectors, Plugins: plugins}}
}

func TestServiceRunAndStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := newConfig(
		[]factory.ModuleConfig{simulated(), {Type: "file", Disabled: true}},
		[]factory.ModuleConfig{{Type: "prometheus", Conf: map[string]any{"address": "127.0.0.1:0"}}},
	)
	svc, err := New(cfg, "1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", svc.Tree().Version)
	_, ok := svc.Module("file")
	assert.False(t, ok, "disabled entries are skipped")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return svc.Tree().Garage.Has("SIM1") }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	for _, c := range svc.Tree().Plugins.List() {
		healthy, _ := c.Healthy.Value()
		assert.False(t, healthy, "%s stopped", c.ID())
	}
}

func TestServiceUnknownType(t *testing.T) {
	_, err := New(newConfig([]factory.ModuleConfig{{Type: "teleport"}}, nil), "dev")
	assert.ErrorIs(t, err, config.ErrConfiguration)
	assert.ErrorContains(t, err, "simulated")
}

func TestServiceMissingDependency(t *testing.T) {
	svc, err := New(newConfig(nil, []factory.ModuleConfig{{Type: "mqtt_homeassistant"}}), "dev")
	require.NoError(t, err)
	err = svc.Run(context.Background())
	assert.ErrorIs(t, err, config.ErrConfiguration)
	assert.ErrorContains(t, err, `depends on "mqtt"`)
}

type recordingMonitor struct {
	monitoring.NopMonitor
	tags []map[string]string
}

func (r *recordingMonitor) CaptureException(_ error, tags map[string]string) {
	r.tags = append(r.tags, tags)
}

func TestServiceStartFailureStopsStarted(t *testing.T) {
	mon := &recordingMonitor{}
	monitoring.Init(mon)
	t.Cleanup(func() { monitoring.Init(nil) })

	missing := filepath.Join(t.TempDir(), "missing.yaml")
	svc, err := New(newConfig([]factory.ModuleConfig{
		simulated(),
		{Type: "file", Conf: map[string]any{"path": missing}},
	}, nil), "dev")
	require.NoError(t, err)

	err = svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "start file")
	assert.Equal(t, []map[string]string{{"module": "file", "phase": "start"}}, mon.tags)

	comp, ok := svc.Tree().Connectors.Get("simulated")
	require.True(t, ok)
	healthy, _ := comp.Healthy.Value()
	assert.False(t, healthy, "started connectors are stopped again")
	assert.False(t, errors.Is(err, config.ErrConfiguration))
}

func TestServiceWithoutRunnersWaitsForCancel(t *testing.T) {
	svc, err := New(newConfig(nil, []factory.ModuleConfig{{Type: "passive"}}), "dev")
	require.NoError(t, err)
	m, ok := svc.Module("passive")
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("Run returned before cancel: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, m.(*passive).stopped)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, m.(*passive).stopped)
}
