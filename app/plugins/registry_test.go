package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/carbridge/core/component"
	"github.com/kilianp07/carbridge/core/factory"
	"github.com/kilianp07/carbridge/core/model"
)

func TestBuiltinTypes(t *testing.T) {
	assert.Equal(t, []string{"file", "simulated"}, Connectors.Types())
	assert.Equal(t, []string{"influxdb", "mqtt", "mqtt_homeassistant", "prometheus"}, Plugins.Types())
}

func TestCreateBuiltin(t *testing.T) {
	env := component.Env{Tree: model.New("test"), Plugins: component.NewSet()}
	m, err := Connectors.Create(env, factory.ModuleConfig{Type: "simulated", Conf: map[string]any{
		"vehicles": []any{map[string]any{"vin": "vin1", "type": "electric"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "simulated", m.ID())

	_, err = Plugins.Create(env, factory.ModuleConfig{Type: "mqtt", Conf: map[string]any{}})
	assert.Error(t, err, "broker is required")

	_, err = Plugins.Create(env, factory.ModuleConfig{Type: "nope"})
	assert.ErrorContains(t, err, "unknown module type")
}

func TestRegisterDuplicate(t *testing.T) {
	err := RegisterPlugin("mqtt", func(component.Env, map[string]any) (component.Module, error) { return nil, nil })
	assert.Error(t, err)
}
