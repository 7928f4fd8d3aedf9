package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

const sample = `carConnectivity:
  log_level: debug
  connectors:
    - type: simulated
      config:
        interval_seconds: 5
    - type: file
      disabled: true
      config:
        path: garage.yaml
  plugins:
    - type: mqtt
      config:
        broker: localhost
        username: user
        password: secret
    - type: mqtt_homeassistant
      config:
        homeassistant_prefix: ha
`

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	require.NoError(t, err)

	cc := cfg.CarConnectivity
	assert.Equal(t, "debug", cc.LogLevel)
	require.Len(t, cc.Connectors, 2)
	assert.Equal(t, "simulated", cc.Connectors[0].Type)
	assert.True(t, cc.Connectors[1].Disabled)
	assert.Len(t, Enabled(cc.Connectors), 1)

	p, ok := Find(cc.Plugins, "mqtt_homeassistant")
	require.True(t, ok)
	assert.Equal(t, "ha", p.Conf["homeassistant_prefix"])
}

func TestLoadJSONDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{"carConnectivity": {"connectors": [{"type": "simulated"}]}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.CarConnectivity.LogLevel)
	assert.Empty(t, cfg.CarConnectivity.Plugins)
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		file string
		data string
	}{
		{"extension", "config.toml", "a = 1"},
		{"missing root", "config.yaml", "other: {}\n"},
		{"missing type", "config.yaml", "carConnectivity:\n  connectors:\n    - config: {}\n"},
		{"bad level", "config.yaml", "carConnectivity:\n  log_level: loud\n"},
		{"negative log size", "config.yaml", "carConnectivity:\n  log_file:\n    path: x.log\n    max_size_mb: -1\n"},
		{"mqtt null username", "config.yaml", "carConnectivity:\n  plugins:\n    - type: mqtt\n      config:\n        broker: b\n        username:\n        password: p\n"},
		{"mqtt password", "config.yaml", "carConnectivity:\n  plugins:\n    - type: mqtt\n      config:\n        broker: b\n        username: u\n"},
		{"homeassistant without mqtt", "config.yaml", "carConnectivity:\n  plugins:\n    - type: mqtt_homeassistant\n"},
		{"homeassistant with disabled mqtt", "config.yaml", `carConnectivity:
  plugins:
    - type: mqtt
      disabled: true
      config: {broker: b, username: u, password: p}
    - type: mqtt_homeassistant
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.file, tc.data))
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CARBRIDGE_CARCONNECTIVITY__LOG_LEVEL", "warning")
	t.Setenv("CARBRIDGE_CARCONNECTIVITY__SENTRY__DSN", "https://key@sentry.example/1")
	t.Setenv("CARBRIDGE_CARCONNECTIVITY__LOG_FILE__PATH", "/var/log/carbridge.log")
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	require.NoError(t, err)
	assert.Equal(t, "warning", cfg.CarConnectivity.LogLevel)
	assert.True(t, cfg.CarConnectivity.Sentry.Enabled())
	assert.Equal(t, "/var/log/carbridge.log", cfg.CarConnectivity.LogFile.Path)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "carConnectivity.log_level", envKey("CARBRIDGE_CARCONNECTIVITY__LOG_LEVEL"))
	assert.Equal(t, "other.key", envKey("CARBRIDGE_OTHER__KEY"))
}

func TestRedacted(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	require.NoError(t, err)
	cfg.CarConnectivity.Sentry.DSN = "https://key@sentry.example/1"

	red := cfg.Redacted()
	mqtt, _ := Find(red.CarConnectivity.Plugins, "mqtt")
	assert.Equal(t, redacted, mqtt.Conf["password"])
	assert.Equal(t, redacted, mqtt.Conf["username"])
	assert.Equal(t, "localhost", mqtt.Conf["broker"])
	assert.Equal(t, redacted, red.CarConnectivity.Sentry.DSN)

	orig, _ := Find(cfg.CarConnectivity.Plugins, "mqtt")
	assert.Equal(t, "secret", orig.Conf["password"])
}

func TestRedactNested(t *testing.T) {
	in := map[string]any{
		"outer": map[string]any{"Token": "t"},
		"list":  []any{map[string]any{"dsn": "x", "keep": 1}},
	}
	out := Redact(in)
	assert.Equal(t, redacted, out["outer"].(map[string]any)["Token"])
	item := out["list"].([]any)[0].(map[string]any)
	assert.Equal(t, redacted, item["dsn"])
	assert.Equal(t, 1, item["keep"])
}
