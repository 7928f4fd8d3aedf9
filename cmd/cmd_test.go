package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testConfig = `carConnectivity:
  log_level: error
  connectors:
    - type: simulated
      config:
        vehicles:
          - vin: WVWZZZ1KZ
            name: Golf
            type: electric
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

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"-c", path}, args...))
	t.Cleanup(func() {
		discoveryFormat, discoveryOut = "json", ""
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "carbridge dev")
}

func TestGarageLs(t *testing.T) {
	out, err := execute(t, "garage", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "VIN")
	assert.Contains(t, out, "WVWZZZ1KZ")
	assert.Contains(t, out, "electric")
	assert.Contains(t, out, "Golf")
}

func TestDiscoveryJSON(t *testing.T) {
	out, err := execute(t, "discovery")
	require.NoError(t, err)
	var entries []discoveryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "ha/device/WVWZZZ1KZ/config", entries[0].Topic)
	dev := entries[0].Payload.(map[string]any)["device"].(map[string]any)
	assert.Equal(t, "WVWZZZ1KZ", dev["ids"])
}

func TestDiscoveryYAMLToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "discovery.yaml")
	_, err := execute(t, "discovery", "--format", "yaml", "--out", target)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, yaml.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "ha/device/WVWZZZ1KZ/config", entries[0]["topic"])
}

func TestDiscoveryRejectsFormat(t *testing.T) {
	_, err := execute(t, "discovery", "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")
}
