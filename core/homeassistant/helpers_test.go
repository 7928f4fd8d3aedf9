package homeassistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/carbridge/core/model"
)

func TestChargingBinaryState(t *testing.T) {
	tests := map[model.ChargingState]string{
		model.ChargingCharging:         "on",
		model.ChargingConservation:     "on",
		model.ChargingDischarging:      "on",
		model.ChargingOff:              "off",
		model.ChargingReadyForCharging: "off",
		model.ChargingError:            "off",
		model.ChargingUnknown:          "",
		model.ChargingUnsupported:      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ChargingBinaryState(in), in)
	}
}

func TestClimatizationMappings(t *testing.T) {
	tests := []struct {
		state        model.ClimatizationState
		binary       string
		action, mode string
	}{
		{model.ClimatizationHeating, "on", "heating", "auto"},
		{model.ClimatizationCooling, "on", "cooling", "auto"},
		{model.ClimatizationVentilation, "on", "fan", "auto"},
		{model.ClimatizationOff, "off", "off", "off"},
		{model.ClimatizationUnknown, "", "", ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.binary, ClimatizationBinaryState(tt.state))
			action, mode := HVAC(tt.state)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.mode, mode)
		})
	}
}

func TestClimateModeHook(t *testing.T) {
	for in, want := range map[string]string{"off": "stop", "auto": "start", "start": "start", "stop": "stop"} {
		got, err := ClimateModeHook(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestPositionAttributes(t *testing.T) {
	cc := model.New("")
	v := cc.Garage.AddVehicle("V", model.VehicleTypeGasoline)
	_, ok, err := PositionAttributes(v.Position)
	require.NoError(t, err)
	assert.False(t, ok)

	v.Position.Latitude.SetValue(52.5)
	v.Position.Longitude.SetValue(13.25)
	b, ok, err := PositionAttributes(v.Position)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"latitude":52.5,"longitude":13.25}`, string(b))
	assert.Equal(t, "p/garage/V/position/attributes", PositionAttributesTopic("p", v.Position))
}
