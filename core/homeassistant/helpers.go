package homeassistant

import (
	"encoding/json"
	"fmt"

	"github.com/kilianp07/carbridge/core/model"
	"github.com/kilianp07/carbridge/core/observable"
)

// Climate entity modes.
const (
	ModeOff  = "off"
	ModeAuto = "auto"
)

// Derived topics published next to the regular attribute topics.

// PositionAttributesTopic carries latitude and longitude as one JSON object.
func PositionAttributesTopic(prefix string, p *model.Position) string {
	return prefix + p.Path() + "/attributes"
}

// BinaryStateTopic carries the on/off view of a charging or climatization
// state.
func BinaryStateTopic(prefix string, parent observable.Element) string {
	return prefix + parent.Path() + "/binarystate"
}

// HVACActionTopic carries the climate action of a climatization.
func HVACActionTopic(prefix string, c *model.Climatization) string {
	return prefix + c.Path() + "/hvac_action"
}

// HVACModeTopic carries the climate mode of a climatization.
func HVACModeTopic(prefix string, c *model.Climatization) string {
	return prefix + c.Path() + "/hvac_mode"
}

type positionAttributes struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PositionAttributes returns the device tracker payload of p. ok is false
// while latitude or longitude is missing.
func PositionAttributes(p *model.Position) (payload []byte, ok bool, err error) {
	lat, okLat := present(p.Latitude)
	lon, okLon := present(p.Longitude)
	if !okLat || !okLon {
		return nil, false, nil
	}
	b, err := json.Marshal(positionAttributes{Latitude: lat, Longitude: lon})
	if err != nil {
		return nil, false, fmt.Errorf("marshal position: %w", err)
	}
	return b, true, nil
}

// ChargingBinaryState maps a charging state to on or off. States without a
// clear mapping give an empty payload.
func ChargingBinaryState(s model.ChargingState) string {
	switch s {
	case model.ChargingCharging, model.ChargingConservation, model.ChargingDischarging:
		return string(model.StateOn)
	case model.ChargingOff, model.ChargingReadyForCharging, model.ChargingError:
		return string(model.StateOff)
	}
	return ""
}

// ClimatizationBinaryState maps a climatization state to on or off.
func ClimatizationBinaryState(s model.ClimatizationState) string {
	switch s {
	case model.ClimatizationHeating, model.ClimatizationCooling, model.ClimatizationVentilation:
		return string(model.StateOn)
	case model.ClimatizationOff:
		return string(model.StateOff)
	}
	return ""
}

// HVAC maps a climatization state to the climate entity action and mode.
func HVAC(s model.ClimatizationState) (action, mode string) {
	switch s {
	case model.ClimatizationHeating:
		return "heating", ModeAuto
	case model.ClimatizationCooling:
		return "cooling", ModeAuto
	case model.ClimatizationVentilation:
		return "fan", ModeAuto
	case model.ClimatizationOff:
		return "off", ModeOff
	}
	return "", ""
}

// ClimateModeHook translates climate entity modes written to the
// climatization start-stop command into command arguments.
func ClimateModeHook(v string) (string, error) {
	switch v {
	case ModeOff:
		return "stop", nil
	case ModeAuto:
		return "start", nil
	}
	return v, nil
}
