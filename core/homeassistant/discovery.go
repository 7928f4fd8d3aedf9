package homeassistant

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	coremqtt "github.com/kilianp07/carbridge/core/mqtt"
	"github.com/kilianp07/carbridge/core/observable"
)

// DefaultPrefix is the discovery prefix Home Assistant listens on.
const DefaultPrefix = "homeassistant"

// Availability payloads, matching the mqtt plugin connection state.
const (
	PayloadAvailable    = "connected"
	PayloadNotAvailable = "disconnected"
)

const (
	stateClassMeasurement     = "measurement"
	stateClassTotalIncreasing = "total_increasing"
)

// Device describes the Home Assistant device the components belong to.
type Device struct {
	IDs             string `json:"ids"`
	Name            string `json:"name,omitempty"`
	Manufacturer    string `json:"mf,omitempty"`
	Model           string `json:"mdl,omitempty"`
	HardwareVersion string `json:"hw,omitempty"`
	SoftwareVersion string `json:"sw,omitempty"`
	SerialNumber    string `json:"sn,omitempty"`
}

// Origin names the software publishing the discovery message.
type Origin struct {
	Name            string `json:"name"`
	SoftwareVersion string `json:"sw,omitempty"`
	URL             string `json:"url,omitempty"`
}

// Availability points Home Assistant at the bridge connection state.
type Availability struct {
	Topic               string `json:"topic"`
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`
}

// Component is a single entity of a device discovery message. Only the
// fields relevant for the platform are set.
type Component struct {
	Platform            string   `json:"p"`
	DeviceClass         string   `json:"device_class,omitempty"`
	StateClass          string   `json:"state_class,omitempty"`
	Name                string   `json:"name"`
	Icon                string   `json:"icon,omitempty"`
	StateTopic          string   `json:"state_topic,omitempty"`
	CommandTopic        string   `json:"command_topic,omitempty"`
	JSONAttributesTopic string   `json:"json_attributes_topic,omitempty"`
	UnitOfMeasurement   string   `json:"unit_of_measurement,omitempty"`
	Options             []string `json:"options,omitempty"`

	PayloadOn     string `json:"payload_on,omitempty"`
	PayloadOff    string `json:"payload_off,omitempty"`
	PayloadPress  string `json:"payload_press,omitempty"`
	PayloadLock   string `json:"payload_lock,omitempty"`
	PayloadUnlock string `json:"payload_unlock,omitempty"`
	StateOn       string `json:"state_on,omitempty"`
	StateOff      string `json:"state_off,omitempty"`
	StateLocked   string `json:"state_locked,omitempty"`
	StateUnlocked string `json:"state_unlocked,omitempty"`

	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step *float64 `json:"step,omitempty"`

	ActionTopic             string   `json:"action_topic,omitempty"`
	ModeCommandTopic        string   `json:"mode_command_topic,omitempty"`
	ModeStateTopic          string   `json:"mode_state_topic,omitempty"`
	Modes                   []string `json:"modes,omitempty"`
	PowerCommandTopic       string   `json:"power_command_topic,omitempty"`
	TemperatureStateTopic   string   `json:"temperature_state_topic,omitempty"`
	TemperatureCommandTopic string   `json:"temperature_command_topic,omitempty"`
	TemperatureUnit         string   `json:"temperature_unit,omitempty"`
	MinTemp                 *float64 `json:"min_temp,omitempty"`
	MaxTemp                 *float64 `json:"max_temp,omitempty"`
	TempStep                *float64 `json:"temp_step,omitempty"`

	SourceType string `json:"source_type,omitempty"`

	UniqueID     string         `json:"unique_id"`
	Availability []Availability `json:"availability,omitempty"`
}

// Message is a device discovery message.
type Message struct {
	Device     Device                `json:"device"`
	Origin     Origin                `json:"origin"`
	Components map[string]*Component `json:"cmps"`
}

func newMessage(device Device, origin Origin) *Message {
	return &Message{Device: device, Origin: origin, Components: map[string]*Component{}}
}

func (m *Message) add(id string, c *Component) *Component {
	c.UniqueID = id
	m.Components[id] = c
	return c
}

func (m *Message) setAvailability(topic string) {
	for _, c := range m.Components {
		c.Availability = []Availability{{
			Topic:               topic,
			PayloadAvailable:    PayloadAvailable,
			PayloadNotAvailable: PayloadNotAvailable,
		}}
	}
}

// Payload returns the JSON document published on the discovery topic.
func (m *Message) Payload() ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal discovery message: %w", err)
	}
	return b, nil
}

// Hash identifies the content of the message. Component keys are marshalled
// in sorted order so equal messages hash equally.
func (m *Message) Hash() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal discovery message: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Options carries the bridge settings the builders need.
type Options struct {
	// Prefix is the topic prefix of the mqtt plugin.
	Prefix string
	// AvailabilityTopic is the connection state topic of the mqtt plugin.
	AvailabilityTopic string
	// Version is reported as origin software version.
	Version string
}

// Topic returns the state topic of e.
func (o Options) Topic(e observable.Element) string { return o.Prefix + e.Path() }

// WriteTopic returns the topic accepting writes for e.
func (o Options) WriteTopic(e observable.Element) string {
	return o.Topic(e) + coremqtt.WriteTopicSuffix
}

// VehicleTopic is the discovery topic of a vehicle.
func VehicleTopic(haPrefix, vin string) string {
	return haPrefix + "/device/" + vin + "/config"
}

// BridgeID derives the device id of the bridge from the mqtt prefix.
func BridgeID(prefix string) string { return strings.ReplaceAll(prefix, "/", "-") }

// BridgeTopic is the discovery topic of the bridge device.
func BridgeTopic(haPrefix, prefix string) string {
	return haPrefix + "/device/carconnectivity-" + BridgeID(prefix) + "/config"
}

// StatusTopic is where Home Assistant announces its own availability.
func StatusTopic(haPrefix string) string { return haPrefix + "/status" }

func present[T comparable](a *observable.Attribute[T]) (T, bool) {
	var zero T
	if a == nil || !a.Enabled() {
		return zero, false
	}
	return a.Value()
}

func hasValue[T comparable](a *observable.Attribute[T]) bool {
	_, ok := present(a)
	return ok
}

// hasMeasure reports whether a carries a value and a unit.
func hasMeasure[T comparable](a *observable.Attribute[T]) bool {
	return hasValue(a) && a.Unit() != ""
}
