package metrics

import "time"

// PublishEvent is an MQTT publish attempt.
type PublishEvent struct {
	Plugin   string
	Topic    string
	Retained bool
	Err      error
	Time     time.Time
}

// Sink is the minimal metrics receiver.
type Sink interface {
	RecordPublish(ev PublishEvent) error
}

// WriteEvent is a value written to an attribute or command from MQTT.
type WriteEvent struct {
	Plugin string
	Path   string
	Err    error
	Time   time.Time
}

// WriteRecorder records write requests.
type WriteRecorder interface {
	RecordWrite(ev WriteEvent) error
}

// DiscoveryEvent is a Home Assistant discovery message decision.
type DiscoveryEvent struct {
	Plugin    string
	Device    string
	Forced    bool
	Published bool
	Time      time.Time
}

// DiscoveryRecorder records discovery publishes.
type DiscoveryRecorder interface {
	RecordDiscovery(ev DiscoveryEvent) error
}

// ConnectionEvent is a connection state change of a plugin or connector.
type ConnectionEvent struct {
	Component string
	State     string
	Time      time.Time
}

// ConnectionRecorder records connection changes.
type ConnectionRecorder interface {
	RecordConnection(ev ConnectionEvent) error
}

// AttributeEvent is a changed vehicle attribute value.
type AttributeEvent struct {
	VIN   string
	Path  string
	Value string
	// Numeric is set when the value is a number.
	Numeric *float64
	Unit    string
	Time    time.Time
}

// AttributeRecorder records attribute changes.
type AttributeRecorder interface {
	RecordAttribute(ev AttributeEvent) error
}

// GarageRecorder records the number of vehicles in the garage.
type GarageRecorder interface {
	RecordGarageSize(size int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPublish(PublishEvent) error       { return nil }
func (NopSink) RecordWrite(WriteEvent) error           { return nil }
func (NopSink) RecordDiscovery(DiscoveryEvent) error   { return nil }
func (NopSink) RecordConnection(ConnectionEvent) error { return nil }
func (NopSink) RecordAttribute(AttributeEvent) error   { return nil }
func (NopSink) RecordGarageSize(int) error             { return nil }

// Result labels an error as ok or error.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Hub forwards every event to the sinks added to it. Exporter plugins add
// their sinks while the bridge starts.
type Hub interface {
	Sink
	WriteRecorder
	DiscoveryRecorder
	ConnectionRecorder
	AttributeRecorder
	GarageRecorder
	Add(s Sink)
}
