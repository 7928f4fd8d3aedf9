package mqtt

// WriteTopicSuffix marks the topic accepting writes for an element.
const WriteTopicSuffix = "_writetopic"

// MessageHandler receives messages delivered to the bridge.
type MessageHandler func(topic string, payload []byte)

// Client is the broker connection of the mqtt plugin as seen by plugins that
// publish through it.
type Client interface {
	// Prefix is prepended to element paths to build topics.
	Prefix() string
	// ConnectionStateTopic carries connected/disconnected for availability.
	ConnectionStateTopic() string
	Connected() bool
	// Publish sends payload with QoS 1. It returns ErrNotConnected while
	// the broker is unreachable.
	Publish(topic string, payload []byte, retain bool) error
	Subscribe(topic string) error
	// OnConnect registers fn to run after every (re)connect and returns a
	// function removing it.
	OnConnect(fn func()) (remove func())
	// OnMessage registers fn for every received message and returns a
	// function removing it.
	OnMessage(fn MessageHandler) (remove func())
}
