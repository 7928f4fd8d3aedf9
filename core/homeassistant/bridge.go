package homeassistant

import (
	"github.com/kilianp07/carbridge/core/model"
)

const (
	bridgeName = "carbridge"
	originURL  = "https://github.com/kilianp07/carbridge"
)

// BridgeMessage builds the discovery message of the bridge itself: health
// and connection state of every enabled connector and plugin.
func BridgeMessage(cc *model.CarConnectivity, o Options) *Message {
	id := BridgeID(o.Prefix)
	msg := newMessage(
		Device{IDs: id, Name: bridgeName, Manufacturer: bridgeName, SoftwareVersion: cc.Version},
		Origin{Name: bridgeName, SoftwareVersion: o.Version, URL: originURL},
	)
	addComponents(msg, id, cc.Connectors, "Connection State", o)
	addComponents(msg, id, cc.Plugins, "Connected", o)
	msg.setAvailability(o.AvailabilityTopic)
	return msg
}

func addComponents(msg *Message, bridgeID string, comps *model.Components, connLabel string, o Options) {
	for _, c := range comps.List() {
		if !c.Enabled() {
			continue
		}
		if hasValue(c.Healthy) {
			msg.add(bridgeID+"_"+c.ID()+"_healthy", &Component{
				Platform:    "binary_sensor",
				DeviceClass: "running",
				Name:        c.Name + " Healthy",
				Icon:        "mdi:check",
				StateTopic:  o.Topic(c.Healthy),
				PayloadOff:  "False",
				PayloadOn:   "True",
			})
		}
		if c.ConnectionState != nil && c.ConnectionState.Enabled() {
			msg.add(bridgeID+"_"+c.ID()+"_connection_state", &Component{
				Platform:    "sensor",
				DeviceClass: "enum",
				Name:        c.Name + " " + connLabel,
				Icon:        "mdi:lan-connect",
				StateTopic:  o.Topic(c.ConnectionState),
				Options:     c.ConnectionState.Options(),
			})
		}
	}
}
