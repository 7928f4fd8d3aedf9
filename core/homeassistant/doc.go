// Package homeassistant maps the object tree onto Home Assistant MQTT
// device discovery messages.
//
// The builders are pure: they read the tree and return a Message. Publishing,
// change suppression and the derived helper topics live in the
// mqtt_homeassistant plugin (infra/homeassistant).
package homeassistant
