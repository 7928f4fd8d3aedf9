// Package observable implements the object tree shared by connectors and
// plugins. Every element has an id, a parent and an absolute path built from
// the ids on the way to the root. Attributes carry typed values and emit
// events to observers registered on the root when they get enabled, disabled
// or change value. Writable attributes and commands accept string payloads
// coming from the outside (for example MQTT write topics).
package observable
