// Package infra holds the plugins and adapters of the bridge: the MQTT
// transport, Home Assistant discovery, metrics exporters, logging and error
// monitoring. They build on the interfaces of the core packages.
package infra
