package model

import (
	"github.com/kilianp07/carbridge/core/observable"
)

// CarConnectivity is the root of the object tree.
type CarConnectivity struct {
	observable.Root

	Version    string
	Garage     *Garage
	Connectors *Components
	Plugins    *Components
}

// New creates an empty tree.
func New(version string) *CarConnectivity {
	cc := &CarConnectivity{Version: version}
	cc.InitRoot(cc)
	cc.Garage = newGarage(cc)
	cc.Connectors = newComponents("connectors", cc)
	cc.Plugins = newComponents("plugins", cc)
	return cc
}

// Components holds connectors or plugins.
type Components struct {
	Collection[*Component]
}

func newComponents(id string, parent observable.Element) *Components {
	c := &Components{}
	c.initCollection(c, id, parent, true)
	return c
}

// Add registers a component node. name is the display name used in Home
// Assistant. withConnectionState adds a connection_state attribute.
func (c *Components) Add(id, name string, withConnectionState bool) *Component {
	return c.getOrAdd(id, func() *Component {
		comp := &Component{Name: name}
		comp.Init(comp, id, c)
		comp.SetEnabled(true)
		comp.Healthy = observable.NewBool("healthy", comp)
		if withConnectionState {
			comp.ConnectionState = observable.NewEnum("connection_state", comp, ConnectionStates())
		}
		return comp
	})
}

// Component is the tree node of a connector or plugin.
type Component struct {
	observable.Node

	Name            string
	Healthy         *observable.Attribute[bool]
	ConnectionState *observable.Attribute[ConnectionState]
}

// Garage holds the vehicles keyed by VIN.
type Garage struct {
	Collection[*Vehicle]
}

func newGarage(parent observable.Element) *Garage {
	g := &Garage{}
	g.initCollection(g, "garage", parent, true)
	return g
}

// AddVehicle returns the vehicle with the given VIN, creating it if needed.
// Electric and hybrid vehicles get a charging part.
func (g *Garage) AddVehicle(vin string, t VehicleType) *Vehicle {
	return g.getOrAdd(vin, func() *Vehicle { return newVehicle(vin, t, g) })
}

// Vehicle returns the vehicle with the given VIN.
func (g *Garage) Vehicle(vin string) (*Vehicle, bool) { return g.Get(vin) }

// Vehicles returns all vehicles ordered by VIN.
func (g *Garage) Vehicles() []*Vehicle { return g.List() }

// RemoveVehicle removes the vehicle with the given VIN.
func (g *Garage) RemoveVehicle(vin string) bool { return g.Remove(vin) }
