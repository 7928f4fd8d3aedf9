package model

import (
	"time"

	"github.com/kilianp07/carbridge/core/observable"
)

// Vehicle is a car in the garage. Charging is only set for electric and
// hybrid vehicles.
type Vehicle struct {
	observable.Node

	VIN                *observable.Attribute[string]
	Name               *observable.Attribute[string]
	Manufacturer       *observable.Attribute[string]
	Model              *observable.Attribute[string]
	ModelYear          *observable.Attribute[int]
	Type               *observable.Attribute[VehicleType]
	Software           *Software
	Commands           *Commands
	Odometer           *observable.Attribute[float64]
	State              *observable.Attribute[VehicleState]
	ConnectionState    *observable.Attribute[VehicleConnectionState]
	Drives             *Drives
	Doors              *Doors
	Windows            *Windows
	Lights             *Lights
	WindowHeatings     *WindowHeatings
	Position           *Position
	Climatization      *Climatization
	OutsideTemperature *observable.Attribute[float64]
	Maintenance        *Maintenance
	Charging           *Charging
}

func newVehicle(vin string, t VehicleType, parent observable.Element) *Vehicle {
	v := &Vehicle{}
	v.Init(v, vin, parent)
	v.SetEnabled(true)
	v.VIN = observable.NewString("vin", v)
	v.Name = observable.NewString("name", v)
	v.Manufacturer = observable.NewString("manufacturer", v)
	v.Model = observable.NewString("model", v)
	v.ModelYear = observable.NewInt("model_year", v, "")
	v.Type = observable.NewEnum("type", v, VehicleTypes())
	v.Software = newSoftware(v)
	v.Commands = newCommands(v)
	v.Odometer = observable.NewFloat("odometer", v, UnitKilometer)
	v.State = observable.NewEnum("state", v, VehicleStates())
	v.ConnectionState = observable.NewEnum("connection_state", v, VehicleConnectionStates())
	v.Drives = newDrives(v)
	v.Doors = newDoors(v)
	v.Windows = newWindows(v)
	v.Lights = newLights(v)
	v.WindowHeatings = newWindowHeatings(v)
	v.Position = newPosition(v)
	v.Climatization = newClimatization(v)
	v.OutsideTemperature = observable.NewFloat("outside_temperature", v, UnitCelsius)
	v.Maintenance = newMaintenance(v)
	if t == VehicleTypeElectric || t == VehicleTypeHybrid {
		v.Charging = newCharging(v)
	}
	v.VIN.SetValue(vin)
	v.Type.SetValue(t)
	return v
}

// IsElectric reports whether the vehicle can be charged.
func (v *Vehicle) IsElectric() bool { return v.Charging != nil }

// Software holds firmware information.
type Software struct {
	observable.Node
	Version *observable.Attribute[string]
}

func newSoftware(parent observable.Element) *Software {
	s := &Software{}
	s.Init(s, "software", parent)
	s.SetEnabled(true)
	s.Version = observable.NewString("version", s)
	return s
}

// Drives holds the drives of a vehicle and the combined range.
type Drives struct {
	Collection[*Drive]
	TotalRange *observable.Attribute[float64]
}

func newDrives(parent observable.Element) *Drives {
	d := &Drives{}
	d.initCollection(d, "drives", parent, true)
	d.TotalRange = observable.NewFloat("total_range", d, UnitKilometer)
	return d
}

// Add returns the drive with the given id, creating it if needed.
func (d *Drives) Add(id string, t DriveType) *Drive {
	return d.getOrAdd(id, func() *Drive { return newDrive(id, t, d) })
}

// Drive is an engine or motor with its energy storage. Battery is set for
// electric drives, AdBlue for diesel drives.
type Drive struct {
	observable.Node

	Type    *observable.Attribute[DriveType]
	Range   *observable.Attribute[float64]
	Level   *observable.Attribute[float64]
	Battery *Battery
	AdBlue  *AdBlue
}

func newDrive(id string, t DriveType, parent observable.Element) *Drive {
	d := &Drive{}
	d.Init(d, id, parent)
	d.SetEnabled(true)
	d.Type = observable.NewEnum("type", d, DriveTypes())
	d.Range = observable.NewFloat("range", d, UnitKilometer)
	d.Level = observable.NewFloat("level", d, UnitPercent)
	switch t {
	case DriveElectric:
		d.Battery = newBattery(d)
	case DriveDiesel:
		d.AdBlue = newAdBlue(d)
	}
	d.Type.SetValue(t)
	return d
}

// IsCombustion reports whether the drive burns fuel.
func (d *Drive) IsCombustion() bool {
	t, _ := d.Type.Value()
	switch t {
	case DriveGasoline, DriveDiesel, DriveCNG, DriveLPG:
		return true
	}
	return false
}

// Battery is the traction battery of an electric drive.
type Battery struct {
	observable.Node
	AvailableCapacity *observable.Attribute[float64]
	Temperature       *observable.Attribute[float64]
}

func newBattery(parent observable.Element) *Battery {
	b := &Battery{}
	b.Init(b, "battery", parent)
	b.SetEnabled(true)
	b.AvailableCapacity = observable.NewFloat("available_capacity", b, "kWh")
	b.Temperature = observable.NewFloat("temperature", b, UnitCelsius)
	return b
}

// AdBlue is the exhaust fluid tank of a diesel drive.
type AdBlue struct {
	observable.Node
	Range *observable.Attribute[float64]
	Level *observable.Attribute[float64]
}

func newAdBlue(parent observable.Element) *AdBlue {
	a := &AdBlue{}
	a.Init(a, "adblue", parent)
	a.SetEnabled(true)
	a.Range = observable.NewFloat("range", a, UnitKilometer)
	a.Level = observable.NewFloat("level", a, UnitPercent)
	return a
}

// Doors holds the doors and their combined state.
type Doors struct {
	Collection[*Door]
	OpenState *observable.Attribute[OpenState]
	LockState *observable.Attribute[LockState]
	Commands  *Commands
}

func newDoors(parent observable.Element) *Doors {
	d := &Doors{}
	d.initCollection(d, "doors", parent, true)
	d.OpenState = observable.NewEnum("open_state", d, OpenStates())
	d.LockState = observable.NewEnum("lock_state", d, LockStates())
	d.Commands = newCommands(d)
	return d
}

// Add returns the door with the given id, creating it if needed.
func (d *Doors) Add(id string) *Door {
	return d.getOrAdd(id, func() *Door {
		door := &Door{}
		door.Init(door, id, d)
		door.SetEnabled(true)
		door.OpenState = observable.NewEnum("open_state", door, OpenStates())
		door.LockState = observable.NewEnum("lock_state", door, LockStates())
		return door
	})
}

// Door is a single door.
type Door struct {
	observable.Node
	OpenState *observable.Attribute[OpenState]
	LockState *observable.Attribute[LockState]
}

// Windows holds the windows and their combined state.
type Windows struct {
	Collection[*Window]
	OpenState *observable.Attribute[OpenState]
}

func newWindows(parent observable.Element) *Windows {
	w := &Windows{}
	w.initCollection(w, "windows", parent, true)
	w.OpenState = observable.NewEnum("open_state", w, OpenStates())
	return w
}

// Add returns the window with the given id, creating it if needed.
func (w *Windows) Add(id string) *Window {
	return w.getOrAdd(id, func() *Window {
		win := &Window{}
		win.Init(win, id, w)
		win.SetEnabled(true)
		win.OpenState = observable.NewEnum("open_state", win, OpenStates())
		return win
	})
}

// Window is a single window.
type Window struct {
	observable.Node
	OpenState *observable.Attribute[OpenState]
}

// Lights holds the lights and their combined state.
type Lights struct {
	Collection[*Light]
	LightState *observable.Attribute[OnOffState]
}

func newLights(parent observable.Element) *Lights {
	l := &Lights{}
	l.initCollection(l, "lights", parent, true)
	l.LightState = observable.NewEnum("light_state", l, OnOffStates())
	return l
}

// Add returns the light with the given id, creating it if needed.
func (l *Lights) Add(id string) *Light {
	return l.getOrAdd(id, func() *Light {
		light := &Light{}
		light.Init(light, id, l)
		light.SetEnabled(true)
		light.LightState = observable.NewEnum("light_state", light, OnOffStates())
		return light
	})
}

// Light is a single light.
type Light struct {
	observable.Node
	LightState *observable.Attribute[OnOffState]
}

// WindowHeatings holds the window heaters.
type WindowHeatings struct {
	Collection[*WindowHeating]
	HeatingState *observable.Attribute[OnOffState]
	Commands     *Commands
}

func newWindowHeatings(parent observable.Element) *WindowHeatings {
	w := &WindowHeatings{}
	w.initCollection(w, "window_heatings", parent, true)
	w.HeatingState = observable.NewEnum("heating_state", w, OnOffStates())
	w.Commands = newCommands(w)
	return w
}

// Add returns the heater with the given id, creating it if needed.
func (w *WindowHeatings) Add(id string) *WindowHeating {
	return w.getOrAdd(id, func() *WindowHeating {
		h := &WindowHeating{}
		h.Init(h, id, w)
		h.SetEnabled(true)
		h.HeatingState = observable.NewEnum("heating_state", h, OnOffStates())
		return h
	})
}

// WindowHeating is a single window heater.
type WindowHeating struct {
	observable.Node
	HeatingState *observable.Attribute[OnOffState]
}

// Position is the geographic position of a vehicle.
type Position struct {
	observable.Node
	Latitude     *observable.Attribute[float64]
	Longitude    *observable.Attribute[float64]
	PositionType *observable.Attribute[PositionType]
}

func newPosition(parent observable.Element) *Position {
	p := &Position{}
	p.Init(p, "position", parent)
	p.SetEnabled(true)
	p.Latitude = observable.NewFloat("latitude", p, UnitDegree)
	p.Longitude = observable.NewFloat("longitude", p, UnitDegree)
	p.PositionType = observable.NewEnum("position_type", p, PositionTypes())
	return p
}

// Climatization is the climate control of a vehicle.
type Climatization struct {
	observable.Node
	State                *observable.Attribute[ClimatizationState]
	EstimatedDateReached *observable.Attribute[time.Time]
	Settings             *ClimatizationSettings
	Commands             *Commands
}

// ClimatizationSettings holds the changeable climate settings.
type ClimatizationSettings struct {
	observable.Node
	TargetTemperature *observable.Attribute[float64]
}

func newClimatization(parent observable.Element) *Climatization {
	c := &Climatization{}
	c.Init(c, "climatization", parent)
	c.SetEnabled(true)
	c.State = observable.NewEnum("state", c, ClimatizationStates())
	c.EstimatedDateReached = observable.NewTime("estimated_date_reached", c)
	s := &ClimatizationSettings{}
	s.Init(s, "settings", c)
	s.SetEnabled(true)
	s.TargetTemperature = observable.NewFloat("target_temperature", s, UnitCelsius)
	c.Settings = s
	c.Commands = newCommands(c)
	return c
}

// Maintenance holds service intervals.
type Maintenance struct {
	observable.Node
	InspectionDueAt    *observable.Attribute[time.Time]
	InspectionDueAfter *observable.Attribute[float64]
	OilServiceDueAt    *observable.Attribute[time.Time]
	OilServiceDueAfter *observable.Attribute[float64]
}

func newMaintenance(parent observable.Element) *Maintenance {
	m := &Maintenance{}
	m.Init(m, "maintenance", parent)
	m.SetEnabled(true)
	m.InspectionDueAt = observable.NewTime("inspection_due_at", m)
	m.InspectionDueAfter = observable.NewFloat("inspection_due_after", m, UnitKilometer)
	m.OilServiceDueAt = observable.NewTime("oil_service_due_at", m)
	m.OilServiceDueAfter = observable.NewFloat("oil_service_due_after", m, UnitKilometer)
	return m
}

// Charging is the charging system of an electric vehicle.
type Charging struct {
	observable.Node
	State                *observable.Attribute[ChargingState]
	Type                 *observable.Attribute[ChargingType]
	Rate                 *observable.Attribute[float64]
	Power                *observable.Attribute[float64]
	EstimatedDateReached *observable.Attribute[time.Time]
	Connector            *ChargingConnector
	Settings             *ChargingSettings
	Commands             *Commands
}

// ChargingConnector is the charging plug.
type ChargingConnector struct {
	observable.Node
	ConnectionState *observable.Attribute[PlugState]
	LockState       *observable.Attribute[LockState]
	ExternalPower   *observable.Attribute[ExternalPower]
}

// ChargingSettings holds the changeable charging settings.
type ChargingSettings struct {
	observable.Node
	TargetLevel    *observable.Attribute[float64]
	MaximumCurrent *observable.Attribute[float64]
	AutoUnlock     *observable.Attribute[bool]
}

func newCharging(parent observable.Element) *Charging {
	c := &Charging{}
	c.Init(c, "charging", parent)
	c.SetEnabled(true)
	c.State = observable.NewEnum("state", c, ChargingStates())
	c.Type = observable.NewEnum("type", c, ChargingTypes())
	c.Rate = observable.NewFloat("rate", c, UnitKmPerHour)
	c.Power = observable.NewFloat("power", c, UnitKilowatt)
	c.EstimatedDateReached = observable.NewTime("estimated_date_reached", c)

	con := &ChargingConnector{}
	con.Init(con, "connector", c)
	con.SetEnabled(true)
	con.ConnectionState = observable.NewEnum("connection_state", con, PlugStates())
	con.LockState = observable.NewEnum("lock_state", con, LockStates())
	con.ExternalPower = observable.NewEnum("external_power", con, ExternalPowers())
	c.Connector = con

	s := &ChargingSettings{}
	s.Init(s, "settings", c)
	s.SetEnabled(true)
	s.TargetLevel = observable.NewFloat("target_level", s, UnitPercent)
	s.MaximumCurrent = observable.NewFloat("maximum_current", s, UnitAmpere)
	s.AutoUnlock = observable.NewBool("auto_unlock", s)
	c.Settings = s

	c.Commands = newCommands(c)
	return c
}
