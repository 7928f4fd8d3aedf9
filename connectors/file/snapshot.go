package file

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/carbridge/core/model"
	"github.com/kilianp07/carbridge/core/observable"
)

// Snapshot is the file format: the state of a set of vehicles. JSON files
// are read with the same decoder.
type Snapshot struct {
	Vehicles []VehicleSnapshot `yaml:"vehicles"`
}

// VehicleSnapshot is the state of one vehicle. Missing fields are left
// untouched.
type VehicleSnapshot struct {
	VIN                string                   `yaml:"vin"`
	Type               string                   `yaml:"type"`
	Name               *string                  `yaml:"name"`
	Manufacturer       *string                  `yaml:"manufacturer"`
	Model              *string                  `yaml:"model"`
	ModelYear          *int                     `yaml:"model_year"`
	SoftwareVersion    *string                  `yaml:"software_version"`
	Odometer           *float64                 `yaml:"odometer"`
	State              *string                  `yaml:"state"`
	ConnectionState    *string                  `yaml:"connection_state"`
	OutsideTemperature *float64                 `yaml:"outside_temperature"`
	TotalRange         *float64                 `yaml:"total_range"`
	Drives             map[string]DriveSnapshot `yaml:"drives"`
	Doors              *DoorsSnapshot           `yaml:"doors"`
	Windows            *GroupSnapshot           `yaml:"windows"`
	Lights             *GroupSnapshot           `yaml:"lights"`
	WindowHeatings     *GroupSnapshot           `yaml:"window_heatings"`
	Position           *PositionSnapshot        `yaml:"position"`
	Climatization      *ClimatizationSnapshot   `yaml:"climatization"`
	Maintenance        *MaintenanceSnapshot     `yaml:"maintenance"`
	Charging           *ChargingSnapshot        `yaml:"charging"`
}

// DriveSnapshot is the state of one drive.
type DriveSnapshot struct {
	Type               string   `yaml:"type"`
	Level              *float64 `yaml:"level"`
	Range              *float64 `yaml:"range"`
	BatteryTemperature *float64 `yaml:"battery_temperature"`
	AdBlueLevel        *float64 `yaml:"adblue_level"`
	AdBlueRange        *float64 `yaml:"adblue_range"`
}

// DoorsSnapshot holds the combined and per door states.
type DoorsSnapshot struct {
	OpenState *string                 `yaml:"open_state"`
	LockState *string                 `yaml:"lock_state"`
	Doors     map[string]DoorSnapshot `yaml:"doors"`
}

// DoorSnapshot is the state of one door.
type DoorSnapshot struct {
	OpenState *string `yaml:"open_state"`
	LockState *string `yaml:"lock_state"`
}

// GroupSnapshot holds a combined state and per item states of windows,
// lights or window heatings.
type GroupSnapshot struct {
	State *string           `yaml:"state"`
	Items map[string]string `yaml:"items"`
}

// PositionSnapshot is the vehicle position.
type PositionSnapshot struct {
	Latitude     *float64 `yaml:"latitude"`
	Longitude    *float64 `yaml:"longitude"`
	PositionType *string  `yaml:"position_type"`
}

// ClimatizationSnapshot is the climate control state.
type ClimatizationSnapshot struct {
	State                *string  `yaml:"state"`
	TargetTemperature    *float64 `yaml:"target_temperature"`
	EstimatedDateReached *string  `yaml:"estimated_date_reached"`
}

// MaintenanceSnapshot holds service intervals.
type MaintenanceSnapshot struct {
	InspectionDueAt    *string  `yaml:"inspection_due_at"`
	InspectionDueAfter *float64 `yaml:"inspection_due_after"`
	OilServiceDueAt    *string  `yaml:"oil_service_due_at"`
	OilServiceDueAfter *float64 `yaml:"oil_service_due_after"`
}

// ChargingSnapshot is the charging state of an electric vehicle.
type ChargingSnapshot struct {
	State                *string  `yaml:"state"`
	Type                 *string  `yaml:"type"`
	Rate                 *float64 `yaml:"rate"`
	Power                *float64 `yaml:"power"`
	EstimatedDateReached *string  `yaml:"estimated_date_reached"`
	ConnectionState      *string  `yaml:"connection_state"`
	LockState            *string  `yaml:"lock_state"`
	ExternalPower        *string  `yaml:"external_power"`
	TargetLevel          *float64 `yaml:"target_level"`
	MaximumCurrent       *float64 `yaml:"maximum_current"`
	AutoUnlock           *bool    `yaml:"auto_unlock"`
}

// ParseSnapshot decodes a YAML or JSON snapshot.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	seen := make(map[string]bool, len(s.Vehicles))
	for i, v := range s.Vehicles {
		if v.VIN == "" {
			return nil, fmt.Errorf("vehicles[%d]: vin is required", i)
		}
		if seen[v.VIN] {
			return nil, fmt.Errorf("vehicles[%d]: duplicate vin %s", i, v.VIN)
		}
		seen[v.VIN] = true
	}
	return &s, nil
}

// applier writes snapshot values into the tree and collects invalid values.
type applier struct {
	errs []error
}

func (a *applier) err() error { return errors.Join(a.errs...) }

func (a *applier) fail(path string, err error) {
	a.errs = append(a.errs, fmt.Errorf("%s: %w", path, err))
}

func set[T comparable](attr *observable.Attribute[T], v *T) {
	if v != nil {
		attr.SetValue(*v)
	}
}

func setEnum[T ~string](a *applier, attr *observable.Attribute[T], v *string) {
	if v == nil {
		return
	}
	for _, o := range attr.Options() {
		if o == *v {
			attr.SetValue(T(*v))
			return
		}
	}
	a.fail(attr.Path(), fmt.Errorf("%w: %q", observable.ErrInvalidValue, *v))
}

func setTime(a *applier, attr *observable.Attribute[time.Time], v *string) {
	if v == nil {
		return
	}
	t, err := time.Parse(time.RFC3339, *v)
	if err != nil {
		a.fail(attr.Path(), fmt.Errorf("%w: %q", observable.ErrInvalidValue, *v))
		return
	}
	attr.SetValue(t)
}

func vehicleType(s string) model.VehicleType {
	switch t := model.VehicleType(s); t {
	case model.VehicleTypeElectric, model.VehicleTypeHybrid, model.VehicleTypeGasoline, model.VehicleTypeDiesel:
		return t
	}
	return model.VehicleTypeUnknown
}

func driveType(s string) model.DriveType {
	for _, t := range model.DriveTypes() {
		if string(t) == s {
			return t
		}
	}
	return model.DriveUnknown
}

// apply writes vs into v.
func (a *applier) apply(v *model.Vehicle, vs VehicleSnapshot) {
	set(v.Name, vs.Name)
	set(v.Manufacturer, vs.Manufacturer)
	set(v.Model, vs.Model)
	set(v.ModelYear, vs.ModelYear)
	set(v.Software.Version, vs.SoftwareVersion)
	set(v.Odometer, vs.Odometer)
	setEnum(a, v.State, vs.State)
	setEnum(a, v.ConnectionState, vs.ConnectionState)
	set(v.OutsideTemperature, vs.OutsideTemperature)
	set(v.Drives.TotalRange, vs.TotalRange)

	for id, ds := range vs.Drives {
		d := v.Drives.Add(id, driveType(ds.Type))
		set(d.Level, ds.Level)
		set(d.Range, ds.Range)
		if d.Battery != nil {
			set(d.Battery.Temperature, ds.BatteryTemperature)
		}
		if d.AdBlue != nil {
			set(d.AdBlue.Level, ds.AdBlueLevel)
			set(d.AdBlue.Range, ds.AdBlueRange)
		}
	}
	if ds := vs.Doors; ds != nil {
		setEnum(a, v.Doors.OpenState, ds.OpenState)
		setEnum(a, v.Doors.LockState, ds.LockState)
		for id, door := range ds.Doors {
			d := v.Doors.Add(id)
			setEnum(a, d.OpenState, door.OpenState)
			setEnum(a, d.LockState, door.LockState)
		}
	}
	if g := vs.Windows; g != nil {
		setEnum(a, v.Windows.OpenState, g.State)
		for id, s := range g.Items {
			setEnum(a, v.Windows.Add(id).OpenState, &s)
		}
	}
	if g := vs.Lights; g != nil {
		setEnum(a, v.Lights.LightState, g.State)
		for id, s := range g.Items {
			setEnum(a, v.Lights.Add(id).LightState, &s)
		}
	}
	if g := vs.WindowHeatings; g != nil {
		setEnum(a, v.WindowHeatings.HeatingState, g.State)
		for id, s := range g.Items {
			setEnum(a, v.WindowHeatings.Add(id).HeatingState, &s)
		}
	}
	if p := vs.Position; p != nil {
		set(v.Position.Latitude, p.Latitude)
		set(v.Position.Longitude, p.Longitude)
		setEnum(a, v.Position.PositionType, p.PositionType)
	}
	if c := vs.Climatization; c != nil {
		setEnum(a, v.Climatization.State, c.State)
		set(v.Climatization.Settings.TargetTemperature, c.TargetTemperature)
		setTime(a, v.Climatization.EstimatedDateReached, c.EstimatedDateReached)
	}
	if m := vs.Maintenance; m != nil {
		setTime(a, v.Maintenance.InspectionDueAt, m.InspectionDueAt)
		set(v.Maintenance.InspectionDueAfter, m.InspectionDueAfter)
		setTime(a, v.Maintenance.OilServiceDueAt, m.OilServiceDueAt)
		set(v.Maintenance.OilServiceDueAfter, m.OilServiceDueAfter)
	}
	if c := vs.Charging; c != nil {
		if v.Charging == nil {
			a.fail(v.Path()+"/charging", errors.New("vehicle type has no charging"))
			return
		}
		ch := v.Charging
		setEnum(a, ch.State, c.State)
		setEnum(a, ch.Type, c.Type)
		set(ch.Rate, c.Rate)
		set(ch.Power, c.Power)
		setTime(a, ch.EstimatedDateReached, c.EstimatedDateReached)
		setEnum(a, ch.Connector.ConnectionState, c.ConnectionState)
		setEnum(a, ch.Connector.LockState, c.LockState)
		setEnum(a, ch.Connector.ExternalPower, c.ExternalPower)
		set(ch.Settings.TargetLevel, c.TargetLevel)
		set(ch.Settings.MaximumCurrent, c.MaximumCurrent)
		set(ch.Settings.AutoUnlock, c.AutoUnlock)
	}
}
