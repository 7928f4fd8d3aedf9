package homeassistant

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/carbridge/core/model"
	"github.com/kilianp07/carbridge/core/observable"
)

// ErrNoVIN is returned for vehicles without a VIN value.
var ErrNoVIN = errors.New("vehicle has no vin")

// VehicleMessage builds the discovery message of a vehicle.
func VehicleMessage(v *model.Vehicle, o Options) (*Message, error) {
	vin, ok := present(v.VIN)
	if !ok || vin == "" {
		return nil, ErrNoVIN
	}
	dev := Device{IDs: vin, SerialNumber: vin}
	if s, ok := present(v.Name); ok {
		dev.Name = s
	}
	if s, ok := present(v.Manufacturer); ok {
		dev.Manufacturer = s
	}
	if s, ok := present(v.Model); ok {
		dev.Model = s
	}
	if y, ok := present(v.ModelYear); ok {
		dev.HardwareVersion = strconv.Itoa(y)
	}
	if v.Software != nil && v.Software.Enabled() {
		if s, ok := present(v.Software.Version); ok {
			dev.SoftwareVersion = s
		}
	}
	msg := newMessage(dev, Origin{Name: bridgeName, SoftwareVersion: o.Version, URL: originURL})
	b := vehicleBuilder{msg: msg, vin: vin, o: o}

	b.general(v)
	b.drives(v.Drives)
	b.doors(v.Doors)
	b.windows(v.Windows)
	b.lights(v.Lights)
	b.windowHeatings(v.WindowHeatings)
	b.position(v.Position)
	b.climatization(v.Climatization)
	b.outside(v)
	b.maintenance(v.Maintenance)
	if v.Charging != nil {
		b.charging(v.Charging)
	}
	b.tracker(v.Position)

	msg.setAvailability(o.AvailabilityTopic)
	return msg, nil
}

type vehicleBuilder struct {
	msg *Message
	vin string
	o   Options
}

func (b vehicleBuilder) add(suffix string, c *Component) *Component {
	return b.msg.add(b.vin+"_"+suffix, c)
}

func (b vehicleBuilder) measure(suffix string, a *observable.Attribute[float64], c *Component) {
	if !hasMeasure(a) {
		return
	}
	c.Platform = "sensor"
	c.StateTopic = b.o.Topic(a)
	c.UnitOfMeasurement = string(a.Unit())
	if c.StateClass == "" {
		c.StateClass = stateClassMeasurement
	}
	b.add(suffix, c)
}

func enumSensor[T ~string](b vehicleBuilder, suffix, name, icon string, a *observable.Attribute[T]) {
	if !hasValue(a) {
		return
	}
	b.add(suffix, &Component{
		Platform:    "sensor",
		DeviceClass: "enum",
		Icon:        icon,
		Name:        name,
		StateTopic:  b.o.Topic(a),
		Options:     a.Options(),
	})
}

func (b vehicleBuilder) timestamp(suffix, name, icon string, a *observable.Attribute[time.Time]) {
	if !hasValue(a) {
		return
	}
	b.add(suffix, &Component{
		Platform:    "sensor",
		DeviceClass: "timestamp",
		Icon:        icon,
		Name:        name,
		StateTopic:  b.o.Topic(a),
	})
}

func (b vehicleBuilder) general(v *model.Vehicle) {
	if v.Commands.Enabled() {
		if cmd, ok := v.Commands.Get(model.CommandWakeSleep); ok {
			b.add("wake", &Component{
				Platform:     "button",
				Name:         "Wakeup",
				Icon:         "mdi:sleep-off",
				CommandTopic: b.o.WriteTopic(cmd),
				PayloadPress: "wake",
			})
		}
	}
	b.measure("odometer", v.Odometer, &Component{
		DeviceClass: "distance",
		StateClass:  stateClassTotalIncreasing,
		Icon:        "mdi:counter",
		Name:        "Odometer",
	})
	enumSensor(b, "state", "Vehicle State", "mdi:car-hatchback", v.State)
	enumSensor(b, "connection_state", "Connection State", "mdi:car-connected", v.ConnectionState)
}

func (b vehicleBuilder) drives(d *model.Drives) {
	if d == nil || !d.Enabled() {
		return
	}
	b.measure("total_range", d.TotalRange, &Component{DeviceClass: "distance", Name: "Total Range"})
	for _, drive := range d.List() {
		if !drive.Enabled() {
			continue
		}
		id := drive.ID()
		b.measure(id+"_range", drive.Range, &Component{DeviceClass: "distance", Name: "Range (" + id + ")"})
		if drive.IsCombustion() {
			b.measure(id+"_level", drive.Level, &Component{Name: "Tank (" + id + ")", Icon: "mdi:gas-station"})
			if drive.AdBlue != nil && drive.AdBlue.Enabled() {
				b.measure(id+"_adbluelevel", drive.AdBlue.Level, &Component{Name: "AdBlue Tank (" + id + ")", Icon: "mdi:gas-station"})
				b.measure(id+"_adbluerange", drive.AdBlue.Range, &Component{DeviceClass: "distance", Name: "AdBlue Range (" + id + ")"})
			}
			continue
		}
		if t, _ := drive.Type.Value(); t != model.DriveElectric {
			continue
		}
		b.measure(id+"_level", drive.Level, &Component{DeviceClass: "battery", Icon: "mdi:battery", Name: "SoC (" + id + ")"})
		if drive.Battery != nil && drive.Battery.Enabled() {
			b.measure(id+"_battery_temperature", drive.Battery.Temperature, &Component{
				DeviceClass: "temperature",
				Icon:        "mdi:thermometer-lines",
				Name:        "Battery Temperature (" + id + ")",
			})
		}
	}
}

func (b vehicleBuilder) doors(d *model.Doors) {
	if d == nil || !d.Enabled() {
		return
	}
	if hasValue(d.OpenState) {
		b.add("open_state", openSensor("door", "Door Open State", "mdi:car-door", b.o.Topic(d.OpenState)))
	}
	if hasValue(d.LockState) {
		if cmd, ok := d.Commands.Get(model.CommandLockUnlock); ok {
			b.add("lock_unlock", &Component{
				Platform:      "lock",
				Name:          "Lock/Unlock",
				Icon:          "mdi:car-door-lock",
				StateTopic:    b.o.Topic(d.LockState),
				CommandTopic:  b.o.WriteTopic(cmd),
				PayloadLock:   "lock",
				PayloadUnlock: "unlock",
				StateLocked:   string(model.LockStateLocked),
				StateUnlocked: string(model.LockStateUnlocked),
			})
		} else {
			b.add("lock_state", lockSensor("Lock State", b.o.Topic(d.LockState)))
		}
	}
	for _, door := range d.List() {
		if !door.Enabled() {
			continue
		}
		id := door.ID()
		if s, ok := present(door.OpenState); ok && s != model.OpenStateUnknown && s != model.OpenStateInvalid && s != model.OpenStateUnsupported {
			b.add(id+"_door_open_state", openSensor("door", "Door Open State ("+id+")", "mdi:car-door", b.o.Topic(door.OpenState)))
		}
		if s, ok := present(door.LockState); ok && s != model.LockStateUnknown && s != model.LockStateInvalid {
			b.add(id+"_door_lock_state", lockSensor("Lock State ("+id+")", b.o.Topic(door.LockState)))
		}
	}
}

func openSensor(class, name, icon, topic string) *Component {
	return &Component{
		Platform:    "binary_sensor",
		DeviceClass: class,
		Name:        name,
		Icon:        icon,
		StateTopic:  topic,
		PayloadOff:  string(model.OpenStateClosed),
		PayloadOn:   string(model.OpenStateOpen),
	}
}

func lockSensor(name, topic string) *Component {
	return &Component{
		Platform:    "binary_sensor",
		DeviceClass: "lock",
		Name:        name,
		Icon:        "mdi:car-door-lock",
		StateTopic:  topic,
		PayloadOn:   string(model.LockStateUnlocked),
		PayloadOff:  string(model.LockStateLocked),
	}
}

func onOffSensor(name, icon, topic string) *Component {
	return &Component{
		Platform:   "binary_sensor",
		Name:       name,
		Icon:       icon,
		StateTopic: topic,
		PayloadOff: string(model.StateOff),
		PayloadOn:  string(model.StateOn),
	}
}

func (b vehicleBuilder) windows(w *model.Windows) {
	if w == nil || !w.Enabled() {
		return
	}
	if hasValue(w.OpenState) {
		b.add("window_open_state", openSensor("window", "Window Open State", "mdi:window-open", b.o.Topic(w.OpenState)))
	}
	for _, win := range w.List() {
		if win.Enabled() && hasValue(win.OpenState) {
			id := win.ID()
			b.add(id+"_window_open_state", openSensor("window", "Window Open State ("+id+")", "mdi:window-open", b.o.Topic(win.OpenState)))
		}
	}
}

func (b vehicleBuilder) lights(l *model.Lights) {
	if l == nil || !l.Enabled() {
		return
	}
	if hasValue(l.LightState) {
		b.add("light_state", onOffSensor("Light State", "mdi:car-light-dimmed", b.o.Topic(l.LightState)))
	}
	for _, light := range l.List() {
		if light.Enabled() && hasValue(light.LightState) {
			id := light.ID()
			b.add(id+"_state", onOffSensor("Light State ("+id+")", "mdi:car-light-dimmed", b.o.Topic(light.LightState)))
		}
	}
}

func (b vehicleBuilder) windowHeatings(w *model.WindowHeatings) {
	if w == nil || !w.Enabled() {
		return
	}
	if hasValue(w.HeatingState) {
		if w.Commands.Enabled() {
			if cmd, ok := w.Commands.Get(model.CommandStartStop); ok {
				b.add("window_heating_start_stop", &Component{
					Platform:     "switch",
					Name:         "Start/Stop Window Heating",
					Icon:         "mdi:car-defrost-front",
					StateTopic:   b.o.Topic(w.HeatingState),
					CommandTopic: b.o.WriteTopic(cmd),
					PayloadOn:    "start",
					PayloadOff:   "stop",
					StateOn:      string(model.StateOn),
					StateOff:     string(model.StateOff),
				})
			}
		}
		b.add("window_heating_state", onOffSensor("Window Heating State", "mdi:car-defrost-front", b.o.Topic(w.HeatingState)))
	}
	for _, h := range w.List() {
		if !h.Enabled() || !hasValue(h.HeatingState) {
			continue
		}
		id := h.ID()
		icon := "mdi:car-defrost-front"
		if strings.Contains(id, "rear") {
			icon = "mdi:car-defrost-rear"
		}
		b.add(id+"_window_heating_state", onOffSensor("Window Heating State ("+id+")", icon, b.o.Topic(h.HeatingState)))
	}
}

func (b vehicleBuilder) position(p *model.Position) {
	if p == nil || !p.Enabled() {
		return
	}
	if hasMeasure(p.Latitude) && hasMeasure(p.Longitude) {
		b.measure("latitude", p.Latitude, &Component{Name: "Position Latitude", Icon: "mdi:latitude"})
		b.measure("longitude", p.Longitude, &Component{Name: "Position Longitude", Icon: "mdi:longitude"})
	}
	enumSensor(b, "position_type", "Position Type", "mdi:map-marker", p.PositionType)
}

func (b vehicleBuilder) climatization(c *model.Climatization) {
	if c == nil || !c.Enabled() {
		return
	}
	enumSensor(b, "climatization_state", "Climatization State", "mdi:air-conditioner", c.State)
	if c.Commands.Enabled() {
		if cmd, ok := c.Commands.Get(model.CommandStartStop); ok {
			climate := b.add("climatization_start_stop", &Component{
				Platform:          "climate",
				Name:              "Start/Stop Climatization",
				Icon:              "mdi:air-conditioner",
				ActionTopic:       HVACActionTopic(b.o.Prefix, c),
				ModeCommandTopic:  b.o.WriteTopic(cmd),
				ModeStateTopic:    HVACModeTopic(b.o.Prefix, c),
				Modes:             []string{ModeOff, ModeAuto},
				PowerCommandTopic: b.o.WriteTopic(cmd),
				PayloadOn:         "start",
				PayloadOff:        "stop",
			})
			b.targetTemperature(climate, c.Settings)
		}
	}
	b.timestamp("climatization_estimated_date_reached", "Climatization Estimated Date Reached", "mdi:clock-end", c.EstimatedDateReached)
}

// targetTemperature adds the temperature settings to the climate entity.
func (b vehicleBuilder) targetTemperature(climate *Component, s *model.ClimatizationSettings) {
	if s == nil || !s.Enabled() || !s.TargetTemperature.Enabled() {
		return
	}
	t := s.TargetTemperature
	if t.HasValue() {
		climate.TemperatureStateTopic = b.o.Topic(t)
	}
	r := t.Range()
	climate.MaxTemp = r.Max
	climate.MinTemp = r.Min
	climate.TempStep = r.Step
	if t.Writable() {
		climate.TemperatureCommandTopic = b.o.WriteTopic(t)
	}
	switch t.Unit() {
	case model.UnitCelsius:
		climate.TemperatureUnit = "C"
	case model.UnitFahrenheit:
		climate.TemperatureUnit = "F"
	}
}

func (b vehicleBuilder) outside(v *model.Vehicle) {
	b.measure("outside_temperature", v.OutsideTemperature, &Component{
		DeviceClass: "temperature",
		Icon:        "mdi:sun-thermometer-outline",
		Name:        "Outside Temperature",
	})
}

func (b vehicleBuilder) maintenance(m *model.Maintenance) {
	if m == nil || !m.Enabled() {
		return
	}
	b.timestamp("inspection_due_at", "Inspection Due At", "mdi:tools", m.InspectionDueAt)
	b.measure("inspection_due_after", m.InspectionDueAfter, &Component{DeviceClass: "distance", Icon: "mdi:tools", Name: "Inspection Due After"})
	b.timestamp("oil_service_due_at", "Oil Service Due At", "mdi:oil", m.OilServiceDueAt)
	b.measure("oil_service_due_after", m.OilServiceDueAfter, &Component{DeviceClass: "distance", Icon: "mdi:oil", Name: "Oil Service Due After"})
}

func (b vehicleBuilder) charging(c *model.Charging) {
	con := c.Connector
	if hasValue(con.ConnectionState) {
		if c.Commands.Enabled() && hasValue(c.State) {
			if cmd, ok := c.Commands.Get(model.CommandStartStop); ok {
				b.add("charging_start_stop", &Component{
					Platform:     "switch",
					Name:         "Start/Stop Charging",
					Icon:         "mdi:ev-station",
					StateTopic:   BinaryStateTopic(b.o.Prefix, c),
					CommandTopic: b.o.WriteTopic(cmd),
					PayloadOn:    "start",
					PayloadOff:   "stop",
					StateOn:      string(model.StateOn),
					StateOff:     string(model.StateOff),
				})
			}
		}
		enumSensor(b, "charging_connector_state", "Charging Connector State", "mdi:ev-station", con.ConnectionState)
	}
	if hasValue(con.LockState) {
		b.add("charging_connector_lock_state", &Component{
			Platform:    "binary_sensor",
			DeviceClass: "lock",
			Icon:        "mdi:lock",
			Name:        "Charging Connector Lock State",
			StateTopic:  b.o.Topic(con.LockState),
			PayloadOn:   string(model.LockStateUnlocked),
			PayloadOff:  string(model.LockStateLocked),
		})
	}
	enumSensor(b, "charging_connector_external_power", "Charging Connector External Power", "mdi:lightning-bolt", con.ExternalPower)
	enumSensor(b, "charging_state", "Charging State", "mdi:battery-charging", c.State)
	enumSensor(b, "charging_type", "Charging Type", "mdi:current-ac", c.Type)
	b.measure("charging_rate", c.Rate, &Component{DeviceClass: "speed", Icon: "mdi:speedometer", Name: "Charging Rate"})
	b.measure("charging_power", c.Power, &Component{DeviceClass: "power", Icon: "mdi:speedometer", Name: "Charging Power"})
	b.timestamp("charging_estimated_date_reached", "Charging Estimated Date Reached", "mdi:clock-end", c.EstimatedDateReached)

	s := c.Settings
	if s == nil {
		return
	}
	b.number("charging_target_level", s.TargetLevel, &Component{DeviceClass: "battery", Icon: "mdi:battery", Name: "Charging Target Level"})
	b.number("charging_maximum_current", s.MaximumCurrent, &Component{DeviceClass: "current", Icon: "mdi:speedometer", Name: "Charging Maximum Current"})
	if hasValue(s.AutoUnlock) {
		b.add("charging_auto_unlock", &Component{
			Platform:     "switch",
			Name:         "Auto unlock charging connector",
			Icon:         "mdi:lock",
			StateTopic:   b.o.Topic(s.AutoUnlock),
			CommandTopic: b.o.WriteTopic(s.AutoUnlock),
			PayloadOn:    "True",
			PayloadOff:   "False",
			StateOn:      "True",
			StateOff:     "False",
		})
	}
}

func (b vehicleBuilder) number(suffix string, a *observable.Attribute[float64], c *Component) {
	if !hasValue(a) {
		return
	}
	r := a.Range()
	c.Platform = "number"
	c.StateTopic = b.o.Topic(a)
	c.CommandTopic = b.o.WriteTopic(a)
	c.Min, c.Max, c.Step = r.Min, r.Max, r.Step
	c.UnitOfMeasurement = string(a.Unit())
	b.add(suffix, c)
}

// tracker announces a device tracker for every vehicle with a position.
func (b vehicleBuilder) tracker(p *model.Position) {
	if p == nil || !p.Enabled() || !hasValue(p.Latitude) || !hasValue(p.Longitude) {
		return
	}
	b.add("position", &Component{
		Platform:            "device_tracker",
		Icon:                "mdi:map-marker",
		Name:                "Position",
		JSONAttributesTopic: PositionAttributesTopic(b.o.Prefix, p),
		SourceType:          "gps",
	})
}
