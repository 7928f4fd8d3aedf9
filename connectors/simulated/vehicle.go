package simulated

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/carbridge/core/model"
	"github.com/kilianp07/carbridge/core/observable"
)

const (
	// Consumption at 20 °C and 50 km/h.
	baseKWhPerKM    = 0.17
	baseLitersPerKM = 0.065
	adBluePctPerKM  = 0.002
	adBlueKMPerPct  = 120
	climatePowerKW  = 1.5
	// kW per ampere on a three phase 230 V supply.
	kwPerAmpere = 0.69
	// Hybrids switch to fuel below this SoC.
	hybridReserve  = 0.1
	sampleWindow   = 20
	kmPerDegreeLat = 111.0
)

var (
	doorIDs    = []string{"front_left", "front_right", "rear_left", "rear_right", "bonnet", "trunk"}
	windowIDs  = []string{"front_left", "front_right", "rear_left", "rear_right"}
	lightIDs   = []string{"left", "right"}
	heatingIDs = []string{"front", "rear"}
)

// vehicle is the simulated state of one car and the tree view it updates.
type vehicle struct {
	mu  sync.Mutex
	cfg VehicleConfig
	v   *model.Vehicle

	primary   *model.Drive
	secondary *model.Drive
	bat       *battery
	fuel      float64

	adBlue   float64
	odometer float64
	lat, lon float64
	heading  float64
	tick     int
	driving  bool
	outside  float64

	awake          bool
	chargeRequest  bool
	climate        bool
	windowHeating  bool
	locked         bool
	targetLevel    float64
	maxCurrent     float64
	autoUnlock     bool
	targetTemp     float64
	samples        []float64
	chargePowerKW  float64
	chargeEstimate time.Time
}

func (s *vehicle) electric() bool { return s.bat != nil }

func (s *vehicle) combustion() bool {
	t := model.VehicleType(s.cfg.Type)
	return t == model.VehicleTypeGasoline || t == model.VehicleTypeDiesel || t == model.VehicleTypeHybrid
}

func newVehicle(tree *model.CarConnectivity, cfg VehicleConfig, outside float64, now time.Time) *vehicle {
	t := model.VehicleType(cfg.Type)
	s := &vehicle{
		cfg:           cfg,
		v:             tree.Garage.AddVehicle(cfg.VIN, t),
		fuel:          cfg.TankLiters * 0.7,
		adBlue:        80,
		lat:           cfg.Latitude,
		lon:           cfg.Longitude,
		outside:       outside,
		awake:         true,
		chargeRequest: true,
		locked:        true,
		targetLevel:   80,
		maxCurrent:    16,
		targetTemp:    21,
	}
	switch t {
	case model.VehicleTypeElectric:
		s.bat = &battery{capacityKWh: cfg.CapacityKWh, soc: 0.6, chargeRateKW: cfg.ChargeRateKW, dischargeRateKW: 150}
		s.primary = s.v.Drives.Add("primary", model.DriveElectric)
	case model.VehicleTypeHybrid:
		s.bat = &battery{capacityKWh: cfg.CapacityKWh, soc: 0.6, chargeRateKW: cfg.ChargeRateKW, dischargeRateKW: 80}
		s.primary = s.v.Drives.Add("primary", model.DriveElectric)
		s.secondary = s.v.Drives.Add("secondary", model.DriveGasoline)
	case model.VehicleTypeDiesel:
		s.primary = s.v.Drives.Add("primary", model.DriveDiesel)
	default:
		s.primary = s.v.Drives.Add("primary", model.DriveGasoline)
	}
	s.build(now)
	return s
}

// build sets the static attributes and registers commands and write
// handlers.
func (s *vehicle) build(now time.Time) {
	v := s.v
	setIf(v.Name, s.cfg.Name)
	setIf(v.Manufacturer, s.cfg.Manufacturer)
	setIf(v.Model, s.cfg.Model)
	if s.cfg.ModelYear > 0 {
		v.ModelYear.SetValue(s.cfg.ModelYear)
	}
	v.Software.Version.SetValue("sim-1")
	v.Position.Latitude.SetValue(s.lat)
	v.Position.Longitude.SetValue(s.lon)

	for _, id := range doorIDs {
		v.Doors.Add(id)
	}
	for _, id := range windowIDs {
		v.Windows.Add(id).OpenState.SetValue(model.OpenStateClosed)
	}
	v.Windows.OpenState.SetValue(model.OpenStateClosed)
	for _, id := range lightIDs {
		v.Lights.Add(id).LightState.SetValue(model.StateOff)
	}
	v.Lights.LightState.SetValue(model.StateOff)
	for _, id := range heatingIDs {
		v.WindowHeatings.Add(id)
	}

	v.Maintenance.InspectionDueAt.SetValue(now.AddDate(1, 0, 0).Truncate(time.Hour))
	if s.combustion() {
		v.Maintenance.OilServiceDueAt.SetValue(now.AddDate(0, 6, 0).Truncate(time.Hour))
	}

	v.Commands.Add(model.CommandWakeSleep, model.WakeSleepArguments, s.wakeSleep)
	v.Doors.Commands.Add(model.CommandLockUnlock, model.LockUnlockArguments, s.lockUnlock)
	v.Climatization.Commands.Add(model.CommandStartStop, model.StartStopArguments, s.climatization)
	v.WindowHeatings.Commands.Add(model.CommandStartStop, model.StartStopArguments, s.windowHeatings)

	tt := v.Climatization.Settings.TargetTemperature
	tt.SetRange(observable.Range{Min: observable.Float(16), Max: observable.Float(29.5), Step: observable.Float(0.5)})
	tt.SetWriteHandler(func(t float64) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.targetTemp = t
		s.publish()
		return nil
	})

	if c := v.Charging; c != nil {
		c.Commands.Add(model.CommandStartStop, model.StartStopArguments, s.chargingCommand)
		c.Settings.TargetLevel.SetRange(observable.Range{Min: observable.Float(50), Max: observable.Float(100), Step: observable.Float(10)})
		c.Settings.TargetLevel.SetWriteHandler(func(l float64) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.targetLevel = l
			s.publish()
			return nil
		})
		c.Settings.MaximumCurrent.SetRange(observable.Range{Min: observable.Float(6), Max: observable.Float(32), Step: observable.Float(1)})
		c.Settings.MaximumCurrent.SetWriteHandler(func(a float64) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.maxCurrent = a
			s.publish()
			return nil
		})
		c.Settings.AutoUnlock.SetWriteHandler(func(b bool) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.autoUnlock = b
			s.publish()
			return nil
		})
	}

	s.mu.Lock()
	s.publish()
	s.mu.Unlock()
}

func setIf(a *observable.Attribute[string], v string) {
	if v != "" {
		a.SetValue(v)
	}
}

// consumptionFactor scales the base consumption with speed and temperature.
func (s *vehicle) consumptionFactor() float64 {
	return 1 + 0.01*math.Abs(s.outside-20) + (s.cfg.SpeedKMH-50)/500
}

func (s *vehicle) addSample(perKM float64) {
	s.samples = append(s.samples, perKM)
	if len(s.samples) > sampleWindow {
		s.samples = s.samples[len(s.samples)-sampleWindow:]
	}
}

// perKM estimates the consumption from recent trips. Without trips the
// current conditions are used.
func (s *vehicle) perKM(base float64) float64 {
	if len(s.samples) == 0 {
		return base * s.consumptionFactor()
	}
	return stat.Mean(s.samples, nil)
}

// step advances the simulation by dt.
func (s *vehicle) step(now time.Time, dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	phase := s.tick % (s.cfg.TripTicks + s.cfg.ParkTicks)
	s.tick++
	s.driving = s.awake && phase < s.cfg.TripTicks
	if s.driving {
		s.drive(dt)
	}
	s.chargePowerKW = 0
	if s.electric() && !s.driving && s.chargeRequest {
		s.charge(now, dt)
	}
	if s.climate && s.electric() {
		s.bat.draw(climatePowerKW, dt)
	}
	s.publish()
}

func (s *vehicle) drive(dt time.Duration) {
	km := s.cfg.SpeedKMH * dt.Hours()
	if km <= 0 {
		return
	}
	factor := s.consumptionFactor()
	switch {
	case s.electric() && (s.secondary == nil || s.bat.soc > hybridReserve):
		want := baseKWhPerKM * factor * km
		got := s.bat.draw(want/dt.Hours(), dt) * dt.Hours()
		if got < want {
			km = got / (baseKWhPerKM * factor)
		}
		if s.secondary == nil {
			s.addSample(baseKWhPerKM * factor)
		}
	case s.combustion():
		want := baseLitersPerKM * factor * km
		if want > s.fuel {
			km = s.fuel / (baseLitersPerKM * factor)
			want = s.fuel
		}
		s.fuel -= want
		s.addSample(baseLitersPerKM * factor)
		if model.VehicleType(s.cfg.Type) == model.VehicleTypeDiesel {
			s.adBlue = math.Max(0, s.adBlue-adBluePctPerKM*km)
		}
	}
	s.odometer += km
	s.move(km)
}

// move drives km along a slowly turning heading so the car circles its home.
func (s *vehicle) move(km float64) {
	s.lat += km / kmPerDegreeLat * math.Cos(s.heading)
	s.lon += km / (kmPerDegreeLat * math.Cos(s.lat*math.Pi/180)) * math.Sin(s.heading)
	s.heading = math.Mod(s.heading+0.3, 2*math.Pi)
}

func (s *vehicle) charge(now time.Time, dt time.Duration) {
	limit := s.targetLevel / 100
	power := math.Min(s.cfg.ChargeRateKW, s.maxCurrent*kwPerAmpere)
	s.chargePowerKW = s.bat.charge(power, dt, limit)
	if s.chargePowerKW > 0 {
		remaining := (limit - s.bat.soc) * s.bat.capacityKWh
		s.chargeEstimate = now.Add(time.Duration(remaining / s.chargePowerKW * float64(time.Hour))).Truncate(time.Minute)
	}
}

func (s *vehicle) chargingState() model.ChargingState {
	switch {
	case s.driving:
		return model.ChargingOff
	case s.chargePowerKW > 0:
		return model.ChargingCharging
	case s.chargeRequest && s.bat.soc >= s.targetLevel/100:
		return model.ChargingConservation
	default:
		return model.ChargingReadyForCharging
	}
}

func (s *vehicle) climatizationState() model.ClimatizationState {
	switch {
	case !s.climate:
		return model.ClimatizationOff
	case s.targetTemp-s.outside > 1:
		return model.ClimatizationHeating
	case s.outside-s.targetTemp > 1:
		return model.ClimatizationCooling
	default:
		return model.ClimatizationVentilation
	}
}

// publish copies the simulated state into the tree. Callers hold s.mu.
func (s *vehicle) publish() {
	v := s.v
	if s.awake {
		v.ConnectionState.SetValue(model.VehicleOnline)
		if s.driving {
			v.State.SetValue(model.VehicleStateDriving)
			v.Position.PositionType.SetValue(model.PositionDriving)
		} else {
			v.State.SetValue(model.VehicleStateParking)
			v.Position.PositionType.SetValue(model.PositionParking)
		}
	} else {
		v.ConnectionState.SetValue(model.VehicleOffline)
		v.State.SetValue(model.VehicleStateOffline)
	}
	v.Odometer.SetValue(round(s.odometer, 1))
	v.Position.Latitude.SetValue(round(s.lat, 6))
	v.Position.Longitude.SetValue(round(s.lon, 6))
	v.OutsideTemperature.SetValue(s.outside)

	total := 0.0
	if s.electric() {
		r := s.bat.energy() / s.perKMElectric()
		s.primary.Level.SetValue(round(s.bat.soc*100, 0))
		s.primary.Range.SetValue(round(r, 0))
		s.primary.Battery.AvailableCapacity.SetValue(s.bat.capacityKWh)
		s.primary.Battery.Temperature.SetValue(round(s.outside+5, 1))
		total += r
	}
	if s.combustion() {
		d := s.primary
		if s.secondary != nil {
			d = s.secondary
		}
		r := s.fuel / s.perKMFuel()
		d.Level.SetValue(round(s.fuel/s.cfg.TankLiters*100, 0))
		d.Range.SetValue(round(r, 0))
		total += r
		if d.AdBlue != nil {
			d.AdBlue.Level.SetValue(round(s.adBlue, 1))
			d.AdBlue.Range.SetValue(round(s.adBlue*adBlueKMPerPct, 0))
		}
		v.Maintenance.OilServiceDueAfter.SetValue(15000 - math.Mod(s.odometer, 15000))
	}
	v.Drives.TotalRange.SetValue(round(total, 0))
	v.Maintenance.InspectionDueAfter.SetValue(round(30000-math.Mod(s.odometer, 30000), 0))

	lock := model.LockStateUnlocked
	if s.locked {
		lock = model.LockStateLocked
	}
	for _, d := range v.Doors.List() {
		d.OpenState.SetValue(model.OpenStateClosed)
		d.LockState.SetValue(lock)
	}
	v.Doors.OpenState.SetValue(model.OpenStateClosed)
	v.Doors.LockState.SetValue(lock)

	heat := model.StateOff
	if s.windowHeating {
		heat = model.StateOn
	}
	for _, h := range v.WindowHeatings.List() {
		h.HeatingState.SetValue(heat)
	}
	v.WindowHeatings.HeatingState.SetValue(heat)

	c := v.Climatization
	c.State.SetValue(s.climatizationState())
	c.Settings.TargetTemperature.SetValue(s.targetTemp)

	if ch := v.Charging; ch != nil {
		s.publishCharging(ch)
	}
}

func (s *vehicle) publishCharging(ch *model.Charging) {
	state := s.chargingState()
	ch.State.SetValue(state)
	ch.Power.SetValue(round(s.chargePowerKW, 1))
	if s.chargePowerKW > 0 {
		ch.Type.SetValue(model.ChargingTypeAC)
		ch.Rate.SetValue(round(s.chargePowerKW/s.perKMElectric(), 0))
		ch.EstimatedDateReached.SetValue(s.chargeEstimate)
	} else {
		ch.Type.SetValue(model.ChargingTypeOff)
		ch.Rate.SetValue(0)
	}
	if s.driving {
		ch.Connector.ConnectionState.SetValue(model.PlugDisconnected)
		ch.Connector.LockState.SetValue(model.LockStateUnlocked)
		ch.Connector.ExternalPower.SetValue(model.ExternalPowerUnavailable)
	} else {
		ch.Connector.ConnectionState.SetValue(model.PlugConnected)
		lock := model.LockStateLocked
		if s.autoUnlock && state != model.ChargingCharging {
			lock = model.LockStateUnlocked
		}
		ch.Connector.LockState.SetValue(lock)
		if state == model.ChargingCharging {
			ch.Connector.ExternalPower.SetValue(model.ExternalPowerActive)
		} else {
			ch.Connector.ExternalPower.SetValue(model.ExternalPowerAvailable)
		}
	}
	ch.Settings.TargetLevel.SetValue(s.targetLevel)
	ch.Settings.MaximumCurrent.SetValue(s.maxCurrent)
	ch.Settings.AutoUnlock.SetValue(s.autoUnlock)
}

func (s *vehicle) perKMElectric() float64 {
	if s.secondary != nil {
		return baseKWhPerKM * s.consumptionFactor()
	}
	return s.perKM(baseKWhPerKM)
}

func (s *vehicle) perKMFuel() float64 {
	if s.secondary != nil {
		return baseLitersPerKM * s.consumptionFactor()
	}
	return s.perKM(baseLitersPerKM)
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
