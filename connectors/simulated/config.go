package simulated

import (
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/carbridge/core/model"
)

// VehicleConfig describes one simulated vehicle.
type VehicleConfig struct {
	VIN          string  `json:"vin"`
	Name         string  `json:"name"`
	Manufacturer string  `json:"manufacturer"`
	Model        string  `json:"model"`
	ModelYear    int     `json:"model_year"`
	Type         string  `json:"type"`
	CapacityKWh  float64 `json:"capacity_kwh"`
	ChargeRateKW float64 `json:"charge_rate_kw"`
	TankLiters   float64 `json:"tank_liters"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	// SpeedKMH is the average speed while driving.
	SpeedKMH float64 `json:"speed_kmh"`
	// TripTicks and ParkTicks define the driving pattern in ticks.
	TripTicks int `json:"trip_ticks"`
	ParkTicks int `json:"park_ticks"`
}

// Config of the simulated connector.
type Config struct {
	Vehicles        []VehicleConfig `json:"vehicles"`
	IntervalSeconds int             `json:"interval_seconds"`
	// OutsideTemperature in °C drives climatization and consumption.
	OutsideTemperature *float64 `json:"outside_temperature"`
	LogLevel           string   `json:"log_level"`
}

// SetDefaults fills optional fields.
func (c *Config) SetDefaults() {
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 60
	}
	if c.OutsideTemperature == nil {
		t := 15.0
		c.OutsideTemperature = &t
	}
	for i := range c.Vehicles {
		v := &c.Vehicles[i]
		v.VIN = strings.ToUpper(strings.TrimSpace(v.VIN))
		if v.Type == "" {
			v.Type = string(model.VehicleTypeElectric)
		}
		if v.CapacityKWh <= 0 {
			v.CapacityKWh = 58
		}
		if v.ChargeRateKW <= 0 {
			v.ChargeRateKW = 11
		}
		if v.TankLiters <= 0 {
			v.TankLiters = 50
		}
		if v.SpeedKMH <= 0 {
			v.SpeedKMH = 50
		}
		if v.TripTicks <= 0 {
			v.TripTicks = 3
		}
		if v.ParkTicks <= 0 {
			v.ParkTicks = 6
		}
	}
}

// Validate checks the configuration after defaults were applied.
func (c Config) Validate() error {
	if len(c.Vehicles) == 0 {
		return fmt.Errorf("at least one vehicle is required")
	}
	seen := make(map[string]bool, len(c.Vehicles))
	for i, v := range c.Vehicles {
		if v.VIN == "" {
			return fmt.Errorf("vehicles[%d]: vin is required", i)
		}
		if seen[v.VIN] {
			return fmt.Errorf("vehicles[%d]: duplicate vin %s", i, v.VIN)
		}
		seen[v.VIN] = true
		switch model.VehicleType(v.Type) {
		case model.VehicleTypeElectric, model.VehicleTypeHybrid, model.VehicleTypeGasoline, model.VehicleTypeDiesel:
		default:
			return fmt.Errorf("vehicles[%d]: unknown type %q", i, v.Type)
		}
	}
	return nil
}

func (c Config) interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}
