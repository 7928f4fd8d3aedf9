package simulated

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/carbridge/core/component"
	"github.com/kilianp07/carbridge/core/model"
	"github.com/kilianp07/carbridge/core/observable"
	"github.com/kilianp07/carbridge/infra/logger"
)

func newConnector(t *testing.T, vehicles ...map[string]any) (*Connector, *model.CarConnectivity) {
	t.Helper()
	tree := model.New("test")
	vs := make([]any, len(vehicles))
	for i, v := range vehicles {
		vs[i] = v
	}
	c, err := New(component.Env{Tree: tree, Log: logger.NopLogger{}}, map[string]any{
		"vehicles":         vs,
		"interval_seconds": 3600,
	})
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Stop() })
	return c, tree
}

func value[T comparable](t *testing.T, a *observable.Attribute[T]) T {
	t.Helper()
	v, ok := a.Value()
	require.True(t, ok, a.Path())
	return v
}

func TestConfigValidation(t *testing.T) {
	tests := map[string]Config{
		"no vehicles":  {},
		"missing vin":  {Vehicles: []VehicleConfig{{}}},
		"duplicate":    {Vehicles: []VehicleConfig{{VIN: "a"}, {VIN: "A"}}},
		"unknown type": {Vehicles: []VehicleConfig{{VIN: "a", Type: "hovercraft"}}},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			cfg.SetDefaults()
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Config{Vehicles: []VehicleConfig{{VIN: " wvw1 "}}}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "WVW1", cfg.Vehicles[0].VIN)
	assert.Equal(t, "electric", cfg.Vehicles[0].Type)
	assert.Equal(t, time.Minute, cfg.interval())
	assert.Equal(t, 15.0, *cfg.OutsideTemperature)
}

func TestStartBuildsGarage(t *testing.T) {
	c, tree := newConnector(t,
		map[string]any{"vin": "EV1", "name": "ID.3", "model_year": 2022},
		map[string]any{"vin": "D1", "type": "diesel"},
	)
	assert.Equal(t, "simulated", c.ID())
	require.Equal(t, 2, tree.Garage.Len())

	ev, ok := tree.Garage.Vehicle("EV1")
	require.True(t, ok)
	require.NotNil(t, ev.Charging)
	assert.Equal(t, "ID.3", value(t, ev.Name))
	assert.Equal(t, 2022, value(t, ev.ModelYear))
	assert.Equal(t, 60.0, value(t, ev.Drives.List()[0].Level))
	assert.Equal(t, model.LockStateLocked, value(t, ev.Doors.LockState))
	assert.True(t, ev.Commands.Has(model.CommandWakeSleep))
	assert.True(t, ev.Charging.Commands.Has(model.CommandStartStop))
	assert.True(t, ev.Charging.Settings.TargetLevel.Writable())
	assert.Equal(t, model.ChargingReadyForCharging, value(t, ev.Charging.State))

	d, ok := tree.Garage.Vehicle("D1")
	require.True(t, ok)
	assert.Nil(t, d.Charging)
	primary, ok := d.Drives.Get("primary")
	require.True(t, ok)
	assert.True(t, primary.IsCombustion())
	assert.Equal(t, 80.0, value(t, primary.AdBlue.Level))

	healthy, _ := tree.Connectors.List()[0].Healthy.Value()
	assert.True(t, healthy)
}

func TestDriveThenCharge(t *testing.T) {
	c, tree := newConnector(t, map[string]any{"vin": "EV1", "trip_ticks": 1, "park_ticks": 1})
	ev, _ := tree.Garage.Vehicle("EV1")
	drive, _ := ev.Drives.Get("primary")
	lat0 := value(t, ev.Position.Latitude)

	c.Step(time.Hour)
	assert.Equal(t, model.VehicleStateDriving, value(t, ev.State))
	assert.Equal(t, 50.0, value(t, ev.Odometer))
	afterTrip := value(t, drive.Level)
	assert.Less(t, afterTrip, 60.0)
	assert.NotEqual(t, lat0, value(t, ev.Position.Latitude))
	assert.Equal(t, model.PlugDisconnected, value(t, ev.Charging.Connector.ConnectionState))

	c.Step(time.Hour)
	assert.Equal(t, model.VehicleStateParking, value(t, ev.State))
	assert.Equal(t, model.ChargingCharging, value(t, ev.Charging.State))
	assert.Equal(t, 11.0, value(t, ev.Charging.Power))
	assert.Greater(t, value(t, drive.Level), afterTrip)
	assert.Greater(t, value(t, drive.Range), 0.0)
	assert.True(t, ev.Charging.EstimatedDateReached.HasValue())
}

func TestChargingHoldsAtTarget(t *testing.T) {
	c, tree := newConnector(t, map[string]any{"vin": "EV1"})
	ev, _ := tree.Garage.Vehicle("EV1")
	sleep, _ := ev.Commands.Get(model.CommandWakeSleep)
	require.NoError(t, sleep.Write("sleep"))
	require.NoError(t, ev.Charging.Settings.TargetLevel.Write("50"))

	c.Step(time.Hour)
	assert.Equal(t, model.VehicleOffline, value(t, ev.ConnectionState))
	assert.Equal(t, model.ChargingConservation, value(t, ev.Charging.State))
	assert.Equal(t, 50.0, value(t, ev.Charging.Settings.TargetLevel))

	err := ev.Charging.Settings.TargetLevel.Write("30")
	assert.ErrorIs(t, err, observable.ErrInvalidValue)
}

func TestCommands(t *testing.T) {
	_, tree := newConnector(t, map[string]any{"vin": "EV1"})
	ev, _ := tree.Garage.Vehicle("EV1")

	lock, _ := ev.Doors.Commands.Get(model.CommandLockUnlock)
	require.NoError(t, lock.Write("unlock"))
	assert.Equal(t, model.LockStateUnlocked, value(t, ev.Doors.LockState))
	for _, d := range ev.Doors.List() {
		assert.Equal(t, model.LockStateUnlocked, value(t, d.LockState), d.ID())
	}
	assert.ErrorIs(t, lock.Write("open"), observable.ErrUnknownCommand)

	clim, _ := ev.Climatization.Commands.Get(model.CommandStartStop)
	require.NoError(t, clim.Write("start"))
	assert.Equal(t, model.ClimatizationHeating, value(t, ev.Climatization.State))
	require.NoError(t, ev.Climatization.Settings.TargetTemperature.Write("16"))
	assert.Equal(t, model.ClimatizationVentilation, value(t, ev.Climatization.State))
	require.NoError(t, clim.Write("stop"))
	assert.Equal(t, model.ClimatizationOff, value(t, ev.Climatization.State))

	heat, _ := ev.WindowHeatings.Commands.Get(model.CommandStartStop)
	require.NoError(t, heat.Write("start"))
	assert.Equal(t, model.StateOn, value(t, ev.WindowHeatings.HeatingState))

	charge, _ := ev.Charging.Commands.Get(model.CommandStartStop)
	require.NoError(t, charge.Write("stop"))
	require.NoError(t, ev.Charging.Settings.AutoUnlock.Write("true"))
	assert.Equal(t, model.LockStateUnlocked, value(t, ev.Charging.Connector.LockState))
}

func TestDieselConsumesFuelAndAdBlue(t *testing.T) {
	c, tree := newConnector(t, map[string]any{"vin": "D1", "type": "diesel", "tank_liters": 60})
	d, _ := tree.Garage.Vehicle("D1")
	drive, _ := d.Drives.Get("primary")
	level := value(t, drive.Level)

	c.Step(time.Hour)
	assert.Less(t, value(t, drive.Level), level)
	assert.Less(t, value(t, drive.AdBlue.Level), 80.0)
	assert.Greater(t, value(t, d.Drives.TotalRange), 0.0)
	assert.True(t, d.Maintenance.OilServiceDueAfter.HasValue())
}
