package simulated

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatteryDrawLimits(t *testing.T) {
	b := &battery{capacityKWh: 50, soc: 0.5, chargeRateKW: 11, dischargeRateKW: 100}
	got := b.draw(10, time.Hour)
	assert.InDelta(t, 10, got, 1e-9)
	assert.InDelta(t, 0.3, b.soc, 1e-9)

	got = b.draw(100, time.Hour)
	assert.InDelta(t, 15, got, 1e-9, "limited by stored energy")
	assert.Zero(t, b.soc)
	assert.Zero(t, b.draw(5, 0))
}

func TestBatteryChargeStopsAtLimit(t *testing.T) {
	b := &battery{capacityKWh: 50, soc: 0.5, chargeRateKW: 11, dischargeRateKW: 100}
	got := b.charge(22, time.Hour, 1)
	assert.InDelta(t, 11, got, 1e-9, "limited by charge rate")
	assert.InDelta(t, 0.72, b.soc, 1e-9)

	got = b.charge(11, time.Hour, 0.8)
	assert.InDelta(t, 4, got, 1e-9)
	assert.InDelta(t, 0.8, b.soc, 1e-9)
	assert.InDelta(t, 0, b.charge(11, time.Hour, 0.8), 1e-9)
}
