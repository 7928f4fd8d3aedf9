package simulated

import (
	"math"
	"time"
)

// battery is a traction battery with power limits. SoC is kept in [0,1].
type battery struct {
	capacityKWh     float64
	soc             float64
	chargeRateKW    float64
	dischargeRateKW float64
}

// energy returns the stored energy in kWh.
func (b *battery) energy() float64 { return b.soc * b.capacityKWh }

// draw removes powerKW for dt and returns the power actually delivered.
// Delivery stops when the battery is empty.
func (b *battery) draw(powerKW float64, dt time.Duration) float64 {
	hours := dt.Hours()
	if hours <= 0 || powerKW <= 0 {
		return 0
	}
	p := math.Min(powerKW, b.dischargeRateKW)
	e := math.Min(p*hours, b.energy())
	b.soc = clamp01(b.soc - e/b.capacityKWh)
	return e / hours
}

// charge adds up to powerKW for dt without exceeding limit (SoC in [0,1]).
// It returns the power actually accepted.
func (b *battery) charge(powerKW float64, dt time.Duration, limit float64) float64 {
	hours := dt.Hours()
	if hours <= 0 || powerKW <= 0 || b.soc >= limit {
		return 0
	}
	p := math.Min(powerKW, b.chargeRateKW)
	room := (limit - b.soc) * b.capacityKWh
	e := math.Min(p*hours, room)
	b.soc = clamp01(b.soc + e/b.capacityKWh)
	return e / hours
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
