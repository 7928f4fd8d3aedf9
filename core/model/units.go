package model

import "github.com/kilianp07/carbridge/core/observable"

// Units of measurement used by the vehicle attributes.
const (
	UnitKilometer  observable.Unit = "km"
	UnitMile       observable.Unit = "mi"
	UnitPercent    observable.Unit = "%"
	UnitCelsius    observable.Unit = "°C"
	UnitFahrenheit observable.Unit = "°F"
	UnitKilowatt   observable.Unit = "kW"
	UnitKmPerHour  observable.Unit = "km/h"
	UnitAmpere     observable.Unit = "A"
	UnitDegree     observable.Unit = "°"
)
