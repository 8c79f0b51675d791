// Package power converts speed/cadence events into instantaneous power.
//
// A Calculator receives every decoded speed/cadence page and notifies a
// single Listener whenever it has a new power value. Wheel speed is derived
// from consecutive pages (cumulative revolutions over event time, both
// 16-bit and rolling over) and mapped to watts by a trainer model:
//
//   - Polynomial: P = c0 + c1*v + c2*v^2 + ... with v in km/h
//   - Curve: piecewise-linear interpolation over measured (km/h, W) points
//
// Calculators are created by name with New:
//
//	calc, err := power.New(power.Config{Name: "polynomial"})
//	calc.NotifyChange(func(watts uint16) { meter.Update(watts) })
package power
