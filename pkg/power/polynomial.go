package power

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
)

// DefaultCoefficients model a fluid trainer: 3.259*v + 0.0046*v^3 (km/h).
var DefaultCoefficients = []float64{0, 3.259, 0, 0.0046}

// Polynomial maps speed to power with a polynomial in km/h.
type Polynomial struct {
	notifier

	mu     sync.Mutex
	speed  *WheelSpeed
	coeffs []float64
	logger *slog.Logger
}

// NewPolynomial creates a polynomial calculator. Empty coefficients select
// DefaultCoefficients.
func NewPolynomial(cfg Config) (*Polynomial, error) {
	coeffs := cfg.Coefficients
	if len(coeffs) == 0 {
		coeffs = DefaultCoefficients
	}
	for i, c := range coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: coefficient %d is %v", ErrInvalidModel, i, c)
		}
	}

	return &Polynomial{
		speed:  NewWheelSpeed(cfg.WheelCircumference),
		coeffs: append([]float64(nil), coeffs...),
		logger: discardLogger(cfg.Logger),
	}, nil
}

// Name returns "polynomial".
func (p *Polynomial) Name() string { return "polynomial" }

// Supports reports whether the sensor type carries wheel speed.
func (p *Polynomial) Supports(sensorType ant.DeviceType) bool { return wheelSensor(sensorType) }

// Coefficients returns a copy of the model coefficients.
func (p *Polynomial) Coefficients() []float64 {
	return append([]float64(nil), p.coeffs...)
}

// PowerAt evaluates the model at kmh.
func (p *Polynomial) PowerAt(kmh float64) uint16 {
	// Horner's rule, highest order first.
	var acc float64
	for i := len(p.coeffs) - 1; i >= 0; i-- {
		acc = acc*kmh + p.coeffs[i]
	}
	return clampWatts(acc)
}

// OnSpeedEvent implements Calculator.
func (p *Polynomial) OnSpeedEvent(data ant.SpeedCadenceData) {
	p.mu.Lock()
	kmh, ok := p.speed.Next(data)
	p.mu.Unlock()

	if !ok {
		return
	}

	watts := p.PowerAt(kmh)
	p.logger.Debug("power computed", "model", "polynomial", "speed_kmh", kmh, "watts", watts)
	p.emit(watts)
}
