package power

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
)

// Calculator errors.
var (
	ErrUnknownCalculator = errors.New("unknown power calculator")
	ErrInvalidModel      = errors.New("invalid power model")
)

// DefaultWheelCircumference is a 700x25c road tyre, in metres.
const DefaultWheelCircumference = 2.105

// MaxPower is the largest value a power page can carry.
const MaxPower = math.MaxUint16

// Listener receives computed power in watts.
type Listener func(watts uint16)

// Calculator turns speed/cadence pages into power notifications.
type Calculator interface {
	// OnSpeedEvent consumes one decoded page.
	OnSpeedEvent(data ant.SpeedCadenceData)

	// NotifyChange sets the single listener for new power values.
	// A nil listener clears it.
	NotifyChange(listener Listener)

	// Name returns the registered name of the calculator.
	Name() string
}

// SensorChecker is implemented by calculators that need particular fields
// of the speed/cadence page. The bridge refuses a sensor type the
// calculator cannot use.
type SensorChecker interface {
	Supports(sensorType ant.DeviceType) bool
}

// wheelSensor reports whether pages of sensorType carry wheel revolutions.
// A cadence-only sensor moves only the crank fields.
func wheelSensor(sensorType ant.DeviceType) bool {
	return sensorType == ant.DeviceTypeSpeed || sensorType == ant.DeviceTypeSpeedCadence
}

// Config selects and parameterizes a calculator.
type Config struct {
	// Name is the registered calculator name. Empty selects "polynomial".
	Name string

	// WheelCircumference in metres. Zero selects DefaultWheelCircumference.
	WheelCircumference float64

	// Coefficients for the polynomial model, lowest order first.
	Coefficients []float64

	// Curve points for the curve model.
	Curve []Point

	Logger *slog.Logger
}

// Factory creates a calculator from a config.
type Factory func(cfg Config) (Calculator, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{
		"polynomial": func(cfg Config) (Calculator, error) { return NewPolynomial(cfg) },
		"curve":      func(cfg Config) (Calculator, error) { return NewCurve(cfg) },
	}
)

// Register adds a calculator factory under name, replacing any existing one.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Names returns the sorted registered calculator names.
func Names() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the calculator named in cfg.
func New(cfg Config) (Calculator, error) {
	name := cfg.Name
	if name == "" {
		name = "polynomial"
	}

	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCalculator, name)
	}
	return f(cfg)
}

// notifier holds the single listener shared by the built-in calculators.
type notifier struct {
	mu       sync.Mutex
	listener Listener
}

func (n *notifier) NotifyChange(listener Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listener = listener
}

func (n *notifier) emit(watts uint16) {
	n.mu.Lock()
	l := n.listener
	n.mu.Unlock()

	if l != nil {
		l(watts)
	}
}

// clampWatts rounds p and limits it to the range a power page carries.
func clampWatts(p float64) uint16 {
	switch {
	case math.IsNaN(p) || p <= 0:
		return 0
	case p >= MaxPower:
		return MaxPower
	default:
		return uint16(math.Round(p))
	}
}

func discardLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
