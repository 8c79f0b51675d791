package power

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
)

// Point is one measured speed/power pair.
type Point struct {
	Speed float64 `yaml:"speed"` // km/h
	Power float64 `yaml:"power"` // W
}

// DefaultCurve is a magnetic trainer at a middle resistance setting.
var DefaultCurve = []Point{
	{Speed: 0, Power: 0},
	{Speed: 10, Power: 45},
	{Speed: 20, Power: 115},
	{Speed: 30, Power: 220},
	{Speed: 40, Power: 370},
	{Speed: 50, Power: 570},
}

// Curve maps speed to power by linear interpolation between points.
// Beyond the last point the final segment is extended.
type Curve struct {
	notifier

	mu     sync.Mutex
	speed  *WheelSpeed
	points []Point
	logger *slog.Logger
}

// NewCurve creates a curve calculator. Empty points select DefaultCurve.
// At least two points with distinct speeds are required.
func NewCurve(cfg Config) (*Curve, error) {
	points := cfg.Curve
	if len(points) == 0 {
		points = DefaultCurve
	}
	points = append([]Point(nil), points...)
	sort.Slice(points, func(i, j int) bool { return points[i].Speed < points[j].Speed })

	if len(points) < 2 {
		return nil, fmt.Errorf("%w: curve needs at least 2 points", ErrInvalidModel)
	}
	for i := 1; i < len(points); i++ {
		if points[i].Speed == points[i-1].Speed {
			return nil, fmt.Errorf("%w: duplicate curve speed %v", ErrInvalidModel, points[i].Speed)
		}
	}

	return &Curve{
		speed:  NewWheelSpeed(cfg.WheelCircumference),
		points: points,
		logger: discardLogger(cfg.Logger),
	}, nil
}

// Name returns "curve".
func (c *Curve) Name() string { return "curve" }

// Supports reports whether the sensor type carries wheel speed.
func (c *Curve) Supports(sensorType ant.DeviceType) bool { return wheelSensor(sensorType) }

// PowerAt interpolates the curve at kmh.
func (c *Curve) PowerAt(kmh float64) uint16 {
	pts := c.points

	i := sort.Search(len(pts), func(i int) bool { return pts[i].Speed >= kmh })
	switch {
	case i == 0:
		i = 1
	case i == len(pts):
		i = len(pts) - 1
	}

	a, b := pts[i-1], pts[i]
	frac := (kmh - a.Speed) / (b.Speed - a.Speed)
	return clampWatts(a.Power + frac*(b.Power-a.Power))
}

// OnSpeedEvent implements Calculator.
func (c *Curve) OnSpeedEvent(data ant.SpeedCadenceData) {
	c.mu.Lock()
	kmh, ok := c.speed.Next(data)
	c.mu.Unlock()

	if !ok {
		return
	}

	watts := c.PowerAt(kmh)
	c.logger.Debug("power computed", "model", "curve", "speed_kmh", kmh, "watts", watts)
	c.emit(watts)
}
