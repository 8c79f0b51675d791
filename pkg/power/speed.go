package power

import "github.com/vpower-bridge/vpower-go/pkg/ant"

// MaxSpeed is the highest plausible wheel speed in km/h. Faster readings
// are treated as a sensor glitch and dropped.
const MaxSpeed = 120.0

// WheelSpeed derives wheel speed from consecutive speed pages.
// It is not safe for concurrent use.
type WheelSpeed struct {
	circumference float64

	primed        bool
	lastEventTime uint16
	lastRevs      uint16
}

// NewWheelSpeed creates a tracker for a wheel of the given circumference in
// metres. Zero or negative selects DefaultWheelCircumference.
func NewWheelSpeed(circumference float64) *WheelSpeed {
	if circumference <= 0 {
		circumference = DefaultWheelCircumference
	}
	return &WheelSpeed{circumference: circumference}
}

// Circumference returns the wheel circumference in metres.
func (w *WheelSpeed) Circumference() float64 {
	return w.circumference
}

// Next folds in a page and returns the speed in km/h since the previous
// page. ok is false for the first page, for a repeated event time and for
// implausible speeds.
func (w *WheelSpeed) Next(data ant.SpeedCadenceData) (kmh float64, ok bool) {
	if !w.primed {
		w.primed = true
		w.lastEventTime = data.SpeedEventTime
		w.lastRevs = data.SpeedRevolutions
		return 0, false
	}

	// uint16 subtraction handles rollover of both counters.
	timeDiff := data.SpeedEventTime - w.lastEventTime
	revDiff := data.SpeedRevolutions - w.lastRevs
	if timeDiff == 0 {
		return 0, false
	}

	w.lastEventTime = data.SpeedEventTime
	w.lastRevs = data.SpeedRevolutions

	metresPerSecond := float64(revDiff) * w.circumference * 1024.0 / float64(timeDiff)
	kmh = metresPerSecond * 3.6
	if kmh > MaxSpeed {
		return 0, false
	}
	return kmh, true
}

// Reset forgets the previous page.
func (w *WheelSpeed) Reset() {
	w.primed = false
}
