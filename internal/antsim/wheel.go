package antsim

import "math"

// ticksPerSecond is the ANT event time resolution.
const ticksPerSecond = 1024

// counter accumulates revolutions and remembers when the last whole one
// completed, the way a magnet sensor reports them.
type counter struct {
	revs      float64
	lastEvent float64
}

// advance moves the counter by dt seconds at rate revolutions per second,
// ending at time now. It returns the event time of the last whole
// revolution and the cumulative count, both truncated to 16 bits.
func (c *counter) advance(rate, dt, now float64) (eventTime, count uint16) {
	if rate > 0 && dt > 0 {
		before := math.Floor(c.revs)
		c.revs += rate * dt
		if after := math.Floor(c.revs); after > before {
			c.lastEvent = now - (c.revs-after)/rate
		}
	}
	return c.eventTime(), uint16(uint64(math.Floor(c.revs)) & 0xffff)
}

func (c *counter) eventTime() uint16 {
	return uint16(uint64(c.lastEvent*ticksPerSecond) & 0xffff)
}
