package bridge

import (
	"log/slog"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
	"github.com/vpower-bridge/vpower-go/pkg/log"
	"github.com/vpower-bridge/vpower-go/pkg/power"
	"github.com/vpower-bridge/vpower-go/pkg/sensor"
)

// chain links receive -> calculator -> transmit. Both links run
// synchronously on the runtime's dispatch goroutine.
type chain struct {
	receive  *sensor.SpeedCadence
	calc     power.Calculator
	transmit *sensor.PowerMeter
	logger   *slog.Logger
	emit     func(log.Event)
}

// wire installs each link whose channel is open and reports which were
// installed.
func (c *chain) wire() (receiveLinked, transmitLinked bool) {
	if c.receive.Available() {
		c.receive.Subscribe(c.onReceive)
		receiveLinked = true
	}
	if c.transmit.Available() {
		c.calc.NotifyChange(c.onPower)
		transmitLinked = true
	}
	return receiveLinked, transmitLinked
}

func (c *chain) unwire() {
	c.receive.Subscribe(nil)
	c.calc.NotifyChange(nil)
}

func (c *chain) onReceive(data ant.SpeedCadenceData) {
	eventTime, revs := data.SpeedEventTime, data.SpeedRevolutions
	if c.receive.SensorType() == ant.DeviceTypeCadence {
		eventTime, revs = data.CadenceEventTime, data.CadenceRevolutions
	}
	c.emit(log.Event{
		Component: log.ComponentReceive,
		Category:  log.CategoryData,
		Data: &log.DataEvent{
			Direction:   log.DirectionIn,
			EventTime:   &eventTime,
			Revolutions: &revs,
		},
	})

	c.calc.OnSpeedEvent(data)
}

func (c *chain) onPower(watts uint16) {
	if err := c.transmit.Update(watts); err != nil {
		c.logger.Warn("power update failed", "power", watts, "error", err)
		c.emit(log.Event{
			Component: log.ComponentTransmit,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Message: err.Error(), Context: "update"},
		})
		return
	}
	c.emit(log.Event{
		Component: log.ComponentChain,
		Category:  log.CategoryData,
		Data:      &log.DataEvent{Direction: log.DirectionOut, Power: &watts},
	})
}
