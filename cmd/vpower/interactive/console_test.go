package interactive

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
	"github.com/vpower-bridge/vpower-go/pkg/bridge"
	"github.com/vpower-bridge/vpower-go/pkg/watchdog"
)

type stubBridge struct{ mock.Mock }

func (b *stubBridge) Status() bridge.Status { return b.Called().Get(0).(bridge.Status) }
func (b *stubBridge) SetPower(watts uint16) error {
	return b.Called(watts).Error(0)
}

type stubSim struct{ mock.Mock }

func (s *stubSim) Speed() float64             { return s.Called().Get(0).(float64) }
func (s *stubSim) SetSpeed(kmh float64) error { return s.Called(kmh).Error(0) }
func (s *stubSim) Pause()                     { s.Called() }
func (s *stubSim) Resume()                    { s.Called() }
func (s *stubSim) Paused() bool               { return s.Called().Bool(0) }

func TestExecuteQuit(t *testing.T) {
	var out bytes.Buffer
	c := newConsole(&stubBridge{}, nil, &out)

	assert.False(t, c.Execute(""))
	assert.False(t, c.Execute("   "))
	assert.True(t, c.Execute("quit"))
	assert.True(t, c.Execute("EXIT"))
}

func TestExecuteUnknown(t *testing.T) {
	var out bytes.Buffer
	c := newConsole(&stubBridge{}, nil, &out)

	assert.False(t, c.Execute("frobnicate now"))
	assert.Contains(t, out.String(), "Unknown command: frobnicate")
}

func TestExecuteParseError(t *testing.T) {
	var out bytes.Buffer
	c := newConsole(&stubBridge{}, nil, &out)

	c.Execute(`power "250`)
	assert.Contains(t, out.String(), "Parse error")
}

func TestPowerCommand(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		setup func(*stubBridge)
		want  string
	}{
		{"missing value", "power", nil, "Usage: power <watts>"},
		{"not a number", "power lots", nil, "Invalid power value"},
		{"too large", "power 70000", nil, "Invalid power value"},
		{
			"sent", "power 250",
			func(b *stubBridge) { b.On("SetPower", uint16(250)).Return(nil).Once() },
			"Power set to 250 W",
		},
		{
			"quoted", `p "180"`,
			func(b *stubBridge) { b.On("SetPower", uint16(180)).Return(nil).Once() },
			"Power set to 180 W",
		},
		{
			"no transmit", "power 90",
			func(b *stubBridge) { b.On("SetPower", uint16(90)).Return(bridge.ErrNoTransmit).Once() },
			"Power not sent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &stubBridge{}
			if tt.setup != nil {
				tt.setup(b)
			}
			var out bytes.Buffer
			newConsole(b, nil, &out).Execute(tt.line)

			assert.Contains(t, out.String(), tt.want)
			b.AssertExpectations(t)
		})
	}
}

func TestSimulationCommandsNeedSimulator(t *testing.T) {
	var out bytes.Buffer
	c := newConsole(&stubBridge{}, nil, &out)

	c.Execute("speed 30")
	c.Execute("pause")
	assert.Contains(t, out.String(), "Speed control needs -simulate")
	assert.Contains(t, out.String(), "Pause and resume need -simulate")
}

func TestSpeedAndPause(t *testing.T) {
	sim := &stubSim{}
	sim.On("Speed").Return(25.0)
	sim.On("SetSpeed", 32.5).Return(nil).Once()
	sim.On("SetSpeed", 500.0).Return(errors.New("out of range")).Once()
	sim.On("Pause").Once()
	sim.On("Resume").Once()

	var out bytes.Buffer
	c := newConsole(&stubBridge{}, sim, &out)

	c.Execute("speed")
	c.Execute("speed 32.5")
	c.Execute("speed 500")
	c.Execute("speed fast")
	c.Execute("pause")
	c.Execute("resume")

	s := out.String()
	assert.Contains(t, s, "Speed: 25.0 km/h")
	assert.Contains(t, s, "Speed set to 32.5 km/h")
	assert.Contains(t, s, "Speed not set: out of range")
	assert.Contains(t, s, "Invalid speed")
	assert.Contains(t, s, "Sensor paused")
	assert.Contains(t, s, "Sensor resumed")
	sim.AssertExpectations(t)
}

func TestStatusCommand(t *testing.T) {
	b := &stubBridge{}
	b.On("Status").Return(bridge.Status{
		State:             bridge.StateRunning,
		SessionID:         "abc",
		Transceiver:       ant.TransceiverID{Bus: 1, Address: 5, Vendor: 0x0fcf, Product: 0x1009},
		NodeRunning:       true,
		ReceiveAvailable:  true,
		TransmitAvailable: false,
		SensorType:        ant.DeviceTypeSpeedCadence,
		Power:             210,
		Updates:           7,
		Calculator:        "polynomial",
		Watchdog:          watchdog.Status{State: watchdog.StateStopped, Ticks: 4},
	})
	sim := &stubSim{}
	sim.On("Speed").Return(28.0)
	sim.On("Paused").Return(true)

	var out bytes.Buffer
	newConsole(b, sim, &out).Execute("status")

	s := out.String()
	assert.Contains(t, s, "State:          RUNNING")
	assert.Contains(t, s, "001:005 (0fcf:1009)")
	assert.Contains(t, s, "Transmit:       unavailable")
	assert.Contains(t, s, "Power:          210 W (7 updates)")
	assert.Contains(t, s, "Watchdog:       STOPPED (4 ticks)")
	assert.Contains(t, s, "Simulation:     28.0 km/h, paused")
}
