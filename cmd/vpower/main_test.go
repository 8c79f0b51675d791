package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpower-bridge/vpower-go/internal/antsim"
	"github.com/vpower-bridge/vpower-go/pkg/bridge"
	"github.com/vpower-bridge/vpower-go/pkg/config"
	"github.com/vpower-bridge/vpower-go/pkg/usbstick"
	"github.com/vpower-bridge/vpower-go/pkg/watchdog"
)

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vpower.yaml")
	require.NoError(t, os.WriteFile(path, []byte("power_sensor_id: 100\nlog_level: warn\n"), 0o600))

	cfg, err := loadConfig(Flags{ConfigFile: path, PowerID: 200, SensorID: 7, EventLog: "x.vlog"})
	require.NoError(t, err)
	assert.Equal(t, uint16(200), cfg.PowerID())
	assert.Equal(t, uint16(7), cfg.SpeedID())
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "x.vlog", cfg.EventLog)

	_, err = loadConfig(Flags{LogLevel: "loud"})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRuntimeFor(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		simulate   bool
		want       string
		wantErr    error
	}{
		{"simulate overrides config", "usb", true, antsim.DriverName, nil},
		{"simulate without config", "", true, antsim.DriverName, nil},
		{"hardware driver", "usb", false, "usb", nil},
		{"default config on real sticks", config.Default().Runtime, false, "", errNoRuntime},
		{"sim driver on real sticks", antsim.DriverName, false, "", errSimRuntime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runtimeFor(tt.configured, tt.simulate)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunWithoutRuntimeFailsBeforeTouchingSticks(t *testing.T) {
	saved := flags
	t.Cleanup(func() { flags = saved })
	flags = Flags{LogLevel: "error"}

	assert.Equal(t, 2, run())
}

func TestProducts(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, usbstick.DefaultProducts, products(cfg))

	cfg.USB.SerialPorts = []string{"/dev/ttyUSB*"}
	assert.Contains(t, products(cfg), usbstick.ProductANTUSB1)
}

func TestNewPublisherWithoutSinks(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	pub, err := newPublisher(config.Default().Telemetry, logger)
	require.NoError(t, err)
	assert.Nil(t, pub)

	tc := config.Default().Telemetry
	tc.Format = "yaml"
	_, err = newPublisher(tc, logger)
	assert.Error(t, err)

	tc = config.Default().Telemetry
	tc.Redis.Addr = "127.0.0.1:1"
	pub, err = newPublisher(tc, logger)
	require.NoError(t, err)
	assert.Equal(t, 1, pub.Sinks())
}

func TestNewReading(t *testing.T) {
	now := time.Unix(1700000000, 0)
	r := newReading(bridge.Status{
		SessionID:         "s1",
		Power:             180,
		EventTime:         9000,
		Pages:             40,
		Updates:           12,
		ReceiveAvailable:  true,
		TransmitAvailable: true,
	}, watchdog.TickResult{Time: now, State: watchdog.StateLive})

	assert.Equal(t, now, r.Time)
	assert.Equal(t, "s1", r.SessionID)
	assert.Equal(t, "LIVE", r.State)
	assert.Equal(t, uint16(180), r.Power)
	assert.Equal(t, uint16(9000), r.EventTime)
	assert.Equal(t, uint64(40), r.Pages)
	assert.True(t, r.TransmitAvailable)
}
