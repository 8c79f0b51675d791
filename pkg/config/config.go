package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vpower-bridge/vpower-go/pkg/ant"
	"github.com/vpower-bridge/vpower-go/pkg/power"
	"github.com/vpower-bridge/vpower-go/pkg/telemetry"
	"github.com/vpower-bridge/vpower-go/pkg/usbstick"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultNetworkKey is the public ANT+ network key.
const DefaultNetworkKey = "B9A521FBBD72C345"

// Config is the complete bridge configuration.
type Config struct {
	// NetworkKey is the 8-byte network key as hex.
	NetworkKey string `yaml:"network_key"`

	// SensorType is "speed", "cadence", "speed_cadence" or a numeric type.
	SensorType string `yaml:"sensor_type"`

	// SpeedSensorID selects the receive sensor; 0 pairs with any. Only the
	// low 16 bits are used.
	SpeedSensorID uint32 `yaml:"speed_sensor_id"`

	// PowerSensorID is announced by the emulated power meter. Only the low
	// 16 bits are used.
	PowerSensorID uint32 `yaml:"power_sensor_id"`

	// Runtime is the registered ANT runtime driver that talks to the
	// acquired stick. It has no default; -simulate selects the simulator.
	Runtime string `yaml:"runtime"`

	// OpenTimeout bounds each channel open.
	OpenTimeout time.Duration `yaml:"open_timeout"`

	USB        USBConfig        `yaml:"usb"`
	Watchdog   WatchdogConfig   `yaml:"watchdog"`
	Calculator CalculatorConfig `yaml:"calculator"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// EventLog is the path of the CBOR event capture. Empty disables it.
	EventLog string `yaml:"event_log"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// USBConfig selects which sticks the acquirer may claim.
type USBConfig struct {
	VendorID uint16   `yaml:"vendor_id"`
	Products []uint16 `yaml:"products"`

	// SerialPorts are glob patterns for sticks behind a USB-serial bridge,
	// such as "/dev/ttyUSB*". Matching ports are probed after libusb ones.
	SerialPorts []string `yaml:"serial_ports"`

	// SerialBaud is the serial line rate. Zero selects 115200.
	SerialBaud int `yaml:"serial_baud"`
}

// WatchdogConfig tunes the staleness loop.
type WatchdogConfig struct {
	// StaleAfter is compared against whole seconds of wall time, so it
	// must be a whole number of seconds.
	StaleAfter   time.Duration `yaml:"stale_after"`
	TickInterval time.Duration `yaml:"tick_interval"`
}

// CalculatorConfig selects the power model.
type CalculatorConfig struct {
	Name               string        `yaml:"name"`
	WheelCircumference float64       `yaml:"wheel_circumference"`
	Coefficients       []float64     `yaml:"coefficients"`
	Curve              []power.Point `yaml:"curve"`
}

// TelemetryConfig configures optional live-state publishing.
type TelemetryConfig struct {
	// QueueSize bounds readings waiting to be published.
	QueueSize int `yaml:"queue_size"`

	// Format is the payload encoding for MQTT and AMQP: json, cbor or
	// protobuf.
	Format string `yaml:"format"`

	MQTT  MQTTConfig  `yaml:"mqtt"`
	Redis RedisConfig `yaml:"redis"`
	AMQP  AMQPConfig  `yaml:"amqp"`
}

// MQTTConfig configures the MQTT sink. An empty Broker disables it.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
	Retained bool   `yaml:"retained"`
}

// RedisConfig configures the Redis sink. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// AMQPConfig configures the AMQP sink. An empty URL disables it.
type AMQPConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	return Config{
		NetworkKey:    DefaultNetworkKey,
		SensorType:    "speed_cadence",
		SpeedSensorID: uint32(ant.WildcardDeviceID),
		PowerSensorID: 12345,
		OpenTimeout:   10 * time.Second,
		USB: USBConfig{
			VendorID: usbstick.VendorDynastream,
			Products: append([]uint16(nil), usbstick.DefaultProducts...),
		},
		Watchdog: WatchdogConfig{
			StaleAfter:   3 * time.Second,
			TickInterval: 1 * time.Second,
		},
		Calculator: CalculatorConfig{
			Name:               "polynomial",
			WheelCircumference: power.DefaultWheelCircumference,
		},
		Telemetry: TelemetryConfig{
			QueueSize: 16,
			Format:    "json",
			MQTT: MQTTConfig{
				ClientID: "vpower",
				Topic:    "vpower/state",
			},
			Redis: RedisConfig{
				Prefix: "vpower",
				TTL:    30 * time.Second,
			},
			AMQP: AMQPConfig{
				Exchange: "vpower",
			},
		},
		LogLevel: "info",
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field that can be checked without hardware.
func (c Config) Validate() error {
	var errs []error

	if _, err := c.Key(); err != nil {
		errs = append(errs, err)
	}
	if dt, err := ant.ParseDeviceType(c.SensorType); err != nil {
		errs = append(errs, err)
	} else if !dt.IsSpeedCadence() {
		errs = append(errs, fmt.Errorf("sensor_type %s is not a speed or cadence sensor", dt))
	} else if err := c.checkCalculator(dt); err != nil {
		errs = append(errs, err)
	}
	if c.PowerSensorID&0xffff == 0 {
		errs = append(errs, errors.New("power_sensor_id must not be 0"))
	}
	if c.OpenTimeout <= 0 {
		errs = append(errs, errors.New("open_timeout must be positive"))
	}
	if c.Watchdog.StaleAfter < time.Second {
		errs = append(errs, errors.New("watchdog.stale_after must be at least 1s"))
	} else if c.Watchdog.StaleAfter%time.Second != 0 {
		errs = append(errs, fmt.Errorf("watchdog.stale_after %s must be a whole number of seconds", c.Watchdog.StaleAfter))
	}
	if c.Watchdog.TickInterval <= 0 {
		errs = append(errs, errors.New("watchdog.tick_interval must be positive"))
	}
	if c.Calculator.WheelCircumference < 0 {
		errs = append(errs, errors.New("calculator.wheel_circumference must not be negative"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.USB.SerialBaud < 0 {
		errs = append(errs, errors.New("usb.serial_baud must not be negative"))
	}
	if c.Telemetry.QueueSize < 0 {
		errs = append(errs, errors.New("telemetry.queue_size must not be negative"))
	}
	if _, err := telemetry.ParseFormat(c.Telemetry.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Telemetry.MQTT.QoS > 2 {
		errs = append(errs, errors.New("telemetry.mqtt.qos must be 0, 1 or 2"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// checkCalculator builds the configured calculator and makes sure it can
// use pages from sensorType.
func (c Config) checkCalculator(sensorType ant.DeviceType) error {
	calc, err := power.New(c.PowerConfig())
	if err != nil {
		return fmt.Errorf("calculator: %w", err)
	}
	if sc, ok := calc.(power.SensorChecker); ok && !sc.Supports(sensorType) {
		return fmt.Errorf("calculator %s needs wheel speed; sensor_type %s has none", calc.Name(), sensorType)
	}
	return nil
}

// Key returns the parsed network key.
func (c Config) Key() (ant.NetworkKey, error) {
	return ant.ParseNetworkKey(c.NetworkKey)
}

// DeviceType returns the parsed receive sensor type.
func (c Config) DeviceType() (ant.DeviceType, error) {
	return ant.ParseDeviceType(c.SensorType)
}

// SpeedID returns the receive device number.
func (c Config) SpeedID() uint16 {
	return uint16(c.SpeedSensorID & 0xffff)
}

// PowerID returns the transmit device number.
func (c Config) PowerID() uint16 {
	return uint16(c.PowerSensorID & 0xffff)
}

// PowerConfig returns the calculator settings.
func (c Config) PowerConfig() power.Config {
	return power.Config{
		Name:               c.Calculator.Name,
		WheelCircumference: c.Calculator.WheelCircumference,
		Coefficients:       c.Calculator.Coefficients,
		Curve:              c.Calculator.Curve,
	}
}

// ParseLevel validates a log level name.
func ParseLevel(s string) (string, error) {
	switch l := strings.ToLower(strings.TrimSpace(s)); l {
	case "debug", "info", "warn", "error":
		return l, nil
	case "warning":
		return "warn", nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}
