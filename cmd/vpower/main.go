// Command vpower bridges an ANT+ speed/cadence sensor to an emulated ANT+
// power meter.
//
// It claims a free ANT USB stick, listens to the speed sensor, converts
// wheel speed to power and broadcasts it as a power meter. When the sensor
// goes silent the broadcast drops to zero.
//
// Usage:
//
//	vpower [flags]
//
// Flags:
//
//	-config string      Configuration file path
//	-log-level string   Log level: debug, info, warn, error (default from config)
//	-simulate           Use simulated USB sticks and a simulated sensor
//	-interactive        Run the operator console
//	-event-log string   Write bridge events to this CBOR file
//	-power-id uint      Device number announced by the power meter
//	-sensor-id uint     Speed sensor device number, 0 pairs with any
//
// Examples:
//
//	# Bridge with a real stick and the wildcard sensor; the config must
//	# name a registered hardware runtime
//	vpower -config /etc/vpower/vpower.yaml
//
//	# Try it without hardware
//	vpower -simulate -interactive -log-level debug
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	charmlog "github.com/charmbracelet/log"

	"github.com/vpower-bridge/vpower-go/cmd/vpower/interactive"
	"github.com/vpower-bridge/vpower-go/internal/antsim"
	"github.com/vpower-bridge/vpower-go/pkg/ant"
	"github.com/vpower-bridge/vpower-go/pkg/bridge"
	"github.com/vpower-bridge/vpower-go/pkg/config"
	"github.com/vpower-bridge/vpower-go/pkg/log"
	"github.com/vpower-bridge/vpower-go/pkg/power"
	"github.com/vpower-bridge/vpower-go/pkg/usbstick"
	"github.com/vpower-bridge/vpower-go/pkg/watchdog"
)

// Flags holds the command line.
type Flags struct {
	ConfigFile  string
	LogLevel    string
	Simulate    bool
	Interactive bool
	EventLog    string
	PowerID     uint
	SensorID    uint
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&flags.Simulate, "simulate", false, "Use simulated USB sticks and a simulated sensor")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Run the operator console")
	flag.StringVar(&flags.EventLog, "event-log", "", "Write bridge events to this CBOR file")
	flag.UintVar(&flags.PowerID, "power-id", 0, "Device number announced by the power meter")
	flag.UintVar(&flags.SensorID, "sensor-id", 0, "Speed sensor device number, 0 pairs with any")
}

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vpower: %v\n", err)
		return 2
	}

	console := newConsoleLogger(cfg.LogLevel)
	logger := slog.New(console)

	runtimeName, err := runtimeFor(cfg.Runtime, flags.Simulate)
	if err != nil {
		logger.Error("no usable ANT runtime", "error", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events, closeEvents, err := openEventLog(cfg.EventLog, logger)
	if err != nil {
		logger.Error("cannot open event log", "path", cfg.EventLog, "error", err)
		return 1
	}
	defer closeEvents()

	enum, closeEnum := newEnumerator(cfg, flags.Simulate, logger)
	defer closeEnum()

	rt, err := ant.Open(runtimeName)
	if err != nil {
		logger.Error("cannot open ANT runtime", "error", err)
		return 1
	}
	var sim interactive.Simulator
	if s, ok := rt.(*antsim.Runtime); ok {
		s.SetLogger(logger.With("component", "sim"))
		sim = s
	}

	pc := cfg.PowerConfig()
	pc.Logger = logger
	calc, err := power.New(pc)
	if err != nil {
		logger.Error("cannot create power calculator", "error", err)
		return 1
	}

	key, _ := cfg.Key()
	sensorType, _ := cfg.DeviceType()
	b, err := bridge.New(bridge.Config{
		NetworkKey:    key,
		SensorType:    sensorType,
		SpeedSensorID: cfg.SpeedID(),
		PowerSensorID: cfg.PowerID(),
		OpenTimeout:   cfg.OpenTimeout,
		StaleAfter:    cfg.Watchdog.StaleAfter,
		TickInterval:  cfg.Watchdog.TickInterval,
		Logger:        logger,
		EventLogger:   events,
	}, bridge.Deps{
		Acquirer: usbstick.NewAcquirer(enum, usbstick.Config{
			VendorID: cfg.USB.VendorID,
			Products: products(cfg),
			Logger:   logger,
		}),
		Runtime:    rt,
		Calculator: calc,
	})
	if err != nil {
		logger.Error("invalid bridge configuration", "error", err)
		return 1
	}

	pub, err := newPublisher(cfg.Telemetry, logger)
	if err != nil {
		logger.Error("invalid telemetry configuration", "error", err)
		return 1
	}

	logger.Info("vpower starting",
		"session_id", b.SessionID(),
		"sensor_type", sensorType.String(),
		"sensor_id", cfg.SpeedID(),
		"power_id", cfg.PowerID(),
		"calculator", calc.Name(),
		"runtime", runtimeName)

	if err := b.Start(ctx); err != nil {
		logger.Error("bridge failed to start", "error", err)
		return 1
	}

	var wg sync.WaitGroup
	if pub != nil {
		b.OnTick(func(st bridge.Status, res watchdog.TickResult) {
			pub.Publish(newReading(st, res))
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Run(ctx)
		}()
	}

	if flags.Interactive {
		runInteractive(ctx, stop, b, sim, console, logger)
	} else if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("watchdog stopped", "error", err)
	}

	logger.Info("shutting down")
	b.Stop()
	stop()
	wg.Wait()
	logger.Info("goodbye")
	return 0
}

// runInteractive drives the watchdog in the background while the console
// owns the terminal.
func runInteractive(ctx context.Context, cancel context.CancelFunc, b *bridge.Bridge, sim interactive.Simulator, console *charmlog.Logger, logger *slog.Logger) {
	c, err := interactive.New(b, sim)
	if err != nil {
		logger.Warn("console unavailable, running headless", "error", err)
		_ = b.Run(ctx)
		return
	}
	console.SetOutput(c.Stdout())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx)
	}()

	c.Run(ctx, cancel)
	cancel()
	<-done
}

// Runtime selection errors.
var (
	errNoRuntime  = errors.New("no ANT runtime configured: set runtime to a registered driver or pass -simulate")
	errSimRuntime = errors.New("runtime sim only drives simulated sticks: pass -simulate")
)

// runtimeFor picks the ANT driver. Real sticks need a hardware runtime;
// the simulator never talks to the claimed stick.
func runtimeFor(configured string, simulate bool) (string, error) {
	switch {
	case simulate:
		return antsim.DriverName, nil
	case configured == "":
		return "", errNoRuntime
	case configured == antsim.DriverName:
		return "", errSimRuntime
	}
	return configured, nil
}

// loadConfig reads the file (or defaults) and applies flags given on the
// command line.
func loadConfig(f Flags) (config.Config, error) {
	cfg := config.Default()
	if f.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(f.ConfigFile); err != nil {
			return config.Config{}, err
		}
	}

	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.EventLog != "" {
		cfg.EventLog = f.EventLog
	}
	if f.PowerID != 0 {
		cfg.PowerSensorID = uint32(f.PowerID)
	}
	if f.SensorID != 0 {
		cfg.SpeedSensorID = uint32(f.SensorID)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newConsoleLogger(level string) *charmlog.Logger {
	l := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Prefix:          "vpower",
	})
	name, _ := config.ParseLevel(level)
	if lvl, err := charmlog.ParseLevel(name); err == nil {
		l.SetLevel(lvl)
	}
	return l
}

// openEventLog returns the event sink: slog at debug level, plus the CBOR
// file if path is set.
func openEventLog(path string, logger *slog.Logger) (log.Logger, func(), error) {
	adapter := log.NewSlogAdapter(logger.With("component", "events"))
	if path == "" {
		return adapter, func() {}, nil
	}

	fl, err := log.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("writing event log", "path", fl.Path())
	return log.NewMultiLogger(fl, adapter), func() {
		if err := fl.Close(); err != nil {
			logger.Warn("closing event log", "error", err)
		}
	}, nil
}

func newEnumerator(cfg config.Config, simulate bool, logger *slog.Logger) (usbstick.Enumerator, func()) {
	if simulate {
		logger.Info("using simulated USB sticks")
		return antsim.NewEnumerator(), func() {}
	}

	usb := usbstick.NewGousbEnumerator()
	closeUSB := func() {
		if err := usb.Close(); err != nil {
			logger.Warn("closing libusb", "error", err)
		}
	}
	if len(cfg.USB.SerialPorts) == 0 {
		return usb, closeUSB
	}
	serial := usbstick.NewSerialEnumerator(cfg.USB.SerialPorts, cfg.USB.SerialBaud)
	return usbstick.NewMultiEnumerator(usb, serial), closeUSB
}

// products returns the accepted product IDs. Serial ports imply ANTUSB1.
func products(cfg config.Config) []uint16 {
	p := append([]uint16(nil), cfg.USB.Products...)
	if len(p) == 0 {
		p = append(p, usbstick.DefaultProducts...)
	}
	if len(cfg.USB.SerialPorts) > 0 {
		p = append(p, usbstick.ProductANTUSB1)
	}
	return p
}
