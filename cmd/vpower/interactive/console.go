// Package interactive provides the operator console for vpower.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"

	"github.com/vpower-bridge/vpower-go/pkg/bridge"
	"github.com/vpower-bridge/vpower-go/pkg/power"
)

// Bridge is the part of the bridge the console drives.
type Bridge interface {
	Status() bridge.Status
	SetPower(watts uint16) error
}

// Simulator controls a simulated sensor. It is nil on real hardware.
type Simulator interface {
	Speed() float64
	SetSpeed(kmh float64) error
	Pause()
	Resume()
	Paused() bool
}

// Console handles interactive mode for vpower.
type Console struct {
	bridge Bridge
	sim    Simulator
	out    io.Writer
	rl     *readline.Instance
}

// New creates a console on the terminal.
func New(b Bridge, sim Simulator) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "vpower> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := newConsole(b, sim, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(b Bridge, sim Simulator, out io.Writer) *Console {
	return &Console{bridge: b, sim: sim, out: out}
}

// Stdout returns a writer that coordinates with the prompt. Use it for log
// output while the console runs.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run reads commands until quit, EOF or ctx is done. It calls cancel when
// the operator asks to exit.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if c.Execute(line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the console should exit.
func (c *Console) Execute(line string) (quit bool) {
	parts, err := shlex.Split(line)
	if err != nil {
		fmt.Fprintf(c.out, "Parse error: %v\n", err)
		return false
	}
	if len(parts) == 0 {
		return false
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "status", "s":
		c.cmdStatus()
	case "power", "p":
		c.cmdPower(args)
	case "speed":
		c.cmdSpeed(args)
	case "pause":
		c.cmdPause(true)
	case "resume":
		c.cmdPause(false)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
vpower Commands:
  status             - Show bridge status
  power <watts>      - Broadcast a power value now

  Simulation:
    speed [km/h]     - Show or set the simulated speed
    pause            - Stop sensor pages (the bridge zeroes power after 3s)
    resume           - Restart sensor pages

  General:
    help             - Show this help
    quit             - Stop the bridge and exit`)
}

func (c *Console) cmdStatus() {
	st := c.bridge.Status()

	fmt.Fprintln(c.out, "\nBridge Status")
	fmt.Fprintln(c.out, "-------------------------------------------")
	fmt.Fprintf(c.out, "  Session:        %s\n", st.SessionID)
	fmt.Fprintf(c.out, "  State:          %s\n", st.State)
	fmt.Fprintf(c.out, "  Transceiver:    %s\n", st.Transceiver)
	fmt.Fprintf(c.out, "  Node:           %s\n", onOff(st.NodeRunning))
	fmt.Fprintf(c.out, "  Receive:        %s (%s)\n", available(st.ReceiveAvailable), st.SensorType)
	fmt.Fprintf(c.out, "  Transmit:       %s\n", available(st.TransmitAvailable))
	fmt.Fprintf(c.out, "  Pages:          %d (event time %d)\n", st.Pages, st.EventTime)
	fmt.Fprintf(c.out, "  Power:          %d W (%d updates)\n", st.Power, st.Updates)
	fmt.Fprintf(c.out, "  Calculator:     %s\n", st.Calculator)
	fmt.Fprintf(c.out, "  Watchdog:       %s (%d ticks)\n", st.Watchdog.State, st.Watchdog.Ticks)
	if c.sim != nil {
		state := "running"
		if c.sim.Paused() {
			state = "paused"
		}
		fmt.Fprintf(c.out, "  Simulation:     %.1f km/h, %s\n", c.sim.Speed(), state)
	}
	fmt.Fprintln(c.out)
}

func (c *Console) cmdPower(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: power <watts>")
		return
	}

	watts, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid power value: %v\n", err)
		return
	}
	if err := c.bridge.SetPower(uint16(watts)); err != nil {
		fmt.Fprintf(c.out, "Power not sent: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Power set to %d W\n", watts)
}

func (c *Console) cmdSpeed(args []string) {
	if c.sim == nil {
		fmt.Fprintln(c.out, "Speed control needs -simulate")
		return
	}
	if len(args) == 0 {
		fmt.Fprintf(c.out, "Speed: %.1f km/h\n", c.sim.Speed())
		return
	}

	kmh, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid speed: %v\n", err)
		return
	}
	if err := c.sim.SetSpeed(kmh); err != nil {
		fmt.Fprintf(c.out, "Speed not set: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Speed set to %.1f km/h (max %.0f)\n", kmh, power.MaxSpeed)
}

func (c *Console) cmdPause(pause bool) {
	if c.sim == nil {
		fmt.Fprintln(c.out, "Pause and resume need -simulate")
		return
	}
	if pause {
		c.sim.Pause()
		fmt.Fprintln(c.out, "Sensor paused")
		return
	}
	c.sim.Resume()
	fmt.Fprintln(c.out, "Sensor resumed")
}

func onOff(b bool) string {
	if b {
		return "running"
	}
	return "stopped"
}

func available(b bool) string {
	if b {
		return "available"
	}
	return "unavailable"
}
