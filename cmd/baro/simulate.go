package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/baro/cmd/baro/console"
	"github.com/mklimuk/baro/config"
	"github.com/mklimuk/baro/firmware"
	"github.com/mklimuk/baro/mcu"
	"github.com/mklimuk/baro/pressure"
	"github.com/mklimuk/baro/sim"
)

func boardFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:    "pressure",
			Aliases: []string{"p"},
			Value:   1013.25,
			Usage:   "simulated pressure in hPa",
		},
		&cli.Float64Flag{
			Name:    "temperature",
			Aliases: []string{"t"},
			Value:   21.5,
			Usage:   "simulated die temperature in °C",
		},
		&cli.UintFlag{
			Name:  "who-am-i",
			Value: sim.DeviceID,
			Usage: "WHO_AM_I value answered by the simulated sensor",
		},
		&cli.IntFlag{
			Name:  "pll-delay",
			Value: 100,
			Usage: "RCC.CR polls before the simulated PLL locks",
		},
	}
}

// board describes the simulated sensor and PLL.
type board struct {
	whoAmI      byte
	pressure    float64
	temperature float64
	pllDelay    int
}

func boardFromFlags(c *cli.Context) board {
	return board{
		whoAmI:      byte(c.Uint("who-am-i")),
		pressure:    c.Float64("pressure"),
		temperature: c.Float64("temperature"),
		pllDelay:    c.Int("pll-delay"),
	}
}

// newBoard builds the simulated MCU and sensor, with the sensor selected by
// the chip-select pin named in cfg.
func newBoard(b board, cfg config.Config) (*sim.MCU, *sim.LPS25HB) {
	sensor := sim.NewLPS25HB()
	sensor.SetWhoAmI(b.whoAmI)
	sensor.SetPressure(b.pressure)
	sensor.SetTemperature(b.temperature)
	hw := sim.New(
		sim.WithSlave(sensor),
		sim.WithChipSelect(cfg.Pins.ChipSelect),
		sim.WithPLLLockDelay(b.pllDelay),
	)
	return hw, sensor
}

// collect hands up to n samples to each, then calls stop. Every return path
// waits for the firmware to finish so the peripherals can be released.
func collect(samples <-chan pressure.Sample, done <-chan error, n int, stop context.CancelFunc, each func(pressure.Sample)) (int, error) {
	count := 0
	for count < n {
		select {
		case s := <-samples:
			count++
			each(s)
		case err := <-done:
			return count, err
		}
	}
	stop()
	return count, <-done
}

var simulateCmd = cli.Command{
	Name:    "simulate",
	Aliases: []string{"sim"},
	Usage:   "run the firmware against a simulated board",
	Flags: append(boardFlags(),
		&cli.IntFlag{
			Name:    "samples",
			Aliases: []string{"n"},
			Value:   10,
			Usage:   "stop after this many samples",
		},
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "override the configured sample interval",
		},
		&cli.BoolFlag{
			Name:  "trace",
			Usage: "dump the register writes as YAML when done",
		},
	),
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		if c.IsSet("interval") {
			cfg.SampleInterval = c.Duration("interval")
		}
		n := c.Int("samples")
		if n < 0 {
			return console.Exit(1, "invalid sample count %d", n)
		}
		hw, _ := newBoard(boardFromFlags(c), cfg)
		p, err := mcu.Take(hw)
		if err != nil {
			return console.Exit(1, "could not take peripherals: %s", console.Red(err))
		}
		defer p.Release()

		ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
		defer cancel()

		samples := make(firmware.ChannelSink)
		fw := firmware.New(p, cfg, firmware.WithSink(samples))
		done := make(chan error, 1)
		go func() {
			done <- fw.Run(ctx)
		}()
		count, runErr := collect(samples, done, n, cancel, console.Sample)

		sysclk, sck := fw.Clocks()
		console.Infof("state %s, sysclk %s, sck %s, %d samples", console.Bold(fw.State()), sysclk, sck, count)
		if c.Bool("trace") {
			if err := dumpTrace(hw.Trace()); err != nil {
				return console.Exit(1, "encoding error: %s", console.Red(err))
			}
		}
		if runErr != nil {
			if errors.Is(runErr, pressure.ErrWrongDevice) {
				return console.Exit(2, "%s %s", console.PictoStop, console.Red(runErr))
			}
			return console.Exit(1, "%s %s", console.PictoStop, console.Red(runErr))
		}
		return nil
	},
}

type traceEntry struct {
	Reg   string `yaml:"reg"`
	Op    string `yaml:"op"`
	Value string `yaml:"value"`
}

func dumpTrace(trace []sim.Access) error {
	entries := make([]traceEntry, 0, len(trace))
	for _, a := range trace {
		op := "load"
		if a.Write {
			op = "store"
		}
		entries = append(entries, traceEntry{Reg: a.Reg.String(), Op: op, Value: fmt.Sprintf("%#08x", a.Value)})
	}
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(entries)
}

// drain prints the accesses recorded since the last call when ctx asks for it.
func drain(ctx context.Context, hw *sim.MCU) {
	if !console.IsTrace(ctx) {
		hw.ResetTrace()
		return
	}
	for _, a := range hw.Trace() {
		op := console.White("<-")
		if a.Write {
			op = console.Yellow("->")
		}
		console.Printf("   %s %-12s %#08x\n", op, a.Reg, a.Value)
	}
	hw.ResetTrace()
}
