package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/baro/cmd/baro/console"
	"github.com/mklimuk/baro/firmware"
	"github.com/mklimuk/baro/mcu"
	"github.com/mklimuk/baro/pressure"
	"github.com/mklimuk/baro/sim"
)

var shellCommands = []string{"help", "state", "read", "sample", "temp", "reg", "write", "set", "trace", "exit"}

var consoleCmd = cli.Command{
	Name:  "console",
	Usage: "interactive session with a simulated board",
	Flags: boardFlags(),
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		hw, sensor := newBoard(boardFromFlags(c), cfg)
		p, err := mcu.Take(hw)
		if err != nil {
			return console.Exit(1, "could not take peripherals: %s", console.Red(err))
		}
		defer p.Release()

		fw := firmware.New(p, cfg)
		if err := fw.BringUp(c.Context); err != nil {
			console.Errorf("bring-up failed: %s", err)
		}
		hw.ResetTrace()

		sh, err := console.NewShell(console.Cyan("baro> "), shellCommands...)
		if err != nil {
			return console.Exit(1, "could not open terminal: %s", console.Red(err))
		}
		defer sh.Close()

		s := &session{hw: hw, sensor: sensor, fw: fw}
		ctx := c.Context
		for {
			args, err := sh.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return console.Exit(1, "terminal error: %s", console.Red(err))
			}
			if args[0] == "exit" || args[0] == "quit" {
				return nil
			}
			if args[0] == "trace" {
				on := len(args) < 2 || args[1] == "on"
				ctx = console.WithTrace(ctx, on)
				console.Infof("register trace %s", console.Bold(onOff(on)))
				continue
			}
			if err := s.exec(ctx, args); err != nil {
				console.Errorf("%s", err)
			}
			drain(ctx, hw)
		}
	},
}

type session struct {
	hw     *sim.MCU
	sensor *sim.LPS25HB
	fw     *firmware.Firmware
}

func (s *session) driver() (*pressure.LPS25HB, error) {
	d, ok := s.fw.Sensor().(*pressure.LPS25HB)
	if !ok {
		if err := s.fw.Fault(); err != nil {
			return nil, fmt.Errorf("sensor not available: %w", err)
		}
		return nil, fmt.Errorf("sensor not initialized, firmware in state %s", s.fw.State())
	}
	return d, nil
}

func (s *session) exec(ctx context.Context, args []string) error {
	switch args[0] {
	case "help":
		console.Printf("%s\n", console.White(`state                  bring-up state and clocks
read                   one pressure read (hPa)
sample                 one sample pushed through the firmware sink
temp                   die temperature
reg <addr>             read a sensor register
write <addr> <value>   write a sensor register
set pressure <hPa>     change the simulated pressure
set temp <°C>          change the simulated temperature
set id <value>         change the simulated WHO_AM_I
trace [on|off]         print register traffic after each command
exit`))
		return nil
	case "state":
		sysclk, sck := s.fw.Clocks()
		console.Infof("state %s, sysclk %s, sck %s, %d samples", console.Bold(s.fw.State()), sysclk, sck, s.fw.Samples())
		if err := s.fw.Fault(); err != nil {
			console.PInfof(console.PictoStop, "%s", console.Red(err))
		}
		console.Infof("chip-select %s", console.Bold(selectedText(s.hw.Selected())))
		return nil
	case "sample":
		smp, err := s.fw.Sample(ctx)
		if err != nil {
			return err
		}
		console.Sample(smp)
		return nil
	case "set":
		return s.set(args[1:])
	}

	d, err := s.driver()
	if err != nil {
		return err
	}
	switch args[0] {
	case "read":
		hPa, err := d.ReadPressure(ctx)
		if err != nil {
			return err
		}
		console.PInfof(console.PictoGauge, "%s hPa", console.Bold(hPa))
	case "temp":
		celsius, err := d.ReadTemperature(ctx)
		if err != nil {
			return err
		}
		console.Temperature(celsius)
	case "reg":
		if len(args) != 2 {
			return fmt.Errorf("usage: reg <addr>")
		}
		addr, err := parseByte(args[1])
		if err != nil {
			return err
		}
		v, err := d.ReadRegister(ctx, addr)
		if err != nil {
			return err
		}
		console.Register(addr, v)
	case "write":
		if len(args) != 3 {
			return fmt.Errorf("usage: write <addr> <value>")
		}
		addr, err := parseByte(args[1])
		if err != nil {
			return err
		}
		v, err := parseByte(args[2])
		if err != nil {
			return err
		}
		if err := d.WriteRegister(ctx, addr, v); err != nil {
			return err
		}
		console.Register(addr, s.sensor.Register(addr))
	default:
		return fmt.Errorf("unknown command %q, try help", args[0])
	}
	return nil
}

func (s *session) set(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: set pressure|temp|id <value>")
	}
	switch args[0] {
	case "pressure":
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid pressure: %w", err)
		}
		s.sensor.SetPressure(v)
	case "temp":
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid temperature: %w", err)
		}
		s.sensor.SetTemperature(v)
	case "id":
		v, err := parseByte(args[1])
		if err != nil {
			return err
		}
		s.sensor.SetWhoAmI(v)
	default:
		return fmt.Errorf("unknown setting %q", args[0])
	}
	return nil
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q: %w", s, err)
	}
	return byte(v), nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func selectedText(selected bool) string {
	if selected {
		return "low (selected)"
	}
	return "high (idle)"
}
