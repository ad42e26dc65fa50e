package main

import (
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/baro/cmd/baro/console"
	"github.com/mklimuk/baro/firmware"
	"github.com/mklimuk/baro/pressure"
)

type reading struct {
	pressure.Sample `yaml:",inline"`
	Celsius         *float32 `yaml:"celsius,omitempty"`
}

var readCmd = cli.Command{
	Name:  "read",
	Usage: "read pressure from an LPS25HB wired to this host",
	Flags: append(hostFlags(),
		&cli.IntFlag{
			Name:    "samples",
			Aliases: []string{"n"},
			Value:   1,
		},
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "delay between samples (default: configured sample interval)",
		},
		&cli.BoolFlag{
			Name:  "temperature",
			Usage: "also read the die temperature",
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "sample even if WHO_AM_I does not match",
		},
		&cli.BoolFlag{
			Name:  "yaml",
			Usage: "print samples as YAML",
		},
	),
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		interval := cfg.SampleInterval
		if c.IsSet("interval") {
			interval = c.Duration("interval")
		}
		ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
		defer cancel()

		sensor, closeFn, err := openHost(c)
		if err != nil {
			return console.Exit(1, "host initialization error: %s", console.Red(err))
		}
		defer closeFn()

		ok, err := sensor.Initialize(ctx)
		if err != nil {
			return console.Exit(1, "sensor initialization error: %s", console.Red(err))
		}
		if !ok {
			if !c.Bool("force") && cfg.RequireSensor {
				return console.Exit(2, "%s %s: %#02x", console.PictoStop, console.Red(pressure.ErrWrongDevice), sensor.ID())
			}
			console.Warnf("WHO_AM_I answered %#02x, sampling anyway", sensor.ID())
		}

		var readings []reading
		delay := firmware.TimerDelay{}
		for i := 0; i < c.Int("samples"); i++ {
			if i > 0 {
				if err := delay.Delay(ctx, interval); err != nil {
					break
				}
			}
			s, err := sensor.ReadSample(ctx)
			if err != nil {
				return console.Exit(1, "error reading pressure: %s", console.Red(err))
			}
			r := reading{Sample: s}
			if c.Bool("temperature") {
				celsius, err := sensor.ReadTemperature(ctx)
				if err != nil {
					return console.Exit(1, "error reading temperature: %s", console.Red(err))
				}
				r.Celsius = &celsius
			}
			if c.Bool("yaml") {
				readings = append(readings, r)
				continue
			}
			console.Sample(s)
			if r.Celsius != nil {
				console.Temperature(*r.Celsius)
			}
		}
		if c.Bool("yaml") {
			enc := yaml.NewEncoder(os.Stdout)
			defer enc.Close()
			if err := enc.Encode(readings); err != nil {
				return console.Exit(1, "encoding error: %s", console.Red(err))
			}
		}
		return nil
	},
}
