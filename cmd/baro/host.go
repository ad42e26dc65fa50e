package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/baro/gpio"
	"github.com/mklimuk/baro/pressure"
	"github.com/mklimuk/baro/spi"
)

func hostFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "spi",
			Usage:   "host SPI port, empty for the first one available",
			EnvVars: []string{"BARO_SPI"},
		},
		&cli.StringFlag{
			Name:    "cs",
			Value:   "GPIO8",
			Usage:   "host GPIO driving the sensor chip-select",
			EnvVars: []string{"BARO_CS"},
		},
		&cli.UintFlag{
			Name:  "max-clock",
			Value: 1_000_000,
			Usage: "SPI clock in Hz",
		},
	}
}

// openHost connects to an LPS25HB wired to the host SPI port. The returned
// function releases the port.
func openHost(c *cli.Context) (*pressure.LPS25HB, func(), error) {
	maxClock := physic.Frequency(c.Uint("max-clock")) * physic.Hertz
	if maxClock > spi.LPS25HBMaxClock {
		return nil, nil, fmt.Errorf("%w: %s > %s", spi.ErrClockTooFast, maxClock, spi.LPS25HBMaxClock)
	}
	bus, err := spi.OpenHostBus(c.String("spi"), maxClock)
	if err != nil {
		return nil, nil, err
	}
	cs, err := gpio.OpenHostPin(c.String("cs"))
	if err != nil {
		_ = bus.Close()
		return nil, nil, err
	}
	return pressure.NewLPS25HB(bus, cs), func() { _ = bus.Close() }, nil
}
