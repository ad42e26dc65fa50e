// Package config holds the firmware configuration. Default reproduces the
// board wiring and timing the firmware was written for.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mklimuk/baro/clock"
	"github.com/mklimuk/baro/gpio"
	"github.com/mklimuk/baro/poll"
	"github.com/mklimuk/baro/spi"
)

// Version is injected at build time.
var Version = "dev"

var ErrInvalid = fmt.Errorf("invalid configuration")

type Config struct {
	Clock clock.Config `yaml:"clock"`
	Pins  gpio.Config  `yaml:"pins"`
	SPI   spi.Config   `yaml:"spi"`
	Poll  poll.Limit   `yaml:"poll"`
	// SampleInterval is the delay between two pressure reads.
	SampleInterval time.Duration `yaml:"sample_interval"`
	// RequireSensor stops bring-up when WHO_AM_I does not match. When false
	// a mismatch is only logged and sampling starts anyway.
	RequireSensor bool `yaml:"require_sensor"`
}

func Default() Config {
	return Config{
		Clock:          clock.DefaultConfig(),
		Pins:           gpio.DefaultConfig(),
		SPI:            spi.DefaultConfig(),
		Poll:           poll.DefaultLimit,
		SampleInterval: 5 * time.Millisecond,
		RequireSensor:  true,
	}
}

// Validate checks every section and returns all problems found.
func (c Config) Validate() error {
	var errs []error
	if err := c.Clock.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("clock: %w", err))
	}
	if err := c.Pins.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pins: %w", err))
	}
	// SPI1 sits on APB2, which runs undivided from SYSCLK
	if err := c.SPI.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("spi: %w", err))
	} else if _, _, err := c.SPI.Clock(c.Clock.SysClock()); err != nil {
		errs = append(errs, fmt.Errorf("spi: %w", err))
	}
	if c.Poll.Spins < 0 || c.Poll.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: negative poll limit", ErrInvalid))
	}
	if c.SampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: sample interval must be positive, got %s", ErrInvalid, c.SampleInterval))
	}
	return errors.Join(errs...)
}
