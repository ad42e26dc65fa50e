package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/baro/clock"
	"github.com/mklimuk/baro/gpio"
	"github.com/mklimuk/baro/spi"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 84*physic.MegaHertz, cfg.Clock.SysClock())
	assert.Equal(t, spi.Mode3, cfg.SPI.Mode)
	assert.Equal(t, uint32(16), cfg.SPI.Prescaler)
	assert.Equal(t, uint8(4), cfg.Pins.ChipSelect)
	assert.Equal(t, 5*time.Millisecond, cfg.SampleInterval)
	assert.True(t, cfg.RequireSensor)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		err    error
	}{
		{"pll", func(c *Config) { c.Clock.N = 100 }, clock.ErrInvalidConfig},
		{"pins", func(c *Config) { c.Pins.MOSI = c.Pins.SCK }, gpio.ErrInvalidPin},
		{"spi mode", func(c *Config) { c.SPI.Mode = 7 }, spi.ErrInvalidMode},
		{"spi too fast", func(c *Config) { c.SPI.Prescaler = 0; c.SPI.MaxClockHz = 100 }, spi.ErrClockTooFast},
		{"spi prescaler too fast", func(c *Config) { c.SPI.Prescaler = 4 }, spi.ErrClockTooFast},
		{"spi prescaler just above limit", func(c *Config) { c.SPI.Prescaler = 8 }, spi.ErrClockTooFast},
		{"interval", func(c *Config) { c.SampleInterval = 0 }, ErrInvalid},
		{"poll", func(c *Config) { c.Poll.Spins = -1 }, ErrInvalid},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), test.err)
		})
	}
}

func TestValidate_Joined(t *testing.T) {
	cfg := Default()
	cfg.Clock.P = 3
	cfg.SampleInterval = -time.Second
	err := cfg.Validate()
	assert.ErrorIs(t, err, clock.ErrInvalidConfig)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParse(t *testing.T) {
	doc := `
spi:
  prescaler: 32
sample_interval: 250ms
require_sensor: false
poll:
  spins: 5000
  timeout: 20ms
`
	cfg, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, uint32(32), cfg.SPI.Prescaler)
	assert.Equal(t, spi.Mode3, cfg.SPI.Mode, "unset keys keep defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.SampleInterval)
	assert.False(t, cfg.RequireSensor)
	assert.Equal(t, 5000, cfg.Poll.Spins)
	assert.Equal(t, 20*time.Millisecond, cfg.Poll.Timeout)
	assert.Equal(t, Default().Clock, cfg.Clock)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(strings.NewReader("clock:\n  pllp: 5\n"))
	assert.ErrorIs(t, err, clock.ErrInvalidConfig)

	_, err = Parse(strings.NewReader("spi:\n  baud: 3\n"))
	assert.ErrorContains(t, err, "could not decode config")

	_, err = Parse(strings.NewReader("spi:\n  prescaler: 4\n"))
	assert.ErrorIs(t, err, spi.ErrClockTooFast)
}

func TestMarshal(t *testing.T) {
	cfg := Default()
	cfg.SampleInterval = time.Second
	out, err := Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(out), "sample_interval: 1s")
	assert.Contains(t, string(out), "plln: 336")

	back, err := Parse(strings.NewReader(string(out)))
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	assert.ErrorContains(t, err, "could not open config file")
}
