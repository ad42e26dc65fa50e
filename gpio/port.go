package gpio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mklimuk/baro"
	"github.com/mklimuk/baro/mcu"
)

var ErrInvalidPin = fmt.Errorf("invalid pin assignment")

// Config assigns GPIOA pins to the sensor wiring.
type Config struct {
	ChipSelect uint8 `yaml:"cs"`
	SCK        uint8 `yaml:"sck"`
	MISO       uint8 `yaml:"miso"`
	MOSI       uint8 `yaml:"mosi"`
	AltFunc    uint8 `yaml:"af"`
}

// DefaultConfig wires SPI1 on PA5/PA6/PA7 (AF5) with chip-select on PA4.
func DefaultConfig() Config {
	return Config{ChipSelect: 4, SCK: 5, MISO: 6, MOSI: 7, AltFunc: 5}
}

func (c Config) Validate() error {
	pins := []uint8{c.ChipSelect, c.SCK, c.MISO, c.MOSI}
	seen := make(map[uint8]bool, len(pins))
	for _, pin := range pins {
		if pin > 15 {
			return fmt.Errorf("%w: PA%d does not exist", ErrInvalidPin, pin)
		}
		if seen[pin] {
			return fmt.Errorf("%w: PA%d assigned twice", ErrInvalidPin, pin)
		}
		seen[pin] = true
	}
	if c.AltFunc > 15 {
		return fmt.Errorf("%w: AF%d out of range", ErrInvalidPin, c.AltFunc)
	}
	return nil
}

type Opts struct {
	Logger *slog.Logger
}

type Opt func(*Opts)

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

// Configure clocks GPIOA, makes the chip-select pin a push-pull output and
// hands SCK/MISO/MOSI to the SPI alternate function. The returned pin is left
// high (deselected).
func Configure(ctx context.Context, p *mcu.Peripherals, cfg Config, opts ...Opt) (*Pin, error) {
	o := Opts{Logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("could not configure gpio: %w", err)
	}
	p.SetBits(mcu.RCC_AHB1ENR, mcu.RCC_AHB1ENR_GPIOAEN)

	cs := &Pin{p: p, mask: 1 << cfg.ChipSelect}
	// preload the output latch so the line does not glitch low when the
	// pin turns into an output
	p.SetBits(mcu.GPIOA_ODR, cs.mask)
	p.ClearBits(mcu.GPIOA_OTYPER, cs.mask)
	p.SetField(mcu.GPIOA_MODER, mcu.ModerField(cfg.ChipSelect), mcu.ModeOutput)

	for _, pin := range []uint8{cfg.SCK, cfg.MISO, cfg.MOSI} {
		p.SetField(mcu.GPIOA_MODER, mcu.ModerField(pin), mcu.ModeAlternate)
		reg, field := mcu.AFRField(pin)
		p.SetField(reg, field, uint32(cfg.AltFunc))
	}

	if err := cs.High(); err != nil {
		return nil, err
	}
	o.Logger.Debug("gpio configured", "cs", fmt.Sprintf("PA%d", cfg.ChipSelect), "af", cfg.AltFunc)
	return cs, nil
}

// Pin is a GPIOA output driven through the ODR register.
type Pin struct {
	p    *mcu.Peripherals
	mask uint32
}

var _ baro.ChipSelect = &Pin{}

func (c *Pin) Low() error {
	c.p.ClearBits(mcu.GPIOA_ODR, c.mask)
	return nil
}

func (c *Pin) High() error {
	c.p.SetBits(mcu.GPIOA_ODR, c.mask)
	return nil
}
