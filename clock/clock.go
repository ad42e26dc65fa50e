// Package clock derives the system clock from the internal oscillator through
// the main PLL:
//
//	SYSCLK = oscillator / M * N / P
//
// With the 16 MHz HSI, M=16, N=336 and P=4 the core runs at 84 MHz, the
// STM32F401 maximum. SPI1 sits on APB2 which runs undivided at SYSCLK.
package clock

import (
	"context"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/baro/mcu"
	"github.com/mklimuk/baro/poll"
)

const (
	HSIFrequency = 16 * physic.MegaHertz
	MaxSysClock  = 84 * physic.MegaHertz
	MaxAPB1Clock = 42 * physic.MegaHertz
)

var ErrInvalidConfig = fmt.Errorf("invalid clock configuration")

// Frequency computes the PLL output for the given oscillator and factors.
func Frequency(osc physic.Frequency, m, n, p uint32) physic.Frequency {
	if m == 0 || p == 0 {
		return 0
	}
	return osc / physic.Frequency(m) * physic.Frequency(n) / physic.Frequency(p)
}

// Config holds the PLL factors. The source is always HSI.
type Config struct {
	OscillatorHz uint32 `yaml:"oscillator_hz"`
	M            uint32 `yaml:"pllm"`
	N            uint32 `yaml:"plln"`
	P            uint32 `yaml:"pllp"`
}

func DefaultConfig() Config {
	return Config{
		OscillatorHz: uint32(HSIFrequency / physic.Hertz),
		M:            16,
		N:            336,
		P:            4,
	}
}

func (c Config) Oscillator() physic.Frequency {
	return physic.Frequency(c.OscillatorHz) * physic.Hertz
}

func (c Config) SysClock() physic.Frequency {
	return Frequency(c.Oscillator(), c.M, c.N, c.P)
}

// Validate checks the factors against the RM0368 PLL constraints.
func (c Config) Validate() error {
	if c.M < 2 || c.M > 63 {
		return fmt.Errorf("%w: PLLM %d out of range 2..63", ErrInvalidConfig, c.M)
	}
	if c.N < 192 || c.N > 432 {
		return fmt.Errorf("%w: PLLN %d out of range 192..432", ErrInvalidConfig, c.N)
	}
	switch c.P {
	case 2, 4, 6, 8:
	default:
		return fmt.Errorf("%w: PLLP %d not one of 2, 4, 6, 8", ErrInvalidConfig, c.P)
	}
	vcoIn := c.Oscillator() / physic.Frequency(c.M)
	if vcoIn < physic.MegaHertz || vcoIn > 2*physic.MegaHertz {
		return fmt.Errorf("%w: VCO input %s out of range 1..2MHz", ErrInvalidConfig, vcoIn)
	}
	vcoOut := vcoIn * physic.Frequency(c.N)
	if vcoOut < 192*physic.MegaHertz || vcoOut > 432*physic.MegaHertz {
		return fmt.Errorf("%w: VCO output %s out of range 192..432MHz", ErrInvalidConfig, vcoOut)
	}
	if sys := c.SysClock(); sys > MaxSysClock {
		return fmt.Errorf("%w: SYSCLK %s exceeds %s", ErrInvalidConfig, sys, MaxSysClock)
	}
	return nil
}

// FlashLatency returns the wait states needed at sysclk (2.7-3.6V supply).
func FlashLatency(sysclk physic.Frequency) uint32 {
	switch {
	case sysclk <= 30*physic.MegaHertz:
		return 0
	case sysclk <= 60*physic.MegaHertz:
		return 1
	default:
		return 2
	}
}

// APB1Prescaler returns the PPRE1 encoding and divider keeping APB1 within limits.
func APB1Prescaler(sysclk physic.Frequency) (bits uint32, div uint32) {
	// PPRE1: 0xx = /1, 100 = /2, 101 = /4, 110 = /8, 111 = /16
	bits, div = 0, 1
	for enc := uint32(0b100); sysclk/physic.Frequency(div) > MaxAPB1Clock && enc <= 0b111; enc++ {
		bits, div = enc, div*2
	}
	return bits, div
}

type Opts struct {
	Limit  poll.Limit
	Logger *slog.Logger
}

type Opt func(*Opts)

func WithPollLimit(limit poll.Limit) Opt {
	return func(o *Opts) {
		o.Limit = limit
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

// Manager switches the system clock to the PLL.
type Manager struct {
	cfg  Config
	opts Opts
}

func NewManager(cfg Config, opts ...Opt) *Manager {
	o := Opts{
		Limit:  poll.DefaultLimit,
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{cfg: cfg, opts: o}
}

// Configure programs the PLL, waits for lock, raises flash latency and then
// switches SYSCLK to the PLL. It returns the resulting system clock.
func (m *Manager) Configure(ctx context.Context, p *mcu.Peripherals) (physic.Frequency, error) {
	if err := m.cfg.Validate(); err != nil {
		return 0, err
	}
	sysclk := m.cfg.SysClock()

	p.Modify(mcu.RCC_PLLCFGR, func(v uint32) uint32 {
		v &^= mcu.RCC_PLLCFGR_PLLSRC
		v = mcu.RCC_PLLCFGR_PLLM.Set(v, m.cfg.M)
		v = mcu.RCC_PLLCFGR_PLLN.Set(v, m.cfg.N)
		return mcu.RCC_PLLCFGR_PLLP.Set(v, m.cfg.P/2-1)
	})
	ppre1, apb1div := APB1Prescaler(sysclk)
	p.SetField(mcu.RCC_CFGR, mcu.RCC_CFGR_PPRE1, ppre1)

	p.SetBits(mcu.RCC_CR, mcu.RCC_CR_PLLON)
	err := poll.Until(ctx, "pll lock", m.opts.Limit, func() bool {
		return p.HasBits(mcu.RCC_CR, mcu.RCC_CR_PLLRDY)
	})
	if err != nil {
		return 0, fmt.Errorf("could not lock PLL: %w", err)
	}
	m.opts.Logger.Debug("pll locked", "sysclk", sysclk)

	// latency must be in place before the core runs faster
	latency := FlashLatency(sysclk)
	p.SetField(mcu.FLASH_ACR, mcu.FLASH_ACR_LATENCY, latency)

	p.SetField(mcu.RCC_CFGR, mcu.RCC_CFGR_SW, mcu.RCC_CFGR_SW_PLL)
	err = poll.Until(ctx, "sysclk switch", m.opts.Limit, func() bool {
		return p.Field(mcu.RCC_CFGR, mcu.RCC_CFGR_SWS) == mcu.RCC_CFGR_SWS_PLL
	})
	if err != nil {
		return 0, fmt.Errorf("could not switch system clock to PLL: %w", err)
	}
	m.opts.Logger.Debug("system clock switched", "sysclk", sysclk, "apb1", sysclk/physic.Frequency(apb1div), "latency", latency)
	return sysclk, nil
}
