package spi

import (
	"context"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/baro"
	"github.com/mklimuk/baro/mcu"
	"github.com/mklimuk/baro/poll"
)

var (
	ErrClockTooFast     = fmt.Errorf("spi clock exceeds device maximum")
	ErrInvalidPrescaler = fmt.Errorf("invalid spi prescaler")
	ErrInvalidMode      = fmt.Errorf("invalid spi mode")
	ErrBusFault         = fmt.Errorf("spi bus fault")
)

// Mode is the SPI clock mode; bit 1 is CPOL and bit 0 CPHA.
//
//	Mode 0: clock idle low, sample on first (rising) edge
//	Mode 1: clock idle low, sample on second (falling) edge
//	Mode 2: clock idle high, sample on first (falling) edge
//	Mode 3: clock idle high, sample on second (rising) edge
type Mode uint8

const (
	Mode0 Mode = iota
	Mode1
	Mode2
	Mode3
)

// LPS25HBMaxClock is the sensor's maximum SPI clock.
const LPS25HBMaxClock = 10 * physic.MegaHertz

type Config struct {
	Mode Mode `yaml:"mode"`
	// Prescaler divides the peripheral clock (2..256, power of two).
	// Zero picks the smallest divider that respects MaxClockHz.
	Prescaler  uint32 `yaml:"prescaler"`
	MaxClockHz uint32 `yaml:"max_clock_hz"`
	LSBFirst   bool   `yaml:"lsb_first"`
}

// DefaultConfig drives the LPS25HB in mode 3 at pclk/16 (5.25 MHz at 84 MHz).
func DefaultConfig() Config {
	return Config{
		Mode:       Mode3,
		Prescaler:  16,
		MaxClockHz: uint32(LPS25HBMaxClock / physic.Hertz),
	}
}

func (c Config) MaxClock() physic.Frequency {
	return physic.Frequency(c.MaxClockHz) * physic.Hertz
}

func (c Config) Validate() error {
	if c.Mode > Mode3 {
		return fmt.Errorf("%w: %d", ErrInvalidMode, c.Mode)
	}
	if c.Prescaler == 0 {
		return nil
	}
	if _, err := prescalerBits(c.Prescaler); err != nil {
		return err
	}
	return nil
}

// prescalerBits encodes a divider into CR1.BR (div = 2^(BR+1)).
func prescalerBits(div uint32) (uint32, error) {
	for br := uint32(0); br < 8; br++ {
		if 2<<br == div {
			return br, nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidPrescaler, div)
}

// Divider resolves the prescaler used for pclk.
func (c Config) Divider(pclk physic.Frequency) (uint32, error) {
	if c.Prescaler != 0 {
		return c.Prescaler, nil
	}
	if c.MaxClockHz == 0 {
		return 2, nil
	}
	for div := uint32(2); div <= 256; div *= 2 {
		if pclk/physic.Frequency(div) <= c.MaxClock() {
			return div, nil
		}
	}
	return 0, fmt.Errorf("%w: %s cannot be divided below %s", ErrClockTooFast, pclk, c.MaxClock())
}

// Clock resolves the divider for pclk and returns it with the SCK frequency it
// yields. An SCK above MaxClockHz is rejected whether the prescaler was set
// explicitly or picked automatically.
func (c Config) Clock(pclk physic.Frequency) (uint32, physic.Frequency, error) {
	div, err := c.Divider(pclk)
	if err != nil {
		return 0, 0, err
	}
	sck := pclk / physic.Frequency(div)
	if c.MaxClockHz != 0 && sck > c.MaxClock() {
		return 0, 0, fmt.Errorf("%w: %s / %d = %s > %s", ErrClockTooFast, pclk, div, sck, c.MaxClock())
	}
	return div, sck, nil
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

// Master drives SPI1 in polled master mode.
type Master struct {
	p    *mcu.Peripherals
	opts Opts
}

var _ baro.SPIBus = &Master{}

func NewMaster(p *mcu.Peripherals, opts ...Opt) *Master {
	o := Opts{
		Limit:  poll.DefaultLimit,
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Master{p: p, opts: o}
}

// Configure sets SPI1 up as master with software slave management and
// enables it. pclk is the APB2 clock; the resulting SCK frequency is returned.
func (m *Master) Configure(ctx context.Context, cfg Config, pclk physic.Frequency) (physic.Frequency, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	div, sck, err := cfg.Clock(pclk)
	if err != nil {
		return 0, err
	}
	br, err := prescalerBits(div)
	if err != nil {
		return 0, err
	}

	p := m.p
	p.SetBits(mcu.RCC_APB2ENR, mcu.RCC_APB2ENR_SPI1EN)
	// SSI high keeps the peripheral in master mode without a hardware NSS
	p.SetBits(mcu.SPI1_CR1, mcu.SPI_CR1_SSM)
	p.SetBits(mcu.SPI1_CR1, mcu.SPI_CR1_SSI)
	p.SetField(mcu.SPI1_CR1, mcu.SPI_CR1_BR, br)
	if cfg.Mode&0b01 != 0 {
		p.SetBits(mcu.SPI1_CR1, mcu.SPI_CR1_CPHA)
	} else {
		p.ClearBits(mcu.SPI1_CR1, mcu.SPI_CR1_CPHA)
	}
	if cfg.Mode&0b10 != 0 {
		p.SetBits(mcu.SPI1_CR1, mcu.SPI_CR1_CPOL)
	} else {
		p.ClearBits(mcu.SPI1_CR1, mcu.SPI_CR1_CPOL)
	}
	if cfg.LSBFirst {
		p.SetBits(mcu.SPI1_CR1, mcu.SPI_CR1_LSBFIRST)
	} else {
		p.ClearBits(mcu.SPI1_CR1, mcu.SPI_CR1_LSBFIRST)
	}
	p.SetBits(mcu.SPI1_CR1, mcu.SPI_CR1_MSTR)
	p.SetBits(mcu.SPI1_CR1, mcu.SPI_CR1_SPE)
	m.opts.Logger.Debug("spi master enabled", "mode", cfg.Mode, "div", div, "sck", sck)
	return sck, nil
}

// ExchangeByte writes data to the transmit buffer once it is empty and
// returns the byte shifted in during the same frame.
func (m *Master) ExchangeByte(ctx context.Context, data byte) (byte, error) {
	err := poll.Until(ctx, "spi txe", m.opts.Limit, func() bool {
		return m.p.HasBits(mcu.SPI1_SR, mcu.SPI_SR_TXE)
	})
	if err != nil {
		return 0, err
	}
	m.p.Write(mcu.SPI1_DR, uint32(data))
	err = poll.Until(ctx, "spi rxne", m.opts.Limit, func() bool {
		return m.p.HasBits(mcu.SPI1_SR, mcu.SPI_SR_RXNE)
	})
	if err != nil {
		return 0, err
	}
	if sr := m.p.Read(mcu.SPI1_SR); sr&(mcu.SPI_SR_MODF|mcu.SPI_SR_OVR) != 0 {
		return 0, fmt.Errorf("%w: status %#04x", ErrBusFault, sr)
	}
	return byte(m.p.Read(mcu.SPI1_DR)), nil
}

// Tx exchanges len(w) bytes. r may be nil or at least as long as w.
func (m *Master) Tx(ctx context.Context, w, r []byte) error {
	if r != nil && len(r) < len(w) {
		return fmt.Errorf("read buffer too short: %d < %d", len(r), len(w))
	}
	for i, b := range w {
		in, err := m.ExchangeByte(ctx, b)
		if err != nil {
			return fmt.Errorf("could not exchange byte %d: %w", i, err)
		}
		if r != nil {
			r[i] = in
		}
	}
	return nil
}

func (m Mode) String() string {
	return fmt.Sprintf("mode%d", uint8(m))
}
