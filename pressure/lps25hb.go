package pressure

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/baro"
)

const (
	regWhoAmI    = 0x0F
	regCtrlReg1  = 0x20
	regPressOutX = 0x28
	regTempOutL  = 0x2B

	// ctrlReg1Wake powers the device up (PD) at 1 Hz output data rate.
	ctrlReg1Wake = 0x90

	frameRead      = 0x80
	frameReadMulti = 0xC0
	addrMask       = 0x3F

	// DeviceID is the WHO_AM_I value of the LPS25HB.
	DeviceID = 0xBD

	// CountsPerHPa is the pressure sensitivity.
	CountsPerHPa = 4096
)

var ErrWrongDevice = fmt.Errorf("unexpected device id")

type Opts struct {
	Logger *slog.Logger
	Now    func() time.Time
}

type Opt func(*Opts)

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

// WithNow sets the time source used to stamp samples.
func WithNow(now func() time.Time) Opt {
	return func(o *Opts) {
		o.Now = now
	}
}

// LPS25HB talks to the sensor over a byte-exchange bus with a chip-select line
// held low for the whole of each register access.
type LPS25HB struct {
	bus  baro.ByteExchanger
	cs   baro.ChipSelect
	opts Opts
	id   byte
}

var _ Sensor = &LPS25HB{}

func NewLPS25HB(bus baro.ByteExchanger, cs baro.ChipSelect, opts ...Opt) *LPS25HB {
	o := Opts{
		Logger: slog.Default(),
		Now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &LPS25HB{bus: bus, cs: cs, opts: o}
}

func (s *LPS25HB) Select() error {
	return s.cs.Low()
}

func (s *LPS25HB) Deselect() error {
	return s.cs.High()
}

// transfer runs one chip-select framed transaction: the command byte followed
// by len(data) exchanges. On reads data is filled with the bytes received.
func (s *LPS25HB) transfer(ctx context.Context, cmd byte, data []byte, read bool) (err error) {
	if err := s.Select(); err != nil {
		return fmt.Errorf("could not select sensor: %w", err)
	}
	defer func() {
		if derr := s.Deselect(); derr != nil && err == nil {
			err = fmt.Errorf("could not deselect sensor: %w", derr)
		}
	}()
	if _, err := s.bus.ExchangeByte(ctx, cmd); err != nil {
		return fmt.Errorf("could not send command %#02x: %w", cmd, err)
	}
	for i := range data {
		out := data[i]
		if read {
			out = 0x00
		}
		in, err := s.bus.ExchangeByte(ctx, out)
		if err != nil {
			return fmt.Errorf("could not exchange byte %d of command %#02x: %w", i, cmd, err)
		}
		if read {
			data[i] = in
		}
	}
	return nil
}

// ReadRegister reads a single register.
func (s *LPS25HB) ReadRegister(ctx context.Context, addr byte) (byte, error) {
	buf := []byte{0}
	if err := s.transfer(ctx, addr&addrMask|frameRead, buf, true); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadRegisters reads len(buf) consecutive registers starting at addr.
func (s *LPS25HB) ReadRegisters(ctx context.Context, addr byte, buf []byte) error {
	return s.transfer(ctx, addr&addrMask|frameReadMulti, buf, true)
}

func (s *LPS25HB) WriteRegister(ctx context.Context, addr, value byte) error {
	return s.transfer(ctx, addr&addrMask, []byte{value}, false)
}

// Initialize reads WHO_AM_I and wakes the sensor up. It reports whether the
// device answered with the LPS25HB id; CTRL_REG1 is written either way.
func (s *LPS25HB) Initialize(ctx context.Context) (bool, error) {
	id, err := s.ReadRegister(ctx, regWhoAmI)
	if err != nil {
		return false, fmt.Errorf("could not read device id: %w", err)
	}
	s.id = id
	if err := s.WriteRegister(ctx, regCtrlReg1, ctrlReg1Wake); err != nil {
		return false, fmt.Errorf("could not wake sensor up: %w", err)
	}
	ok := id == DeviceID
	if !ok {
		s.opts.Logger.Warn("unexpected sensor id", "id", fmt.Sprintf("%#02x", id), "expected", fmt.Sprintf("%#02x", DeviceID))
	}
	return ok, nil
}

// ID returns the device id read by the last Initialize.
func (s *LPS25HB) ID() byte {
	return s.id
}

// CheckID is Initialize returning ErrWrongDevice on an id mismatch.
func (s *LPS25HB) CheckID(ctx context.Context) error {
	ok, err := s.Initialize(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %#02x", ErrWrongDevice, s.id)
	}
	return nil
}

func (s *LPS25HB) readRaw(ctx context.Context) (int32, error) {
	buf := make([]byte, 3)
	if err := s.ReadRegisters(ctx, regPressOutX, buf); err != nil {
		return 0, fmt.Errorf("could not read pressure: %w", err)
	}
	// low, mid, high
	return int32(buf[2])<<16 | int32(buf[1])<<8 | int32(buf[0]), nil
}

// ReadPressure returns the pressure in hPa (raw >> 12).
func (s *LPS25HB) ReadPressure(ctx context.Context) (int32, error) {
	raw, err := s.readRaw(ctx)
	if err != nil {
		return 0, err
	}
	return raw >> 12, nil
}

func (s *LPS25HB) ReadSample(ctx context.Context) (Sample, error) {
	raw, err := s.readRaw(ctx)
	if err != nil {
		return Sample{}, err
	}
	return NewSample(raw, s.opts.Now()), nil
}

// ReadTemperature returns the die temperature in Celsius.
func (s *LPS25HB) ReadTemperature(ctx context.Context) (float32, error) {
	buf := make([]byte, 2)
	if err := s.ReadRegisters(ctx, regTempOutL, buf); err != nil {
		return 0, fmt.Errorf("could not read temperature: %w", err)
	}
	return convertTemperature(buf), nil
}

func convertTemperature(buf []byte) float32 {
	raw := int16(binary.LittleEndian.Uint16(buf))
	return 42.5 + float32(raw)/480
}
