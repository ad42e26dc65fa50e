// Package firmware sequences the bring-up of clock, GPIO, SPI and sensor and
// runs the periodic sampling loop.
package firmware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/baro/clock"
	"github.com/mklimuk/baro/config"
	"github.com/mklimuk/baro/gpio"
	"github.com/mklimuk/baro/mcu"
	"github.com/mklimuk/baro/pressure"
	"github.com/mklimuk/baro/spi"
)

var (
	ErrSensorMismatch = fmt.Errorf("sensor did not identify as LPS25HB")
	ErrNotSampling    = fmt.Errorf("firmware is not sampling")
)

// State is the bring-up stage the firmware is in. Stages only move forward;
// any failure moves to StateFault, which is terminal.
type State uint8

const (
	StateReset State = iota
	StateClock
	StateGPIO
	StateSPI
	StateSensor
	StateSampling
	StateFault
)

var stateNames = [...]string{"reset", "clock", "gpio", "spi", "sensor", "sampling", "fault"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

type Opts struct {
	Sink    pressure.Sink
	Delayer Delayer
	Logger  *slog.Logger
	Sensor  pressure.Sensor
}

type Opt func(*Opts)

func WithSink(sink pressure.Sink) Opt {
	return func(o *Opts) {
		o.Sink = sink
	}
}

func WithDelayer(d Delayer) Opt {
	return func(o *Opts) {
		o.Delayer = d
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

// WithSensor replaces the LPS25HB driver built during bring-up.
func WithSensor(sensor pressure.Sensor) Opt {
	return func(o *Opts) {
		o.Sensor = sensor
	}
}

type Firmware struct {
	p      *mcu.Peripherals
	cfg  config.Config
	opts Opts

	mx      sync.Mutex
	sensor  pressure.Sensor
	state   State
	err     error
	sysclk  physic.Frequency
	sck     physic.Frequency
	samples int
}

func New(p *mcu.Peripherals, cfg config.Config, opts ...Opt) *Firmware {
	o := Opts{
		Delayer: TimerDelay{},
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Sink == nil {
		o.Sink = LogSink{Logger: o.Logger}
	}
	return &Firmware{p: p, cfg: cfg, opts: o}
}

func (f *Firmware) State() State {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.state
}

// Fault returns the error that moved the firmware to StateFault.
func (f *Firmware) Fault() error {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.err
}

// Clocks returns the system and SPI clock frequencies established by bring-up.
func (f *Firmware) Clocks() (sysclk, sck physic.Frequency) {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.sysclk, f.sck
}

// Sensor returns the driver built by bring-up, nil before the sensor stage.
func (f *Firmware) Sensor() pressure.Sensor {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.sensor
}

func (f *Firmware) Samples() int {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.samples
}

func (f *Firmware) enter(s State) {
	f.mx.Lock()
	f.state = s
	f.mx.Unlock()
	f.opts.Logger.Debug("firmware state", "state", s)
}

func (f *Firmware) fault(err error) error {
	f.mx.Lock()
	stage := f.state
	err = fmt.Errorf("%s: %w", stage, err)
	f.state = StateFault
	f.err = err
	f.mx.Unlock()
	f.opts.Logger.Error("firmware fault", "stage", stage, "error", err)
	return err
}

// BringUp configures clock, GPIO, SPI and sensor in that order. Each stage
// relies on the previous one; the first failure leaves the firmware in
// StateFault and no later stage touches the hardware.
func (f *Firmware) BringUp(ctx context.Context) error {
	if s := f.State(); s != StateReset {
		return fmt.Errorf("bring-up already ran, firmware is in state %s", s)
	}
	if err := f.cfg.Validate(); err != nil {
		return f.fault(err)
	}

	f.enter(StateClock)
	sysclk, err := clock.NewManager(f.cfg.Clock,
		clock.WithPollLimit(f.cfg.Poll),
		clock.WithLogger(f.opts.Logger),
	).Configure(ctx, f.p)
	if err != nil {
		return f.fault(err)
	}

	f.enter(StateGPIO)
	cs, err := gpio.Configure(ctx, f.p, f.cfg.Pins, gpio.WithLogger(f.opts.Logger))
	if err != nil {
		return f.fault(err)
	}

	f.enter(StateSPI)
	master := spi.NewMaster(f.p,
		spi.WithPollLimit(f.cfg.Poll),
		spi.WithLogger(f.opts.Logger),
	)
	// SPI1 sits on APB2, which runs undivided from SYSCLK
	sck, err := master.Configure(ctx, f.cfg.SPI, sysclk)
	if err != nil {
		return f.fault(err)
	}
	f.mx.Lock()
	f.sysclk, f.sck = sysclk, sck
	f.mx.Unlock()

	f.enter(StateSensor)
	sensor := f.opts.Sensor
	if sensor == nil {
		sensor = pressure.NewLPS25HB(master, cs, pressure.WithLogger(f.opts.Logger))
	}
	f.mx.Lock()
	f.sensor = sensor
	f.mx.Unlock()
	ok, err := sensor.Initialize(ctx)
	if err != nil {
		return f.fault(err)
	}
	if !ok {
		if f.cfg.RequireSensor {
			return f.fault(fmt.Errorf("%w: %w", ErrSensorMismatch, pressure.ErrWrongDevice))
		}
		f.opts.Logger.Warn("sensor identity not confirmed, sampling anyway")
	}

	f.enter(StateSampling)
	f.opts.Logger.Info("bring-up complete", "sysclk", sysclk, "sck", sck)
	return nil
}

// Sample reads one sample and pushes it to the sink. A sink error is returned
// but does not fault the firmware.
func (f *Firmware) Sample(ctx context.Context) (pressure.Sample, error) {
	if s := f.State(); s != StateSampling {
		return pressure.Sample{}, fmt.Errorf("%w: state %s", ErrNotSampling, s)
	}
	s, err := f.Sensor().ReadSample(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return pressure.Sample{}, err
		}
		return pressure.Sample{}, f.fault(err)
	}
	f.mx.Lock()
	f.samples++
	f.mx.Unlock()
	if err := f.opts.Sink.Push(ctx, s); err != nil {
		return s, fmt.Errorf("could not push sample: %w", err)
	}
	return s, nil
}

// Run brings the firmware up and samples every SampleInterval until ctx is
// done. It returns nil on cancellation and the fault otherwise.
func (f *Firmware) Run(ctx context.Context) error {
	if err := f.BringUp(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	for {
		if err := f.opts.Delayer.Delay(ctx, f.cfg.SampleInterval); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return f.fault(err)
		}
		_, err := f.Sample(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case f.State() == StateFault:
			return err
		case errors.Is(err, ErrNotSampling):
			return err
		default:
			f.opts.Logger.Warn("sample dropped", "error", err)
		}
	}
}
