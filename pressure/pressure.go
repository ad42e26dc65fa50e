// Package pressure drives the LPS25HB barometer and defines the sample type
// handed to the rest of the system.
package pressure

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

type Sensor interface {
	Initialize(ctx context.Context) (bool, error)
	ReadSample(ctx context.Context) (Sample, error)
}

// Sample is one pressure reading. Raw is the unsigned 24-bit PRESS_OUT value.
type Sample struct {
	Raw int32     `yaml:"raw"`
	HPa int32     `yaml:"hpa"`
	At  time.Time `yaml:"at"`
}

func NewSample(raw int32, at time.Time) Sample {
	return Sample{Raw: raw, HPa: raw >> 12, At: at}
}

// Pressure returns the reading at full resolution.
func (s Sample) Pressure() physic.Pressure {
	return physic.Pressure(s.Raw) * 100 * physic.Pascal / CountsPerHPa
}

func (s Sample) String() string {
	return fmt.Sprintf("%d hPa (raw %#06x)", s.HPa, s.Raw)
}

// Sink consumes samples produced by the sampling loop.
type Sink interface {
	Push(ctx context.Context, s Sample) error
}

type SinkFunc func(ctx context.Context, s Sample) error

func (f SinkFunc) Push(ctx context.Context, s Sample) error {
	return f(ctx, s)
}
