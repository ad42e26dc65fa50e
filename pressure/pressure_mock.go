package pressure

import (
	"context"
)

// InitBehaviorFunc returns whether the mocked device identified itself correctly.
type InitBehaviorFunc func(ctx context.Context) (bool, error)

// SampleBehaviorFunc produces the next sample.
type SampleBehaviorFunc func(ctx context.Context) (Sample, error)

// MockPressureSensor is a Sensor driven by behavior functions, for running
// the sampling loop without any bus.
//
// Example usage:
//
//	sensor := NewMockPressureSensor(
//		func(ctx context.Context) (bool, error) { return true, nil },
//		func(ctx context.Context) (Sample, error) { return NewSample(1013<<12, time.Now()), nil },
//	)
type MockPressureSensor struct {
	initBehavior   InitBehaviorFunc
	sampleBehavior SampleBehaviorFunc
}

var _ Sensor = &MockPressureSensor{}

func NewMockPressureSensor(initBehavior InitBehaviorFunc, sampleBehavior SampleBehaviorFunc) *MockPressureSensor {
	return &MockPressureSensor{
		initBehavior:   initBehavior,
		sampleBehavior: sampleBehavior,
	}
}

func (m *MockPressureSensor) Initialize(ctx context.Context) (bool, error) {
	return m.initBehavior(ctx)
}

func (m *MockPressureSensor) ReadSample(ctx context.Context) (Sample, error) {
	return m.sampleBehavior(ctx)
}

// ReadPressure returns the HPa field of the next sample.
func (m *MockPressureSensor) ReadPressure(ctx context.Context) (int32, error) {
	s, err := m.sampleBehavior(ctx)
	if err != nil {
		return 0, err
	}
	return s.HPa, nil
}
