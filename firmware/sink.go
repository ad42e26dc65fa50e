package firmware

import (
	"context"
	"log/slog"
	"time"

	"github.com/mklimuk/baro/pressure"
)

// Delayer blocks for d or until ctx is done.
type Delayer interface {
	Delay(ctx context.Context, d time.Duration) error
}

type DelayFunc func(ctx context.Context, d time.Duration) error

func (f DelayFunc) Delay(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

type TimerDelay struct{}

func (TimerDelay) Delay(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ChannelSink hands samples to a consumer goroutine. Push blocks until the
// sample is received or ctx is done.
type ChannelSink chan pressure.Sample

func (c ChannelSink) Push(ctx context.Context, s pressure.Sample) error {
	select {
	case c <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Push(_ context.Context, s pressure.Sample) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("pressure", "hpa", s.HPa, "raw", s.Raw)
	return nil
}
