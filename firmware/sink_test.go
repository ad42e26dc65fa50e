package firmware

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/baro/pressure"
)

func TestChannelSink(t *testing.T) {
	sink := make(ChannelSink, 1)
	s := pressure.NewSample(1013<<12, time.Now())
	require.NoError(t, sink.Push(context.Background(), s))
	assert.Equal(t, s, <-sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	full := make(ChannelSink)
	assert.ErrorIs(t, full.Push(ctx, s), context.Canceled)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	require.NoError(t, sink.Push(context.Background(), pressure.NewSample(0x010000, time.Now())))
	assert.Contains(t, buf.String(), "hpa=16")
	assert.Contains(t, buf.String(), "raw=65536")
}

func TestTimerDelay(t *testing.T) {
	start := time.Now()
	require.NoError(t, TimerDelay{}.Delay(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	start = time.Now()
	err := TimerDelay{}.Delay(ctx, time.Hour)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
