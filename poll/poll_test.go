package poll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mklimuk/baro"
)

func TestUntil_Ready(t *testing.T) {
	calls := 0
	err := Until(context.Background(), "flag", Limit{Spins: 10}, func() bool {
		calls++
		return calls == 3
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestUntil_SpinsExhausted(t *testing.T) {
	calls := 0
	err := Until(context.Background(), "pll lock", Limit{Spins: 5}, func() bool {
		calls++
		return false
	})
	assert.ErrorIs(t, err, baro.ErrNotReady)
	assert.Contains(t, err.Error(), "pll lock")
	assert.Equal(t, 6, calls)
}

func TestUntil_Timeout(t *testing.T) {
	err := Until(context.Background(), "txe", Limit{Timeout: 5 * time.Millisecond}, func() bool {
		return false
	})
	assert.ErrorIs(t, err, baro.ErrNotReady)
}

func TestUntil_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Until(ctx, "rxne", Limit{}, func() bool { return false })
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, baro.ErrNotReady)
}

func TestLimit_Unbounded(t *testing.T) {
	assert.True(t, Limit{}.Unbounded())
	assert.False(t, DefaultLimit.Unbounded())
}
