// Package poll bounds the status-flag busy-waits used during bring-up and
// SPI transfers.
package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/mklimuk/baro"
)

// ctxCheckEvery sets how many spins pass between context and deadline checks.
const ctxCheckEvery = 64

// Limit bounds a busy-wait. A zero field means no bound on that axis.
type Limit struct {
	Spins   int           `yaml:"spins"`
	Timeout time.Duration `yaml:"timeout"`
}

var DefaultLimit = Limit{Spins: 1_000_000, Timeout: 100 * time.Millisecond}

func (l Limit) Unbounded() bool {
	return l.Spins <= 0 && l.Timeout <= 0
}

// Until spins until ready returns true. It fails with baro.ErrNotReady when
// the limit is exhausted and with the context error when ctx is done.
func Until(ctx context.Context, what string, limit Limit, ready func() bool) error {
	var deadline time.Time
	if limit.Timeout > 0 {
		deadline = time.Now().Add(limit.Timeout)
	}
	for spins := 0; ; spins++ {
		if ready() {
			return nil
		}
		if limit.Spins > 0 && spins >= limit.Spins {
			return fmt.Errorf("%s: %w after %d polls", what, baro.ErrNotReady, spins)
		}
		if spins%ctxCheckEvery != 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", what, err)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return fmt.Errorf("%s: %w after %s", what, baro.ErrNotReady, limit.Timeout)
		}
	}
}
