package limiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum pause between consecutive destroy batches so the
// pool can settle. A zero interval disables pacing.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer allowing one batch per interval
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next batch may start or ctx is done.
// The first call returns immediately.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// Enabled reports whether batches are paced at all
func (p *Pacer) Enabled() bool {
	return p != nil && p.limiter != nil
}
