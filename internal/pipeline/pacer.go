package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Pacer spaces external lookups at least interval apart. The first call never
// waits. It implements domain.Pacer.
type Pacer struct {
	limiter *rate.Limiter
	clock   clockwork.Clock
}

// NewPacer creates a Pacer. A nil clock means the real clock.
func NewPacer(interval time.Duration, clock clockwork.Clock) *Pacer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		clock:   clock,
	}
}

// Wait blocks until the next lookup may start or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := p.clock.Now()
	r := p.limiter.ReserveN(now, 1)
	if !r.OK() {
		return errors.New("pacer: reservation exceeds burst")
	}
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	timer := p.clock.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.CancelAt(p.clock.Now())
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
