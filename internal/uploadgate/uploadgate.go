package uploadgate

import (
	"context"

	"golang.org/x/time/rate"
)

// Gate bounds upload admission with two independent controls:
//
//  1. A concurrency cap: at most maxInFlight uploads hold a slot at once.
//     This bounds memory (each in-flight upload buffers one chunk) and
//     backend load.
//  2. A token bucket rate limit (golang.org/x/time/rate): sustained upload
//     starts per second, with burst capacity for short spikes.
//
// Both controls are context-aware: a caller waiting for admission gives up
// when its context is cancelled.
//
// Thread safety: all methods are safe for concurrent use.
type Gate struct {
	slots   chan struct{}
	limiter *rate.Limiter
}

// New creates a Gate with the given concurrency cap and sustained rate.
//
// Special cases:
//   - maxInFlight = 0: concurrency is unbounded
//   - startsPerSecond = 0: rate limiting disabled
//
// The burst capacity defaults to 2x the sustained rate.
func New(maxInFlight int, startsPerSecond uint) *Gate {
	g := &Gate{}

	if maxInFlight > 0 {
		g.slots = make(chan struct{}, maxInFlight)
	}

	if startsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(startsPerSecond), int(startsPerSecond)*2)
	}

	return g
}

// Acquire blocks until an upload slot and a rate token are available, or the
// context is cancelled. On success the caller must call Release exactly once
// when the upload finishes (success or failure).
func (g *Gate) Acquire(ctx context.Context) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if g.slots == nil {
		return nil
	}

	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns an upload slot acquired by Acquire.
func (g *Gate) Release() {
	if g.slots == nil {
		return
	}
	<-g.slots
}

// InFlight returns the number of currently held slots. Returns 0 when the
// concurrency cap is disabled. Intended for monitoring.
func (g *Gate) InFlight() int {
	if g.slots == nil {
		return 0
	}
	return len(g.slots)
}
