package database

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// ErrSaturated means no query slot freed up before the caller's deadline.
var ErrSaturated = errors.New("primary store saturated")

// Gate caps the number of outstanding primary-store calls. Callers beyond
// the ceiling wait for a slot only as long as their context allows.
type Gate struct {
	sem *semaphore.Weighted
}

func NewGate(size int) *Gate {
	return &Gate{sem: semaphore.NewWeighted(int64(max(size, 1)))}
}

// Enter blocks until a slot is free or ctx is done. The returned func must
// be called exactly once to give the slot back.
func (g *Gate) Enter(ctx context.Context) (func(), error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSaturated, err)
	}
	return func() { g.sem.Release(1) }, nil
}
