// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"context"

	"github.com/ManuGH/nerve/internal/resilience"
)

// GuardedStore routes every operation on a remote or disk-backed store
// through a circuit breaker, so a dead backend fails saves fast instead of
// stalling subscribers.
type GuardedStore struct {
	inner   Store
	breaker *resilience.CircuitBreaker
}

func NewGuardedStore(inner Store, breaker *resilience.CircuitBreaker) *GuardedStore {
	return &GuardedStore{inner: inner, breaker: breaker}
}

func (g *GuardedStore) Save(ctx context.Context, rec Record) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.Save(ctx, rec)
	})
}

func (g *GuardedStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	var out []Record
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.Recent(ctx, limit)
		return err
	})
	return out, err
}

func (g *GuardedStore) Count(ctx context.Context) (int, error) {
	var n int
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		n, err = g.inner.Count(ctx)
		return err
	})
	return n, err
}

// HealthCheck reports an open breaker as unhealthy and otherwise defers to
// the inner store when it can be pinged.
func (g *GuardedStore) HealthCheck(ctx context.Context) error {
	if g.breaker.State() == resilience.StateOpen {
		return resilience.ErrCircuitOpen
	}
	if p, ok := g.inner.(interface{ HealthCheck(context.Context) error }); ok {
		return p.HealthCheck(ctx)
	}
	return nil
}

func (g *GuardedStore) Close() error { return g.inner.Close() }

// Unwrap returns the guarded store.
func (g *GuardedStore) Unwrap() Store { return g.inner }
