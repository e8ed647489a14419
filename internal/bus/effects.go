// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/nerve/internal/journal"
	"github.com/ManuGH/nerve/internal/message"
)

// EffectConfig controls the simulated external work a subscriber performs
// on each accepted message.
type EffectConfig struct {
	// ProcessInterval is the period of the processing side effect.
	ProcessInterval time.Duration
	// EffectDelay is the upper bound of the simulated I/O delay.
	EffectDelay time.Duration
	// FailureRate is the probability that save or restart fails.
	FailureRate float64
	// Retries is how many extra attempts a failed effect gets.
	Retries int
}

func DefaultEffectConfig() EffectConfig {
	return EffectConfig{
		ProcessInterval: 2 * time.Second,
		EffectDelay:     time.Second,
		FailureRate:     0.25,
	}
}

// faults is a goroutine-safe source of simulated delay and failure.
type faults struct {
	mu   sync.Mutex
	rng  *rand.Rand
	rate float64
}

func newFaults(rate float64, seed uint64) *faults {
	return &faults{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), rate: rate}
}

func (f *faults) fail() bool {
	if f.rate <= 0 {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Float64() < f.rate
}

func (f *faults) delay(upper time.Duration) time.Duration {
	if upper <= 0 {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return time.Duration(f.rng.Int64N(int64(upper)))
}

// wait sleeps for d unless ctx ends first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// runEffects performs save and restart concurrently and returns every
// failure joined; neither cancels the other.
func (s *Subscriber) runEffects(ctx context.Context, m *message.Message) error {
	var saveErr, restartErr error
	var g errgroup.Group
	g.Go(func() error {
		saveErr = s.retry(ctx, func() error { return s.save(ctx, m) })
		return nil
	})
	g.Go(func() error {
		restartErr = s.retry(ctx, func() error { return s.restart(ctx, m) })
		return nil
	})
	_ = g.Wait()
	return errors.Join(saveErr, restartErr)
}

func (s *Subscriber) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.effects.Retries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (s *Subscriber) save(ctx context.Context, m *message.Message) error {
	if err := wait(ctx, s.faults.delay(s.effects.EffectDelay)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, m, err)
	}
	if s.faults.fail() {
		return fmt.Errorf("%w: could not save %s", ErrSaveFailed, m)
	}
	if s.store != nil {
		rec := journal.Record{
			MessageID:  m.ID(),
			Sequence:   m.Sequence(),
			Event:      m.Event().Name(),
			Priority:   m.Priority(),
			Subscriber: s.name,
			Value:      m.Value(),
			CreatedAt:  m.CreatedAt(),
			SavedAt:    time.Now(),
		}
		if err := s.store.Save(ctx, rec); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrSaveFailed, m, err)
		}
	}
	m.MarkSaved()
	s.logger.Debug().Str("message", m.String()).Msg("saved")
	return nil
}

func (s *Subscriber) restart(ctx context.Context, m *message.Message) error {
	if err := wait(ctx, s.faults.delay(s.effects.EffectDelay)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRestartFailed, m, err)
	}
	if s.faults.fail() {
		return fmt.Errorf("%w: could not restart for %s", ErrRestartFailed, m)
	}
	m.MarkRestarted()
	s.logger.Debug().Str("message", m.String()).Msg("restarted")
	return nil
}
