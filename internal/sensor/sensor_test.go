// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sensor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/nerve/internal/event"
)

type recorder struct {
	mu    sync.Mutex
	kinds []event.Kind
	vals  []any
}

func (r *recorder) Emit(_ context.Context, kind event.Kind, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	r.vals = append(r.vals, value)
	return nil
}

func (r *recorder) Kinds() []event.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Kind(nil), r.kinds...)
}

func TestThrottle_DropsBeyondBurst(t *testing.T) {
	rec := &recorder{}
	th := NewThrottle("test", 0.001, 2, rec)
	ctx := context.Background()

	require.NoError(t, th.Emit(ctx, event.Button, nil))
	require.NoError(t, th.Emit(ctx, event.Button, nil))
	assert.ErrorIs(t, th.Emit(ctx, event.Button, nil), ErrThrottled)
	assert.Len(t, rec.Kinds(), 2)
}

func TestDebouncer_SuppressesRepeatsWithinWindow(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer("test", 50*time.Millisecond, rec)
	ctx := context.Background()

	require.NoError(t, d.Emit(ctx, event.BumperPort, nil))
	assert.ErrorIs(t, d.Emit(ctx, event.BumperPort, nil), ErrDebounced)
	require.NoError(t, d.Emit(ctx, event.BumperStbd, nil), "other kinds are independent")

	time.Sleep(80 * time.Millisecond)
	require.NoError(t, d.Emit(ctx, event.BumperPort, nil))
	assert.Equal(t, []event.Kind{event.BumperPort, event.BumperStbd, event.BumperPort}, rec.Kinds())
}

func TestDebouncer_ZeroWindowPassesEverything(t *testing.T) {
	rec := &recorder{}
	d := NewDebouncer("test", 0, rec)
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Emit(context.Background(), event.Stop, nil))
	}
	assert.Len(t, rec.Kinds(), 3)
}

func TestClock_TockEveryModuloBeat(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &recorder{}
	c := NewClock(2*time.Millisecond, 3, rec)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.Kinds()) >= 6 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	kinds := rec.Kinds()
	for i, k := range kinds[:6] {
		want := event.ClockTick
		if (i+1)%3 == 0 {
			want = event.ClockTock
		}
		assert.Equal(t, want, k, "beat %d", i+1)
	}
	rec.mu.Lock()
	assert.Equal(t, uint64(1), rec.vals[0])
	rec.mu.Unlock()
}

func TestRandomPublisher_DrawsFromKnownSet(t *testing.T) {
	p := NewRandomPublisher("random", time.Millisecond, 42, &recorder{})
	allowed := make(map[event.Kind]bool, len(RandomKinds))
	for _, k := range RandomKinds {
		allowed[k] = true
	}
	for i := 0; i < 200; i++ {
		assert.True(t, allowed[p.Next()])
	}
}

func TestRandomPublisher_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &recorder{}
	p := NewRandomPublisher("random", 2*time.Millisecond, 7, SinkFunc(rec.Emit))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.Kinds()) >= 5 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i, k := range rec.kinds {
		info, ok := event.Default().Lookup(k)
		require.True(t, ok)
		assert.Equal(t, info.Description, rec.vals[i])
	}
}
