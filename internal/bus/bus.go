// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus implements the broadcast path: one shared queue and a set of
// subscribers that re-queue each message until every registered interested
// subscriber has acknowledged it, after which the garbage collector reclaims it.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/log"
	"github.com/ManuGH/nerve/internal/message"
	"github.com/ManuGH/nerve/internal/metrics"
)

// Mailbox is the queue contract subscribers work against.
type Mailbox interface {
	// Publish admits a new message; it never blocks and fails with ErrBusFull.
	Publish(ctx context.Context, m *message.Message) error
	// Republish returns an admitted message to the queue. It never blocks.
	Republish(m *message.Message)
	// Consume waits for the next message.
	Consume(ctx context.Context) (*message.Message, error)
	// Collect asks the garbage collector to terminate circulation of m.
	Collect(m *message.Message) bool
}

// Consumer is anything the bus runs a loop for.
type Consumer interface {
	Name() string
	Accepts(kind event.Kind) bool
	Consume(ctx context.Context, m *message.Message) error
}

// Config controls the bus.
type Config struct {
	// Capacity bounds admitted, not yet collected messages.
	Capacity int
	// MaxAge is when the garbage collector reclaims unacknowledged messages.
	MaxAge time.Duration
	// GCName names the built-in garbage collector.
	GCName string
}

func DefaultConfig() Config {
	return Config{Capacity: 256, MaxAge: 3 * time.Second, GCName: "garbage-collector"}
}

type registration struct {
	consumer Consumer
	cancel   context.CancelFunc
}

// MemoryBus is the in-process Mailbox. Requeues are unbounded so a subscriber
// never blocks handing a message back; Publish enforces Capacity on the total
// number of live messages instead.
type MemoryBus struct {
	cfg    Config
	gc     *GarbageCollector
	logger zerolog.Logger
	warn   *rate.Limiter

	mu       sync.Mutex
	queue    []*message.Message
	live     int
	subs     map[string]*registration
	running  bool
	stopped  bool
	runCtx   context.Context
	group    *errgroup.Group
	notifyCh chan struct{}
}

var _ Mailbox = (*MemoryBus)(nil)

// New creates a bus with its garbage collector already registered.
func New(cfg Config) *MemoryBus {
	def := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}
	if cfg.GCName == "" {
		cfg.GCName = def.GCName
	}
	b := &MemoryBus{
		cfg:      cfg,
		logger:   log.WithComponent("bus"),
		warn:     rate.NewLimiter(rate.Every(time.Second), 1),
		subs:     make(map[string]*registration),
		notifyCh: make(chan struct{}, 1),
	}
	b.gc = newGarbageCollector(cfg.GCName, cfg.MaxAge, b)
	b.subs[b.gc.Name()] = &registration{consumer: b.gc}
	return b
}

// GarbageCollector returns the built-in collector.
func (b *MemoryBus) GarbageCollector() *GarbageCollector { return b.gc }

// MaxAge returns the age after which messages are reclaimed regardless of acknowledgement.
func (b *MemoryBus) MaxAge() time.Duration { return b.cfg.MaxAge }

func (b *MemoryBus) Publish(ctx context.Context, m *message.Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish %s: %w", m, err)
	}
	if m.Discipline() != message.Broadcast {
		return fmt.Errorf("publish %s: %w", m, ErrWrongDiscipline)
	}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		metrics.IncBusDrop("stopped")
		return ErrStopped
	}
	if b.live >= b.cfg.Capacity {
		live := b.live
		b.mu.Unlock()
		metrics.IncBusDrop("full")
		metrics.IncQueueRejected("broadcast")
		if b.warn.Allow() {
			b.logger.Warn().Int("live", live).Int("capacity", b.cfg.Capacity).Str(log.FieldKind, m.Event().Name()).Msg("bus full, dropping message")
		}
		return ErrBusFull
	}
	b.live++
	b.queue = append(b.queue, m)
	depth := len(b.queue)
	b.mu.Unlock()

	b.signal()
	metrics.BusPublishedTotal.Inc()
	metrics.BusInFlight.Inc()
	metrics.QueueDepth.WithLabelValues("broadcast").Set(float64(depth))
	b.logger.Debug().Str(log.FieldMessageID, m.ID()).Str(log.FieldKind, m.Event().Name()).Strs("acknowledgers", m.Pending()).Msg("published")
	return nil
}

func (b *MemoryBus) Republish(m *message.Message) {
	m.MarkRepublished()
	b.mu.Lock()
	b.queue = append(b.queue, m)
	depth := len(b.queue)
	b.mu.Unlock()

	b.signal()
	metrics.BusRepublishedTotal.Inc()
	metrics.QueueDepth.WithLabelValues("broadcast").Set(float64(depth))
}

func (b *MemoryBus) Consume(ctx context.Context) (*message.Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.mu.Lock()
		if len(b.queue) > 0 {
			m := b.queue[0]
			b.queue[0] = nil
			b.queue = b.queue[1:]
			more := len(b.queue) > 0
			b.mu.Unlock()
			if more {
				// Pass the wakeup on so other waiting consumers see the rest.
				b.signal()
			}
			return m, nil
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-b.notifyCh:
		}
	}
}

func (b *MemoryBus) signal() {
	select {
	case b.notifyCh <- struct{}{}:
	default:
	}
}

// Collect delegates to the garbage collector. True means circulation is over.
func (b *MemoryBus) Collect(m *message.Message) bool {
	done, fresh := b.gc.collect(m)
	if fresh {
		b.mu.Lock()
		b.live--
		b.mu.Unlock()
		metrics.BusInFlight.Dec()
	}
	return done
}

// Acknowledgers is the roster snapshot for a new message of kind: every
// registered consumer whose filter accepts kind, sorted by name.
func (b *MemoryBus) Acknowledgers(kind event.Kind) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.subs))
	for name, reg := range b.subs {
		if reg.consumer.Accepts(kind) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Register adds c. Only messages created afterwards await its acknowledgement.
func (b *MemoryBus) Register(c Consumer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return ErrStopped
	}
	if _, ok := b.subs[c.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSubscriber, c.Name())
	}
	reg := &registration{consumer: c}
	b.subs[c.Name()] = reg
	if b.running {
		b.startLocked(reg)
	}
	b.logger.Info().Str(log.FieldSubscriber, c.Name()).Msg("subscriber registered")
	return nil
}

// Unregister stops c's loop. Messages already created still list it and are
// reclaimed by age.
func (b *MemoryBus) Unregister(name string) error {
	if name == b.gc.Name() {
		return ErrProtectedSubscriber
	}
	b.mu.Lock()
	reg, ok := b.subs[name]
	if ok {
		delete(b.subs, name)
	}
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSubscriber, name)
	}
	if reg.cancel != nil {
		reg.cancel()
	}
	b.logger.Info().Str(log.FieldSubscriber, name).Msg("subscriber unregistered")
	return nil
}

// Subscribers lists registered names, sorted.
func (b *MemoryBus) Subscribers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.subs))
	for name := range b.subs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *MemoryBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// QueueSize is the number of messages waiting in the queue.
func (b *MemoryBus) QueueSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// InFlight is the number of admitted, not yet collected messages.
func (b *MemoryBus) InFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live
}

// Run starts one loop per registered consumer and blocks until ctx is
// cancelled. Messages still circulating at that point are abandoned.
func (b *MemoryBus) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.running || b.stopped {
		b.mu.Unlock()
		return errors.New("bus: already started")
	}
	b.running = true
	b.runCtx = ctx
	b.group = &errgroup.Group{}
	for _, reg := range b.subs {
		b.startLocked(reg)
	}
	b.mu.Unlock()

	b.logger.Info().Int("capacity", b.cfg.Capacity).Dur("max_age", b.cfg.MaxAge).Msg("bus running")
	<-ctx.Done()

	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()

	err := b.group.Wait()

	b.mu.Lock()
	queued, live := len(b.queue), b.live
	b.mu.Unlock()
	b.logger.Info().Int("queued", queued).Int("abandoned", live).Msg("bus stopped")
	return err
}

func (b *MemoryBus) startLocked(reg *registration) {
	loopCtx, cancel := context.WithCancel(b.runCtx)
	reg.cancel = cancel
	runCtx := b.runCtx
	c := reg.consumer
	b.group.Go(func() error {
		defer cancel()
		return b.loop(loopCtx, runCtx, c)
	})
}

// loop waits on loopCtx, which unregistering cancels, and handles each
// message under runCtx so an unregistered consumer finishes what it holds.
// Once runCtx ends the message in hand is abandoned, not handed back.
func (b *MemoryBus) loop(loopCtx, runCtx context.Context, c Consumer) error {
	logger := b.logger.With().Str(log.FieldSubscriber, c.Name()).Logger()
	logger.Debug().Msg("consumer loop started")
	for {
		m, err := b.Consume(loopCtx)
		if err != nil {
			logger.Debug().Msg("consumer loop stopped")
			return nil
		}
		if runCtx.Err() != nil {
			logger.Debug().Str(log.FieldMessageID, m.ID()).Msg("abandoning message on shutdown")
			return nil
		}
		if err := c.Consume(runCtx, m); err != nil {
			if runCtx.Err() != nil {
				logger.Debug().Str(log.FieldMessageID, m.ID()).Msg("abandoning message on shutdown")
				return nil
			}
			if errors.Is(err, ErrConsumedAfterCollection) {
				logger.Error().Err(err).Str(log.FieldEvent, "invariant.consumed_after_collection").Str(log.FieldMessageID, m.ID()).Msg("protocol violation")
				continue
			}
			logger.Error().Err(err).Str(log.FieldMessageID, m.ID()).Msg("consume failed")
		}
	}
}
