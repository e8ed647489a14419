// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package core wires the arbitration path and the broadcast path behind the
// calls drivers and operators make: publish, register, unregister and
// current action.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ManuGH/nerve/internal/arbitrator"
	"github.com/ManuGH/nerve/internal/bus"
	"github.com/ManuGH/nerve/internal/controller"
	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/journal"
	"github.com/ManuGH/nerve/internal/log"
	"github.com/ManuGH/nerve/internal/message"
	"github.com/ManuGH/nerve/internal/motor"
	"github.com/ManuGH/nerve/internal/queue"
)

// Config gathers the settings of every component the core owns.
type Config struct {
	Catalogue     *event.Catalogue
	QueueCapacity int
	Arbitrator    arbitrator.Config
	Controller    controller.Config
	Bus           bus.Config
	Effects       bus.EffectConfig
}

// Deps are the collaborators supplied by the caller.
type Deps struct {
	Motors motor.Motors
	// Store journals subscriber saves; nil means no journal.
	Store journal.Store
	// ControllerOptions are passed to controller.New.
	ControllerOptions []controller.Option
}

// Core is the facade over queue, arbitrator, controller and bus.
type Core struct {
	catalogue *event.Catalogue
	factory   *message.Factory
	queue     *queue.PriorityQueue
	arb       *arbitrator.Arbitrator
	ctrl      *controller.Controller
	bus       *bus.MemoryBus
	motors    motor.Motors
	store     journal.Store
	effects   bus.EffectConfig
	logger    zerolog.Logger
	warn      *rate.Limiter
}

func New(cfg Config, deps Deps) (*Core, error) {
	if deps.Motors == nil {
		return nil, errors.New("core: motors are required")
	}
	if cfg.Catalogue == nil {
		cfg.Catalogue = event.Default()
	}
	if cfg.Effects == (bus.EffectConfig{}) {
		cfg.Effects = bus.DefaultEffectConfig()
	}

	q := queue.New(cfg.QueueCapacity)
	ctrl := controller.New(cfg.Controller, deps.Motors, deps.ControllerOptions...)
	b := bus.New(cfg.Bus)
	c := &Core{
		catalogue: cfg.Catalogue,
		factory:   message.NewFactory(cfg.Catalogue, message.WithRoster(b)),
		queue:     q,
		arb:       arbitrator.New(cfg.Arbitrator, q, ctrl, deps.Motors),
		ctrl:      ctrl,
		bus:       b,
		motors:    deps.Motors,
		store:     deps.Store,
		effects:   cfg.Effects,
		logger:    log.WithComponent("core"),
		warn:      rate.NewLimiter(rate.Every(time.Second), 1),
	}
	return c, nil
}

// Run drives the arbitrator and the bus until ctx is cancelled.
func (c *Core) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.arb.Run(gctx) })
	g.Go(func() error { return c.bus.Run(gctx) })
	err := g.Wait()
	if herr := c.motors.Halt(context.Background()); herr != nil {
		c.logger.Warn().Err(herr).Msg("halt on shutdown failed")
	}
	return err
}

// Publish queues an arbitration-path message. It never blocks; a full queue
// is reported as queue.ErrQueueFull and the event is dropped.
func (c *Core) Publish(ctx context.Context, kind event.Kind, value any) (*message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := c.factory.New(kind, value)
	if err != nil {
		c.logger.Error().Err(err).Int("kind", int(kind)).Msg("unrecognised event")
		return nil, err
	}
	if err := c.queue.Push(m); err != nil {
		if c.warn.Allow() {
			c.logger.Warn().Err(err).Str(log.FieldKind, m.Event().Name()).Int("size", c.queue.Size()).Msg("queue full, dropping event")
		}
		return nil, fmt.Errorf("publish %s: %w", m, err)
	}
	c.logger.Debug().Str(log.FieldMessageID, m.ID()).Str(log.FieldKind, m.Event().Name()).Int(log.FieldPriority, m.Priority()).Msg("published")
	return m, nil
}

// Broadcast publishes a message on the broadcast path. Its acknowledgement
// set is fixed to the subscribers registered right now.
func (c *Core) Broadcast(ctx context.Context, kind event.Kind, value any) (*message.Message, error) {
	m, err := c.factory.NewBroadcast(kind, value)
	if err != nil {
		return nil, err
	}
	if err := c.bus.Publish(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ArbitrationSink adapts Publish for drivers that only report errors.
func (c *Core) ArbitrationSink(ctx context.Context, kind event.Kind, value any) error {
	_, err := c.Publish(ctx, kind, value)
	return err
}

// BroadcastSink adapts Broadcast for drivers that only report errors.
func (c *Core) BroadcastSink(ctx context.Context, kind event.Kind, value any) error {
	_, err := c.Broadcast(ctx, kind, value)
	return err
}

// RegisterSubscriber creates and registers a journalled subscriber for kinds.
func (c *Core) RegisterSubscriber(name string, kinds []event.Kind, opts ...bus.SubscriberOption) (*bus.Subscriber, error) {
	if name == "" {
		return nil, errors.New("core: subscriber name is required")
	}
	base := []bus.SubscriberOption{bus.WithEffects(c.effects)}
	if c.store != nil {
		base = append(base, bus.WithStore(c.store))
	}
	s := bus.NewSubscriber(name, kinds, c.bus, append(base, opts...)...)
	if err := c.bus.Register(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Register adds any bus consumer.
func (c *Core) Register(consumer bus.Consumer) error { return c.bus.Register(consumer) }

// Unregister removes a subscriber; messages already published still list it
// and are reclaimed by age.
func (c *Core) Unregister(name string) error { return c.bus.Unregister(name) }

// CurrentAction returns the message the arbitrator last dispatched, or nil.
func (c *Core) CurrentAction() *message.Message { return c.arb.Current() }

func (c *Core) Catalogue() *event.Catalogue { return c.catalogue }

func (c *Core) Arbitrator() *arbitrator.Arbitrator { return c.arb }

func (c *Core) Controller() *controller.Controller { return c.ctrl }

func (c *Core) Bus() *bus.MemoryBus { return c.bus }

// Journal returns the save-effect store, which may be nil.
func (c *Core) Journal() journal.Store { return c.store }
