// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package message

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/fsm"
)

// Roster yields the subscribers that must acknowledge a broadcast message of kind.
type Roster interface {
	Acknowledgers(kind event.Kind) []string
}

// Factory creates messages with unique identity and a monotonic sequence.
type Factory struct {
	catalogue *event.Catalogue
	roster    Roster
	clock     func() time.Time
	seq       atomic.Uint64
}

// Option configures a Factory.
type Option func(*Factory)

// WithRoster sets the acknowledger source for broadcast messages.
func WithRoster(r Roster) Option {
	return func(f *Factory) { f.roster = r }
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(f *Factory) { f.clock = clock }
}

func NewFactory(catalogue *event.Catalogue, opts ...Option) *Factory {
	if catalogue == nil {
		catalogue = event.Default()
	}
	f := &Factory{catalogue: catalogue, clock: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Catalogue returns the event table used to resolve kinds.
func (f *Factory) Catalogue() *event.Catalogue { return f.catalogue }

// New builds an arbitration-path message.
func (f *Factory) New(kind event.Kind, value any) (*Message, error) {
	return f.build(kind, value, Arbitration, nil)
}

// NewBroadcast builds a broadcast-path message whose acknowledgement set is
// the roster at this instant. Later registrants are never awaited.
func (f *Factory) NewBroadcast(kind event.Kind, value any) (*Message, error) {
	if f.roster == nil {
		return nil, fmt.Errorf("message factory: no roster for broadcast messages")
	}
	names := f.roster.Acknowledgers(kind)
	acks := make(map[string]bool, len(names))
	for _, n := range names {
		acks[n] = false
	}
	return f.build(kind, value, Broadcast, acks)
}

func (f *Factory) build(kind event.Kind, value any, d Discipline, acks map[string]bool) (*Message, error) {
	info, ok := f.catalogue.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %d", event.ErrUnknownKind, int(kind))
	}
	return &Message{
		id:         uuid.NewString(),
		seq:        f.seq.Add(1),
		info:       info,
		value:      value,
		createdAt:  f.clock(),
		discipline: d,
		clock:      f.clock,
		action:     fsm.NewFromTable(ActionInit, actionTable),
		acks:       acks,
	}, nil
}
