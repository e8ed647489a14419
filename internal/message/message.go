// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package message models one occurrence of an event as it travels through
// either the arbitration path or the broadcast path.
package message

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/fsm"
)

// Discipline names the consumption path a message belongs to.
type Discipline string

const (
	Arbitration Discipline = "arbitration"
	Broadcast   Discipline = "broadcast"
)

// Delivery is the broadcast-path lifecycle, derived from the message flags.
type Delivery string

const (
	DeliveryPublished         Delivery = "PUBLISHED"
	DeliveryCirculating       Delivery = "CIRCULATING"
	DeliveryFullyAcknowledged Delivery = "FULLY_ACKNOWLEDGED"
	DeliveryExpired           Delivery = "EXPIRED"
	DeliveryCollected         Delivery = "COLLECTED"
)

// Message is a single event occurrence. Identity fields are immutable;
// broadcast-path flags are guarded by mu since subscriber loops run in
// parallel.
type Message struct {
	id         string
	seq        uint64
	info       event.Info
	value      any
	createdAt  time.Time
	discipline Discipline
	clock      func() time.Time

	action *fsm.Machine[ActionState, ActionEvent]

	mu          sync.Mutex
	acks        map[string]bool
	processed   int
	republished int
	saved       bool
	restarted   bool
	expired     bool
	collected   bool
}

func (m *Message) ID() string             { return m.id }
func (m *Message) Sequence() uint64       { return m.seq }
func (m *Message) Event() event.Info      { return m.info }
func (m *Message) Kind() event.Kind       { return m.info.Kind }
func (m *Message) Priority() int          { return m.info.Priority }
func (m *Message) Ballistic() bool        { return m.info.Ballistic }
func (m *Message) Value() any             { return m.value }
func (m *Message) CreatedAt() time.Time   { return m.createdAt }
func (m *Message) Discipline() Discipline { return m.discipline }

// Age is the time elapsed since creation.
func (m *Message) Age() time.Duration {
	return m.clock().Sub(m.createdAt)
}

// AgedOut reports whether the message is older than maxAge.
func (m *Message) AgedOut(maxAge time.Duration) bool {
	return m.Age() > maxAge
}

// Requires reports whether name is one of the message's required acknowledgers.
func (m *Message) Requires(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.acks[name]
	return ok
}

// AcknowledgedBy reports whether name has already acknowledged.
func (m *Message) AcknowledgedBy(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acks[name]
}

// Acknowledge records name's acknowledgement. It returns true only for the
// call that flips the flag; repeated or unknown acknowledgers return false.
func (m *Message) Acknowledge(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	acked, ok := m.acks[name]
	if !ok || acked {
		return false
	}
	m.acks[name] = true
	return true
}

// FullyAcknowledged reports whether every required acknowledger has acknowledged.
// Arbitration messages have no acknowledgers and are never fully acknowledged.
func (m *Message) FullyAcknowledged() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fullyAcknowledgedLocked()
}

func (m *Message) fullyAcknowledgedLocked() bool {
	if len(m.acks) == 0 {
		return false
	}
	for _, acked := range m.acks {
		if !acked {
			return false
		}
	}
	return true
}

// Acknowledgements returns the names that have acknowledged, sorted.
func (m *Message) Acknowledgements() []string {
	return m.names(true)
}

// Pending returns the names still expected to acknowledge, sorted.
func (m *Message) Pending() []string {
	return m.names(false)
}

func (m *Message) names(acked bool) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.acks))
	for name, v := range m.acks {
		if v == acked {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Process records one pass of periodic processing.
func (m *Message) Process() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *Message) Processed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed
}

// MarkRepublished counts one trip back into the broadcast queue.
func (m *Message) MarkRepublished() {
	m.mu.Lock()
	m.republished++
	m.mu.Unlock()
}

func (m *Message) Republished() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.republished
}

func (m *Message) MarkSaved() {
	m.mu.Lock()
	m.saved = true
	m.mu.Unlock()
}

func (m *Message) Saved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}

func (m *Message) MarkRestarted() {
	m.mu.Lock()
	m.restarted = true
	m.mu.Unlock()
}

func (m *Message) Restarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restarted
}

// MarkExpired records that a subscriber finished cleaning up after processing.
func (m *Message) MarkExpired() {
	m.mu.Lock()
	m.expired = true
	m.mu.Unlock()
}

func (m *Message) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expired
}

// MarkCollected terminates circulation. It returns false if the message was
// already collected.
func (m *Message) MarkCollected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collected {
		return false
	}
	m.collected = true
	return true
}

func (m *Message) Collected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collected
}

// Delivery reports the broadcast-path state relative to maxAge.
func (m *Message) Delivery(maxAge time.Duration) Delivery {
	m.mu.Lock()
	collected, full, republished := m.collected, m.fullyAcknowledgedLocked(), m.republished
	m.mu.Unlock()

	switch {
	case collected:
		return DeliveryCollected
	case full:
		return DeliveryFullyAcknowledged
	case m.AgedOut(maxAge):
		return DeliveryExpired
	case republished > 0:
		return DeliveryCirculating
	default:
		return DeliveryPublished
	}
}

func (m *Message) String() string {
	return fmt.Sprintf("msg#%d(%s)", m.seq, m.info.Name())
}
