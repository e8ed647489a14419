// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import "errors"

var (
	// ErrBusFull is returned by Publish when the bus is at capacity.
	ErrBusFull = errors.New("bus: full")
	// ErrConsumedAfterCollection is a protocol violation: a collected message was dequeued.
	ErrConsumedAfterCollection = errors.New("bus: message consumed after collection")
	// ErrSaveFailed is a transient persistence failure.
	ErrSaveFailed = errors.New("bus: save failed")
	// ErrRestartFailed is a transient restart failure.
	ErrRestartFailed = errors.New("bus: restart failed")
	// ErrDuplicateSubscriber is returned when registering a name twice.
	ErrDuplicateSubscriber = errors.New("bus: duplicate subscriber")
	// ErrUnknownSubscriber is returned when unregistering an unknown name.
	ErrUnknownSubscriber = errors.New("bus: unknown subscriber")
	// ErrProtectedSubscriber is returned when unregistering the garbage collector.
	ErrProtectedSubscriber = errors.New("bus: garbage collector cannot be unregistered")
	// ErrWrongDiscipline is returned when publishing an arbitration message.
	ErrWrongDiscipline = errors.New("bus: not a broadcast message")
	// ErrStopped is returned when the bus has shut down.
	ErrStopped = errors.New("bus: stopped")
)
