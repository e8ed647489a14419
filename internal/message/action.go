// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package message

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/nerve/internal/fsm"
)

// ActionState is the arbitration-path lifecycle of a message.
type ActionState string

const (
	ActionInit      ActionState = "INIT"
	ActionStarted   ActionState = "STARTED"
	ActionCompleted ActionState = "COMPLETED"
	ActionClosed    ActionState = "CLOSED"
)

// ActionEvent drives ActionState transitions.
type ActionEvent string

const (
	EventStart     ActionEvent = "start"
	EventComplete  ActionEvent = "complete"
	EventInterrupt ActionEvent = "interrupt"
)

// ErrIllegalTransition is returned for an action event not allowed from the current state.
var ErrIllegalTransition = errors.New("illegal action transition")

var actionTable = fsm.MustTable([]fsm.Transition[ActionState, ActionEvent]{
	{From: ActionInit, Event: EventStart, To: ActionStarted},
	{From: ActionStarted, Event: EventComplete, To: ActionCompleted},

	// Interrupt closes from anywhere, including an already closed message.
	{From: ActionInit, Event: EventInterrupt, To: ActionClosed},
	{From: ActionStarted, Event: EventInterrupt, To: ActionClosed},
	{From: ActionCompleted, Event: EventInterrupt, To: ActionClosed},
	{From: ActionClosed, Event: EventInterrupt, To: ActionClosed},
})

func (m *Message) fire(evt ActionEvent) error {
	if _, err := m.action.Fire(context.Background(), evt); err != nil {
		if errors.Is(err, fsm.ErrInvalidTransition) {
			return fmt.Errorf("%w: message %d %s: %v", ErrIllegalTransition, m.seq, m.info.Name(), err)
		}
		return err
	}
	return nil
}

// Start marks the action as dispatched to the controller.
func (m *Message) Start() error { return m.fire(EventStart) }

// Complete marks a started action as finished.
func (m *Message) Complete() error { return m.fire(EventComplete) }

// Interrupt closes the action regardless of its progress.
func (m *Message) Interrupt() {
	// Every state has an interrupt edge.
	_ = m.fire(EventInterrupt)
}

// State returns the current action state.
func (m *Message) State() ActionState { return m.action.State() }

// Started reports whether the action has left INIT.
func (m *Message) Started() bool { return m.State() != ActionInit }

// Completed reports whether the controller reported completion.
func (m *Message) Completed() bool { return m.State() == ActionCompleted }

// Done reports whether the action is finished, either completed or closed.
func (m *Message) Done() bool {
	s := m.State()
	return s == ActionCompleted || s == ActionClosed
}
