// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package core

import (
	"time"

	"github.com/ManuGH/nerve/internal/message"
	"github.com/ManuGH/nerve/internal/motor"
)

// ActionStatus describes the current action.
type ActionStatus struct {
	ID        string    `json:"id"`
	Sequence  uint64    `json:"sequence"`
	Event     string    `json:"event"`
	Priority  int       `json:"priority"`
	Ballistic bool      `json:"ballistic"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Status is a point-in-time snapshot for operators.
type Status struct {
	Current     *ActionStatus     `json:"current,omitempty"`
	QueueSize   int               `json:"queue_size"`
	Arbitrating bool              `json:"arbitrating"`
	Suppressed  bool              `json:"suppressed"`
	Standby     bool              `json:"standby"`
	InMotion    bool              `json:"in_motion"`
	Power       motor.PowerLevels `json:"power"`
	Subscribers []string          `json:"subscribers"`
	BusQueued   int               `json:"bus_queued"`
	BusInFlight int               `json:"bus_in_flight"`
}

func actionStatus(m *message.Message) *ActionStatus {
	if m == nil {
		return nil
	}
	return &ActionStatus{
		ID:        m.ID(),
		Sequence:  m.Sequence(),
		Event:     m.Event().Name(),
		Priority:  m.Priority(),
		Ballistic: m.Ballistic(),
		State:     string(m.State()),
		CreatedAt: m.CreatedAt(),
	}
}

// Status collects the current snapshot.
func (c *Core) Status() Status {
	return Status{
		Current:     actionStatus(c.arb.Current()),
		QueueSize:   c.queue.Size(),
		Arbitrating: c.arb.Enabled(),
		Suppressed:  c.arb.Suppressed(),
		Standby:     c.ctrl.Standby(),
		InMotion:    c.motors.InMotion(),
		Power:       c.motors.PowerLevels(),
		Subscribers: c.bus.Subscribers(),
		BusQueued:   c.bus.QueueSize(),
		BusInFlight: c.bus.InFlight(),
	}
}
