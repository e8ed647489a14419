// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package motor defines the contract of the motor/PID layer driven by the
// controller, plus a simulated implementation used by the daemon and tests.
package motor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/nerve/internal/event"
)

var (
	// ErrInterrupted is returned by a ramp cut short by Interrupt.
	ErrInterrupted = errors.New("motor: interrupted")
	// ErrDisabled is returned when commanding disabled motors.
	ErrDisabled = errors.New("motor: disabled")
)

// Named speeds as fractions of full power.
const (
	SpeedDeadSlow     = 0.2
	SpeedSlow         = 0.3
	SpeedHalf         = 0.5
	SpeedThreeQuarter = 0.75
	SpeedFull         = 1.0
)

// PowerLevels is the actuator state reported with each completion.
type PowerLevels struct {
	Port float64 `json:"port"`
	Stbd float64 `json:"stbd"`
}

func (p PowerLevels) String() string {
	return fmt.Sprintf("%+.2f/%+.2f", p.Port, p.Stbd)
}

// Motors is the motor/PID collaborator. Commands may block while power is
// ramped toward its target.
type Motors interface {
	// Command sets the velocity of one side, or both for event.OrientationBoth.
	Command(ctx context.Context, o event.Orientation, velocity float64) error
	// Drive sets both sides at once.
	Drive(ctx context.Context, port, stbd float64) error
	// Stop ramps both sides to zero.
	Stop(ctx context.Context) error
	// Halt ramps to zero faster than Stop.
	Halt(ctx context.Context) error
	// Brake cuts power immediately.
	Brake(ctx context.Context) error
	// Interrupt aborts any in-flight ramp, leaving power where it is.
	Interrupt()

	Enable()
	Disable()
	Enabled() bool

	InMotion() bool
	PowerLevels() PowerLevels
}
