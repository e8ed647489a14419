// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import (
	"fmt"
	"strings"
)

// Kind identifies a statically enumerated event. The numeric values are
// stable identifiers and are grouped by band.
type Kind int

const (
	// system
	Noop            Kind = 0
	BatteryLow      Kind = 1
	Shutdown        Kind = 2
	HighTemperature Kind = 3

	// stopping and halting
	Stop    Kind = 4
	Halt    Kind = 5
	Brake   Kind = 6
	Button  Kind = 7
	Standby Kind = 8

	// bumpers
	BumperPort Kind = 10
	BumperCntr Kind = 11
	BumperStbd Kind = 12

	// infrared
	InfraredPortSide Kind = 20
	InfraredPort     Kind = 21
	InfraredCntr     Kind = 22
	InfraredStbd     Kind = 23
	InfraredStbdSide Kind = 24

	// emergency movement
	EmergencyAstern Kind = 30

	// movement ahead
	FullAhead     Kind = 45
	HalfAhead     Kind = 46
	SlowAhead     Kind = 47
	DeadSlowAhead Kind = 48
	Ahead         Kind = 49

	// movement astern
	Astern         Kind = 50
	DeadSlowAstern Kind = 51
	SlowAstern     Kind = 52
	HalfAstern     Kind = 53
	FullAstern     Kind = 54

	// relative change
	IncreaseSpeed Kind = 60
	Even          Kind = 61
	DecreaseSpeed Kind = 62

	// port turns
	TurnAheadPort  Kind = 70
	TurnToPort     Kind = 71
	TurnAsternPort Kind = 72
	SpinPort       Kind = 73

	// starboard turns
	SpinStbd       Kind = 80
	TurnAsternStbd Kind = 81
	TurnToStbd     Kind = 82
	TurnAheadStbd  Kind = 83

	// high level behaviours and gamepad buttons
	Roam    Kind = 90
	Sniff   Kind = 91
	Video   Kind = 92
	EventL2 Kind = 93
	EventR1 Kind = 94
	Lights  Kind = 95

	// movement directives
	ForwardVelocity Kind = 101
	Theta           Kind = 102
	PortVelocity    Kind = 103
	PortTheta       Kind = 104
	StbdVelocity    Kind = 105
	StbdTheta       Kind = 106

	// background
	NoAction  Kind = 500
	ClockTick Kind = 501
	ClockTock Kind = 502
)

// IgnorablePriority is the priority at and above which an event is background noise.
const IgnorablePriority = 500

var names = map[Kind]string{
	Noop:             "NOOP",
	BatteryLow:       "BATTERY_LOW",
	Shutdown:         "SHUTDOWN",
	HighTemperature:  "HIGH_TEMPERATURE",
	Stop:             "STOP",
	Halt:             "HALT",
	Brake:            "BRAKE",
	Button:           "BUTTON",
	Standby:          "STANDBY",
	BumperPort:       "BUMPER_PORT",
	BumperCntr:       "BUMPER_CNTR",
	BumperStbd:       "BUMPER_STBD",
	InfraredPortSide: "INFRARED_PORT_SIDE",
	InfraredPort:     "INFRARED_PORT",
	InfraredCntr:     "INFRARED_CNTR",
	InfraredStbd:     "INFRARED_STBD",
	InfraredStbdSide: "INFRARED_STBD_SIDE",
	EmergencyAstern:  "EMERGENCY_ASTERN",
	FullAhead:        "FULL_AHEAD",
	HalfAhead:        "HALF_AHEAD",
	SlowAhead:        "SLOW_AHEAD",
	DeadSlowAhead:    "DEAD_SLOW_AHEAD",
	Ahead:            "AHEAD",
	Astern:           "ASTERN",
	DeadSlowAstern:   "DEAD_SLOW_ASTERN",
	SlowAstern:       "SLOW_ASTERN",
	HalfAstern:       "HALF_ASTERN",
	FullAstern:       "FULL_ASTERN",
	IncreaseSpeed:    "INCREASE_SPEED",
	Even:             "EVEN",
	DecreaseSpeed:    "DECREASE_SPEED",
	TurnAheadPort:    "TURN_AHEAD_PORT",
	TurnToPort:       "TURN_TO_PORT",
	TurnAsternPort:   "TURN_ASTERN_PORT",
	SpinPort:         "SPIN_PORT",
	SpinStbd:         "SPIN_STBD",
	TurnAsternStbd:   "TURN_ASTERN_STBD",
	TurnToStbd:       "TURN_TO_STBD",
	TurnAheadStbd:    "TURN_AHEAD_STBD",
	Roam:             "ROAM",
	Sniff:            "SNIFF",
	Video:            "VIDEO",
	EventL2:          "EVENT_L2",
	EventR1:          "EVENT_R1",
	Lights:           "LIGHTS",
	ForwardVelocity:  "FORWARD_VELOCITY",
	Theta:            "THETA",
	PortVelocity:     "PORT_VELOCITY",
	PortTheta:        "PORT_THETA",
	StbdVelocity:     "STBD_VELOCITY",
	StbdTheta:        "STBD_THETA",
	NoAction:         "NO_ACTION",
	ClockTick:        "CLOCK_TICK",
	ClockTock:        "CLOCK_TOCK",
}

var byName = func() map[string]Kind {
	m := make(map[string]Kind, len(names))
	for k, n := range names {
		m[n] = k
	}
	return m
}()

// String returns the symbolic name for the event kind.
func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return fmt.Sprintf("KIND(%d)", int(k))
}

// Valid reports whether k is part of the static catalogue.
func (k Kind) Valid() bool {
	_, ok := names[k]
	return ok
}

// Parse resolves a symbolic name (case-insensitive) to its Kind.
func Parse(name string) (Kind, error) {
	if k, ok := byName[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// MarshalText encodes the kind as its symbolic name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a symbolic name.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
