// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package event holds the static event taxonomy: every event kind with its
// priority rank (lower is more urgent) and ballistic flag.
package event

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownKind is returned when a name or id does not match any catalogued event.
	ErrUnknownKind = errors.New("unknown event kind")

	// ErrInvalidCatalogue classifies malformed priority/ballistic tables.
	ErrInvalidCatalogue = errors.New("invalid event catalogue")
)

// Info is the immutable description of one event kind.
type Info struct {
	Kind        Kind
	Description string
	Priority    int
	Ballistic   bool
}

// Name returns the symbolic name of the event.
func (i Info) Name() string { return i.Kind.String() }

// Ignorable reports whether the event is background noise (priority >= 500).
func (i Info) Ignorable() bool { return i.Priority >= IgnorablePriority }

// Override replaces the priority and/or ballistic flag of one catalogued kind.
type Override struct {
	Priority  *int
	Ballistic *bool
}

var defaults = []Info{
	{Noop, "no operation", 0, false},
	{BatteryLow, "battery low", 0, true},
	{Shutdown, "shutdown", 1, true},
	{HighTemperature, "high temperature", 1, false},
	{Stop, "stop", 2, true},
	{Halt, "halt", 3, false},
	{Brake, "brake", 4, false},
	{Button, "button", 5, false},
	{Standby, "standby", 6, false},
	{BumperPort, "bumper port", 10, true},
	{BumperCntr, "bumper center", 10, true},
	{BumperStbd, "bumper starboard", 10, true},
	{InfraredPortSide, "infrared port side", 20, true},
	{InfraredPort, "infrared port", 20, true},
	{InfraredCntr, "infrared cntr", 20, true},
	{InfraredStbd, "infrared stbd", 20, true},
	{InfraredStbdSide, "infrared stbd side", 20, true},
	{EmergencyAstern, "emergency astern", 15, true},
	{FullAhead, "full ahead", 100, false},
	{HalfAhead, "half ahead", 100, false},
	{SlowAhead, "slow ahead", 100, false},
	{DeadSlowAhead, "dead slow ahead", 100, false},
	{Ahead, "ahead", 100, false},
	{Astern, "astern", 100, false},
	{DeadSlowAstern, "dead slow astern", 100, false},
	{SlowAstern, "slow astern", 100, false},
	{HalfAstern, "half astern", 100, false},
	{FullAstern, "full astern", 100, false},
	{IncreaseSpeed, "increase speed", 100, false},
	{Even, "even", 100, false},
	{DecreaseSpeed, "decrease speed", 100, false},
	{TurnAheadPort, "turn ahead port", 100, false},
	{TurnToPort, "turn to port", 100, false},
	{TurnAsternPort, "turn astern port", 100, false},
	{SpinPort, "spin port", 100, false},
	{SpinStbd, "spin starboard", 100, false},
	{TurnAsternStbd, "turn astern starboard", 100, false},
	{TurnToStbd, "turn to starboard", 100, false},
	{TurnAheadStbd, "turn ahead starboard", 100, false},
	{Roam, "roam", 100, false},
	{Sniff, "A: sniff", 100, true},
	{Video, "L1: video", 150, false},
	{EventL2, "L2", 150, false},
	{EventR1, "R1: cruise", 150, false},
	{Lights, "R2: lights", 150, false},
	{ForwardVelocity, "forward velocity", 200, false},
	{Theta, "theta", 200, false},
	{PortVelocity, "port velocity", 200, false},
	{PortTheta, "port theta", 200, false},
	{StbdVelocity, "starboard velocity", 200, false},
	{StbdTheta, "starboard theta", 200, false},
	{NoAction, "no action", 500, false},
	{ClockTick, "tick", 500, false},
	{ClockTock, "tock", 500, false},
}

// Catalogue maps every Kind to its Info. It is immutable after construction
// and safe for concurrent reads.
type Catalogue struct {
	infos map[Kind]Info
}

var defaultCatalogue = mustBuild(nil)

// Default returns the built-in catalogue.
func Default() *Catalogue { return defaultCatalogue }

func mustBuild(overrides map[string]Override) *Catalogue {
	c, err := NewCatalogue(overrides)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalogue builds a catalogue from the built-in table plus per-name overrides.
// Unknown names and negative priorities fail with ErrInvalidCatalogue.
func NewCatalogue(overrides map[string]Override) (*Catalogue, error) {
	infos := make(map[Kind]Info, len(defaults))
	for _, info := range defaults {
		if _, dup := infos[info.Kind]; dup {
			return nil, fmt.Errorf("%w: duplicate kind %s", ErrInvalidCatalogue, info.Kind)
		}
		infos[info.Kind] = info
	}
	if len(infos) != len(names) {
		return nil, fmt.Errorf("%w: %d kinds named but %d described", ErrInvalidCatalogue, len(names), len(infos))
	}

	var problems []string
	for name, ov := range overrides {
		k, err := Parse(name)
		if err != nil {
			problems = append(problems, fmt.Sprintf("unknown event %q", name))
			continue
		}
		info := infos[k]
		if ov.Priority != nil {
			if *ov.Priority < 0 {
				problems = append(problems, fmt.Sprintf("event %s: negative priority %d", k, *ov.Priority))
				continue
			}
			info.Priority = *ov.Priority
		}
		if ov.Ballistic != nil {
			info.Ballistic = *ov.Ballistic
		}
		infos[k] = info
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, fmt.Errorf("%w: %s", ErrInvalidCatalogue, strings.Join(problems, "; "))
	}
	return &Catalogue{infos: infos}, nil
}

// Lookup returns the Info for k.
func (c *Catalogue) Lookup(k Kind) (Info, bool) {
	info, ok := c.infos[k]
	return info, ok
}

// Info returns the Info for k or an ErrUnknownKind error.
func (c *Catalogue) Info(k Kind) (Info, error) {
	info, ok := c.infos[k]
	if !ok {
		return Info{}, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return info, nil
}

// All returns every catalogued Info ordered by priority then kind.
func (c *Catalogue) All() []Info {
	out := make([]Info, 0, len(c.infos))
	for _, info := range c.infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Kinds returns every catalogued kind in ascending id order.
func (c *Catalogue) Kinds() []Kind {
	out := make([]Kind, 0, len(c.infos))
	for k := range c.infos {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of catalogued kinds.
func (c *Catalogue) Len() int { return len(c.infos) }
