// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package controller

import "github.com/ManuGH/nerve/internal/event"

// Behaviour is the closed set of actions the controller can perform.
type Behaviour int

const (
	BehaviourUnhandled Behaviour = iota
	BehaviourIgnore
	BehaviourBatteryLow
	BehaviourShutdown
	BehaviourHighTemperature
	BehaviourStop
	BehaviourHalt
	BehaviourBrake
	BehaviourButton
	BehaviourStandby
	BehaviourBumper
	BehaviourAvoid
	BehaviourObserve
	BehaviourEmergencyAstern
	BehaviourMove
	BehaviourAdjustSpeed
	BehaviourTurn
	BehaviourRoutine
	BehaviourVelocity
	BehaviourTheta
)

var behaviourNames = [...]string{
	BehaviourUnhandled:       "unhandled",
	BehaviourIgnore:          "ignore",
	BehaviourBatteryLow:      "battery_low",
	BehaviourShutdown:        "shutdown",
	BehaviourHighTemperature: "high_temperature",
	BehaviourStop:            "stop",
	BehaviourHalt:            "halt",
	BehaviourBrake:           "brake",
	BehaviourButton:          "button",
	BehaviourStandby:         "standby",
	BehaviourBumper:          "bumper",
	BehaviourAvoid:           "avoid",
	BehaviourObserve:         "observe",
	BehaviourEmergencyAstern: "emergency_astern",
	BehaviourMove:            "move",
	BehaviourAdjustSpeed:     "adjust_speed",
	BehaviourTurn:            "turn",
	BehaviourRoutine:         "routine",
	BehaviourVelocity:        "velocity",
	BehaviourTheta:           "theta",
}

func (b Behaviour) String() string {
	if b < 0 || int(b) >= len(behaviourNames) {
		return "unhandled"
	}
	return behaviourNames[b]
}

// BehaviourOf maps every event kind to its behaviour. Kinds outside the
// catalogue resolve to BehaviourUnhandled.
func BehaviourOf(k event.Kind) Behaviour {
	switch k {
	case event.Noop, event.NoAction, event.ClockTick, event.ClockTock:
		return BehaviourIgnore
	case event.BatteryLow:
		return BehaviourBatteryLow
	case event.Shutdown:
		return BehaviourShutdown
	case event.HighTemperature:
		return BehaviourHighTemperature
	case event.Stop:
		return BehaviourStop
	case event.Halt:
		return BehaviourHalt
	case event.Brake:
		return BehaviourBrake
	case event.Button:
		return BehaviourButton
	case event.Standby:
		return BehaviourStandby
	case event.BumperPort, event.BumperCntr, event.BumperStbd:
		return BehaviourBumper
	case event.InfraredPort, event.InfraredCntr, event.InfraredStbd:
		return BehaviourAvoid
	case event.InfraredPortSide, event.InfraredStbdSide:
		return BehaviourObserve
	case event.EmergencyAstern:
		return BehaviourEmergencyAstern
	case event.FullAhead, event.HalfAhead, event.SlowAhead, event.DeadSlowAhead, event.Ahead,
		event.Astern, event.DeadSlowAstern, event.SlowAstern, event.HalfAstern, event.FullAstern:
		return BehaviourMove
	case event.IncreaseSpeed, event.Even, event.DecreaseSpeed:
		return BehaviourAdjustSpeed
	case event.TurnAheadPort, event.TurnToPort, event.TurnAsternPort, event.SpinPort,
		event.SpinStbd, event.TurnAsternStbd, event.TurnToStbd, event.TurnAheadStbd:
		return BehaviourTurn
	case event.Roam, event.Sniff, event.Video, event.EventL2, event.EventR1, event.Lights:
		return BehaviourRoutine
	case event.ForwardVelocity, event.PortVelocity, event.StbdVelocity:
		return BehaviourVelocity
	case event.Theta, event.PortTheta, event.StbdTheta:
		return BehaviourTheta
	default:
		return BehaviourUnhandled
	}
}

// orientationOf resolves the side a contact or proximity kind refers to.
func orientationOf(k event.Kind) event.Orientation {
	switch k {
	case event.BumperPort, event.InfraredPort, event.PortVelocity, event.PortTheta:
		return event.OrientationPort
	case event.BumperCntr, event.InfraredCntr:
		return event.OrientationCntr
	case event.BumperStbd, event.InfraredStbd, event.StbdVelocity, event.StbdTheta:
		return event.OrientationStbd
	case event.InfraredPortSide:
		return event.OrientationPortSide
	case event.InfraredStbdSide:
		return event.OrientationStbdSide
	default:
		return event.OrientationBoth
	}
}

var moveSpeeds = map[event.Kind]float64{
	event.FullAhead:      1.0,
	event.HalfAhead:      0.5,
	event.SlowAhead:      0.3,
	event.DeadSlowAhead:  0.2,
	event.Ahead:          0.5,
	event.Astern:         -0.5,
	event.DeadSlowAstern: -0.2,
	event.SlowAstern:     -0.3,
	event.HalfAstern:     -0.5,
	event.FullAstern:     -1.0,
}

// turnPowers holds the (port, stbd) power of each turn or spin.
var turnPowers = map[event.Kind][2]float64{
	event.TurnAheadPort:  {0.3, 0.5},
	event.TurnToPort:     {0, 0.5},
	event.TurnAsternPort: {-0.3, -0.5},
	event.SpinPort:       {-0.5, 0.5},
	event.SpinStbd:       {0.5, -0.5},
	event.TurnAsternStbd: {-0.5, -0.3},
	event.TurnToStbd:     {0.5, 0},
	event.TurnAheadStbd:  {0.5, 0.3},
}
