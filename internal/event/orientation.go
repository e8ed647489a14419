// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

// Orientation names a side of the robot.
type Orientation int

const (
	OrientationNone Orientation = iota
	OrientationBoth
	OrientationPort
	OrientationCntr
	OrientationStbd
	OrientationPortSide // infrared only
	OrientationStbdSide // infrared only
)

// String returns the short label for the orientation.
func (o Orientation) String() string {
	switch o {
	case OrientationBoth:
		return "both"
	case OrientationPort:
		return "port"
	case OrientationCntr:
		return "cntr"
	case OrientationStbd:
		return "stbd"
	case OrientationPortSide:
		return "psid"
	case OrientationStbdSide:
		return "ssid"
	default:
		return "none"
	}
}
