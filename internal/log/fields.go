// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldMessageID  = "message_id"
	FieldSequence   = "sequence"
	FieldSubscriber = "subscriber"
	FieldRequestID  = "request_id"

	// Arbitration fields
	FieldEvent     = "event"
	FieldKind      = "kind"
	FieldPriority  = "priority"
	FieldBallistic = "ballistic"
	FieldCycle     = "cycle"
	FieldComponent = "component"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Actuation fields
	FieldPortPower = "port_power"
	FieldStbdPower = "stbd_power"
)
