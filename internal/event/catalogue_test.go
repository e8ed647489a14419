// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogue_Bands(t *testing.T) {
	c := Default()

	tests := []struct {
		kind      Kind
		priority  int
		ballistic bool
	}{
		{Shutdown, 1, true},
		{BatteryLow, 0, true},
		{Stop, 2, true},
		{Halt, 3, false},
		{Standby, 6, false},
		{BumperPort, 10, true},
		{EmergencyAstern, 15, true},
		{InfraredCntr, 20, true},
		{Roam, 100, false},
		{Sniff, 100, true},
		{Lights, 150, false},
		{PortVelocity, 200, false},
		{ClockTick, 500, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			info, ok := c.Lookup(tt.kind)
			require.True(t, ok)
			assert.Equal(t, tt.priority, info.Priority)
			assert.Equal(t, tt.ballistic, info.Ballistic)
		})
	}
}

func TestDefaultCatalogue_EveryNamedKindDescribed(t *testing.T) {
	c := Default()
	assert.Equal(t, len(names), c.Len())
	for k := range names {
		_, ok := c.Lookup(k)
		assert.True(t, ok, "kind %s missing from catalogue", k)
	}
}

func TestInfo_Ignorable(t *testing.T) {
	c := Default()
	for _, info := range c.All() {
		want := info.Kind == NoAction || info.Kind == ClockTick || info.Kind == ClockTock
		assert.Equal(t, want, info.Ignorable(), "kind %s", info.Kind)
	}
}

func TestParse(t *testing.T) {
	k, err := Parse("bumper_port")
	require.NoError(t, err)
	assert.Equal(t, BumperPort, k)

	k, err = Parse("  CLOCK_TICK ")
	require.NoError(t, err)
	assert.Equal(t, ClockTick, k)

	_, err = Parse("WARP_DRIVE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestKind_TextRoundTrip(t *testing.T) {
	b, err := StbdTheta.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "STBD_THETA", string(b))

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("stbd_theta")))
	assert.Equal(t, StbdTheta, k)

	_, err = Kind(999).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, "KIND(999)", Kind(999).String())
}

func TestNewCatalogue_Overrides(t *testing.T) {
	prio := 7
	ballistic := true
	c, err := NewCatalogue(map[string]Override{
		"halt": {Priority: &prio, Ballistic: &ballistic},
	})
	require.NoError(t, err)

	info, ok := c.Lookup(Halt)
	require.True(t, ok)
	assert.Equal(t, 7, info.Priority)
	assert.True(t, info.Ballistic)

	// default catalogue is untouched
	def, _ := Default().Lookup(Halt)
	assert.Equal(t, 3, def.Priority)
	assert.False(t, def.Ballistic)
}

func TestNewCatalogue_RejectsMalformedTable(t *testing.T) {
	neg := -1
	_, err := NewCatalogue(map[string]Override{
		"NOT_AN_EVENT": {},
		"STOP":         {Priority: &neg},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCatalogue)
	assert.Contains(t, err.Error(), "NOT_AN_EVENT")
	assert.Contains(t, err.Error(), "negative priority")
}

func TestCatalogue_AllOrderedByPriority(t *testing.T) {
	all := Default().All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Priority, all[i].Priority)
	}
	assert.Equal(t, Noop, all[0].Kind)
}
