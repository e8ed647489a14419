// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/validate"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nerve.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, 20*time.Millisecond, cfg.Arbitrator.Period)
	assert.Equal(t, 5, cfg.Arbitrator.BatchSize)
	assert.Equal(t, 200*time.Millisecond, cfg.Arbitrator.BallisticPoll)
	assert.Equal(t, 10*time.Second, cfg.Arbitrator.BallisticTimeout)
	assert.Equal(t, 100, cfg.Queue.Capacity)
	assert.Equal(t, 3*time.Second, cfg.Bus.MaxAge)
	assert.Equal(t, 0.25, cfg.Bus.FailureRate)
	assert.Equal(t, 0, cfg.Bus.EffectRetries)
	assert.False(t, cfg.Controller.EnableSelfShutdown)
	assert.Equal(t, "memory", cfg.Journal.Backend)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logLevel: debug
arbitrator:
  period: 50ms
  batchSize: 3
bus:
  maxAge: 5s
  effectRetries: 2
journal:
  backend: sqlite
  path: /tmp/nerve.db
events:
  HALT:
    priority: 1
  button:
    ballistic: true
`)
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 50*time.Millisecond, cfg.Arbitrator.Period)
	assert.Equal(t, 3, cfg.Arbitrator.BatchSize)
	assert.Equal(t, 200*time.Millisecond, cfg.Arbitrator.BallisticPoll, "unset keys keep defaults")
	assert.Equal(t, 5*time.Second, cfg.Bus.MaxAge)
	assert.Equal(t, 2, cfg.Bus.EffectRetries)
	assert.Equal(t, "sqlite", cfg.Journal.Backend)

	cat, err := cfg.Catalogue()
	require.NoError(t, err)
	halt, _ := cat.Lookup(event.Halt)
	assert.Equal(t, 1, halt.Priority)
	button, _ := cat.Lookup(event.Button)
	assert.True(t, button.Ballistic)
	assert.Equal(t, 5, button.Priority)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
arbitrator:
  period: 50ms
api:
  listenAddr: ":9000"
`)
	t.Setenv("NERVE_ARBITRATOR_PERIOD", "30ms")
	t.Setenv("NERVE_API_LISTEN", "off")
	t.Setenv("NERVE_BUS_FAILURE_RATE", "0")
	t.Setenv("NERVE_QUEUE_CAPACITY", "not-a-number")

	l := NewLoader(path, "")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Millisecond, cfg.Arbitrator.Period)
	assert.Empty(t, cfg.API.ListenAddr)
	assert.Equal(t, 0.0, cfg.Bus.FailureRate)
	assert.Equal(t, 100, cfg.Queue.Capacity, "invalid values fall back")
	assert.Contains(t, l.EnvKeys(), "NERVE_ARBITRATOR_PERIOD")
}

func TestLoad_UnknownFieldIsRejected(t *testing.T) {
	path := writeConfig(t, `
arbitrator:
  perod: 10ms
`)
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField), "got %v", err)
}

func TestLoad_MultipleDocumentsRejected(t *testing.T) {
	path := writeConfig(t, "logLevel: info\n---\nlogLevel: debug\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")
}

func TestLoad_RejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nerve.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err := NewLoader(path, "").Load()
	assert.ErrorContains(t, err, "only YAML supported")
}

func TestLoad_MalformedEventsTable(t *testing.T) {
	path := writeConfig(t, `
events:
  WARP_SPEED:
    priority: 1
  HALT:
    priority: -2
`)
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEvents)
	assert.ErrorIs(t, err, event.ErrInvalidCatalogue)
}

func TestValidate_AccumulatesErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Arbitrator.Period = 0
	cfg.Bus.FailureRate = 1.5
	cfg.Journal.Backend = "etcd"
	cfg.Bus.Subscribers = map[string][]string{"broken": {"NOT_AN_EVENT"}, "empty": nil}

	err := Validate(cfg)
	require.Error(t, err)

	var verr validate.ValidationError
	require.True(t, errors.As(err, &verr))
	fields := make(map[string]bool)
	for _, e := range verr.Errors() {
		fields[e.Field] = true
	}
	for _, f := range []string{"arbitrator.period", "bus.failureRate", "journal.backend", "bus.subscribers.broken", "bus.subscribers.empty"} {
		assert.True(t, fields[f], "missing error for %s", f)
	}
}

func TestSubscriberKinds(t *testing.T) {
	cfg := Defaults()
	cfg.Bus.Subscribers = map[string][]string{"panel": {"button", "CLOCK_TOCK"}}
	kinds, err := cfg.SubscriberKinds()
	require.NoError(t, err)
	assert.Equal(t, []event.Kind{event.Button, event.ClockTock}, kinds["panel"])
}

func TestValidate_JournalBreaker(t *testing.T) {
	cfg := Defaults()
	cfg.Journal.BreakerThreshold = 3
	cfg.Journal.BreakerReset = 0
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal.breakerReset")

	cfg.Journal.BreakerThreshold = 0
	require.NoError(t, Validate(cfg))

	cfg.Journal.BreakerThreshold = -1
	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal.breakerThreshold")
}
