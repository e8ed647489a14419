// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/journal"
	"github.com/ManuGH/nerve/internal/validate"
)

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		v.AddError("logLevel", err.Error(), cfg.LogLevel)
	}

	v.PositiveDuration("arbitrator.period", cfg.Arbitrator.Period)
	v.Range("arbitrator.batchSize", cfg.Arbitrator.BatchSize, 1, 100)
	v.PositiveDuration("arbitrator.ballisticPoll", cfg.Arbitrator.BallisticPoll)
	v.PositiveDuration("arbitrator.ballisticTimeout", cfg.Arbitrator.BallisticTimeout)

	v.Positive("queue.capacity", cfg.Queue.Capacity)

	v.Positive("bus.capacity", cfg.Bus.Capacity)
	v.PositiveDuration("bus.maxAge", cfg.Bus.MaxAge)
	v.PositiveDuration("bus.processInterval", cfg.Bus.ProcessInterval)
	if cfg.Bus.EffectDelay < 0 {
		v.AddError("bus.effectDelay", "duration cannot be negative", cfg.Bus.EffectDelay)
	}
	v.FloatRange("bus.failureRate", cfg.Bus.FailureRate, 0, 1)
	v.Range("bus.effectRetries", cfg.Bus.EffectRetries, 0, 10)
	validateSubscribers(v, cfg.Bus.Subscribers)

	v.PositiveDuration("controller.manoeuvre", cfg.Controller.Manoeuvre)
	v.NonNegative("motor.slewSteps", cfg.Motor.SlewSteps)

	v.OneOf("journal.backend", cfg.Journal.Backend, []string{
		journal.BackendMemory, journal.BackendSQLite, journal.BackendBadger, journal.BackendRedis,
	})
	switch cfg.Journal.Backend {
	case journal.BackendSQLite:
		v.NotEmpty("journal.path", cfg.Journal.Path)
	case journal.BackendRedis:
		v.NotEmpty("journal.redisAddr", cfg.Journal.RedisAddr)
	}
	v.NonNegative("journal.maxRecords", cfg.Journal.MaxRecords)
	v.NonNegative("journal.breakerThreshold", cfg.Journal.BreakerThreshold)
	if cfg.Journal.BreakerThreshold > 0 {
		v.PositiveDuration("journal.breakerReset", cfg.Journal.BreakerReset)
	}

	v.ListenAddr("api.listenAddr", cfg.API.ListenAddr)
	v.NonNegative("api.rateLimit", cfg.API.RateLimit)
	v.ListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	if cfg.Sensors.Clock.Enabled {
		v.PositiveDuration("sensors.clock.period", cfg.Sensors.Clock.Period)
		v.Positive("sensors.clock.tockModulo", cfg.Sensors.Clock.TockModulo)
		v.FloatRange("sensors.clock.ratePerSecond", cfg.Sensors.Clock.RatePerSecond, 0, 1e6)
	}
	if cfg.Sensors.Random.Enabled {
		v.PositiveDuration("sensors.random.maxInterval", cfg.Sensors.Random.MaxInterval)
	}

	return v.Err()
}

func validateSubscribers(v *validate.Validator, subs map[string][]string) {
	names := make([]string, 0, len(subs))
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		field := "bus.subscribers." + name
		if len(subs[name]) == 0 {
			v.AddError(field, "subscriber must accept at least one event", nil)
			continue
		}
		for _, kind := range subs[name] {
			if _, err := event.Parse(kind); err != nil {
				v.AddError(field, err.Error(), kind)
			}
		}
	}
}

// SubscriberKinds resolves the configured subscriber filters.
func (c AppConfig) SubscriberKinds() (map[string][]event.Kind, error) {
	out := make(map[string][]event.Kind, len(c.Bus.Subscribers))
	for name, kinds := range c.Bus.Subscribers {
		for _, raw := range kinds {
			k, err := event.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("subscriber %s: %w", name, err)
			}
			out[name] = append(out[name], k)
		}
	}
	return out, nil
}
