// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/nerve/internal/arbitrator"
	"github.com/ManuGH/nerve/internal/bus"
	"github.com/ManuGH/nerve/internal/controller"
	"github.com/ManuGH/nerve/internal/journal"
	"github.com/ManuGH/nerve/internal/motor"
	"github.com/ManuGH/nerve/internal/queue"
)

// Defaults returns the configuration used when neither file nor environment
// sets a value.
func Defaults() AppConfig {
	arb := arbitrator.DefaultConfig()
	b := bus.DefaultConfig()
	fx := bus.DefaultEffectConfig()
	ctrl := controller.DefaultConfig()
	sim := motor.DefaultSimConfig()

	return AppConfig{
		LogLevel: "info",
		Arbitrator: ArbitratorConfig{
			Period:           arb.Period,
			BatchSize:        arb.BatchSize,
			BallisticPoll:    arb.BallisticPoll,
			BallisticTimeout: arb.BallisticTimeout,
		},
		Queue: QueueConfig{Capacity: queue.DefaultMaxSize},
		Bus: BusConfig{
			Capacity:        b.Capacity,
			MaxAge:          b.MaxAge,
			ProcessInterval: fx.ProcessInterval,
			EffectDelay:     fx.EffectDelay,
			FailureRate:     fx.FailureRate,
			EffectRetries:   fx.Retries,
			Subscribers: map[string][]string{
				"motion": {"FULL_AHEAD", "HALF_AHEAD", "SLOW_AHEAD", "ASTERN", "HALT", "BRAKE", "STOP"},
				"safety": {"STOP", "BUMPER_PORT", "BUMPER_CNTR", "BUMPER_STBD", "INFRARED_CNTR", "EMERGENCY_ASTERN"},
				"panel":  {"BUTTON", "STANDBY", "SHUTDOWN", "BATTERY_LOW", "CLOCK_TOCK"},
			},
		},
		Controller: ControllerConfig{
			Manoeuvre:          ctrl.Manoeuvre,
			EnableSelfShutdown: ctrl.EnableSelfShutdown,
		},
		Motor: MotorConfig{SlewSteps: sim.SlewSteps, SlewStep: sim.SlewStep},
		Journal: JournalConfig{
			Backend:          journal.BackendMemory,
			MaxRecords:       1000,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		API:     APIConfig{ListenAddr: ":8089", RateLimit: 120},
		Metrics: MetricsConfig{ListenAddr: ":9109"},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
		Sensors: SensorsConfig{
			Clock: ClockSensorConfig{Enabled: true, Period: time.Second, TockModulo: 5, RatePerSecond: 10},
			Random: RandomSensorConfig{
				MaxInterval:   time.Second,
				RatePerSecond: 5,
				Debounce:      100 * time.Millisecond,
			},
		},
	}
}
