// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads nerve's runtime configuration.
package config

import (
	"time"

	"github.com/ManuGH/nerve/internal/arbitrator"
	"github.com/ManuGH/nerve/internal/bus"
	"github.com/ManuGH/nerve/internal/controller"
	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/journal"
	"github.com/ManuGH/nerve/internal/motor"
	"github.com/ManuGH/nerve/internal/telemetry"
)

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	LogLevel   string                   `yaml:"logLevel"`
	Arbitrator ArbitratorConfig         `yaml:"arbitrator"`
	Queue      QueueConfig              `yaml:"queue"`
	Bus        BusConfig                `yaml:"bus"`
	Controller ControllerConfig         `yaml:"controller"`
	Motor      MotorConfig              `yaml:"motor"`
	Journal    JournalConfig            `yaml:"journal"`
	API        APIConfig                `yaml:"api"`
	Metrics    MetricsConfig            `yaml:"metrics"`
	Telemetry  TelemetryConfig          `yaml:"telemetry"`
	Sensors    SensorsConfig            `yaml:"sensors"`
	Events     map[string]EventOverride `yaml:"events"`
}

type ArbitratorConfig struct {
	Period           time.Duration `yaml:"period"`
	BatchSize        int           `yaml:"batchSize"`
	BallisticPoll    time.Duration `yaml:"ballisticPoll"`
	BallisticTimeout time.Duration `yaml:"ballisticTimeout"`
}

type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

type BusConfig struct {
	Capacity        int           `yaml:"capacity"`
	MaxAge          time.Duration `yaml:"maxAge"`
	ProcessInterval time.Duration `yaml:"processInterval"`
	EffectDelay     time.Duration `yaml:"effectDelay"`
	FailureRate     float64       `yaml:"failureRate"`
	EffectRetries   int           `yaml:"effectRetries"`
	// Subscribers are started with the daemon, keyed by name.
	Subscribers map[string][]string `yaml:"subscribers"`
}

type ControllerConfig struct {
	Manoeuvre          time.Duration `yaml:"manoeuvre"`
	EnableSelfShutdown bool          `yaml:"enableSelfShutdown"`
}

type MotorConfig struct {
	SlewSteps int           `yaml:"slewSteps"`
	SlewStep  time.Duration `yaml:"slewStep"`
}

type JournalConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	RedisAddr  string `yaml:"redisAddr"`
	RedisDB    int    `yaml:"redisDB"`
	MaxRecords int    `yaml:"maxRecords"`

	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
}

type APIConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int `yaml:"rateLimit"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

type SensorsConfig struct {
	Clock  ClockSensorConfig  `yaml:"clock"`
	Random RandomSensorConfig `yaml:"random"`
}

type ClockSensorConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Period     time.Duration `yaml:"period"`
	TockModulo int           `yaml:"tockModulo"`
	// RatePerSecond caps beats reaching the bus; zero disables the cap.
	RatePerSecond float64 `yaml:"ratePerSecond"`
}

type RandomSensorConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxInterval time.Duration `yaml:"maxInterval"`
	Seed        uint64        `yaml:"seed"`
	// RatePerSecond and Debounce filter the stream before it is published.
	RatePerSecond float64       `yaml:"ratePerSecond"`
	Debounce      time.Duration `yaml:"debounce"`
}

// EventOverride adjusts one catalogued event.
type EventOverride struct {
	Priority  *int  `yaml:"priority"`
	Ballistic *bool `yaml:"ballistic"`
}

// Catalogue builds the event table with the configured overrides applied.
func (c AppConfig) Catalogue() (*event.Catalogue, error) {
	if len(c.Events) == 0 {
		return event.Default(), nil
	}
	overrides := make(map[string]event.Override, len(c.Events))
	for name, ov := range c.Events {
		overrides[name] = event.Override{Priority: ov.Priority, Ballistic: ov.Ballistic}
	}
	return event.NewCatalogue(overrides)
}

func (c AppConfig) ArbitratorConfig() arbitrator.Config {
	return arbitrator.Config{
		Period:           c.Arbitrator.Period,
		BatchSize:        c.Arbitrator.BatchSize,
		BallisticPoll:    c.Arbitrator.BallisticPoll,
		BallisticTimeout: c.Arbitrator.BallisticTimeout,
	}
}

func (c AppConfig) BusConfig() bus.Config {
	return bus.Config{Capacity: c.Bus.Capacity, MaxAge: c.Bus.MaxAge}
}

func (c AppConfig) EffectConfig() bus.EffectConfig {
	return bus.EffectConfig{
		ProcessInterval: c.Bus.ProcessInterval,
		EffectDelay:     c.Bus.EffectDelay,
		FailureRate:     c.Bus.FailureRate,
		Retries:         c.Bus.EffectRetries,
	}
}

func (c AppConfig) ControllerConfig() controller.Config {
	cfg := controller.DefaultConfig()
	cfg.Manoeuvre = c.Controller.Manoeuvre
	cfg.EnableSelfShutdown = c.Controller.EnableSelfShutdown
	return cfg
}

func (c AppConfig) MotorConfig() motor.SimConfig {
	return motor.SimConfig{SlewSteps: c.Motor.SlewSteps, SlewStep: c.Motor.SlewStep}
}

func (c AppConfig) JournalConfig() journal.Config {
	return journal.Config{
		Backend:    c.Journal.Backend,
		Path:       c.Journal.Path,
		RedisAddr:  c.Journal.RedisAddr,
		RedisDB:    c.Journal.RedisDB,
		MaxRecords: c.Journal.MaxRecords,

		BreakerThreshold: c.Journal.BreakerThreshold,
		BreakerReset:     c.Journal.BreakerReset,
	}
}

func (c AppConfig) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    "nerve",
		ServiceVersion: c.Version,
		Environment:    c.Telemetry.Environment,
		ExporterType:   c.Telemetry.Exporter,
		Endpoint:       c.Telemetry.Endpoint,
		SamplingRate:   c.Telemetry.SamplingRate,
	}
}
