// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // every env key the loader looked at
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// EnvKeys lists the consumed environment keys, sorted.
func (l *Loader) EnvKeys() []string {
	keys := make([]string, 0, len(l.ConsumedEnvKeys))
	for k := range l.ConsumedEnvKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load loads configuration with precedence: ENV > File > Defaults.
// The file is parsed strictly before the environment is applied, and the
// result is validated last.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if _, err := cfg.Catalogue(); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidEvents, err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing.
// Unknown fields are a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return decodeStrict(data, cfg)
}

func decodeStrict(data []byte, cfg *AppConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogLevel = l.envString("NERVE_LOG_LEVEL", cfg.LogLevel)

	cfg.Arbitrator.Period = l.envDuration("NERVE_ARBITRATOR_PERIOD", cfg.Arbitrator.Period)
	cfg.Arbitrator.BatchSize = l.envInt("NERVE_ARBITRATOR_BATCH_SIZE", cfg.Arbitrator.BatchSize)
	cfg.Arbitrator.BallisticPoll = l.envDuration("NERVE_ARBITRATOR_BALLISTIC_POLL", cfg.Arbitrator.BallisticPoll)
	cfg.Arbitrator.BallisticTimeout = l.envDuration("NERVE_ARBITRATOR_BALLISTIC_TIMEOUT", cfg.Arbitrator.BallisticTimeout)

	cfg.Queue.Capacity = l.envInt("NERVE_QUEUE_CAPACITY", cfg.Queue.Capacity)

	cfg.Bus.Capacity = l.envInt("NERVE_BUS_CAPACITY", cfg.Bus.Capacity)
	cfg.Bus.MaxAge = l.envDuration("NERVE_BUS_MAX_AGE", cfg.Bus.MaxAge)
	cfg.Bus.ProcessInterval = l.envDuration("NERVE_BUS_PROCESS_INTERVAL", cfg.Bus.ProcessInterval)
	cfg.Bus.EffectDelay = l.envDuration("NERVE_BUS_EFFECT_DELAY", cfg.Bus.EffectDelay)
	cfg.Bus.FailureRate = l.envFloat("NERVE_BUS_FAILURE_RATE", cfg.Bus.FailureRate)
	cfg.Bus.EffectRetries = l.envInt("NERVE_BUS_EFFECT_RETRIES", cfg.Bus.EffectRetries)

	cfg.Controller.Manoeuvre = l.envDuration("NERVE_CONTROLLER_MANOEUVRE", cfg.Controller.Manoeuvre)
	cfg.Controller.EnableSelfShutdown = l.envBool("NERVE_CONTROLLER_SELF_SHUTDOWN", cfg.Controller.EnableSelfShutdown)

	cfg.Journal.Backend = l.envString("NERVE_JOURNAL_BACKEND", cfg.Journal.Backend)
	cfg.Journal.Path = l.envString("NERVE_JOURNAL_PATH", cfg.Journal.Path)
	cfg.Journal.RedisAddr = l.envString("NERVE_JOURNAL_REDIS_ADDR", cfg.Journal.RedisAddr)
	cfg.Journal.BreakerThreshold = l.envInt("NERVE_JOURNAL_BREAKER_THRESHOLD", cfg.Journal.BreakerThreshold)

	// Listen addresses may be cleared explicitly with "off".
	cfg.API.ListenAddr = offToEmpty(l.envString("NERVE_API_LISTEN", cfg.API.ListenAddr))
	cfg.API.RateLimit = l.envInt("NERVE_API_RATE_LIMIT", cfg.API.RateLimit)
	cfg.Metrics.ListenAddr = offToEmpty(l.envString("NERVE_METRICS_LISTEN", cfg.Metrics.ListenAddr))

	cfg.Telemetry.Enabled = l.envBool("NERVE_TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("NERVE_TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("NERVE_TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("NERVE_TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.Sensors.Clock.Enabled = l.envBool("NERVE_SENSORS_CLOCK_ENABLED", cfg.Sensors.Clock.Enabled)
	cfg.Sensors.Clock.Period = l.envDuration("NERVE_SENSORS_CLOCK_PERIOD", cfg.Sensors.Clock.Period)
	cfg.Sensors.Random.Enabled = l.envBool("NERVE_SENSORS_RANDOM_ENABLED", cfg.Sensors.Random.Enabled)
	cfg.Sensors.Random.MaxInterval = l.envDuration("NERVE_SENSORS_RANDOM_MAX_INTERVAL", cfg.Sensors.Random.MaxInterval)
}

func offToEmpty(v string) string {
	if strings.EqualFold(v, "off") {
		return ""
	}
	return v
}
