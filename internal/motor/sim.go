// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package motor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/log"
)

// SimConfig controls the simulated slew.
type SimConfig struct {
	// SlewSteps is the number of intermediate power updates per ramp.
	SlewSteps int
	// SlewStep is the delay between updates.
	SlewStep time.Duration
}

// DefaultSimConfig mirrors a gentle physical ramp.
func DefaultSimConfig() SimConfig {
	return SimConfig{SlewSteps: 5, SlewStep: 10 * time.Millisecond}
}

// Sim is an in-memory differential drive with linear slew.
type Sim struct {
	cfg    SimConfig
	logger zerolog.Logger

	mu        sync.Mutex
	port      float64
	stbd      float64
	enabled   bool
	interrupt chan struct{}
}

var _ Motors = (*Sim)(nil)

func NewSim(cfg SimConfig) *Sim {
	if cfg.SlewSteps <= 0 {
		cfg.SlewSteps = 1
	}
	return &Sim{
		cfg:       cfg,
		logger:    log.WithComponent("motors"),
		enabled:   true,
		interrupt: make(chan struct{}),
	}
}

func (s *Sim) Command(ctx context.Context, o event.Orientation, velocity float64) error {
	cur := s.PowerLevels()
	switch o {
	case event.OrientationPort, event.OrientationPortSide:
		return s.Drive(ctx, velocity, cur.Stbd)
	case event.OrientationStbd, event.OrientationStbdSide:
		return s.Drive(ctx, cur.Port, velocity)
	case event.OrientationBoth, event.OrientationCntr:
		return s.Drive(ctx, velocity, velocity)
	default:
		return fmt.Errorf("motor: cannot command orientation %s", o)
	}
}

func (s *Sim) Drive(ctx context.Context, port, stbd float64) error {
	return s.ramp(ctx, clamp(port), clamp(stbd), s.cfg.SlewSteps)
}

func (s *Sim) Stop(ctx context.Context) error {
	return s.ramp(ctx, 0, 0, s.cfg.SlewSteps)
}

func (s *Sim) Halt(ctx context.Context) error {
	steps := s.cfg.SlewSteps / 2
	if steps < 1 {
		steps = 1
	}
	return s.ramp(ctx, 0, 0, steps)
}

func (s *Sim) Brake(context.Context) error {
	s.mu.Lock()
	s.port, s.stbd = 0, 0
	s.mu.Unlock()
	s.logger.Debug().Msg("brake")
	return nil
}

func (s *Sim) Interrupt() {
	s.mu.Lock()
	close(s.interrupt)
	s.interrupt = make(chan struct{})
	s.mu.Unlock()
	s.logger.Debug().Msg("interrupt")
}

func (s *Sim) Enable() {
	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()
	s.logger.Info().Msg("enabled")
}

// Disable brakes and refuses further commands until Enable.
func (s *Sim) Disable() {
	s.mu.Lock()
	s.enabled = false
	s.port, s.stbd = 0, 0
	s.mu.Unlock()
	s.logger.Info().Msg("disabled")
}

func (s *Sim) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *Sim) InMotion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != 0 || s.stbd != 0
}

func (s *Sim) PowerLevels() PowerLevels {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PowerLevels{Port: s.port, Stbd: s.stbd}
}

func (s *Sim) ramp(ctx context.Context, port, stbd float64, steps int) error {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return ErrDisabled
	}
	fromPort, fromStbd := s.port, s.stbd
	interrupt := s.interrupt
	s.mu.Unlock()

	for i := 1; i <= steps; i++ {
		if i > 1 && s.cfg.SlewStep > 0 {
			timer := time.NewTimer(s.cfg.SlewStep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-interrupt:
				timer.Stop()
				return ErrInterrupted
			case <-timer.C:
			}
		}
		frac := float64(i) / float64(steps)
		s.mu.Lock()
		if !s.enabled {
			s.mu.Unlock()
			return ErrDisabled
		}
		s.port = fromPort + (port-fromPort)*frac
		s.stbd = fromStbd + (stbd-fromStbd)*frac
		s.mu.Unlock()
	}
	s.logger.Debug().Float64("port", port).Float64("stbd", stbd).Msg("ramp complete")
	return nil
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
