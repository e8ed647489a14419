// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package controller executes the behaviour bound to an arbitrated message
// against the motor layer and reports completion.
package controller

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/nerve/internal/event"
	"github.com/ManuGH/nerve/internal/log"
	"github.com/ManuGH/nerve/internal/message"
	"github.com/ManuGH/nerve/internal/motor"
)

// Completion is invoked exactly once per Act with the actuator state at the
// end of the action.
type Completion func(m *message.Message, levels motor.PowerLevels)

// Routine performs a high-level behaviour (roam, sniff, cruise, ...).
type Routine func(ctx context.Context, m *message.Message) error

// Config controls controller behaviour.
type Config struct {
	// Manoeuvre is how long avoidance and timed moves run before braking.
	Manoeuvre time.Duration
	// EnableSelfShutdown lets SHUTDOWN invoke the shutdown callback.
	EnableSelfShutdown bool
	// DpadSpeed is the power used for forward velocity and theta directives.
	DpadSpeed float64
}

// DefaultConfig returns the stock controller settings.
func DefaultConfig() Config {
	return Config{Manoeuvre: 500 * time.Millisecond, DpadSpeed: 0.8}
}

// Option configures a Controller.
type Option func(*Controller)

// WithShutdown sets the callback used for SHUTDOWN when self shutdown is enabled.
func WithShutdown(fn func()) Option {
	return func(c *Controller) { c.shutdown = fn }
}

// WithStandbyHook is called after every standby change.
func WithStandbyHook(fn func(standby bool)) Option {
	return func(c *Controller) { c.onStandby = fn }
}

// WithRoutine installs the routine run for kind.
func WithRoutine(kind event.Kind, r Routine) Option {
	return func(c *Controller) { c.routines[kind] = r }
}

// Controller is a synchronous event to behaviour dispatcher. It holds no
// priority logic.
type Controller struct {
	cfg       Config
	motors    motor.Motors
	shutdown  func()
	onStandby func(bool)
	routines  map[event.Kind]Routine
	logger    zerolog.Logger

	mu      sync.Mutex
	enabled bool
	standby bool
}

func New(cfg Config, motors motor.Motors, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		motors:   motors,
		routines: make(map[event.Kind]Routine),
		logger:   log.WithComponent("controller"),
		enabled:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Enable() {
	c.mu.Lock()
	c.enabled = true
	c.mu.Unlock()
	c.logger.Info().Msg("enabled")
}

func (c *Controller) Disable() {
	c.mu.Lock()
	c.enabled = false
	c.mu.Unlock()
	c.logger.Info().Msg("disabled")
}

func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *Controller) Standby() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.standby
}

// SetStandby disables the motors while in standby and re-enables them after.
func (c *Controller) SetStandby(standby bool) {
	c.mu.Lock()
	c.standby = standby
	c.mu.Unlock()

	if standby {
		c.motors.Disable()
		c.logger.Info().Msg("standby")
	} else {
		c.motors.Enable()
		c.logger.Info().Msg("active (standby off)")
	}
	if c.onStandby != nil {
		c.onStandby(standby)
	}
}

// Act runs the behaviour bound to m and then calls done exactly once,
// synchronously, before returning. Unrecognised events and a disabled
// controller still complete.
func (c *Controller) Act(ctx context.Context, m *message.Message, done Completion) {
	start := time.Now()
	logger := c.logger.With().
		Str(log.FieldMessageID, m.ID()).
		Uint64(log.FieldSequence, m.Sequence()).
		Str(log.FieldKind, m.Event().Name()).
		Logger()

	defer func() {
		levels := c.motors.PowerLevels()
		if done != nil {
			logger.Debug().Stringer("power", levels).Msg("completion callback")
			done(m, levels)
		}
		logger.Debug().Dur("elapsed", time.Since(start)).Msg("act finished")
	}()

	if err := m.Start(); err != nil {
		logger.Error().Err(err).Msg("cannot start action")
		return
	}

	if !c.Enabled() {
		logger.Warn().Msg("action ignored: controller disabled")
		return
	}

	b := BehaviourOf(m.Kind())
	if c.Standby() && !allowedInStandby(b) {
		logger.Debug().Stringer("behaviour", b).Msg("standing by, action skipped")
		return
	}

	logger.Info().Stringer("behaviour", b).Msg("act")
	if err := c.perform(ctx, b, m, logger); err != nil {
		logger.Warn().Err(err).Stringer("behaviour", b).Msg("action did not finish cleanly")
	}
}

func allowedInStandby(b Behaviour) bool {
	switch b {
	case BehaviourStandby, BehaviourButton, BehaviourShutdown, BehaviourBatteryLow, BehaviourIgnore:
		return true
	default:
		return false
	}
}

func (c *Controller) perform(ctx context.Context, b Behaviour, m *message.Message, logger zerolog.Logger) error {
	k := m.Kind()
	switch b {
	case BehaviourIgnore:
		logger.Debug().Msg("no action")
		return nil

	case BehaviourBatteryLow:
		logger.Warn().Msg("battery low: stopping and entering standby")
		err := c.motors.Stop(ctx)
		c.SetStandby(true)
		return err

	case BehaviourShutdown:
		err := c.motors.Stop(ctx)
		if c.cfg.EnableSelfShutdown && c.shutdown != nil {
			logger.Info().Msg("shutting down")
			c.shutdown()
		} else {
			logger.Info().Msg("self shutdown disabled, motors stopped")
		}
		return err

	case BehaviourHighTemperature:
		logger.Warn().Msg("high temperature: halting")
		return c.motors.Halt(ctx)

	case BehaviourStop:
		return c.motors.Stop(ctx)

	case BehaviourHalt:
		return c.motors.Halt(ctx)

	case BehaviourBrake:
		return c.motors.Brake(ctx)

	case BehaviourButton:
		pressed, _ := boolValue(m.Value())
		c.SetStandby(!pressed)
		return nil

	case BehaviourStandby:
		if v, ok := floatValue(m.Value()); ok && v == 1 {
			c.SetStandby(!c.Standby())
		}
		return nil

	case BehaviourBumper:
		return c.bumper(ctx, orientationOf(k), logger)

	case BehaviourAvoid:
		return c.avoid(ctx, orientationOf(k), logger)

	case BehaviourObserve:
		logger.Info().Stringer("orientation", orientationOf(k)).Interface("value", m.Value()).Msg("side infrared")
		return nil

	case BehaviourEmergencyAstern:
		if err := c.motors.Drive(ctx, -motor.SpeedFull, -motor.SpeedFull); err != nil {
			return err
		}
		if err := c.wait(ctx); err != nil {
			return err
		}
		return c.motors.Brake(ctx)

	case BehaviourMove:
		return c.motors.Command(ctx, event.OrientationBoth, moveSpeeds[k])

	case BehaviourAdjustSpeed:
		return c.adjustSpeed(ctx, k)

	case BehaviourTurn:
		p := turnPowers[k]
		return c.motors.Drive(ctx, p[0], p[1])

	case BehaviourRoutine:
		r, ok := c.routines[k]
		if !ok {
			logger.Info().Msg("no routine installed")
			return nil
		}
		return r(ctx, m)

	case BehaviourVelocity:
		return c.velocity(ctx, k, m, logger)

	case BehaviourTheta:
		return c.theta(ctx, k, m, logger)

	default:
		logger.Error().Msg("unrecognised event")
		return nil
	}
}

// bumper backs away from a contact, but only when moving.
func (c *Controller) bumper(ctx context.Context, o event.Orientation, logger zerolog.Logger) error {
	if !c.motors.InMotion() {
		logger.Info().Stringer("orientation", o).Msg("no action required (not moving)")
		return nil
	}
	if err := c.motors.Stop(ctx); err != nil {
		return err
	}
	port, stbd := -motor.SpeedHalf, -motor.SpeedHalf
	switch o {
	case event.OrientationPort:
		port = -motor.SpeedThreeQuarter
	case event.OrientationStbd:
		stbd = -motor.SpeedThreeQuarter
	}
	if err := c.motors.Drive(ctx, port, stbd); err != nil {
		return err
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	if err := c.motors.Brake(ctx); err != nil {
		return err
	}
	logger.Info().Stringer("orientation", o).Msg("bumper action complete")
	return nil
}

// avoid veers away from an obstacle by slowing the opposite side, but only when moving.
func (c *Controller) avoid(ctx context.Context, o event.Orientation, logger zerolog.Logger) error {
	if !c.motors.InMotion() {
		logger.Info().Stringer("orientation", o).Msg("no action required (not moving)")
		return nil
	}
	cur := c.motors.PowerLevels()
	port, stbd := cur.Port, cur.Stbd
	switch o {
	case event.OrientationPort:
		stbd = stbd / 2
	case event.OrientationStbd:
		port = port / 2
	default:
		port, stbd = port/2, stbd/2
	}
	if err := c.motors.Drive(ctx, port, stbd); err != nil {
		return err
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	logger.Info().Stringer("orientation", o).Msg("avoid action complete")
	return nil
}

func (c *Controller) adjustSpeed(ctx context.Context, k event.Kind) error {
	cur := c.motors.PowerLevels()
	switch k {
	case event.IncreaseSpeed:
		return c.motors.Drive(ctx, cur.Port+0.1, cur.Stbd+0.1)
	case event.DecreaseSpeed:
		return c.motors.Drive(ctx, cur.Port-0.1, cur.Stbd-0.1)
	default:
		avg := (cur.Port + cur.Stbd) / 2
		return c.motors.Drive(ctx, avg, avg)
	}
}

func (c *Controller) velocity(ctx context.Context, k event.Kind, m *message.Message, logger zerolog.Logger) error {
	v, ok := floatValue(m.Value())
	if !ok {
		logger.Warn().Interface("value", m.Value()).Msg("velocity without numeric value")
		return nil
	}
	if k != event.ForwardVelocity {
		return c.motors.Command(ctx, orientationOf(k), v)
	}
	// D-pad: -1 is ahead, 1 is astern.
	var speed float64
	switch {
	case v < 0:
		speed = c.cfg.DpadSpeed
	case v > 0:
		speed = -c.cfg.DpadSpeed
	default:
		return c.motors.Halt(ctx)
	}
	if err := c.motors.Command(ctx, event.OrientationBoth, speed); err != nil {
		return err
	}
	return c.wait(ctx)
}

func (c *Controller) theta(ctx context.Context, k event.Kind, m *message.Message, logger zerolog.Logger) error {
	v, ok := floatValue(m.Value())
	if !ok {
		logger.Warn().Interface("value", m.Value()).Msg("theta without numeric value")
		return nil
	}
	if k != event.Theta {
		logger.Info().Float64("theta", -v).Stringer("orientation", orientationOf(k)).Msg("theta")
		return nil
	}
	// D-pad: -1 rotates counter-clockwise, 1 clockwise.
	var port, stbd float64
	switch {
	case v < 0:
		port, stbd = -c.cfg.DpadSpeed, c.cfg.DpadSpeed
	case v > 0:
		port, stbd = c.cfg.DpadSpeed, -c.cfg.DpadSpeed
	default:
		return nil
	}
	if err := c.motors.Drive(ctx, port, stbd); err != nil {
		return err
	}
	return c.wait(ctx)
}

func (c *Controller) wait(ctx context.Context) error {
	if c.cfg.Manoeuvre <= 0 {
		return nil
	}
	timer := time.NewTimer(c.cfg.Manoeuvre)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func floatValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func boolValue(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case nil:
		return false, false
	default:
		f, ok := floatValue(v)
		return ok && f != 0, ok
	}
}
