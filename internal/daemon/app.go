// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon assembles the nervous system from configuration and owns its
// runtime lifecycle.
package daemon

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Runner is a long-lived subsystem that stops when ctx is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

type namedRunner struct {
	name string
	r    Runner
}

// App runs the core, the API and the sensor drivers, and delegates the
// metrics listener and resource cleanup to a Manager.
type App struct {
	logger  zerolog.Logger
	manager Manager
	core    Runner
	runners []namedRunner
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, core Runner) *App {
	return &App{logger: logger, manager: manager, core: core}
}

// Add registers an additional subsystem.
func (a *App) Add(name string, r Runner) {
	a.runners = append(a.runners, namedRunner{name: name, r: r})
}

// Run starts every subsystem and blocks until ctx is cancelled or one of them
// fails. The manager's shutdown hooks run only after all subsystems have
// returned, so stores are never closed under a live subscriber.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.core == nil {
		return ErrMissingCore
	}

	mctx, stopManager := context.WithCancel(context.WithoutCancel(ctx))
	defer stopManager()
	managerDone := make(chan error, 1)
	go func() { managerDone <- a.manager.Start(mctx) }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.core.Run(gctx) })
	for _, nr := range a.runners {
		g.Go(func() error {
			a.logger.Debug().Str("subsystem", nr.name).Msg("subsystem starting")
			err := nr.r.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error().Err(err).Str("subsystem", nr.name).Msg("subsystem failed")
				return err
			}
			return nil
		})
	}

	// A manager that returns early has lost its metrics listener.
	managerReturned := make(chan struct{})
	g.Go(func() error {
		select {
		case managerErr := <-managerDone:
			close(managerReturned)
			if managerErr == nil {
				managerErr = errors.New("manager stopped unexpectedly")
			}
			return managerErr
		case <-gctx.Done():
			return nil
		}
	})

	err := g.Wait()
	stopManager()
	select {
	case <-managerReturned:
		// Already collected; its error is err.
		return err
	default:
	}
	return errors.Join(err, <-managerDone)
}
