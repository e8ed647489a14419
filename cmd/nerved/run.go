// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ManuGH/nerve/internal/config"
	"github.com/ManuGH/nerve/internal/daemon"
	"github.com/ManuGH/nerve/internal/log"
	"github.com/ManuGH/nerve/internal/version"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the daemon until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd, *configPath)
		},
	}
}

func runDaemon(cmd *cobra.Command, configPath string) error {
	// Safe defaults until config is loaded.
	log.Configure(log.Config{Level: "info", Service: "nerve", Version: version.Version})
	logger := log.WithComponent("daemon")

	loader := config.NewLoader(configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", configPath).
			Msg("failed to load configuration")
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Service: "nerve", Version: cfg.Version})
	logger = log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := daemon.Build(ctx, cfg, daemon.Options{
		Shutdown: func() {
			logger.Warn().Str("event", "daemon.self_shutdown").Msg("controller requested shutdown")
			stop()
		},
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.build_failed").
			Msg("failed to assemble system")
	}

	logger.Info().
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("api", cfg.API.ListenAddr).
		Str("metrics", cfg.Metrics.ListenAddr).
		Strs("env_keys", loader.EnvKeys()).
		Msg("starting nerved")

	if err := d.Run(ctx); err != nil {
		if ctx.Err() == nil {
			logger.Error().Err(err).Str("event", "daemon.failed").Msg("daemon stopped with error")
			return err
		}
		logger.Warn().Err(err).Msg("errors during shutdown")
	}

	logger.Info().Msg("nerved stopped")
	return nil
}
