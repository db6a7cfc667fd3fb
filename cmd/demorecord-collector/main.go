// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Demorecord-collector records one teleoperation demonstration: it
// subscribes to the configured camera and tactile feeds, binds the
// robot state channel, and writes every stream's artifact into
// demonstration_<N> under the storage root. Recording runs until the
// process receives SIGINT or SIGTERM, then drains in-flight samples
// and finalizes every artifact before exiting.
//
// A second signal aborts immediately without finalizing; the session
// directory is left as-is.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/demorecord/collector"
	"github.com/bureau-foundation/demorecord/lib/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "demorecord-collector: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath    string
		sessionNumber int
		storagePath   string
		debug         bool
	)
	pflag.StringVar(&configPath, "config", "", "config file path (defaults to $"+config.EnvVariable+")")
	pflag.IntVar(&sessionNumber, "session-number", 0, "session ordinal; artifacts land in demonstration_<N>")
	pflag.StringVar(&storagePath, "storage-path", "", "override the configured storage root")
	pflag.BoolVar(&debug, "debug", false, "enable debug logging")
	pflag.Parse()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var cfg config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if storagePath != "" {
		cfg.StoragePath = storagePath
	}

	// The socket context outlives the recording loop: recorders own
	// their sources and close them during finalize, so cancellation
	// here is only the backstop for an error exit.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	endpoints := collector.Endpoints{
		Host:            cfg.Endpoints.Host,
		CameraPort:      cfg.Endpoints.CameraPort,
		DepthPortOffset: cfg.Endpoints.DepthPortOffset,
		StatePort:       cfg.Endpoints.StatePort,
		TactilePort:     cfg.Endpoints.TactilePort,
	}
	sources := collector.NewZMQSources(ctx, endpoints)

	cameras := make([]collector.CameraConfig, len(cfg.Cameras))
	for i, camera := range cfg.Cameras {
		cameras[i] = collector.CameraConfig{Width: camera.Width, Height: camera.Height, FPS: camera.FPS}
	}

	ctrl, err := collector.New(collector.Config{
		StoragePath:    cfg.StoragePath,
		SessionNumber:  sessionNumber,
		Cameras:        cameras,
		CollectImages:  cfg.Collect.Images,
		CollectDepth:   cfg.Collect.Depth,
		CollectState:   cfg.Collect.State,
		CollectTactile: cfg.Collect.Tactile,
		Logger:         logger,
	}, sources)
	if err != nil {
		return err
	}

	stop := &atomic.Bool{}
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		logger.Info("signal received, stopping recording")
		stop.Store(true)
		<-signals
		logger.Error("second signal, aborting without finalizing")
		os.Exit(1)
	}()

	logger.Info("collector starting",
		"session", sessionNumber,
		"directory", ctrl.Session().Directory,
		"endpoints", endpoints.String(),
	)
	return ctrl.Run(stop)
}
