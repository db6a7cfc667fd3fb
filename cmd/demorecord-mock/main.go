// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Demorecord-mock stands in for the robot rig: it publishes synthetic
// camera frames and tactile samples on the configured feed ports and
// pushes synthetic robot state records over the collector's state
// channel. Useful for exercising a collector deployment end to end
// without hardware.
//
// The mock reads the same config file as the collector, so pointing
// both at one file wires them together. It runs until SIGINT or
// SIGTERM.
package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/demorecord/lib/codec"
	"github.com/bureau-foundation/demorecord/lib/config"
	"github.com/bureau-foundation/demorecord/stream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "demorecord-mock: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		stateRate   float64
		tactileRate float64
	)
	pflag.StringVar(&configPath, "config", "", "config file path (defaults to $"+config.EnvVariable+")")
	pflag.Float64Var(&stateRate, "state-rate", 100, "robot state records per second")
	pflag.Float64Var(&tactileRate, "tactile-rate", 100, "tactile samples per second")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var producers sync.WaitGroup
	host := cfg.Endpoints.Host

	if cfg.Collect.Images {
		for i, camera := range cfg.Cameras {
			kind := stream.RGB(i)
			publisher, err := stream.BindCameraPublisher(ctx, host, cfg.Endpoints.CameraPort+i, kind)
			if err != nil {
				return err
			}
			defer publisher.Close()
			logger.Info("camera feed bound", "stream", kind.String(), "port", cfg.Endpoints.CameraPort+i)

			producers.Add(1)
			go func(camera config.Camera, index int) {
				defer producers.Done()
				publishFrames(ctx, logger, publisher, camera, index)
			}(camera, i)
		}
	}

	if cfg.Collect.Depth {
		for i, camera := range cfg.Cameras {
			kind := stream.Depth(i)
			port := cfg.Endpoints.CameraPort + cfg.Endpoints.DepthPortOffset + i
			publisher, err := stream.BindCameraPublisher(ctx, host, port, kind)
			if err != nil {
				return err
			}
			defer publisher.Close()
			logger.Info("depth feed bound", "stream", kind.String(), "port", port)

			producers.Add(1)
			go func(camera config.Camera) {
				defer producers.Done()
				publishDepth(ctx, logger, publisher, camera)
			}(camera)
		}
	}

	if cfg.Collect.State {
		requester, err := stream.ConnectStateRequester(ctx, host, cfg.Endpoints.StatePort)
		if err != nil {
			return err
		}
		defer requester.Close()
		logger.Info("state requester connected", "port", cfg.Endpoints.StatePort)

		producers.Add(1)
		go func() {
			defer producers.Done()
			sendStates(ctx, logger, requester, stateRate)
		}()
	}

	if cfg.Collect.Tactile {
		publisher, err := stream.BindTactilePublisher(ctx, host, cfg.Endpoints.TactilePort)
		if err != nil {
			return err
		}
		defer publisher.Close()
		logger.Info("tactile feed bound", "port", cfg.Endpoints.TactilePort)

		producers.Add(1)
		go func() {
			defer producers.Done()
			publishTactile(ctx, logger, publisher, tactileRate)
		}()
	}

	logger.Info("mock rig running", "cameras", len(cfg.Cameras))
	<-ctx.Done()
	logger.Info("shutting down")
	producers.Wait()
	return nil
}

// publishFrames emits a synthetic moving-bar JPEG at the camera's
// configured frame rate.
func publishFrames(ctx context.Context, logger *slog.Logger, publisher *stream.CameraPublisher, camera config.Camera, index int) {
	ticker := time.NewTicker(time.Second / time.Duration(camera.FPS))
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		encoded, err := renderFrame(camera, frame, index)
		if err != nil {
			logger.Error("rendering frame", "error", err)
			return
		}
		err = publisher.Publish(stream.Frame{
			Image:     encoded,
			Timestamp: stream.EpochSeconds(time.Now()),
		})
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("publishing frame", "error", err)
			}
			return
		}
	}
}

// renderFrame draws a vertical bar sweeping across the image, offset
// per camera so feeds are visually distinguishable in replay.
func renderFrame(camera config.Camera, frame, index int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, camera.Width, camera.Height))
	bar := (frame*4 + index*camera.Width/4) % camera.Width
	for y := 0; y < camera.Height; y++ {
		for x := 0; x < camera.Width; x++ {
			if abs(x-bar) < 8 {
				img.Set(x, y, color.RGBA{R: 255, G: 128, B: 0, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 32, G: 32, B: 48, A: 255})
			}
		}
	}
	var buffer bytes.Buffer
	if err := jpeg.Encode(&buffer, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// publishDepth emits raw little-endian 16-bit gradients at the
// camera's frame rate. The collector currently discards depth, so the
// payload only needs to be plausible, not renderable.
func publishDepth(ctx context.Context, logger *slog.Logger, publisher *stream.CameraPublisher, camera config.Camera) {
	ticker := time.NewTicker(time.Second / time.Duration(camera.FPS))
	defer ticker.Stop()

	payload := make([]byte, camera.Width*camera.Height*2)
	for frame := 0; ; frame++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for i := range payload {
			payload[i] = byte(i + frame)
		}
		err := publisher.Publish(stream.Frame{
			Image:     payload,
			Timestamp: stream.EpochSeconds(time.Now()),
		})
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("publishing depth frame", "error", err)
			}
			return
		}
	}
}

// mockState is the synthetic robot state record. Joint positions trace
// slow sine waves; the gripper opens and closes on its own period.
type mockState struct {
	Timestamp      float64   `cbor:"timestamp"`
	JointPositions []float64 `cbor:"joint_positions"`
	GripperWidth   float64   `cbor:"gripper_width"`
}

// sendStates pushes state records over the request channel at the
// given rate. Each send blocks until the collector acknowledges, the
// same backpressure a real control loop sees.
func sendStates(ctx context.Context, logger *slog.Logger, requester *stream.StateRequester, rate float64) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		phase := float64(tick) / rate
		state := mockState{
			Timestamp:      stream.EpochSeconds(time.Now()),
			JointPositions: make([]float64, 7),
			GripperWidth:   0.04 + 0.04*math.Sin(phase),
		}
		for joint := range state.JointPositions {
			state.JointPositions[joint] = math.Sin(phase + float64(joint))
		}

		record, err := codec.Marshal(state)
		if err != nil {
			logger.Error("encoding state record", "error", err)
			return
		}
		if err := requester.Send(record); err != nil {
			if ctx.Err() == nil {
				logger.Error("sending state record", "error", err)
			}
			return
		}
	}
}

// publishTactile emits a 15-wide magnetometer vector and a scalar
// temperature at the given rate, the shape of a five-taxel sensor.
func publishTactile(ctx context.Context, logger *slog.Logger, publisher *stream.TactilePublisher, rate float64) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		phase := float64(tick) / rate
		magnetometer := make([]float32, 15)
		for i := range magnetometer {
			magnetometer[i] = float32(math.Sin(phase*2*math.Pi + float64(i)))
		}
		sample := stream.TactileSample{
			Timestamp: stream.EpochSeconds(time.Now()),
			Values: map[string][]float32{
				"magnetometer": magnetometer,
				"temperature":  {25 + float32(math.Sin(phase))},
			},
		}
		if err := publisher.Publish(sample); err != nil {
			if ctx.Err() == nil {
				logger.Error("publishing tactile sample", "error", err)
			}
			return
		}
	}
}
