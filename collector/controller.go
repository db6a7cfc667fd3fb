// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/demorecord/lib/clock"
	"github.com/bureau-foundation/demorecord/stream"
)

const (
	// defaultPollInterval is how often the controller checks the
	// external stop signal. Coarse enough to avoid busy-spinning,
	// fine enough that shutdown latency is dominated by in-flight
	// receives, not by the poll.
	defaultPollInterval = 10 * time.Millisecond

	// defaultDrainLogInterval is how often the controller reports
	// streams that are still draining after the stop signal. A source
	// whose producer died blocks its recorder indefinitely; the
	// collector does not force-cancel it, but it must not hang
	// silently either.
	defaultDrainLogInterval = 5 * time.Second
)

// Config configures one recording session.
type Config struct {
	// StoragePath is the root under which the session directory is
	// created.
	StoragePath string

	// SessionNumber is the session ordinal (demonstration_<N>).
	SessionNumber int

	// Cameras configures the session's cameras, indexed by camera
	// number. Required when images or depth are collected.
	Cameras []CameraConfig

	// CollectImages, CollectDepth, CollectState, and CollectTactile
	// select the streams to record. At least one must be set.
	CollectImages  bool
	CollectDepth   bool
	CollectState   bool
	CollectTactile bool

	// PollInterval overrides the stop-signal poll interval. Zero
	// means the default (10 ms).
	PollInterval time.Duration

	// DrainLogInterval overrides the still-draining report interval.
	// Zero means the default (5 s).
	DrainLogInterval time.Duration

	// Clock defaults to the real clock.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (c *Config) validate() error {
	if c.StoragePath == "" {
		return errors.New("collector: storage path is empty")
	}
	if c.SessionNumber < 0 {
		return fmt.Errorf("collector: negative session number %d", c.SessionNumber)
	}
	if !c.CollectImages && !c.CollectDepth && !c.CollectState && !c.CollectTactile {
		return errors.New("collector: no streams enabled")
	}
	if (c.CollectImages || c.CollectDepth) && len(c.Cameras) == 0 {
		return errors.New("collector: camera streams enabled but no cameras configured")
	}
	if c.CollectImages {
		for i, camera := range c.Cameras {
			if camera.Width <= 0 || camera.Height <= 0 || camera.FPS <= 0 {
				return fmt.Errorf("collector: camera %d has invalid geometry %dx%d@%d", i, camera.Width, camera.Height, camera.FPS)
			}
		}
	}
	return nil
}

// Sources constructs the source adapter for each enabled stream. The
// production implementation is [NewZMQSources]; tests inject fakes.
// Each adapter is owned by its recorder, which closes it at finalize.
type Sources interface {
	// Camera returns the feed source for an RGB or depth kind.
	Camera(kind stream.Kind) (stream.FrameSource, error)

	// State returns the robot state channel source.
	State() (stream.StateSource, error)

	// Tactile returns the tactile feed source.
	Tactile() (stream.TactileSource, error)
}

// Controller owns one session: it creates the session directory,
// constructs one recorder per enabled stream, runs them concurrently,
// and coordinates the stop/drain/finalize sequence. Single-use: one
// controller records one session.
type Controller struct {
	session   Session
	recorders []Recorder

	run              *RunFlag
	clk              clock.Clock
	logger           *slog.Logger
	pollInterval     time.Duration
	drainLogInterval time.Duration
}

// New validates the configuration, creates the session directory, and
// constructs every source adapter and recorder. Nothing runs yet. Any
// failure here is fatal: no partial session starts, and an
// already-created session directory is left in place.
func New(cfg Config, sources Sources) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	drainLogInterval := cfg.DrainLogInterval
	if drainLogInterval <= 0 {
		drainLogInterval = defaultDrainLogInterval
	}

	session, err := CreateSession(cfg.StoragePath, cfg.SessionNumber, clk.Now())
	if err != nil {
		return nil, err
	}
	logger.Info("session storage created", "directory", session.Directory)

	controller := &Controller{
		session:          session,
		run:              newRunFlag(),
		clk:              clk,
		logger:           logger,
		pollInterval:     pollInterval,
		drainLogInterval: drainLogInterval,
	}

	if cfg.CollectImages {
		for i, camera := range cfg.Cameras {
			kind := stream.RGB(i)
			source, err := sources.Camera(kind)
			if err != nil {
				return nil, fmt.Errorf("collector: constructing %s source: %w", kind, err)
			}
			writer, err := NewFrameWriter(session.VideoPath(i), camera)
			if err != nil {
				source.Close()
				return nil, &EncodingError{Stream: kind, Artifact: session.VideoPath(i), Err: err}
			}
			controller.recorders = append(controller.recorders,
				newRGBRecorder(kind, source, writer, camera, session, clk, logger))
		}
	}

	if cfg.CollectDepth {
		for i := range cfg.Cameras {
			kind := stream.Depth(i)
			source, err := sources.Camera(kind)
			if err != nil {
				return nil, fmt.Errorf("collector: constructing %s source: %w", kind, err)
			}
			controller.recorders = append(controller.recorders,
				newDepthRecorder(kind, source, logger))
		}
	}

	if cfg.CollectState {
		source, err := sources.State()
		if err != nil {
			return nil, fmt.Errorf("collector: constructing state source: %w", err)
		}
		controller.recorders = append(controller.recorders,
			newStateRecorder(source, session, logger))
	}

	if cfg.CollectTactile {
		source, err := sources.Tactile()
		if err != nil {
			return nil, fmt.Errorf("collector: constructing tactile source: %w", err)
		}
		controller.recorders = append(controller.recorders,
			newTactileRecorder(source, session, logger))
	}

	return controller, nil
}

// Session returns the session this controller records into.
func (c *Controller) Session() Session { return c.session }

// Stopping reports whether the controller has observed the stop
// signal and cleared the run flag. Progress displays use it to switch
// from "recording" to "draining".
func (c *Controller) Stopping() bool { return !c.run.Running() }

// Recorders returns the controller's recorders, one per enabled
// stream. Read-only; useful for progress displays and tests.
func (c *Controller) Recorders() []Recorder {
	return append([]Recorder(nil), c.recorders...)
}

// Run starts every recorder concurrently, polls stop until it is
// asserted, then clears the run flag and waits for every recorder to
// finalize. Blocks until the whole session is done.
//
// Worker failures are isolated: a recorder that fails (or panics)
// reports its error here, joined into the return value, while sibling
// recorders keep recording and flushing. Run returns nil only when
// every stream recorded and finalized cleanly.
func (c *Controller) Run(stop *atomic.Bool) error {
	type result struct {
		kind stream.Kind
		err  error
	}
	results := make(chan result, len(c.recorders))

	var workers sync.WaitGroup
	for _, recorder := range c.recorders {
		workers.Add(1)
		go func(r Recorder) {
			defer workers.Done()
			results <- result{kind: r.Kind(), err: c.runRecorder(r)}
		}(recorder)
	}

	c.logger.Info("recording started",
		"directory", c.session.Directory,
		"streams", len(c.recorders),
	)

	for !stop.Load() {
		c.clk.Sleep(c.pollInterval)
	}

	c.logger.Info("stop signal received, draining streams")
	c.run.stop()

	// A recorder blocked in a receive call drains after at most one
	// more sample. A stream whose producer has died never delivers
	// that sample; report the stragglers instead of hanging silently.
	done := make(chan struct{})
	go func() {
		workers.Wait()
		close(done)
	}()
	ticker := c.clk.NewTicker(c.drainLogInterval)
	defer ticker.Stop()
	for draining := true; draining; {
		select {
		case <-done:
			draining = false
		case <-ticker.C:
			c.logger.Warn("still draining streams", "streams", c.drainingStreams())
		}
	}

	var errs []error
	for range c.recorders {
		r := <-results
		if r.err != nil {
			c.logger.Error("stream failed", "stream", r.kind.String(), "error", r.err)
			errs = append(errs, r.err)
		}
	}

	c.logger.Info("recording finished", "directory", c.session.Directory)
	return errors.Join(errs...)
}

// runRecorder is the per-worker failure boundary: a panicking
// recorder becomes an error result instead of taking down the
// process and the join of its siblings.
func (c *Controller) runRecorder(r Recorder) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("collector: %s recorder panicked: %v", r.Kind(), recovered)
		}
	}()

	c.logger.Info("stream recording started", "stream", r.Kind().String())
	err = r.Record(c.run)
	c.logger.Info("stream recording stopped",
		"stream", r.Kind().String(),
		"samples", r.SampleCount(),
	)
	return err
}

// drainingStreams lists the streams that have not finished
// finalizing.
func (c *Controller) drainingStreams() []string {
	var pending []string
	for _, recorder := range c.recorders {
		if recorder.Phase() != PhaseDone {
			pending = append(pending, fmt.Sprintf("%s(%s)", recorder.Kind(), recorder.Phase()))
		}
	}
	return pending
}
