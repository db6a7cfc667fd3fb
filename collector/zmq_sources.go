// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/demorecord/stream"
)

// Endpoints is the network layout of the sensor producers. Camera i's
// RGB feed publishes on CameraPort+i, its depth feed on
// CameraPort+DepthPortOffset+i. The state channel is the one socket
// the collector binds (REP) rather than connects; the robot's control
// loop dials in.
type Endpoints struct {
	Host            string
	CameraPort      int
	DepthPortOffset int
	StatePort       int
	TactilePort     int
}

// zmqSources is the production Sources implementation over the ZMQ
// adapters in the stream package.
type zmqSources struct {
	ctx       context.Context
	endpoints Endpoints
}

var _ Sources = (*zmqSources)(nil)

// NewZMQSources returns a Sources that connects to the configured
// endpoints. ctx scopes every socket: cancelling it unblocks any
// pending receive during an emergency teardown.
func NewZMQSources(ctx context.Context, endpoints Endpoints) Sources {
	return &zmqSources{ctx: ctx, endpoints: endpoints}
}

func (s *zmqSources) Camera(kind stream.Kind) (stream.FrameSource, error) {
	port := s.endpoints.CameraPort + kind.Camera
	if kind.Class == stream.ClassDepth {
		port += s.endpoints.DepthPortOffset
	}
	return stream.ConnectCamera(s.ctx, s.endpoints.Host, port, kind)
}

func (s *zmqSources) State() (stream.StateSource, error) {
	return stream.BindState(s.ctx, s.endpoints.Host, s.endpoints.StatePort)
}

func (s *zmqSources) Tactile() (stream.TactileSource, error) {
	return stream.ConnectTactile(s.ctx, s.endpoints.Host, s.endpoints.TactilePort)
}

// String describes the endpoint layout for startup logging.
func (e Endpoints) String() string {
	return fmt.Sprintf("host=%s cameras=%d(+%d depth) state=%d tactile=%d",
		e.Host, e.CameraPort, e.DepthPortOffset, e.StatePort, e.TactilePort)
}
