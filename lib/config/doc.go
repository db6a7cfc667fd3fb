// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the
// collector.
//
// Configuration is loaded from a single file specified by either the
// DEMORECORD_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks, no ~/.config
// discovery, and no automatic file search. This keeps a recording
// rig's configuration deterministic and auditable: a session's
// artifacts should never depend on a hidden override.
//
// [Default] returns the conventional lab layout: cameras publishing
// from camera_port upward, depth feeds offset by depth_port_offset,
// the robot state channel on state_port, tactile on tactile_port.
// A config file only needs to state what differs.
package config
