// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvVariable names the environment variable [Load] reads the config
// file path from.
const EnvVariable = "DEMORECORD_CONFIG"

// Config is the collector configuration.
type Config struct {
	// StoragePath is the root directory for session directories.
	StoragePath string `yaml:"storage_path"`

	// Endpoints locates the sensor producers on the network.
	Endpoints Endpoints `yaml:"endpoints"`

	// Cameras configures each camera, indexed by camera number.
	Cameras []Camera `yaml:"cameras"`

	// Collect selects which streams are recorded.
	Collect Collect `yaml:"collect"`
}

// Endpoints locates the sensor producers. Camera i publishes RGB on
// CameraPort+i and depth on CameraPort+DepthPortOffset+i.
type Endpoints struct {
	Host            string `yaml:"host"`
	CameraPort      int    `yaml:"camera_port"`
	DepthPortOffset int    `yaml:"depth_port_offset"`
	StatePort       int    `yaml:"state_port"`
	TactilePort     int    `yaml:"tactile_port"`
}

// Camera is one camera's capture geometry.
type Camera struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// Collect selects the streams to record.
type Collect struct {
	Images  bool `yaml:"images"`
	Depth   bool `yaml:"depth"`
	State   bool `yaml:"state"`
	Tactile bool `yaml:"tactile"`
}

// Default returns a Config with the conventional lab endpoint layout
// and no cameras. StoragePath must still be provided.
func Default() Config {
	return Config{
		Endpoints: Endpoints{
			Host:            "localhost",
			CameraPort:      10005,
			DepthPortOffset: 1000,
			StatePort:       8900,
			TactilePort:     12005,
		},
		Collect: Collect{Images: true, State: true},
	}
}

// Load reads the config file named by the DEMORECORD_CONFIG
// environment variable.
func Load() (Config, error) {
	path := os.Getenv(EnvVariable)
	if path == "" {
		return Config{}, fmt.Errorf("config: %s is not set", EnvVariable)
	}
	return LoadFile(path)
}

// LoadFile reads and validates a config file. Fields absent from the
// file keep their [Default] values.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.StoragePath == "" {
		return errors.New("storage_path is required")
	}
	if c.Endpoints.Host == "" {
		return errors.New("endpoints.host is required")
	}
	for _, port := range []struct {
		name  string
		value int
	}{
		{"endpoints.camera_port", c.Endpoints.CameraPort},
		{"endpoints.state_port", c.Endpoints.StatePort},
		{"endpoints.tactile_port", c.Endpoints.TactilePort},
	} {
		if port.value <= 0 || port.value > 65535 {
			return fmt.Errorf("%s %d is out of range", port.name, port.value)
		}
	}
	if c.Endpoints.DepthPortOffset < 0 {
		return fmt.Errorf("endpoints.depth_port_offset %d is negative", c.Endpoints.DepthPortOffset)
	}
	if (c.Collect.Images || c.Collect.Depth) && len(c.Cameras) == 0 {
		return errors.New("camera streams enabled but no cameras configured")
	}
	if c.Collect.Images {
		for i, camera := range c.Cameras {
			if camera.Width <= 0 || camera.Height <= 0 || camera.FPS <= 0 {
				return fmt.Errorf("cameras[%d] has invalid geometry %dx%d@%d", i, camera.Width, camera.Height, camera.FPS)
			}
		}
	}
	if !c.Collect.Images && !c.Collect.Depth && !c.Collect.State && !c.Collect.Tactile {
		return errors.New("no streams enabled")
	}
	return nil
}
