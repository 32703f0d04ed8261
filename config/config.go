// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads the connection core's TOML configuration: broker
// endpoint, TLS options, and the frame/heartbeat/timeout limits a
// Connection is constructed with.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root of a connection core's TOML configuration file.
type Config struct {
	Endpoint Endpoint `toml:"endpoint"`
	TLS      TLS      `toml:"tls"`
	Limits   Limits   `toml:"limits"`
}

// Endpoint identifies the broker to dial.
type Endpoint struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// TLS carries the options spec.md's tls_options collaborator interface
// names: enabled, server_name, and verification policy.
type TLS struct {
	Enabled            bool   `toml:"enabled"`
	ServerName         string `toml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

// Limits bounds the connection's frame size and timing behavior.
type Limits struct {
	FrameMax           uint32 `toml:"frame_max"`
	HeartbeatSeconds   int    `toml:"heartbeat_seconds"`
	DialTimeoutSeconds int    `toml:"dial_timeout_seconds"`
	ShortWaitSeconds   int    `toml:"short_wait_seconds"`
}

// HeartbeatInterval returns Limits.HeartbeatSeconds as a time.Duration.
func (l Limits) HeartbeatInterval() time.Duration {
	return time.Duration(l.HeartbeatSeconds) * time.Second
}

// DialTimeout returns Limits.DialTimeoutSeconds as a time.Duration.
func (l Limits) DialTimeout() time.Duration {
	return time.Duration(l.DialTimeoutSeconds) * time.Second
}

// ShortWait returns Limits.ShortWaitSeconds as a time.Duration: the bound
// Connection.Dispose waits for the frame-reader task to exit.
func (l Limits) ShortWait() time.Duration {
	return time.Duration(l.ShortWaitSeconds) * time.Second
}

// Default returns the configuration used when no file is supplied:
// a 1 MiB frame ceiling, 60 second heartbeat, 10 second dial timeout, and
// a 2 second short wait, matching the reference broker's own defaults.
func Default() *Config {
	return &Config{
		Limits: Limits{
			FrameMax:           1 << 20,
			HeartbeatSeconds:   60,
			DialTimeoutSeconds: 10,
			ShortWaitSeconds:   2,
		},
	}
}

// Load parses the TOML file at path into a Config and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	if c.Endpoint.Host == "" {
		return errors.New("config: endpoint.host is required")
	}
	if c.Endpoint.Port <= 0 || c.Endpoint.Port > 65535 {
		return fmt.Errorf("config: endpoint.port %d out of range", c.Endpoint.Port)
	}
	if c.Limits.FrameMax == 0 {
		return errors.New("config: limits.frame_max must be nonzero")
	}
	if c.Limits.HeartbeatSeconds < 0 {
		return errors.New("config: limits.heartbeat_seconds must be non-negative")
	}
	return nil
}
