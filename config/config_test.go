// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rstream.toml")
	body := `
[endpoint]
host = "broker.internal"
port = 5552

[tls]
enabled = true
server_name = "broker.internal"

[limits]
frame_max = 1048576
heartbeat_seconds = 60
dial_timeout_seconds = 5
short_wait_seconds = 2
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "broker.internal", cfg.Endpoint.Host)
	require.Equal(t, 5552, cfg.Endpoint.Port)
	require.True(t, cfg.TLS.Enabled)
	require.Equal(t, uint32(1048576), cfg.Limits.FrameMax)
}

func TestValidateRejectsMissingHost(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.Endpoint.Host = "broker"
	cfg.Endpoint.Port = 70000
	require.Error(t, cfg.Validate())
}
