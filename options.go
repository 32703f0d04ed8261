// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package rstream

import (
	"crypto/tls"
	"crypto/x509"
	"net"
)

// TLSOptions mirrors spec.md §6's tls_options collaborator interface:
// enabled, server_name, certificates, verify_mode.
type TLSOptions struct {
	Enabled            bool
	ServerName         string
	Certificates       []tls.Certificate
	InsecureSkipVerify bool
	RootCAs            *x509.CertPool
}

func (o TLSOptions) buildConfig() *tls.Config {
	return &tls.Config{
		ServerName:         o.ServerName,
		Certificates:       o.Certificates,
		InsecureSkipVerify: o.InsecureSkipVerify,
		RootCAs:            o.RootCAs,
		MinVersion:         tls.VersionTLS12,
	}
}

// socketBufferScale is the factor the reference implementation scales the
// OS-default socket buffer sizes by: 10x, to absorb the broker's larger
// batched chunk deliveries without backpressuring the kernel socket layer.
const socketBufferScale = 10

// tuneSocketBuffers enlarges conn's send/receive buffers by
// socketBufferScale over whatever the OS default left them at, and enables
// TCP_NODELAY so small command frames are not held back by Nagle's
// algorithm. Both are best-effort: a platform that rejects the resize
// request keeps its existing buffers.
func tuneSocketBuffers(conn *net.TCPConn) error {
	if err := conn.SetNoDelay(true); err != nil {
		return err
	}
	if sz, err := conn.ReadBuffer(); err == nil {
		_ = conn.SetReadBuffer(sz * socketBufferScale)
	}
	if sz, err := conn.WriteBuffer(); err == nil {
		_ = conn.SetWriteBuffer(sz * socketBufferScale)
	}
	return nil
}
