// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package rstream implements the connection core of a RabbitMQ Stream
// protocol client: framed transport, command encoding/decoding, and a
// correlation-driven request/response dispatcher, all built on the wire,
// commands, and frame packages.
package rstream

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/trace"

	"github.com/streamwire/rstream/commands"
	"github.com/streamwire/rstream/frame"
	"github.com/streamwire/rstream/rlog"
	"github.com/streamwire/rstream/worker"
)

// OnFrame receives one complete decoded frame body, without its outer
// length prefix. The buffer is rented from a pool and is only valid for
// the duration of this call; implementations must not retain it.
type OnFrame func(payload []byte) error

// OnClosed is invoked exactly once, when the Connection's frame-reader
// task exits for any reason.
type OnClosed func(reason string)

// Options configures a Connection at construction time.
type Options struct {
	TLS TLSOptions
	// FrameMax bounds inbound frame payload size; exceeding it is fatal
	// per spec.md §4.3. Zero means unbounded until Tune negotiates one.
	FrameMax uint32
	// ShortWait bounds how long Dispose waits for the frame-reader task
	// to exit before giving up and logging an error.
	ShortWait time.Duration
	// Logger receives connection lifecycle and error events. Defaults to
	// a stderr logger prefixed "conn" if nil.
	Logger *log.Logger
}

// Connection owns one socket, a single-permit write gate, and a
// background frame-reader task. It exposes Write and surfaces inbound
// frames and the close event through the callbacks supplied to Dial.
type Connection struct {
	worker.Worker

	endpoint string
	conn     net.Conn
	log      *log.Logger
	tr       trace.EventLog

	gate        writeGate
	writeBuf    []byte
	isClosed    atomic.Bool
	numFrames   atomic.Uint64
	closeReason atomic.Value // string, set by DisposeWithReason before Dispose tears down the socket

	onFrame  OnFrame
	onClosed OnClosed
	closed   atomic.Bool // guards OnClosed's exactly-once invocation

	pool      *frame.Pool
	acc       *frame.Accumulator
	shortWait time.Duration
}

// Dial opens a TCP connection to endpoint (host:port), optionally wraps it
// in TLS, and starts the background frame-reader task. onFrame and
// onClosed are the Dispatcher's callbacks in normal use; onClosed fires
// exactly once.
func Dial(ctx context.Context, endpoint string, onFrame OnFrame, onClosed OnClosed, opts Options) (*Connection, error) {
	if opts.Logger == nil {
		opts.Logger = rlog.New("conn")
	}
	if opts.ShortWait == 0 {
		opts.ShortWait = 2 * time.Second
	}

	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, &SocketError{Endpoint: endpoint, Err: err}
	}

	if tcpConn, ok := raw.(*net.TCPConn); ok {
		if err := tuneSocketBuffers(tcpConn); err != nil {
			opts.Logger.Warnf("socket buffer tuning failed: %v", err)
		}
	}

	var transportConn net.Conn = raw
	if opts.TLS.Enabled {
		tlsConn := tls.Client(raw, opts.TLS.buildConfig())
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			raw.Close()
			return nil, &TLSError{Endpoint: endpoint, Err: err}
		}
		transportConn = tlsConn
	}

	c := &Connection{
		endpoint:  endpoint,
		conn:      transportConn,
		log:       opts.Logger,
		tr:        trace.NewEventLog("rstream.Connection", endpoint),
		gate:      newWriteGate(),
		onFrame:   onFrame,
		onClosed:  onClosed,
		pool:      frame.NewPool(4096),
		acc:       frame.NewAccumulator(opts.FrameMax),
		shortWait: opts.ShortWait,
		writeBuf:  make([]byte, 0, 4096),
	}
	c.Go(c.readLoop)
	return c, nil
}

// SetFrameMax updates the enforced inbound frame ceiling, called once Tune
// negotiation has fixed it for the connection's lifetime.
func (c *Connection) SetFrameMax(max uint32) {
	c.acc.SetMaxFrameSize(max)
}

// NumFrames returns the number of inbound frames successfully delivered to
// onFrame so far.
func (c *Connection) NumFrames() uint64 {
	return c.numFrames.Load()
}

// IsClosed reports whether the connection has closed.
func (c *Connection) IsClosed() bool {
	return c.isClosed.Load()
}

// Write encodes and sends cmd. It returns true once cmd's bytes have been
// handed to the transport; it fails with ErrConnectionClosed if the
// connection is already closed.
//
// The fast path tries to acquire the write gate without blocking; if that
// succeeds, the encode-and-flush happens synchronously on the caller's
// goroutine. If the gate is held, Write falls through to the slow path,
// which awaits the gate rather than spinning, then re-checks IsClosed
// after acquisition (the connection may have closed during the wait).
func (c *Connection) Write(ctx context.Context, cmd commands.Command) (bool, error) {
	if c.isClosed.Load() {
		return false, ErrConnectionClosed
	}

	if c.gate.tryAcquire() {
		return c.writeLocked(cmd)
	}
	return c.writeSlow(ctx, cmd)
}

func (c *Connection) writeSlow(ctx context.Context, cmd commands.Command) (bool, error) {
	if err := c.gate.acquire(ctx, c.HaltCh()); err != nil {
		return false, err
	}

	if c.isClosed.Load() {
		c.gate.release()
		return false, ErrConnectionClosed
	}
	return c.writeLocked(cmd)
}

// writeLocked assumes the caller holds the write gate and releases it on
// every exit path, including encode and flush failures.
func (c *Connection) writeLocked(cmd commands.Command) (bool, error) {
	defer c.gate.release()

	b, err := frame.Encode(c.writeBuf[:0], cmd)
	if err != nil {
		return false, fmt.Errorf("rstream: write opcode %d: %w", cmd.Key(), err)
	}
	if _, err := c.conn.Write(b); err != nil {
		return false, &SocketError{Endpoint: c.endpoint, Err: err}
	}
	return true, nil
}

// readLoop is the frame-reader task: it reads bytes from the socket,
// extracts complete frames, and delivers each to onFrame in order until
// the stream ends, the connection is halted, or an unrecoverable error
// occurs.
func (c *Connection) readLoop() {
	reason := "TCP Connection Closed"
	readBuf := make([]byte, 64*1024)

	defer func() {
		c.isClosed.Store(true)
		c.conn.Close()
		// Close HaltCh so writers and Dispatcher.Call waiters observe a
		// close that did not come from Dispose.
		go c.Halt()
		c.tr.Finish()
		if c.onClosed != nil && !c.closed.Swap(true) {
			c.onClosed(reason)
		}
		c.log.Debugf("connection closed: %s", reason)
	}()

	defer func() {
		if r, ok := c.closeReason.Load().(string); ok && r != "" {
			reason = r
		}
	}()

	for {
		select {
		case <-c.HaltCh():
			c.tr.Printf("halted")
			return
		default:
		}

		n, err := c.conn.Read(readBuf)
		if n > 0 {
			c.acc.Write(readBuf[:n])
			if err := c.drainFrames(); err != nil {
				c.log.Errorf("frame decode error: %v", err)
				reason = err.Error()
				return
			}
		}
		if err != nil {
			if n == 0 {
				c.tr.Printf("EOF")
			} else {
				c.log.Errorf("read error: %v", err)
				reason = err.Error()
			}
			return
		}
	}
}

// drainFrames extracts and delivers every complete frame currently
// buffered in the accumulator, copying each into a pooled buffer before
// invoking onFrame so the accumulator's own backing array can be reused
// immediately.
func (c *Connection) drainFrames() error {
	for {
		payload, ok, err := c.acc.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		buf := c.pool.Get(len(payload))
		copy(buf, payload)
		c.acc.Advance(len(payload))

		var frameErr error
		if c.onFrame != nil {
			frameErr = c.onFrame(buf)
		}
		c.pool.Put(buf)
		c.numFrames.Add(1)
		c.tr.Printf("frame delivered, %d bytes", len(payload))

		// onFrame's contract: a returned error is fatal (DecodeError and
		// the like). Non-fatal conditions like an unknown opcode are the
		// Dispatcher's responsibility to log and swallow before they ever
		// reach here.
		if frameErr != nil {
			return frameErr
		}
	}
}

// Dispose idempotently tears down the connection: marks it closed, closes
// the socket, and waits up to ShortWait for the frame-reader task to exit.
func (c *Connection) Dispose() {
	c.DisposeWithReason("connection closed")
}

// DisposeWithReason is Dispose, but the given reason is what onClosed
// observes instead of whatever the subsequent read error on the now-closed
// socket happens to say. The Dispatcher uses this to report
// ErrHeartbeatTimeout precisely instead of a generic "use of closed
// network connection".
func (c *Connection) DisposeWithReason(reason string) {
	if c.isClosed.Swap(true) {
		return
	}
	c.closeReason.Store(reason)
	c.conn.Close()

	done := make(chan struct{})
	go func() {
		c.Halt()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(c.shortWait):
		c.log.Errorf("frame-reader task did not exit within %s", c.shortWait)
	}
}
