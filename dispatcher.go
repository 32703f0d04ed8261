// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package rstream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	channels "gopkg.in/eapache/channels.v1"

	"github.com/streamwire/rstream/commands"
	"github.com/streamwire/rstream/rlog"
	"github.com/streamwire/rstream/worker"
)

// PushHandler receives one decoded push command: a Deliver, PublishConfirm,
// PublishError, MetadataUpdate, or a handful of other opcodes a correlated
// request never solicited.
type PushHandler func(cmd commands.Command)

type waiter struct {
	result chan commands.Command
	err    chan error
}

// Dispatcher is the Connection's on_frame collaborator: it decodes each
// inbound frame, pairs response frames with the waiter registered for
// their correlation id, and forwards push frames to a registered handler
// keyed by opcode. It also owns Tune negotiation and the heartbeat
// send/timeout loop.
//
// Dispatcher holds a reference to its Connection so it can send Tune
// replies and heartbeats; the Connection holds only bound-method callbacks
// pointing back into Dispatcher, never a Dispatcher field, breaking the
// cycle the two types would otherwise form.
type Dispatcher struct {
	worker.Worker

	log  *log.Logger
	conn *Connection

	mu      sync.Mutex
	waiters map[uint32]*waiter

	handlersMu sync.RWMutex
	handlers   map[uint16]PushHandler

	pushQueue channels.Channel

	clientFrameMax        uint32
	clientHeartbeatPeriod time.Duration

	tuneMu              sync.Mutex
	negotiatedHeartbeat time.Duration
	negotiatedFrameMax  uint32
	tuned               bool

	lastSeenMu sync.Mutex
	lastSeen   time.Time
}

// NewDispatcher returns a Dispatcher offering clientFrameMax and
// clientHeartbeatPeriod as this side's maxima during Tune negotiation.
func NewDispatcher(clientFrameMax uint32, clientHeartbeatPeriod time.Duration, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = rlog.New("dispatch")
	}
	d := &Dispatcher{
		log:                   logger,
		waiters:               make(map[uint32]*waiter),
		handlers:              make(map[uint16]PushHandler),
		pushQueue:             channels.NewInfiniteChannel(),
		clientFrameMax:        clientFrameMax,
		clientHeartbeatPeriod: clientHeartbeatPeriod,
	}
	d.Go(d.runPushQueue)
	return d
}

// Attach binds the Dispatcher to the Connection it dispatches for and
// starts the heartbeat loop. Call it once, right after Dial.
func (d *Dispatcher) Attach(conn *Connection) {
	d.conn = conn
	d.lastSeenMu.Lock()
	d.lastSeen = time.Now()
	d.lastSeenMu.Unlock()
	if d.clientHeartbeatPeriod > 0 {
		d.Go(d.heartbeatLoop)
	}
}

// RegisterPushHandler installs the handler invoked for unsolicited push
// frames carrying opcode key. Registering twice for the same key replaces
// the previous handler.
func (d *Dispatcher) RegisterPushHandler(key uint16, h PushHandler) {
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()
	d.handlers[key] = h
}

// Call sends cmd, which must carry a correlation id, and blocks until the
// matching response arrives, ctx is done, or the connection closes.
func (d *Dispatcher) Call(ctx context.Context, cmd commands.Command) (commands.Command, error) {
	corrID, ok := cmd.CorrelationID()
	if !ok {
		return nil, fmt.Errorf("rstream: %T does not carry a correlation id", cmd)
	}

	w := &waiter{result: make(chan commands.Command, 1), err: make(chan error, 1)}
	if err := d.registerWaiter(corrID, w); err != nil {
		return nil, err
	}
	defer d.removeWaiter(corrID)

	if _, err := d.conn.Write(ctx, cmd); err != nil {
		return nil, err
	}

	select {
	case resp := <-w.result:
		return resp, nil
	case err := <-w.err:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.conn.HaltCh():
		return nil, ErrConnectionClosed
	}
}

func (d *Dispatcher) registerWaiter(corrID uint32, w *waiter) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.waiters[corrID]; exists {
		return ErrDuplicateWaiter
	}
	d.waiters[corrID] = w
	return nil
}

func (d *Dispatcher) removeWaiter(corrID uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.waiters, corrID)
}

// OnFrame is the Connection's inbound frame callback. It decodes the frame
// and routes it to a waiter (responses), a push handler (unsolicited
// commands), or logs and drops it (unknown opcode). A returned error is
// fatal and closes the Connection; OnFrame returns one for a genuine
// DecodeError or when the Tune reply cannot be written; an unrecognized
// opcode is non-fatal by design.
//
// payload is copied before decoding, since decoded byte fields alias the
// buffer they were read from and may outlive this call in a waiter or the
// push queue.
func (d *Dispatcher) OnFrame(payload []byte) error {
	cmd, err := commands.Decode(append([]byte(nil), payload...))
	if err != nil {
		if errors.Is(err, commands.ErrUnknownCommand) {
			d.log.Warnf("dropping frame: %v", err)
			return nil
		}
		var opcode uint16
		if len(payload) >= 2 {
			opcode = binary.BigEndian.Uint16(payload)
		}
		return &DecodeError{Opcode: opcode, Err: err}
	}

	d.lastSeenMu.Lock()
	d.lastSeen = time.Now()
	d.lastSeenMu.Unlock()

	if corrID, ok := cmd.CorrelationID(); ok && !commands.IsPushOpcode(cmd.Key()) {
		d.deliverResponse(corrID, cmd)
		return nil
	}

	switch t := cmd.(type) {
	case *commands.Heartbeat:
		return nil
	case *commands.Tune:
		return d.handleTune(t)
	}

	d.pushQueue.In() <- cmd
	return nil
}

func (d *Dispatcher) deliverResponse(corrID uint32, cmd commands.Command) {
	d.mu.Lock()
	w, ok := d.waiters[corrID]
	d.mu.Unlock()
	if !ok {
		d.log.Warnf("no waiter for correlation id %d (opcode %d)", corrID, cmd.Key())
		return
	}
	select {
	case w.result <- cmd:
	default:
	}
}

// runPushQueue decouples push-handler invocation from the frame-reader
// goroutine: a slow handler stalls only this loop, never the socket read
// that feeds OnFrame.
func (d *Dispatcher) runPushQueue() {
	for {
		select {
		case v, ok := <-d.pushQueue.Out():
			if !ok {
				return
			}
			cmd := v.(commands.Command)
			d.handlersMu.RLock()
			h := d.handlers[cmd.Key()]
			d.handlersMu.RUnlock()
			if h != nil {
				h(cmd)
			} else {
				d.log.Debugf("no push handler for opcode %d", cmd.Key())
			}
		case <-d.HaltCh():
			d.pushQueue.Close()
			return
		}
	}
}

// handleTune implements spec.md §4.5's Tune negotiation: on receiving a
// proposal, intersect with this side's maxima, send the intersection
// back, and lock those values for the rest of the connection.
func (d *Dispatcher) handleTune(t *commands.Tune) error {
	d.tuneMu.Lock()
	if d.tuned {
		d.tuneMu.Unlock()
		return nil
	}

	frameMax := t.FrameMax
	if d.clientFrameMax != 0 && (frameMax == 0 || d.clientFrameMax < frameMax) {
		frameMax = d.clientFrameMax
	}
	heartbeat := time.Duration(t.Heartbeat) * time.Second
	if d.clientHeartbeatPeriod != 0 && (heartbeat == 0 || d.clientHeartbeatPeriod < heartbeat) {
		heartbeat = d.clientHeartbeatPeriod
	}
	d.negotiatedFrameMax = frameMax
	d.negotiatedHeartbeat = heartbeat
	d.tuned = true
	d.tuneMu.Unlock()

	d.conn.SetFrameMax(frameMax)

	reply := &commands.Tune{FrameMax: frameMax, Heartbeat: uint32(heartbeat / time.Second)}
	_, err := d.conn.Write(context.Background(), reply)
	return err
}

// heartbeatLoop sends Heartbeat on the negotiated interval and tears the
// connection down with ErrHeartbeatTimeout if nothing has been received
// for twice that interval.
func (d *Dispatcher) heartbeatLoop() {
	period := d.clientHeartbeatPeriod
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.tuneMu.Lock()
			if d.tuned && d.negotiatedHeartbeat > 0 && d.negotiatedHeartbeat != period {
				period = d.negotiatedHeartbeat
				ticker.Reset(period)
			}
			d.tuneMu.Unlock()

			d.lastSeenMu.Lock()
			silence := time.Since(d.lastSeen)
			d.lastSeenMu.Unlock()
			if silence > 2*period {
				d.log.Errorf("%v: no frame in %s", ErrHeartbeatTimeout, silence)
				d.conn.DisposeWithReason(ErrHeartbeatTimeout.Error())
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), period)
			_, err := d.conn.Write(ctx, &commands.Heartbeat{})
			cancel()
			if err != nil {
				d.log.Warnf("heartbeat send failed: %v", err)
			}
		case <-d.HaltCh():
			return
		case <-d.conn.HaltCh():
			return
		}
	}
}
