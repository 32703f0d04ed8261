// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package rstream

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamwire/rstream/commands"
	"github.com/streamwire/rstream/frame"
)

// serverLoop runs a tiny scripted broker stand-in on the accepted server
// side of a loopback connection: it decodes whatever the client writes and
// invokes reply for each one, writing back whatever frame it returns.
func serverLoop(t *testing.T, server net.Conn, reply func(cmd commands.Command) commands.Command) {
	t.Helper()
	go func() {
		acc := frame.NewAccumulator(0)
		buf := make([]byte, 4096)
		for {
			n, err := server.Read(buf)
			if err != nil {
				return
			}
			acc.Write(buf[:n])
			for {
				payload, ok, err := acc.Next()
				if err != nil || !ok {
					break
				}
				cmd, err := commands.Decode(payload)
				acc.Advance(len(payload))
				if err != nil {
					continue
				}
				if resp := reply(cmd); resp != nil {
					out, err := frame.Encode(make([]byte, 0, 64), resp)
					if err != nil {
						return
					}
					if _, err := server.Write(out); err != nil {
						return
					}
				}
			}
		}
	}()
}

func dialWithDispatcher(t *testing.T, reply func(cmd commands.Command) commands.Command) (*Connection, *Dispatcher, net.Conn) {
	t.Helper()
	addr, accept := loopback(t)

	d := NewDispatcher(1<<20, 0, nil)
	conn, err := Dial(context.Background(), addr, d.OnFrame, nil, Options{})
	require.NoError(t, err)
	d.Attach(conn)

	server := accept()
	serverLoop(t, server, reply)

	t.Cleanup(func() {
		conn.Dispose()
		server.Close()
	})
	return conn, d, server
}

func TestCallMatchesResponseByCorrelationID(t *testing.T) {
	_, d, _ := dialWithDispatcher(t, func(cmd commands.Command) commands.Command {
		req, ok := cmd.(*commands.DeclarePublisher)
		if !ok {
			return nil
		}
		return &commands.DeclarePublisherResponse{Correlation: req.Correlation, ResponseCode: commands.ResponseCodeOK, ProtocolVer: 1}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := d.Call(ctx, &commands.DeclarePublisher{Correlation: 99, PublisherID: 1, PublisherRef: "p", Stream: "s", ProtocolVer: 1})
	require.NoError(t, err)

	decl, ok := resp.(*commands.DeclarePublisherResponse)
	require.True(t, ok)
	require.Equal(t, uint32(99), decl.Correlation)
	require.True(t, decl.ResponseCode.IsOK())
}

func TestCallTimesOutWithoutResponse(t *testing.T) {
	_, d, _ := dialWithDispatcher(t, func(cmd commands.Command) commands.Command { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := d.Call(ctx, &commands.DeclarePublisher{Correlation: 1, PublisherID: 1, PublisherRef: "p", Stream: "s", ProtocolVer: 1})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPushFramesRouteToRegisteredHandler(t *testing.T) {
	delivered := make(chan commands.Command, 1)

	addr, accept := loopback(t)
	d := NewDispatcher(1<<20, 0, nil)
	d.RegisterPushHandler(commands.KeyDeliver, func(cmd commands.Command) {
		delivered <- cmd
	})
	conn, err := Dial(context.Background(), addr, d.OnFrame, nil, Options{})
	require.NoError(t, err)
	d.Attach(conn)
	defer conn.Dispose()

	server := accept()
	defer server.Close()

	out, err := frame.Encode(make([]byte, 0, 64), &commands.Deliver{
		SubscriptionID: 3, MagicVersion: 1, ChunkType: 0, NumEntries: 0, NumRecords: 0,
		Timestamp: 0, Epoch: 0, ChunkFirstOffset: 0, ChunkCRC: 0, DataLength: 0, TrailerLength: 0, Reserved: 0,
	})
	require.NoError(t, err)
	_, err = server.Write(out)
	require.NoError(t, err)

	select {
	case cmd := <-delivered:
		deliver, ok := cmd.(*commands.Deliver)
		require.True(t, ok)
		require.Equal(t, uint8(3), deliver.SubscriptionID)
	case <-time.After(2 * time.Second):
		t.Fatal("push frame never routed to handler")
	}
}

func TestTuneNegotiatesMinimumOfBothSides(t *testing.T) {
	addr, accept := loopback(t)

	d := NewDispatcher(4096, 30*time.Second, nil)
	conn, err := Dial(context.Background(), addr, d.OnFrame, nil, Options{})
	require.NoError(t, err)
	d.Attach(conn)
	defer conn.Dispose()

	server := accept()
	defer server.Close()

	replyCh := make(chan commands.Command, 1)
	serverLoop(t, server, func(cmd commands.Command) commands.Command {
		if tune, ok := cmd.(*commands.Tune); ok {
			replyCh <- tune
		}
		return nil
	})

	out, err := frame.Encode(make([]byte, 0, 16), &commands.Tune{FrameMax: 1 << 20, Heartbeat: 60, ProtocolVer: 1})
	require.NoError(t, err)
	_, err = server.Write(out)
	require.NoError(t, err)

	select {
	case cmd := <-replyCh:
		tune := cmd.(*commands.Tune)
		require.Equal(t, uint32(4096), tune.FrameMax)
		require.Equal(t, uint32(30), tune.Heartbeat)
	case <-time.After(2 * time.Second):
		t.Fatal("client never echoed Tune")
	}
}

func TestDuplicateCorrelationIDRejected(t *testing.T) {
	_, d, _ := dialWithDispatcher(t, func(cmd commands.Command) commands.Command { return nil })

	w := &waiter{result: make(chan commands.Command, 1), err: make(chan error, 1)}
	require.NoError(t, d.registerWaiter(42, w))
	require.ErrorIs(t, d.registerWaiter(42, w), ErrDuplicateWaiter)
	d.removeWaiter(42)
}
