// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package rstream

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamwire/rstream/commands"
	"github.com/streamwire/rstream/frame"
)

// loopback starts a listener on 127.0.0.1 and returns its address plus the
// raw server-side connection once a client dials in.
func loopback(t *testing.T) (addr string, accept func() net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	connCh := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			connCh <- c
		}
	}()
	return ln.Addr().String(), func() net.Conn {
		t.Helper()
		select {
		case c := <-connCh:
			return c
		case <-time.After(2 * time.Second):
			t.Fatal("server side never accepted")
			return nil
		}
	}
}

func TestDialDeliversFramesToOnFrame(t *testing.T) {
	addr, accept := loopback(t)

	var mu sync.Mutex
	var got []commands.Command
	delivered := make(chan struct{}, 4)

	onFrame := func(payload []byte) error {
		cmd, err := commands.Decode(payload)
		if err != nil {
			return err
		}
		mu.Lock()
		got = append(got, cmd)
		mu.Unlock()
		delivered <- struct{}{}
		return nil
	}

	conn, err := Dial(context.Background(), addr, onFrame, nil, Options{})
	require.NoError(t, err)
	defer conn.Dispose()

	server := accept()
	defer server.Close()

	buf, err := frame.Encode(make([]byte, 0, 32), &commands.Heartbeat{ProtocolVer: 1})
	require.NoError(t, err)
	_, err = server.Write(buf)
	require.NoError(t, err)

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("frame never delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	require.Equal(t, commands.KeyHeartbeat, got[0].Key())
}

func TestOnClosedFiresExactlyOnceOnEOF(t *testing.T) {
	addr, accept := loopback(t)

	var calls atomic.Int32
	onClosed := func(reason string) { calls.Add(1) }

	conn, err := Dial(context.Background(), addr, nil, onClosed, Options{})
	require.NoError(t, err)

	server := accept()
	server.Close()

	require.Eventually(t, func() bool {
		return conn.IsClosed()
	}, 2*time.Second, 10*time.Millisecond)

	conn.Dispose()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())
}

func TestWriteAfterDisposeFailsWithErrConnectionClosed(t *testing.T) {
	addr, accept := loopback(t)

	conn, err := Dial(context.Background(), addr, nil, nil, Options{})
	require.NoError(t, err)
	server := accept()
	defer server.Close()

	conn.Dispose()

	_, err = conn.Write(context.Background(), &commands.Heartbeat{ProtocolVer: 1})
	require.ErrorIs(t, err, ErrConnectionClosed)
}

func TestConcurrentWritesDoNotInterleaveFrames(t *testing.T) {
	addr, accept := loopback(t)

	conn, err := Dial(context.Background(), addr, nil, nil, Options{})
	require.NoError(t, err)
	defer conn.Dispose()

	server := accept()
	defer server.Close()

	const writers = 8
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := conn.Write(context.Background(), &commands.DeclarePublisher{
				Correlation: uint32(i), PublisherID: byte(i), PublisherRef: "p", Stream: "s", ProtocolVer: 1,
			})
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	server.SetReadDeadline(time.Now().Add(2 * time.Second))
	readBuf := make([]byte, 4096)
	decoded := 0
	accum := accumulatorFor(t)
	for decoded < writers {
		n, err := server.Read(readBuf)
		require.NoError(t, err)
		accum.Write(readBuf[:n])
		for {
			payload, ok, err := accum.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			cmd, err := commands.Decode(payload)
			require.NoError(t, err)
			require.Equal(t, commands.KeyDeclarePublisher, cmd.Key())
			accum.Advance(len(payload))
			decoded++
		}
	}
}

func accumulatorFor(t *testing.T) *frame.Accumulator {
	t.Helper()
	return frame.NewAccumulator(0)
}

func TestWriteCancellationDoesNotHoldGate(t *testing.T) {
	addr, accept := loopback(t)

	conn, err := Dial(context.Background(), addr, nil, nil, Options{})
	require.NoError(t, err)
	defer conn.Dispose()

	server := accept()
	defer server.Close()

	require.True(t, conn.gate.tryAcquire())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = conn.Write(ctx, &commands.Heartbeat{ProtocolVer: 1})
	require.ErrorIs(t, err, context.Canceled)

	conn.gate.release()

	ok, err := conn.Write(context.Background(), &commands.Heartbeat{ProtocolVer: 1})
	require.NoError(t, err)
	require.True(t, ok)
}
