// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package rstream

import "context"

// writeGate is the single-permit semaphore serializing writers onto one
// Connection's transport. It is a buffered channel of capacity one rather
// than a sync.Mutex so a blocked acquire can be abandoned cleanly on
// cancellation: giving up on the select below never takes the token, so
// the gate is never left held by a goroutine nobody is waiting on.
type writeGate struct {
	tok chan struct{}
}

func newWriteGate() writeGate {
	g := writeGate{tok: make(chan struct{}, 1)}
	g.tok <- struct{}{}
	return g
}

// tryAcquire is the fast path: take the token without blocking. ok is
// false if another writer currently holds the gate.
func (g *writeGate) tryAcquire() (ok bool) {
	select {
	case <-g.tok:
		return true
	default:
		return false
	}
}

// acquire is the slow path: block until the token is available, the
// context is cancelled, or halted fires. A cancellation here never
// acquires the token, so the gate is left exactly as it was.
func (g *writeGate) acquire(ctx context.Context, halted <-chan struct{}) error {
	select {
	case <-g.tok:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-halted:
		return ErrConnectionClosed
	}
}

// release gives the token back. Every acquire or successful tryAcquire
// must be paired with exactly one release, on every exit path including
// errors.
func (g *writeGate) release() {
	g.tok <- struct{}{}
}
