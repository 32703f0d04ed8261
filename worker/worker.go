// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package worker provides the cooperative goroutine-lifecycle embedding
// used throughout this module's long-running tasks: a frame-reader loop,
// a heartbeat sender, a push-handler queue. Embedders call Go to launch a
// tracked goroutine and Halt to request every one of them stop, then wait
// for them to actually exit.
package worker

import "sync"

// Worker tracks a set of goroutines launched with Go and lets a caller
// request they all stop via Halt. The zero value is ready to use.
type Worker struct {
	initOnce sync.Once
	haltCh   chan struct{}
	haltOnce sync.Once
	wg       sync.WaitGroup
}

func (w *Worker) init() {
	w.initOnce.Do(func() {
		w.haltCh = make(chan struct{})
	})
}

// HaltCh returns the channel that closes when Halt is called. Goroutines
// launched via Go select on this to notice a halt request.
func (w *Worker) HaltCh() <-chan struct{} {
	w.init()
	return w.haltCh
}

// Go launches fn in a new goroutine tracked by this Worker. Halt blocks
// until every goroutine launched this way has returned.
func (w *Worker) Go(fn func()) {
	w.init()
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn()
	}()
}

// Halt closes HaltCh, signalling every tracked goroutine to stop, and
// blocks until they have all returned. Safe to call more than once; only
// the first call has effect.
func (w *Worker) Halt() {
	w.init()
	w.haltOnce.Do(func() {
		close(w.haltCh)
	})
	w.wg.Wait()
}
