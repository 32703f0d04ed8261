// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHaltStopsAllGoroutines(t *testing.T) {
	var w Worker
	stopped := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		w.Go(func() {
			<-w.HaltCh()
			stopped <- struct{}{}
		})
	}
	w.Halt()
	for i := 0; i < 3; i++ {
		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("goroutine did not observe halt")
		}
	}
}

func TestHaltIsIdempotent(t *testing.T) {
	var w Worker
	require.NotPanics(t, func() {
		w.Halt()
		w.Halt()
	})
}
