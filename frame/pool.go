// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package frame

import "sync"

// Pool rents byte slices for inbound frame delivery. Buffers handed out by
// Get must be returned via Put once the caller's on_frame callback has
// finished with them; they must not be retained past that point, per the
// Connection's buffer-ownership contract.
type Pool struct {
	pool sync.Pool
}

// NewPool returns a Pool whose buffers start at the given capacity.
func NewPool(initialCap int) *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, 0, initialCap)
				return &b
			},
		},
	}
}

// Get returns a buffer with length n, reusing a pooled backing array when
// it is large enough.
func (p *Pool) Get(n int) []byte {
	bp := p.pool.Get().(*[]byte)
	b := *bp
	if cap(b) < n {
		b = make([]byte, n)
		return b
	}
	return b[:n]
}

// Put returns b to the pool for reuse. Callers must not touch b again
// after calling Put.
func (p *Pool) Put(b []byte) {
	b = b[:0]
	p.pool.Put(&b)
}
