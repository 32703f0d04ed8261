// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package frame implements the outbound length-prefix assembly and inbound
// stream-to-frame extraction described by the connection core's framing
// rule: every payload on the wire is prefixed by a big-endian u32 byte
// count.
package frame

import "encoding/binary"

// LengthPrefixSize is the width of the outer frame length field.
const LengthPrefixSize = 4

// Accumulator extracts complete length-prefixed frames from an
// arbitrarily-chunked inbound byte stream. Callers feed it bytes as they
// arrive from the socket with Write, then repeatedly call Next until it
// reports no more complete frames are buffered.
//
// Feeding the same total bytes through Accumulator in any chunking split
// yields the identical sequence of frames (testable property 5).
type Accumulator struct {
	buf     []byte
	maxSize uint32
}

// NewAccumulator returns an Accumulator that rejects any frame whose
// declared payload exceeds maxFrameSize. A maxFrameSize of zero means
// unbounded.
func NewAccumulator(maxFrameSize uint32) *Accumulator {
	return &Accumulator{maxSize: maxFrameSize}
}

// SetMaxFrameSize updates the enforced ceiling, for use once Tune
// negotiation has fixed frame_max for the connection's lifetime.
func (a *Accumulator) SetMaxFrameSize(max uint32) {
	a.maxSize = max
}

// Write appends newly-read bytes to the accumulator's internal buffer.
func (a *Accumulator) Write(b []byte) {
	a.buf = append(a.buf, b...)
}

// Next returns the next complete frame's payload (the bytes after the
// length prefix) if one is fully buffered. The returned slice aliases the
// Accumulator's internal buffer and is only valid until the next call to
// Next or Advance. ok is false when more bytes are needed; err is non-nil
// only for ErrFrameTooLarge, which is fatal per spec.md §4.3.
//
// The length check below is ">= 4", not "> 4": a zero-payload frame is a
// complete 4-byte frame and must be recognized on the first pass.
func (a *Accumulator) Next() (payload []byte, ok bool, err error) {
	if len(a.buf) < LengthPrefixSize {
		return nil, false, nil
	}
	size := binary.BigEndian.Uint32(a.buf[:LengthPrefixSize])
	if a.maxSize != 0 && size > a.maxSize {
		return nil, false, ErrFrameTooLarge
	}
	total := LengthPrefixSize + int(size)
	if len(a.buf) < total {
		return nil, false, nil
	}
	return a.buf[LengthPrefixSize:total], true, nil
}

// Advance drops the most recently returned frame (length prefix plus
// payload) from the internal buffer. Callers call this once they are done
// with the slice Next returned, typically after copying it into a pooled
// buffer for delivery.
func (a *Accumulator) Advance(payloadLen int) {
	total := LengthPrefixSize + payloadLen
	if total > len(a.buf) {
		total = len(a.buf)
	}
	remaining := len(a.buf) - total
	copy(a.buf, a.buf[total:])
	a.buf = a.buf[:remaining]
}
