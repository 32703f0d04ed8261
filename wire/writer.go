// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package wire implements the primitive encoders and decoders for the
// RabbitMQ Stream protocol's binary wire format: fixed-width big-endian
// integers, int16 length-prefixed strings, and int32 length-prefixed byte
// arrays. Commands built on top of this package borrow a Writer's staging
// region and write their fields into it directly; nothing in this package
// allocates on the hot path beyond what the caller already supplied.
package wire

import (
	"encoding/binary"
	"math"
)

// Writer accumulates encoded fields into a caller-supplied byte slice. The
// zero value is not usable; construct one with NewWriter over a buffer
// rented from a pool (or any slice with spare capacity).
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer that appends into buf starting at buf[:0].
// Callers typically pass a pooled buffer sized to a command's SizeNeeded.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf[:0]}
}

// Reset rebinds the Writer to a fresh staging buffer, discarding any
// previously written bytes. This lets a single Writer be pulled from a pool
// and reused across many command encodes.
func (w *Writer) Reset(buf []byte) {
	w.buf = buf[:0]
}

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// WriteUint8 appends a single byte and returns the number of bytes written.
func (w *Writer) WriteUint8(v uint8) int {
	w.buf = append(w.buf, v)
	return 1
}

// WriteBool appends a single byte: 0 for false, 1 for true.
func (w *Writer) WriteBool(v bool) int {
	if v {
		return w.WriteUint8(1)
	}
	return w.WriteUint8(0)
}

// WriteUint16 appends v in big-endian order.
func (w *Writer) WriteUint16(v uint16) int {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return 2
}

// WriteUint32 appends v in big-endian order.
func (w *Writer) WriteUint32(v uint32) int {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return 4
}

// WriteUint64 appends v in big-endian order.
func (w *Writer) WriteUint64(v uint64) int {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return 8
}

// WriteInt16 appends v in big-endian two's complement order.
func (w *Writer) WriteInt16(v int16) int { return w.WriteUint16(uint16(v)) }

// WriteInt32 appends v in big-endian two's complement order.
func (w *Writer) WriteInt32(v int32) int { return w.WriteUint32(uint32(v)) }

// WriteInt64 appends v in big-endian two's complement order.
func (w *Writer) WriteInt64(v int64) int { return w.WriteUint64(uint64(v)) }

// SizeOfString returns the number of bytes WriteString(s) would emit.
func SizeOfString(s string) int { return 2 + len(s) }

// WriteString appends an int16 length-prefixed UTF-8 string. It returns
// ErrStringTooLong if the string's byte length does not fit in an int16.
func (w *Writer) WriteString(s string) (int, error) {
	if len(s) > math.MaxInt16 {
		return 0, ErrStringTooLong
	}
	n := w.WriteInt16(int16(len(s)))
	w.buf = append(w.buf, s...)
	return n + len(s), nil
}

// WriteNullString appends the null-string sentinel (length -1, no payload).
func (w *Writer) WriteNullString() int {
	return w.WriteInt16(-1)
}

// WriteBytes appends an int32 length-prefixed byte array.
func (w *Writer) WriteBytes(b []byte) int {
	n := w.WriteInt32(int32(len(b)))
	w.buf = append(w.buf, b...)
	return n + len(b)
}

// WriteNullBytes appends the null-byte-array sentinel (length -1).
func (w *Writer) WriteNullBytes() int {
	return w.WriteInt32(-1)
}
