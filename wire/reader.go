// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package wire

import (
	"encoding/binary"

	"golang.org/x/text/encoding/unicode"
)

// strictUTF8Decoder replaces each malformed UTF-8 sequence with U+FFFD.
// In strict mode the Reader compares its output with the input and rejects
// the string if anything was replaced, so a broker that mishandles the
// string length prefix cannot slip a broken stream name or reference past
// the frame layer undetected.
var strictUTF8Decoder = unicode.UTF8.NewDecoder()

// Reader decodes primitives from a byte slice in order, tracking its own
// read cursor. It never copies the underlying slice.
type Reader struct {
	buf    []byte
	off    int
	strict bool
}

// NewReader returns a Reader over buf starting at offset zero.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// SetStrictUTF8 enables or disables UTF-8 well-formedness checking on every
// subsequent ReadString and ReadNullableString call. Disabled by default,
// matching the protocol's own lack of a strictness flag; callers talking to
// a broker they don't fully trust can opt in.
func (r *Reader) SetStrictUTF8(strict bool) {
	r.strict = strict
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Offset returns the current read cursor.
func (r *Reader) Offset() int { return r.off }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return ErrUnderflow
	}
	return nil
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() (int, uint8, error) {
	if err := r.need(1); err != nil {
		return 0, 0, err
	}
	v := r.buf[r.off]
	r.off++
	return 1, v, nil
}

// ReadBool reads one byte; any non-zero value is true.
func (r *Reader) ReadBool() (int, bool, error) {
	n, v, err := r.ReadUint8()
	return n, v != 0, err
}

// ReadUint16 reads a big-endian uint16.
func (r *Reader) ReadUint16() (int, uint16, error) {
	if err := r.need(2); err != nil {
		return 0, 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return 2, v, nil
}

// ReadUint32 reads a big-endian uint32.
func (r *Reader) ReadUint32() (int, uint32, error) {
	if err := r.need(4); err != nil {
		return 0, 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return 4, v, nil
}

// ReadUint64 reads a big-endian uint64.
func (r *Reader) ReadUint64() (int, uint64, error) {
	if err := r.need(8); err != nil {
		return 0, 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return 8, v, nil
}

// ReadInt16 reads a big-endian int16.
func (r *Reader) ReadInt16() (int, int16, error) {
	n, v, err := r.ReadUint16()
	return n, int16(v), err
}

// ReadInt32 reads a big-endian int32.
func (r *Reader) ReadInt32() (int, int32, error) {
	n, v, err := r.ReadUint32()
	return n, int32(v), err
}

// ReadInt64 reads a big-endian int64.
func (r *Reader) ReadInt64() (int, int64, error) {
	n, v, err := r.ReadUint64()
	return n, int64(v), err
}

// ReadString reads a mandatory int16 length-prefixed UTF-8 string. It
// returns ErrNullString if the length prefix is the null-string sentinel
// (-1), and ErrOversizeString if the declared length exceeds the bytes
// remaining in the input.
func (r *Reader) ReadString() (int, string, error) {
	n, l, err := r.ReadInt16()
	if err != nil {
		return 0, "", err
	}
	if l == -1 {
		return n, "", ErrNullString
	}
	if l < 0 || int(l) > r.Remaining() {
		return n, "", ErrOversizeString
	}
	s := string(r.buf[r.off : r.off+int(l)])
	r.off += int(l)
	if r.strict {
		if out, err := strictUTF8Decoder.Bytes([]byte(s)); err != nil || string(out) != s {
			return n + int(l), "", ErrInvalidUTF8
		}
	}
	return n + int(l), s, nil
}

// ReadNullableString reads an int16 length-prefixed UTF-8 string that may be
// null. The returned bool is false when the wire value was the null-string
// sentinel, in which case the returned string is empty.
func (r *Reader) ReadNullableString() (int, string, bool, error) {
	n, l, err := r.ReadInt16()
	if err != nil {
		return 0, "", false, err
	}
	if l == -1 {
		return n, "", false, nil
	}
	if l < 0 || int(l) > r.Remaining() {
		return n, "", false, ErrOversizeString
	}
	s := string(r.buf[r.off : r.off+int(l)])
	r.off += int(l)
	if r.strict {
		if out, err := strictUTF8Decoder.Bytes([]byte(s)); err != nil || string(out) != s {
			return n + int(l), "", false, ErrInvalidUTF8
		}
	}
	return n + int(l), s, true, nil
}

// ReadBytes reads a mandatory int32 length-prefixed byte array. The
// returned slice aliases the Reader's backing array and must not be
// retained beyond the lifetime of that array.
func (r *Reader) ReadBytes() (int, []byte, error) {
	n, l, err := r.ReadInt32()
	if err != nil {
		return 0, nil, err
	}
	if l < 0 || int(l) > r.Remaining() {
		return n, nil, ErrOversizeString
	}
	b := r.buf[r.off : r.off+int(l)]
	r.off += int(l)
	return n + int(l), b, nil
}
