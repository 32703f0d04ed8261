// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(make([]byte, 0, 64))
	w.WriteUint8(0xAB)
	w.WriteBool(true)
	w.WriteUint16(0x1234)
	w.WriteUint32(0xDEADBEEF)
	w.WriteUint64(0x0102030405060708)
	_, err := w.WriteString("hello")
	require.NoError(t, err)
	w.WriteNullString()
	w.WriteBytes([]byte{1, 2, 3})
	w.WriteNullBytes()

	r := NewReader(w.Bytes())
	_, u8, err := r.ReadUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(0xAB), u8)

	_, b, err := r.ReadBool()
	require.NoError(t, err)
	require.True(t, b)

	_, u16, err := r.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), u16)

	_, u32, err := r.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), u32)

	_, u64, err := r.ReadUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), u64)

	_, s, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "hello", s)

	_, _, ok, err := r.ReadNullableString()
	require.NoError(t, err)
	require.False(t, ok)

	_, bs, err := r.ReadBytes()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, bs)

	_, nb, err := r.ReadInt32()
	require.NoError(t, err)
	require.Equal(t, int32(-1), nb)

	require.Equal(t, 0, r.Remaining())
}

func TestReadStringRejectsNull(t *testing.T) {
	w := NewWriter(make([]byte, 0, 2))
	w.WriteNullString()
	r := NewReader(w.Bytes())
	_, _, err := r.ReadString()
	require.ErrorIs(t, err, ErrNullString)
}

func TestReadUnderflow(t *testing.T) {
	r := NewReader([]byte{0x00})
	_, _, err := r.ReadUint16()
	require.ErrorIs(t, err, ErrUnderflow)
}

func TestReadStringOversize(t *testing.T) {
	w := NewWriter(make([]byte, 0, 2))
	w.WriteInt16(100)
	r := NewReader(w.Bytes())
	_, _, err := r.ReadString()
	require.ErrorIs(t, err, ErrOversizeString)
}

func TestWriteStringTooLong(t *testing.T) {
	w := NewWriter(make([]byte, 0, 8))
	_, err := w.WriteString(string(make([]byte, 1<<16)))
	require.ErrorIs(t, err, ErrStringTooLong)
}

func TestStrictUTF8RejectsMalformedBytes(t *testing.T) {
	w := NewWriter(make([]byte, 0, 8))
	w.WriteInt16(2)
	buf := append(w.Bytes(), 0xC0, 0xC0) // lead bytes with no valid continuation, never well-formed UTF-8
	r := NewReader(buf)
	r.SetStrictUTF8(true)
	_, _, err := r.ReadString()
	require.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestStrictUTF8AcceptsWellFormedBytes(t *testing.T) {
	w := NewWriter(make([]byte, 0, 16))
	_, err := w.WriteString("héllo")
	require.NoError(t, err)
	r := NewReader(w.Bytes())
	r.SetStrictUTF8(true)
	_, s, err := r.ReadString()
	require.NoError(t, err)
	require.Equal(t, "héllo", s)
}
