// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package wire

import "errors"

// ErrUnderflow is returned when a read operation requests more bytes than
// remain in the input.
var ErrUnderflow = errors.New("wire: underflow reading from buffer")

// ErrOversizeString is returned when a decoded string length prefix is
// larger than the number of bytes remaining in the input.
var ErrOversizeString = errors.New("wire: string length exceeds remaining bytes")

// ErrStringTooLong is returned by WriteString when the UTF-8 length of the
// string does not fit in the protocol's signed 16-bit length prefix.
var ErrStringTooLong = errors.New("wire: string length exceeds int16 range")

// ErrNullString is returned by ReadString when the decoded length prefix is
// the null-string sentinel (-1) but the caller asked for a mandatory string.
var ErrNullString = errors.New("wire: unexpected null string")

// ErrInvalidUTF8 is returned by ReadString and ReadNullableString when the
// Reader has strict UTF-8 validation enabled and a decoded string's bytes
// are not well-formed UTF-8.
var ErrInvalidUTF8 = errors.New("wire: string is not valid UTF-8")
