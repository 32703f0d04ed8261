// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

// Package commands implements the closed family of RabbitMQ Stream protocol
// request, response, and push records. Every member is keyed by a 16-bit
// opcode and protocol version and carries its body layout; opcode, version,
// and correlation-id framing is handled once by Write/SizeNeeded rather than
// inherited per command, matching the encoder-driven shape favored over the
// capability-interface-with-defaults style of the protocol's other clients.
package commands

import (
	"fmt"

	"github.com/streamwire/rstream/wire"
)

// Command is the capability every member of the command family implements.
// A Command is immutable after construction and owned by value; callers
// must not share one across concurrent writers.
type Command interface {
	// Key returns the 16-bit opcode identifying this command's layout.
	Key() uint16
	// Version returns the protocol version this value was built for.
	Version() uint16
	// CorrelationID returns the command's correlation id and whether it
	// carries one at all; Tune, Heartbeat, and the other fire-and-forget
	// push commands do not.
	CorrelationID() (id uint32, ok bool)
	// BodySize returns the exact byte length WriteBody will emit.
	BodySize() int
	// WriteBody serializes the command's body fields, in the documented
	// order, into w and returns the number of bytes written.
	WriteBody(w *wire.Writer) (int, error)
}

// headerSize is the number of bytes Write emits before a command's body:
// a uint16 opcode and a uint16 version.
const headerSize = 4

// SizeNeeded returns the exact number of bytes Write(c) will emit: this is
// the "length_of_rest" value a frame's outer length prefix must carry.
func SizeNeeded(c Command) int {
	n := headerSize + c.BodySize()
	if _, ok := c.CorrelationID(); ok {
		n += 4
	}
	return n
}

// Write serializes c's opcode, version, optional correlation id, and body
// into w, in that order, and returns the number of bytes written. It is an
// error for the body to report a BodySize inconsistent with what WriteBody
// actually emits, since that would desynchronize the outer frame length
// from the bytes that follow it.
func Write(w *wire.Writer, c Command) (int, error) {
	n := w.WriteUint16(c.Key())
	n += w.WriteUint16(c.Version())
	if id, ok := c.CorrelationID(); ok {
		n += w.WriteUint32(id)
	}
	bn, err := c.WriteBody(w)
	if err != nil {
		return n, err
	}
	n += bn
	if want := SizeNeeded(c); n != want {
		return n, fmt.Errorf("commands: opcode %d wrote %d bytes, size_needed is %d", c.Key(), n, want)
	}
	return n, nil
}

// Decode parses a single inbound frame body (the bytes after the outer
// u32 length prefix) into its concrete Command. The opcode and version are
// read from the front of b; the remainder is handed to the opcode's
// registered decoder. Decode returns ErrUnknownCommand for an opcode with
// no registered decoder — callers are expected to log and drop per the
// dispatcher's policy, not treat it as fatal.
func Decode(b []byte) (Command, error) {
	r := wire.NewReader(b)
	n1, key, err := r.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("commands: decode header: %w", err)
	}
	n2, version, err := r.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("commands: decode header: %w", err)
	}
	_ = n1 + n2

	dec, ok := decoders[key]
	if !ok {
		return nil, fmt.Errorf("%w: opcode %d", ErrUnknownCommand, key)
	}
	cmd, err := dec(version, r)
	if err != nil {
		return nil, fmt.Errorf("commands: decode opcode %d: %w", key, err)
	}
	return cmd, nil
}

// decodeFunc parses a command's correlation id (if the opcode's command
// carries one) and body from r, which is already positioned just past the
// header.
type decodeFunc func(version uint16, r *wire.Reader) (Command, error)

// decoders is the closed dispatch table from opcode to decoder. It is
// populated by each command file's init function and never mutated after
// package initialization, so reads from it need no synchronization.
var decoders = map[uint16]decodeFunc{}

func register(key uint16, fn decodeFunc) {
	if _, exists := decoders[key]; exists {
		panic(fmt.Sprintf("commands: opcode %d already registered", key))
	}
	decoders[key] = fn
}

// readCorrelationID reads the 4-byte correlation id every request/response
// command carries immediately after the header.
func readCorrelationID(r *wire.Reader) (uint32, error) {
	_, id, err := r.ReadUint32()
	return id, err
}
