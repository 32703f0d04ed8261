// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package frame

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamwire/rstream/commands"
)

// s1s2s3 returns the concatenated wire bytes of the spec's three reference
// scenarios: DeclarePublisher, Heartbeat, Tune, plus each command's
// SizeNeeded so callers can check frame payload sizes without hardcoding a
// literal that can drift out of sync with how the commands package actually
// encodes them.
func s1s2s3(t *testing.T) (stream []byte, payloadSizes []int) {
	t.Helper()
	cmds := []commands.Command{
		&commands.DeclarePublisher{Correlation: 42, PublisherID: 7, PublisherRef: "p1", Stream: "s1", ProtocolVer: 1},
		&commands.Heartbeat{ProtocolVer: 1},
		&commands.Tune{FrameMax: 1048576, Heartbeat: 60, ProtocolVer: 1},
	}
	for _, c := range cmds {
		b, err := Encode(make([]byte, 0, 32), c)
		require.NoError(t, err)
		stream = append(stream, b...)
		payloadSizes = append(payloadSizes, commands.SizeNeeded(c))
	}
	return stream, payloadSizes
}

// TestSplitReadFramingIsChunkIndependent feeds the S1+S2+S3 byte stream
// through the accumulator one byte at a time and checks the exact sequence
// of payload sizes spec.md's S4 scenario names.
func TestSplitReadFramingIsChunkIndependent(t *testing.T) {
	stream, want := s1s2s3(t)

	acc := NewAccumulator(0)
	var sizes []int
	numFrames := 0
	for i := range stream {
		acc.Write(stream[i : i+1])
		for {
			payload, ok, err := acc.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			sizes = append(sizes, len(payload))
			acc.Advance(len(payload))
			numFrames++
		}
	}
	require.Equal(t, want, sizes)
	require.Equal(t, 3, numFrames)
}

// TestSplitReadFramingIsChunkSizeIndependent checks property 5: any
// chunking of the same byte stream yields the identical frame sequence.
func TestSplitReadFramingIsChunkSizeIndependent(t *testing.T) {
	stream, _ := s1s2s3(t)

	extract := func(chunkSize int) [][]byte {
		acc := NewAccumulator(0)
		var frames [][]byte
		for off := 0; off < len(stream); off += chunkSize {
			end := off + chunkSize
			if end > len(stream) {
				end = len(stream)
			}
			acc.Write(stream[off:end])
			for {
				payload, ok, err := acc.Next()
				require.NoError(t, err)
				if !ok {
					break
				}
				cp := make([]byte, len(payload))
				copy(cp, payload)
				frames = append(frames, cp)
				acc.Advance(len(payload))
			}
		}
		return frames
	}

	byByte := extract(1)
	byThree := extract(3)
	whole := extract(len(stream))

	require.Equal(t, byByte, byThree)
	require.Equal(t, byByte, whole)
}

// TestZeroPayloadFrameRecognizedImmediately pins the Open Question fix:
// the length check must be ">= 4", not "> 4", so a 4-byte zero-payload
// frame is recognized the first time its bytes are all present.
func TestZeroPayloadFrameRecognizedImmediately(t *testing.T) {
	acc := NewAccumulator(0)
	acc.Write([]byte{0x00, 0x00, 0x00, 0x00})
	payload, ok, err := acc.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, payload)
}

func TestFrameTooLarge(t *testing.T) {
	acc := NewAccumulator(8)
	acc.Write([]byte{0x00, 0x00, 0x00, 0x10})
	_, ok, err := acc.Next()
	require.False(t, ok)
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestEncodeHeartbeatWireVector(t *testing.T) {
	b, err := Encode(make([]byte, 0, 8), &commands.Heartbeat{ProtocolVer: 1})
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x04, 0x00, 0x17, 0x00, 0x01}, b)
}
