// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamwire/rstream/wire"
)

// TestDeclarePublisherWireVector pins the bytes of a DeclarePublisher frame
// body to the reference encoding: opcode 1, version 1, correlation 7,
// publisher id 3, ref "p1", stream "s1".
func TestDeclarePublisherWireVector(t *testing.T) {
	cmd := &DeclarePublisher{
		Correlation:  7,
		PublisherID:  3,
		PublisherRef: "p1",
		Stream:       "s1",
		ProtocolVer:  1,
	}

	want := SizeNeeded(cmd)
	w := wire.NewWriter(make([]byte, 0, want))
	n, err := Write(w, cmd)
	require.NoError(t, err)
	require.Equal(t, want, n)

	expect := []byte{
		0x00, 0x01, // opcode 1
		0x00, 0x01, // version 1
		0x00, 0x00, 0x00, 0x07, // correlation 7
		0x03,       // publisher id 3
		0x00, 0x02, 'p', '1',
		0x00, 0x02, 's', '1',
	}
	require.Equal(t, expect, w.Bytes())

	decoded, err := Decode(w.Bytes())
	require.NoError(t, err)
	got, ok := decoded.(*DeclarePublisher)
	require.True(t, ok)
	require.Equal(t, cmd.Correlation, got.Correlation)
	require.Equal(t, cmd.PublisherID, got.PublisherID)
	require.Equal(t, cmd.PublisherRef, got.PublisherRef)
	require.Equal(t, cmd.Stream, got.Stream)
}

// TestQueryPublisherSeqRoundTrip checks the request carries a correlation
// id and the response decodes the resumed sequence number back out.
func TestQueryPublisherSeqRoundTrip(t *testing.T) {
	cmd := &QueryPublisherSeq{Correlation: 5, PublisherRef: "p1", Stream: "s1", ProtocolVer: 1}
	w := wire.NewWriter(make([]byte, 0, SizeNeeded(cmd)))
	n, err := Write(w, cmd)
	require.NoError(t, err)
	require.Equal(t, SizeNeeded(cmd), n)

	decoded, err := Decode(w.Bytes())
	require.NoError(t, err)
	got, ok := decoded.(*QueryPublisherSeq)
	require.True(t, ok)
	require.Equal(t, cmd.Correlation, got.Correlation)
	require.Equal(t, cmd.PublisherRef, got.PublisherRef)
	require.Equal(t, cmd.Stream, got.Stream)

	resp := &QueryPublisherSeqResponse{Correlation: 5, ResponseCode: ResponseCodeOK, Sequence: 123456, ProtocolVer: 1}
	rw := wire.NewWriter(make([]byte, 0, SizeNeeded(resp)))
	_, err = Write(rw, resp)
	require.NoError(t, err)

	decodedResp, err := Decode(rw.Bytes())
	require.NoError(t, err)
	gotResp, ok := decodedResp.(*QueryPublisherSeqResponse)
	require.True(t, ok)
	require.Equal(t, resp.Correlation, gotResp.Correlation)
	require.True(t, gotResp.ResponseCode.IsOK())
	require.Equal(t, resp.Sequence, gotResp.Sequence)
}

func TestHeartbeatWireVector(t *testing.T) {
	cmd := &Heartbeat{ProtocolVer: 1}
	w := wire.NewWriter(make([]byte, 0, SizeNeeded(cmd)))
	n, err := Write(w, cmd)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte{0x00, 0x17, 0x00, 0x01}, w.Bytes())
}

func TestTuneWireVector(t *testing.T) {
	cmd := &Tune{FrameMax: 1048576, Heartbeat: 60, ProtocolVer: 1}
	w := wire.NewWriter(make([]byte, 0, SizeNeeded(cmd)))
	n, err := Write(w, cmd)
	require.NoError(t, err)
	require.Equal(t, 12, n)

	decoded, err := Decode(w.Bytes())
	require.NoError(t, err)
	got, ok := decoded.(*Tune)
	require.True(t, ok)
	require.Equal(t, cmd.FrameMax, got.FrameMax)
	require.Equal(t, cmd.Heartbeat, got.Heartbeat)
}

// TestSizeNeededMatchesWrittenLength checks the property that every
// command's reported size exactly matches what Write emits, across the
// command family's request and response shapes.
func TestSizeNeededMatchesWrittenLength(t *testing.T) {
	cmds := []Command{
		&DeclarePublisher{Correlation: 1, PublisherID: 1, PublisherRef: "r", Stream: "s"},
		&DeclarePublisherResponse{Correlation: 1, ResponseCode: ResponseCodeOK},
		&DeletePublisher{Correlation: 1, PublisherID: 1},
		&QueryPublisherSeq{Correlation: 1, PublisherRef: "r", Stream: "s"},
		&QueryPublisherSeqResponse{Correlation: 1, ResponseCode: ResponseCodeOK, Sequence: 42},
		&Publish{PublisherID: 1, Messages: []PublishedMessage{{PublishingID: 1, Message: []byte("hi")}}},
		&PublishConfirm{PublisherID: 1, PublishingIDs: []uint64{1, 2, 3}},
		&PublishError{PublisherID: 1, Errors: []PublishErrorDetail{{PublishingID: 1, Code: ResponseCodeInternalError}}},
		&Subscribe{Correlation: 1, SubscriptionID: 1, Stream: "s", OffsetType: OffsetTypeNext, Credit: 10},
		&Subscribe{Correlation: 1, SubscriptionID: 1, Stream: "s", OffsetType: OffsetTypeOffset, OffsetValue: 42, Credit: 10},
		&Unsubscribe{Correlation: 1, SubscriptionID: 1},
		&Credit{SubscriptionID: 1, Credit: 5},
		&StoreOffset{Reference: "ref", Stream: "s", Offset: 9},
		&QueryOffset{Correlation: 1, Reference: "ref", Stream: "s"},
		&Create{Correlation: 1, Stream: "s", Arguments: map[string]string{"k": "v"}},
		&Delete{Correlation: 1, Stream: "s"},
		&PeerProperties{Correlation: 1, Properties: map[string]string{"product": "rstream"}},
		&SaslHandshake{Correlation: 1},
		&SaslAuthenticate{Correlation: 1, Mechanism: "PLAIN", Data: []byte{0, 'u', 0, 'p'}},
		&Open{Correlation: 1, VirtualHost: "/"},
		&Close{Correlation: 1, Code: ResponseCodeOK, Reason: "bye"},
		&Heartbeat{},
		&Tune{FrameMax: 1 << 20, Heartbeat: 60},
		&MetadataQuery{Correlation: 1, Streams: []string{"s1", "s2"}},
		&RouteQuery{Correlation: 1, RoutingKey: "k", SuperStream: "ss"},
		&PartitionsQuery{Correlation: 1, SuperStream: "ss"},
		&StreamStats{Correlation: 1, Stream: "s"},
		&CreateSuperStream{Correlation: 1, SuperStream: "ss", Partitions: []string{"ss-0"}, BindingKeys: []string{"0"}},
		&DeleteSuperStream{Correlation: 1, SuperStream: "ss"},
	}

	for _, c := range cmds {
		want := SizeNeeded(c)
		w := wire.NewWriter(make([]byte, 0, want))
		n, err := Write(w, c)
		require.NoError(t, err, "%T", c)
		require.Equal(t, want, n, "%T: size_needed mismatch", c)
		require.Equal(t, want, len(w.Bytes()), "%T: written length mismatch", c)
	}
}

// TestResponseOpcodesDoNotCollideWithRequests verifies the high-bit
// convention keeps every response decoder in its own table slot.
func TestResponseOpcodesDoNotCollideWithRequests(t *testing.T) {
	reqKeys := []uint16{
		KeyDeclarePublisher, KeyDeletePublisher, KeyQueryPublisherSeq, KeySubscribe, KeyUnsubscribe,
		KeyQueryOffset, KeyCreate, KeyDelete, KeyPeerProperties, KeySaslHandshake,
		KeySaslAuthenticate, KeyOpen, KeyClose, KeyMetadataQuery, KeyRouteQuery,
		KeyPartitionsQuery, KeyStreamStats, KeyCreateSuperStream, KeyDeleteSuperStream,
	}
	for _, k := range reqKeys {
		require.NotEqual(t, k, ResponseKey(k))
		require.Equal(t, ResponseKeyBit, ResponseKey(k)&ResponseKeyBit)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	w := wire.NewWriter(make([]byte, 0, 4))
	w.WriteUint16(0x7fff)
	w.WriteUint16(1)
	_, err := Decode(w.Bytes())
	require.ErrorIs(t, err, ErrUnknownCommand)
}
