// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package commands

// Opcode constants for the subset of the RabbitMQ Stream protocol's command
// table this client exercises. The full table, including opcodes this
// client never sends or expects, is an external document implementers must
// consult; these are the ones §4.2 of the connection-core spec names plus
// the handshake/administration commands needed to complete a connection
// lifecycle.
const (
	KeyDeclarePublisher  uint16 = 1
	KeyPublish           uint16 = 2
	KeyPublishConfirm    uint16 = 3
	KeyPublishError      uint16 = 4
	KeyQueryPublisherSeq uint16 = 5
	KeyDeletePublisher   uint16 = 6
	KeySubscribe         uint16 = 7
	KeyDeliver           uint16 = 8
	KeyCredit            uint16 = 9
	KeyStoreOffset       uint16 = 10
	KeyQueryOffset       uint16 = 11
	KeyUnsubscribe       uint16 = 12
	KeyCreate            uint16 = 13
	KeyDelete            uint16 = 14
	KeyMetadataQuery     uint16 = 15
	KeyMetadataUpdate    uint16 = 16
	KeyPeerProperties    uint16 = 17
	KeySaslHandshake     uint16 = 18
	KeySaslAuthenticate  uint16 = 19
	KeyTune              uint16 = 20
	KeyOpen              uint16 = 21
	KeyClose             uint16 = 22
	KeyHeartbeat         uint16 = 23
	KeyRouteQuery        uint16 = 24
	KeyPartitionsQuery   uint16 = 25
	KeyStreamStats       uint16 = 28
	KeyCreateSuperStream uint16 = 29
	KeyDeleteSuperStream uint16 = 30
)

// ResponseKeyBit marks a response command's wire opcode: implementations
// "MUST consult the reference opcode table" per the protocol note that
// response opcodes reuse their request opcode with the high bit set in some
// protocol versions. This client always sets it for response bodies, which
// disambiguates a request/response pair that would otherwise share a
// decoder-table slot.
const ResponseKeyBit uint16 = 0x8000

// ResponseKey returns the wire opcode a response to requestKey is encoded
// and decoded under.
func ResponseKey(requestKey uint16) uint16 { return requestKey | ResponseKeyBit }

// IsPushOpcode reports whether key identifies an unsolicited push command —
// one the dispatcher never pairs with a waiter by correlation id. Tune and
// Heartbeat are handled by the dispatcher itself; the others are forwarded
// to a registered handler.
func IsPushOpcode(key uint16) bool {
	switch key {
	case KeyPublish, KeyPublishConfirm, KeyPublishError, KeyDeliver, KeyCredit,
		KeyStoreOffset, KeyMetadataUpdate, KeyTune, KeyHeartbeat, KeyClose:
		return true
	default:
		return false
	}
}
