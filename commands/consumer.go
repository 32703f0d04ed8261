// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import "github.com/streamwire/rstream/wire"

// Subscribe creates a consumer subscription on a stream at a given offset.
// Body: u8 subscription_id, string stream, u16 offset_type, u64 offset_value
// (present only for offset_type values that carry one), u16 credit,
// u32 property_count, property_count x (string key, string value).
type Subscribe struct {
	Correlation      uint32
	SubscriptionID   uint8
	Stream           string
	OffsetType       uint16
	OffsetValue      uint64
	Credit           uint16
	Properties       map[string]string
	ProtocolVer      uint16
}

// Offset type values recognized by the broker's Subscribe offset_type field.
const (
	OffsetTypeFirst    uint16 = 1
	OffsetTypeLast     uint16 = 2
	OffsetTypeNext     uint16 = 3
	OffsetTypeOffset   uint16 = 4
	OffsetTypeTimestamp uint16 = 5
)

func (c *Subscribe) Key() uint16 { return KeySubscribe }
func (c *Subscribe) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *Subscribe) CorrelationID() (uint32, bool) { return c.Correlation, true }

func (c *Subscribe) offsetValuePresent() bool {
	return c.OffsetType == OffsetTypeOffset || c.OffsetType == OffsetTypeTimestamp
}

func (c *Subscribe) BodySize() int {
	n := 1 + wire.SizeOfString(c.Stream) + 2
	if c.offsetValuePresent() {
		n += 8
	}
	n += 2 + 4
	for k, v := range c.Properties {
		n += wire.SizeOfString(k) + wire.SizeOfString(v)
	}
	return n
}

func (c *Subscribe) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint8(c.SubscriptionID)
	bn, err := w.WriteString(c.Stream)
	if err != nil {
		return n, err
	}
	n += bn
	n += w.WriteUint16(c.OffsetType)
	if c.offsetValuePresent() {
		n += w.WriteUint64(c.OffsetValue)
	}
	n += w.WriteUint16(c.Credit)
	n += w.WriteUint32(uint32(len(c.Properties)))
	for k, v := range c.Properties {
		bn, err = w.WriteString(k)
		if err != nil {
			return n, err
		}
		n += bn
		bn, err = w.WriteString(v)
		if err != nil {
			return n, err
		}
		n += bn
	}
	return n, nil
}

func init() {
	register(KeySubscribe, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, subID, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		_, stream, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		_, offsetType, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		var offsetValue uint64
		if offsetType == OffsetTypeOffset || offsetType == OffsetTypeTimestamp {
			_, offsetValue, err = r.ReadUint64()
			if err != nil {
				return nil, err
			}
		}
		_, credit, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		_, count, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		props := make(map[string]string, count)
		for i := uint32(0); i < count; i++ {
			_, k, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			_, v, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			props[k] = v
		}
		return &Subscribe{
			Correlation: corr, SubscriptionID: subID, Stream: stream,
			OffsetType: offsetType, OffsetValue: offsetValue, Credit: credit,
			Properties: props, ProtocolVer: version,
		}, nil
	})
	register(ResponseKey(KeySubscribe), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &SubscribeResponse{Correlation: corr, ResponseCode: ResponseCode(code), ProtocolVer: version}, nil
	})
}

// SubscribeResponse is the response to Subscribe. Body: u16 response_code.
type SubscribeResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	ProtocolVer  uint16
}

func (c *SubscribeResponse) Key() uint16 { return ResponseKey(KeySubscribe) }
func (c *SubscribeResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *SubscribeResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *SubscribeResponse) BodySize() int                 { return 2 }
func (c *SubscribeResponse) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteUint16(uint16(c.ResponseCode)), nil
}

// Unsubscribe cancels a consumer subscription. Body: u8 subscription_id.
type Unsubscribe struct {
	Correlation    uint32
	SubscriptionID uint8
	ProtocolVer    uint16
}

func (c *Unsubscribe) Key() uint16 { return KeyUnsubscribe }
func (c *Unsubscribe) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *Unsubscribe) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *Unsubscribe) BodySize() int                 { return 1 }
func (c *Unsubscribe) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteUint8(c.SubscriptionID), nil
}

func init() {
	register(KeyUnsubscribe, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, subID, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		return &Unsubscribe{Correlation: corr, SubscriptionID: subID, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeyUnsubscribe), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &UnsubscribeResponse{Correlation: corr, ResponseCode: ResponseCode(code), ProtocolVer: version}, nil
	})
}

// UnsubscribeResponse is the response to Unsubscribe. Body: u16 response_code.
type UnsubscribeResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	ProtocolVer  uint16
}

func (c *UnsubscribeResponse) Key() uint16 { return ResponseKey(KeyUnsubscribe) }
func (c *UnsubscribeResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *UnsubscribeResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *UnsubscribeResponse) BodySize() int                 { return 2 }
func (c *UnsubscribeResponse) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteUint16(uint16(c.ResponseCode)), nil
}

// Deliver is the push carrying one broker-side log chunk for a subscription.
// The wire format batches messages in broker-side log chunks;
// this client treats a chunk's body as an opaque blob for the dispatcher to
// hand upward, and decodes only the chunk header fields needed to track
// offsets and request more credit.
type Deliver struct {
	SubscriptionID uint8
	MagicVersion   uint8
	ChunkType      uint8
	NumEntries     uint16
	NumRecords     uint32
	Timestamp      int64
	Epoch          uint64
	ChunkFirstOffset uint64
	ChunkCRC       int32
	DataLength     uint32
	TrailerLength  uint32
	Reserved       uint32
	Data           []byte
	ProtocolVer    uint16
}

func (c *Deliver) Key() uint16                     { return KeyDeliver }
func (c *Deliver) CorrelationID() (uint32, bool)    { return 0, false }
func (c *Deliver) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *Deliver) BodySize() int {
	return 1 + 1 + 1 + 2 + 4 + 8 + 8 + 8 + 4 + 4 + 4 + 4 + 4 + len(c.Data)
}

func (c *Deliver) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint8(c.SubscriptionID)
	n += w.WriteUint8(c.MagicVersion)
	n += w.WriteUint8(c.ChunkType)
	n += w.WriteUint16(c.NumEntries)
	n += w.WriteUint32(c.NumRecords)
	n += w.WriteInt64(c.Timestamp)
	n += w.WriteUint64(c.Epoch)
	n += w.WriteUint64(c.ChunkFirstOffset)
	n += w.WriteInt32(c.ChunkCRC)
	n += w.WriteUint32(c.DataLength)
	n += w.WriteUint32(c.TrailerLength)
	n += w.WriteUint32(c.Reserved)
	n += w.WriteBytes(c.Data)
	return n, nil
}

func init() {
	register(KeyDeliver, func(version uint16, r *wire.Reader) (Command, error) {
		_, subID, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		_, magic, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		_, chunkType, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		_, numEntries, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		_, numRecords, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		_, timestamp, err := r.ReadInt64()
		if err != nil {
			return nil, err
		}
		_, epoch, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		_, firstOffset, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		_, crc, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		_, dataLen, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		_, trailerLen, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		_, reserved, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		_, data, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		return &Deliver{
			SubscriptionID: subID, MagicVersion: magic, ChunkType: chunkType,
			NumEntries: numEntries, NumRecords: numRecords, Timestamp: timestamp,
			Epoch: epoch, ChunkFirstOffset: firstOffset, ChunkCRC: crc,
			DataLength: dataLen, TrailerLength: trailerLen, Reserved: reserved,
			Data: data, ProtocolVer: version,
		}, nil
	})
}

// Credit grants additional delivery credit to a subscription. Body:
// u8 subscription_id, u16 credit.
type Credit struct {
	SubscriptionID uint8
	Credit         uint16
	ProtocolVer    uint16
}

func (c *Credit) Key() uint16 { return KeyCredit }
func (c *Credit) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *Credit) CorrelationID() (uint32, bool) { return 0, false }
func (c *Credit) BodySize() int                 { return 1 + 2 }
func (c *Credit) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint8(c.SubscriptionID)
	n += w.WriteUint16(c.Credit)
	return n, nil
}

func init() {
	register(KeyCredit, func(version uint16, r *wire.Reader) (Command, error) {
		_, subID, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		_, credit, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &Credit{SubscriptionID: subID, Credit: credit, ProtocolVer: version}, nil
	})
}

// StoreOffset persists a consumer's last-read offset under a reference name.
// Fire-and-forget, no response. Body: string reference, string stream,
// u64 offset.
type StoreOffset struct {
	Reference   string
	Stream      string
	Offset      uint64
	ProtocolVer uint16
}

func (c *StoreOffset) Key() uint16 { return KeyStoreOffset }
func (c *StoreOffset) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *StoreOffset) CorrelationID() (uint32, bool) { return 0, false }
func (c *StoreOffset) BodySize() int {
	return wire.SizeOfString(c.Reference) + wire.SizeOfString(c.Stream) + 8
}
func (c *StoreOffset) WriteBody(w *wire.Writer) (int, error) {
	n, err := w.WriteString(c.Reference)
	if err != nil {
		return n, err
	}
	bn, err := w.WriteString(c.Stream)
	if err != nil {
		return n, err
	}
	n += bn
	n += w.WriteUint64(c.Offset)
	return n, nil
}

func init() {
	register(KeyStoreOffset, func(version uint16, r *wire.Reader) (Command, error) {
		_, ref, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		_, stream, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		_, offset, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		return &StoreOffset{Reference: ref, Stream: stream, Offset: offset, ProtocolVer: version}, nil
	})
}

// QueryOffset fetches the persisted offset for a reference on a stream.
// Body: string reference, string stream.
type QueryOffset struct {
	Correlation uint32
	Reference   string
	Stream      string
	ProtocolVer uint16
}

func (c *QueryOffset) Key() uint16 { return KeyQueryOffset }
func (c *QueryOffset) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *QueryOffset) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *QueryOffset) BodySize() int {
	return wire.SizeOfString(c.Reference) + wire.SizeOfString(c.Stream)
}
func (c *QueryOffset) WriteBody(w *wire.Writer) (int, error) {
	n, err := w.WriteString(c.Reference)
	if err != nil {
		return n, err
	}
	bn, err := w.WriteString(c.Stream)
	if err != nil {
		return n, err
	}
	return n + bn, nil
}

func init() {
	register(KeyQueryOffset, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, ref, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		_, stream, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return &QueryOffset{Correlation: corr, Reference: ref, Stream: stream, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeyQueryOffset), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		_, offset, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		return &QueryOffsetResponse{Correlation: corr, ResponseCode: ResponseCode(code), Offset: offset, ProtocolVer: version}, nil
	})
}

// QueryOffsetResponse is the response to QueryOffset. Body: u16 response_code,
// u64 offset.
type QueryOffsetResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	Offset       uint64
	ProtocolVer  uint16
}

func (c *QueryOffsetResponse) Key() uint16 { return ResponseKey(KeyQueryOffset) }
func (c *QueryOffsetResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *QueryOffsetResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *QueryOffsetResponse) BodySize() int                 { return 2 + 8 }
func (c *QueryOffsetResponse) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint16(uint16(c.ResponseCode))
	n += w.WriteUint64(c.Offset)
	return n, nil
}
