// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import "github.com/streamwire/rstream/wire"

// DeclarePublisher registers a publisher id for a stream. Body:
// u8 publisher_id, string publisher_ref, string stream.
type DeclarePublisher struct {
	Correlation  uint32
	PublisherID  uint8
	PublisherRef string
	Stream       string
	ProtocolVer  uint16
}

func (c *DeclarePublisher) Key() uint16 { return KeyDeclarePublisher }
func (c *DeclarePublisher) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *DeclarePublisher) CorrelationID() (uint32, bool) { return c.Correlation, true }

func (c *DeclarePublisher) BodySize() int {
	return 1 + wire.SizeOfString(c.PublisherRef) + wire.SizeOfString(c.Stream)
}

func (c *DeclarePublisher) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint8(c.PublisherID)
	bn, err := w.WriteString(c.PublisherRef)
	if err != nil {
		return n, err
	}
	n += bn
	bn, err = w.WriteString(c.Stream)
	if err != nil {
		return n, err
	}
	return n + bn, nil
}

func init() {
	register(KeyDeclarePublisher, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, publisherID, err := r.ReadUint8()
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
		return &DeclarePublisher{Correlation: corr, PublisherID: publisherID, PublisherRef: ref, Stream: stream, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeyDeclarePublisher), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &DeclarePublisherResponse{Correlation: corr, ResponseCode: ResponseCode(code), ProtocolVer: version}, nil
	})
}

// DeclarePublisherResponse is the response to DeclarePublisher. Body:
// u16 response_code.
type DeclarePublisherResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	ProtocolVer  uint16
}

func (c *DeclarePublisherResponse) Key() uint16 { return ResponseKey(KeyDeclarePublisher) }
func (c *DeclarePublisherResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *DeclarePublisherResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *DeclarePublisherResponse) BodySize() int                 { return 2 }
func (c *DeclarePublisherResponse) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteUint16(uint16(c.ResponseCode)), nil
}

// DeletePublisher removes a previously declared publisher. Body: u8 publisher_id.
type DeletePublisher struct {
	Correlation uint32
	PublisherID uint8
	ProtocolVer uint16
}

func (c *DeletePublisher) Key() uint16 { return KeyDeletePublisher }
func (c *DeletePublisher) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *DeletePublisher) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *DeletePublisher) BodySize() int                 { return 1 }
func (c *DeletePublisher) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteUint8(c.PublisherID), nil
}

func init() {
	register(KeyDeletePublisher, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, id, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		return &DeletePublisher{Correlation: corr, PublisherID: id, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeyDeletePublisher), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &DeletePublisherResponse{Correlation: corr, ResponseCode: ResponseCode(code), ProtocolVer: version}, nil
	})
}

// DeletePublisherResponse is the response to DeletePublisher. Body: u16 response_code.
type DeletePublisherResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	ProtocolVer  uint16
}

func (c *DeletePublisherResponse) Key() uint16 { return ResponseKey(KeyDeletePublisher) }
func (c *DeletePublisherResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *DeletePublisherResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *DeletePublisherResponse) BodySize() int                 { return 2 }
func (c *DeletePublisherResponse) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteUint16(uint16(c.ResponseCode)), nil
}

// QueryPublisherSeq asks the broker for the last publishing id it durably
// stored for a given publisher reference on a stream, so a reconnecting
// publisher can resume numbering after the highest confirmed id instead of
// risking a duplicate. Body: string publisher_ref, string stream.
type QueryPublisherSeq struct {
	Correlation  uint32
	PublisherRef string
	Stream       string
	ProtocolVer  uint16
}

func (c *QueryPublisherSeq) Key() uint16 { return KeyQueryPublisherSeq }
func (c *QueryPublisherSeq) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *QueryPublisherSeq) CorrelationID() (uint32, bool) { return c.Correlation, true }

func (c *QueryPublisherSeq) BodySize() int {
	return wire.SizeOfString(c.PublisherRef) + wire.SizeOfString(c.Stream)
}

func (c *QueryPublisherSeq) WriteBody(w *wire.Writer) (int, error) {
	n, err := w.WriteString(c.PublisherRef)
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
	register(KeyQueryPublisherSeq, func(version uint16, r *wire.Reader) (Command, error) {
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
		return &QueryPublisherSeq{Correlation: corr, PublisherRef: ref, Stream: stream, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeyQueryPublisherSeq), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		_, seq, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		return &QueryPublisherSeqResponse{Correlation: corr, ResponseCode: ResponseCode(code), Sequence: seq, ProtocolVer: version}, nil
	})
}

// QueryPublisherSeqResponse is the response to QueryPublisherSeq. Body:
// u16 response_code, u64 sequence.
type QueryPublisherSeqResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	Sequence     uint64
	ProtocolVer  uint16
}

func (c *QueryPublisherSeqResponse) Key() uint16 { return ResponseKey(KeyQueryPublisherSeq) }
func (c *QueryPublisherSeqResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *QueryPublisherSeqResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *QueryPublisherSeqResponse) BodySize() int                 { return 2 + 8 }
func (c *QueryPublisherSeqResponse) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint16(uint16(c.ResponseCode))
	n += w.WriteUint64(c.Sequence)
	return n, nil
}

// PublishedMessage is one (publishing id, message body) pair carried by a
// Publish frame.
type PublishedMessage struct {
	PublishingID uint64
	Message      []byte
}

func (m PublishedMessage) size() int { return 8 + 4 + len(m.Message) }

// Publish sends a batch of messages for a previously declared publisher.
// It is fire-and-forget: the broker's acknowledgement arrives later as a
// PublishConfirm push keyed by PublishingID, not as a correlated response.
// Body: u8 publisher_id, u32 message_count, message_count x
// (u64 publishing_id, u32 message_len, bytes message).
type Publish struct {
	PublisherID uint8
	Messages    []PublishedMessage
	ProtocolVer uint16
}

func (c *Publish) Key() uint16 { return KeyPublish }
func (c *Publish) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *Publish) CorrelationID() (uint32, bool) { return 0, false }

func (c *Publish) BodySize() int {
	n := 1 + 4
	for _, m := range c.Messages {
		n += m.size()
	}
	return n
}

func (c *Publish) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint8(c.PublisherID)
	n += w.WriteUint32(uint32(len(c.Messages)))
	for _, m := range c.Messages {
		n += w.WriteUint64(m.PublishingID)
		n += w.WriteBytes(m.Message)
	}
	return n, nil
}

func init() {
	register(KeyPublish, func(version uint16, r *wire.Reader) (Command, error) {
		_, publisherID, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		_, count, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		msgs := make([]PublishedMessage, 0, count)
		for i := uint32(0); i < count; i++ {
			_, pid, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			_, body, err := r.ReadBytes()
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, PublishedMessage{PublishingID: pid, Message: body})
		}
		return &Publish{PublisherID: publisherID, Messages: msgs, ProtocolVer: version}, nil
	})
}

// PublishConfirm is the push notification that a batch of publishing ids
// has been durably accepted. Body: u8 publisher_id, u32 count, count x u64.
type PublishConfirm struct {
	PublisherID   uint8
	PublishingIDs []uint64
	ProtocolVer   uint16
}

func (c *PublishConfirm) Key() uint16 { return KeyPublishConfirm }
func (c *PublishConfirm) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *PublishConfirm) CorrelationID() (uint32, bool) { return 0, false }
func (c *PublishConfirm) BodySize() int                 { return 1 + 4 + 8*len(c.PublishingIDs) }
func (c *PublishConfirm) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint8(c.PublisherID)
	n += w.WriteUint32(uint32(len(c.PublishingIDs)))
	for _, id := range c.PublishingIDs {
		n += w.WriteUint64(id)
	}
	return n, nil
}

func init() {
	register(KeyPublishConfirm, func(version uint16, r *wire.Reader) (Command, error) {
		_, publisherID, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		_, count, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		ids := make([]uint64, 0, count)
		for i := uint32(0); i < count; i++ {
			_, id, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return &PublishConfirm{PublisherID: publisherID, PublishingIDs: ids, ProtocolVer: version}, nil
	})
}

// PublishErrorDetail pairs a rejected publishing id with the code explaining
// the rejection.
type PublishErrorDetail struct {
	PublishingID uint64
	Code         ResponseCode
}

// PublishError is the push notification that a batch of publishing ids was
// rejected. Body: u8 publisher_id, u32 count, count x (u64, u16).
type PublishError struct {
	PublisherID uint8
	Errors      []PublishErrorDetail
	ProtocolVer uint16
}

func (c *PublishError) Key() uint16 { return KeyPublishError }
func (c *PublishError) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *PublishError) CorrelationID() (uint32, bool) { return 0, false }
func (c *PublishError) BodySize() int                 { return 1 + 4 + 10*len(c.Errors) }
func (c *PublishError) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint8(c.PublisherID)
	n += w.WriteUint32(uint32(len(c.Errors)))
	for _, e := range c.Errors {
		n += w.WriteUint64(e.PublishingID)
		n += w.WriteUint16(uint16(e.Code))
	}
	return n, nil
}

func init() {
	register(KeyPublishError, func(version uint16, r *wire.Reader) (Command, error) {
		_, publisherID, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		_, count, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		errs := make([]PublishErrorDetail, 0, count)
		for i := uint32(0); i < count; i++ {
			_, id, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			_, code, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			errs = append(errs, PublishErrorDetail{PublishingID: id, Code: ResponseCode(code)})
		}
		return &PublishError{PublisherID: publisherID, Errors: errs, ProtocolVer: version}, nil
	})
}
