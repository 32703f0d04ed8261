// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import "github.com/streamwire/rstream/wire"

// Create asks the broker to create a stream. Body: string stream,
// u32 argument_count, argument_count x (string key, string value).
type Create struct {
	Correlation uint32
	Stream      string
	Arguments   map[string]string
	ProtocolVer uint16
}

func (c *Create) Key() uint16 { return KeyCreate }
func (c *Create) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *Create) CorrelationID() (uint32, bool) { return c.Correlation, true }

func (c *Create) BodySize() int {
	n := wire.SizeOfString(c.Stream) + 4
	for k, v := range c.Arguments {
		n += wire.SizeOfString(k) + wire.SizeOfString(v)
	}
	return n
}

func (c *Create) WriteBody(w *wire.Writer) (int, error) {
	n, err := w.WriteString(c.Stream)
	if err != nil {
		return n, err
	}
	n += w.WriteUint32(uint32(len(c.Arguments)))
	for k, v := range c.Arguments {
		bn, err := w.WriteString(k)
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
	register(KeyCreate, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, stream, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		_, count, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		args := make(map[string]string, count)
		for i := uint32(0); i < count; i++ {
			_, k, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			_, v, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			args[k] = v
		}
		return &Create{Correlation: corr, Stream: stream, Arguments: args, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeyCreate), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &CreateResponse{Correlation: corr, ResponseCode: ResponseCode(code), ProtocolVer: version}, nil
	})
}

// CreateResponse is the response to Create. Body: u16 response_code.
type CreateResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	ProtocolVer  uint16
}

func (c *CreateResponse) Key() uint16 { return ResponseKey(KeyCreate) }
func (c *CreateResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *CreateResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *CreateResponse) BodySize() int                 { return 2 }
func (c *CreateResponse) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteUint16(uint16(c.ResponseCode)), nil
}

// Delete asks the broker to delete a stream. Body: string stream.
type Delete struct {
	Correlation uint32
	Stream      string
	ProtocolVer uint16
}

func (c *Delete) Key() uint16 { return KeyDelete }
func (c *Delete) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *Delete) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *Delete) BodySize() int                 { return wire.SizeOfString(c.Stream) }
func (c *Delete) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteString(c.Stream)
}

func init() {
	register(KeyDelete, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, stream, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return &Delete{Correlation: corr, Stream: stream, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeyDelete), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &DeleteResponse{Correlation: corr, ResponseCode: ResponseCode(code), ProtocolVer: version}, nil
	})
}

// DeleteResponse is the response to Delete. Body: u16 response_code.
type DeleteResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	ProtocolVer  uint16
}

func (c *DeleteResponse) Key() uint16 { return ResponseKey(KeyDelete) }
func (c *DeleteResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *DeleteResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *DeleteResponse) BodySize() int                 { return 2 }
func (c *DeleteResponse) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteUint16(uint16(c.ResponseCode)), nil
}

// PartitionsQuery asks the broker for the partition stream names of a super
// stream. Body: string super_stream.
type PartitionsQuery struct {
	Correlation uint32
	SuperStream string
	ProtocolVer uint16
}

func (c *PartitionsQuery) Key() uint16 { return KeyPartitionsQuery }
func (c *PartitionsQuery) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *PartitionsQuery) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *PartitionsQuery) BodySize() int                 { return wire.SizeOfString(c.SuperStream) }
func (c *PartitionsQuery) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteString(c.SuperStream)
}

func init() {
	register(KeyPartitionsQuery, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, s, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return &PartitionsQuery{Correlation: corr, SuperStream: s, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeyPartitionsQuery), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		_, count, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		streams := make([]string, 0, count)
		for i := uint32(0); i < count; i++ {
			_, s, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			streams = append(streams, s)
		}
		return &PartitionsQueryResponse{Correlation: corr, ResponseCode: ResponseCode(code), Streams: streams, ProtocolVer: version}, nil
	})
}

// PartitionsQueryResponse is the response to PartitionsQuery. Body:
// u16 response_code, u32 count, count x string.
type PartitionsQueryResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	Streams      []string
	ProtocolVer  uint16
}

func (c *PartitionsQueryResponse) Key() uint16 { return ResponseKey(KeyPartitionsQuery) }
func (c *PartitionsQueryResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *PartitionsQueryResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *PartitionsQueryResponse) BodySize() int {
	n := 2 + 4
	for _, s := range c.Streams {
		n += wire.SizeOfString(s)
	}
	return n
}
func (c *PartitionsQueryResponse) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint16(uint16(c.ResponseCode))
	n += w.WriteUint32(uint32(len(c.Streams)))
	for _, s := range c.Streams {
		bn, err := w.WriteString(s)
		if err != nil {
			return n, err
		}
		n += bn
	}
	return n, nil
}

// CreateSuperStream asks the broker to create a super stream and its
// partitions. Body: string super_stream, u32 partition_count,
// partition_count x string, u32 binding_key_count, binding_key_count x
// string, u32 argument_count, argument_count x (string key, string value).
type CreateSuperStream struct {
	Correlation  uint32
	SuperStream  string
	Partitions   []string
	BindingKeys  []string
	Arguments    map[string]string
	ProtocolVer  uint16
}

func (c *CreateSuperStream) Key() uint16 { return KeyCreateSuperStream }
func (c *CreateSuperStream) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *CreateSuperStream) CorrelationID() (uint32, bool) { return c.Correlation, true }

func (c *CreateSuperStream) BodySize() int {
	n := wire.SizeOfString(c.SuperStream) + 4
	for _, p := range c.Partitions {
		n += wire.SizeOfString(p)
	}
	n += 4
	for _, b := range c.BindingKeys {
		n += wire.SizeOfString(b)
	}
	n += 4
	for k, v := range c.Arguments {
		n += wire.SizeOfString(k) + wire.SizeOfString(v)
	}
	return n
}

func (c *CreateSuperStream) WriteBody(w *wire.Writer) (int, error) {
	n, err := w.WriteString(c.SuperStream)
	if err != nil {
		return n, err
	}
	n += w.WriteUint32(uint32(len(c.Partitions)))
	for _, p := range c.Partitions {
		bn, err := w.WriteString(p)
		if err != nil {
			return n, err
		}
		n += bn
	}
	n += w.WriteUint32(uint32(len(c.BindingKeys)))
	for _, b := range c.BindingKeys {
		bn, err := w.WriteString(b)
		if err != nil {
			return n, err
		}
		n += bn
	}
	n += w.WriteUint32(uint32(len(c.Arguments)))
	for k, v := range c.Arguments {
		bn, err := w.WriteString(k)
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
	register(KeyCreateSuperStream, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, super, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		_, pCount, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		parts := make([]string, 0, pCount)
		for i := uint32(0); i < pCount; i++ {
			_, p, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			parts = append(parts, p)
		}
		_, bCount, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, bCount)
		for i := uint32(0); i < bCount; i++ {
			_, k, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
		}
		_, aCount, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		args := make(map[string]string, aCount)
		for i := uint32(0); i < aCount; i++ {
			_, k, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			_, v, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			args[k] = v
		}
		return &CreateSuperStream{
			Correlation: corr, SuperStream: super, Partitions: parts,
			BindingKeys: keys, Arguments: args, ProtocolVer: version,
		}, nil
	})
	register(ResponseKey(KeyCreateSuperStream), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &CreateSuperStreamResponse{Correlation: corr, ResponseCode: ResponseCode(code), ProtocolVer: version}, nil
	})
}

// CreateSuperStreamResponse is the response to CreateSuperStream. Body:
// u16 response_code.
type CreateSuperStreamResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	ProtocolVer  uint16
}

func (c *CreateSuperStreamResponse) Key() uint16 { return ResponseKey(KeyCreateSuperStream) }
func (c *CreateSuperStreamResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *CreateSuperStreamResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *CreateSuperStreamResponse) BodySize() int                 { return 2 }
func (c *CreateSuperStreamResponse) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteUint16(uint16(c.ResponseCode)), nil
}

// DeleteSuperStream asks the broker to delete a super stream and its
// partitions. Body: string super_stream.
type DeleteSuperStream struct {
	Correlation uint32
	SuperStream string
	ProtocolVer uint16
}

func (c *DeleteSuperStream) Key() uint16 { return KeyDeleteSuperStream }
func (c *DeleteSuperStream) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *DeleteSuperStream) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *DeleteSuperStream) BodySize() int                 { return wire.SizeOfString(c.SuperStream) }
func (c *DeleteSuperStream) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteString(c.SuperStream)
}

func init() {
	register(KeyDeleteSuperStream, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, super, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return &DeleteSuperStream{Correlation: corr, SuperStream: super, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeyDeleteSuperStream), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &DeleteSuperStreamResponse{Correlation: corr, ResponseCode: ResponseCode(code), ProtocolVer: version}, nil
	})
}

// DeleteSuperStreamResponse is the response to DeleteSuperStream. Body:
// u16 response_code.
type DeleteSuperStreamResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	ProtocolVer  uint16
}

func (c *DeleteSuperStreamResponse) Key() uint16 { return ResponseKey(KeyDeleteSuperStream) }
func (c *DeleteSuperStreamResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *DeleteSuperStreamResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *DeleteSuperStreamResponse) BodySize() int                 { return 2 }
func (c *DeleteSuperStreamResponse) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteUint16(uint16(c.ResponseCode)), nil
}

// StreamStats fetches broker-side statistics for a stream. Body: string stream.
type StreamStats struct {
	Correlation uint32
	Stream      string
	ProtocolVer uint16
}

func (c *StreamStats) Key() uint16 { return KeyStreamStats }
func (c *StreamStats) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *StreamStats) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *StreamStats) BodySize() int                 { return wire.SizeOfString(c.Stream) }
func (c *StreamStats) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteString(c.Stream)
}

func init() {
	register(KeyStreamStats, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, stream, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return &StreamStats{Correlation: corr, Stream: stream, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeyStreamStats), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		_, count, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		stats := make(map[string]int64, count)
		for i := uint32(0); i < count; i++ {
			_, k, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			_, v, err := r.ReadInt64()
			if err != nil {
				return nil, err
			}
			stats[k] = v
		}
		return &StreamStatsResponse{Correlation: corr, ResponseCode: ResponseCode(code), Stats: stats, ProtocolVer: version}, nil
	})
}

// StreamStatsResponse is the response to StreamStats. Body: u16 response_code,
// u32 count, count x (string key, i64 value).
type StreamStatsResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	Stats        map[string]int64
	ProtocolVer  uint16
}

func (c *StreamStatsResponse) Key() uint16 { return ResponseKey(KeyStreamStats) }
func (c *StreamStatsResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *StreamStatsResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *StreamStatsResponse) BodySize() int {
	n := 2 + 4
	for k := range c.Stats {
		n += wire.SizeOfString(k) + 8
	}
	return n
}
func (c *StreamStatsResponse) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint16(uint16(c.ResponseCode))
	n += w.WriteUint32(uint32(len(c.Stats)))
	for k, v := range c.Stats {
		bn, err := w.WriteString(k)
		if err != nil {
			return n, err
		}
		n += bn
		n += w.WriteInt64(v)
	}
	return n, nil
}
