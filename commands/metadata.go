// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import "github.com/streamwire/rstream/wire"

// MetadataQuery asks the broker for the topology of a set of streams. Body:
// u32 stream_count, stream_count x string.
type MetadataQuery struct {
	Correlation uint32
	Streams     []string
	ProtocolVer uint16
}

func (c *MetadataQuery) Key() uint16 { return KeyMetadataQuery }
func (c *MetadataQuery) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *MetadataQuery) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *MetadataQuery) BodySize() int {
	n := 4
	for _, s := range c.Streams {
		n += wire.SizeOfString(s)
	}
	return n
}
func (c *MetadataQuery) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint32(uint32(len(c.Streams)))
	for _, s := range c.Streams {
		bn, err := w.WriteString(s)
		if err != nil {
			return n, err
		}
		n += bn
	}
	return n, nil
}

func init() {
	register(KeyMetadataQuery, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
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
		return &MetadataQuery{Correlation: corr, Streams: streams, ProtocolVer: version}, nil
	})
}

// Broker describes one node in a MetadataQueryResponse's broker table.
type Broker struct {
	Reference uint16
	Host      string
	Port      uint32
}

// StreamMetadata describes one stream's leader and replica placement in a
// MetadataQueryResponse, referencing nodes by their Broker.Reference.
type StreamMetadata struct {
	Stream       string
	ResponseCode ResponseCode
	LeaderRef    uint16
	ReplicaRefs  []uint16
}

// MetadataQueryResponse is the response to MetadataQuery. Body:
// u32 broker_count, broker_count x (u16 ref, string host, u32 port),
// u32 stream_count, stream_count x (string stream, u16 code, u16 leader_ref,
// u32 replica_count, replica_count x u16).
type MetadataQueryResponse struct {
	Correlation uint32
	Brokers     []Broker
	Streams     []StreamMetadata
	ProtocolVer uint16
}

func (c *MetadataQueryResponse) Key() uint16 { return ResponseKey(KeyMetadataQuery) }
func (c *MetadataQueryResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *MetadataQueryResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }

func (c *MetadataQueryResponse) BodySize() int {
	n := 4
	for _, b := range c.Brokers {
		n += 2 + wire.SizeOfString(b.Host) + 4
	}
	n += 4
	for _, s := range c.Streams {
		n += wire.SizeOfString(s.Stream) + 2 + 2 + 4 + 2*len(s.ReplicaRefs)
	}
	return n
}

func (c *MetadataQueryResponse) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint32(uint32(len(c.Brokers)))
	for _, b := range c.Brokers {
		n += w.WriteUint16(b.Reference)
		bn, err := w.WriteString(b.Host)
		if err != nil {
			return n, err
		}
		n += bn
		n += w.WriteUint32(b.Port)
	}
	n += w.WriteUint32(uint32(len(c.Streams)))
	for _, s := range c.Streams {
		bn, err := w.WriteString(s.Stream)
		if err != nil {
			return n, err
		}
		n += bn
		n += w.WriteUint16(uint16(s.ResponseCode))
		n += w.WriteUint16(s.LeaderRef)
		n += w.WriteUint32(uint32(len(s.ReplicaRefs)))
		for _, r := range s.ReplicaRefs {
			n += w.WriteUint16(r)
		}
	}
	return n, nil
}

func init() {
	register(ResponseKey(KeyMetadataQuery), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, bCount, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		brokers := make([]Broker, 0, bCount)
		for i := uint32(0); i < bCount; i++ {
			_, ref, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			_, host, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			_, port, err := r.ReadUint32()
			if err != nil {
				return nil, err
			}
			brokers = append(brokers, Broker{Reference: ref, Host: host, Port: port})
		}
		_, sCount, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		streams := make([]StreamMetadata, 0, sCount)
		for i := uint32(0); i < sCount; i++ {
			_, stream, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			_, code, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			_, leader, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			_, rCount, err := r.ReadUint32()
			if err != nil {
				return nil, err
			}
			replicas := make([]uint16, 0, rCount)
			for j := uint32(0); j < rCount; j++ {
				_, ref, err := r.ReadUint16()
				if err != nil {
					return nil, err
				}
				replicas = append(replicas, ref)
			}
			streams = append(streams, StreamMetadata{
				Stream: stream, ResponseCode: ResponseCode(code),
				LeaderRef: leader, ReplicaRefs: replicas,
			})
		}
		return &MetadataQueryResponse{Correlation: corr, Brokers: brokers, Streams: streams, ProtocolVer: version}, nil
	})
}

// MetadataUpdate is an unsolicited push notifying the client that a stream's
// topology changed and its metadata should be re-queried. Body:
// u16 response_code, string stream.
type MetadataUpdate struct {
	ResponseCode ResponseCode
	Stream       string
	ProtocolVer  uint16
}

func (c *MetadataUpdate) Key() uint16 { return KeyMetadataUpdate }
func (c *MetadataUpdate) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *MetadataUpdate) CorrelationID() (uint32, bool) { return 0, false }
func (c *MetadataUpdate) BodySize() int                 { return 2 + wire.SizeOfString(c.Stream) }
func (c *MetadataUpdate) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint16(uint16(c.ResponseCode))
	bn, err := w.WriteString(c.Stream)
	if err != nil {
		return n, err
	}
	return n + bn, nil
}

func init() {
	register(KeyMetadataUpdate, func(version uint16, r *wire.Reader) (Command, error) {
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		_, stream, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return &MetadataUpdate{ResponseCode: ResponseCode(code), Stream: stream, ProtocolVer: version}, nil
	})
}

// RouteQuery resolves the stream bound to a super stream's routing key.
// Body: string routing_key, string super_stream.
type RouteQuery struct {
	Correlation uint32
	RoutingKey  string
	SuperStream string
	ProtocolVer uint16
}

func (c *RouteQuery) Key() uint16 { return KeyRouteQuery }
func (c *RouteQuery) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *RouteQuery) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *RouteQuery) BodySize() int {
	return wire.SizeOfString(c.RoutingKey) + wire.SizeOfString(c.SuperStream)
}
func (c *RouteQuery) WriteBody(w *wire.Writer) (int, error) {
	n, err := w.WriteString(c.RoutingKey)
	if err != nil {
		return n, err
	}
	bn, err := w.WriteString(c.SuperStream)
	if err != nil {
		return n, err
	}
	return n + bn, nil
}

func init() {
	register(KeyRouteQuery, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, key, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		_, super, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return &RouteQuery{Correlation: corr, RoutingKey: key, SuperStream: super, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeyRouteQuery), func(version uint16, r *wire.Reader) (Command, error) {
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
		return &RouteQueryResponse{Correlation: corr, ResponseCode: ResponseCode(code), Streams: streams, ProtocolVer: version}, nil
	})
}

// RouteQueryResponse is the response to RouteQuery. Body: u16 response_code,
// u32 count, count x string.
type RouteQueryResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	Streams      []string
	ProtocolVer  uint16
}

func (c *RouteQueryResponse) Key() uint16 { return ResponseKey(KeyRouteQuery) }
func (c *RouteQueryResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *RouteQueryResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *RouteQueryResponse) BodySize() int {
	n := 2 + 4
	for _, s := range c.Streams {
		n += wire.SizeOfString(s)
	}
	return n
}
func (c *RouteQueryResponse) WriteBody(w *wire.Writer) (int, error) {
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
