// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package commands

import "github.com/streamwire/rstream/wire"

// PeerProperties exchanges client/server implementation metadata at the
// start of a connection. Body: u32 property_count, property_count x
// (string key, string value).
type PeerProperties struct {
	Correlation uint32
	Properties  map[string]string
	ProtocolVer uint16
}

func (c *PeerProperties) Key() uint16 { return KeyPeerProperties }
func (c *PeerProperties) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *PeerProperties) CorrelationID() (uint32, bool) { return c.Correlation, true }

func (c *PeerProperties) BodySize() int {
	n := 4
	for k, v := range c.Properties {
		n += wire.SizeOfString(k) + wire.SizeOfString(v)
	}
	return n
}

func (c *PeerProperties) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint32(uint32(len(c.Properties)))
	for k, v := range c.Properties {
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
	register(KeyPeerProperties, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
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
		return &PeerProperties{Correlation: corr, Properties: props, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeyPeerProperties), func(version uint16, r *wire.Reader) (Command, error) {
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
		return &PeerPropertiesResponse{Correlation: corr, ResponseCode: ResponseCode(code), Properties: props, ProtocolVer: version}, nil
	})
}

// PeerPropertiesResponse is the response to PeerProperties. Body:
// u16 response_code, u32 property_count, property_count x (string, string).
type PeerPropertiesResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	Properties   map[string]string
	ProtocolVer  uint16
}

func (c *PeerPropertiesResponse) Key() uint16 { return ResponseKey(KeyPeerProperties) }
func (c *PeerPropertiesResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *PeerPropertiesResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }

func (c *PeerPropertiesResponse) BodySize() int {
	n := 2 + 4
	for k, v := range c.Properties {
		n += wire.SizeOfString(k) + wire.SizeOfString(v)
	}
	return n
}

func (c *PeerPropertiesResponse) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint16(uint16(c.ResponseCode))
	n += w.WriteUint32(uint32(len(c.Properties)))
	for k, v := range c.Properties {
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

// SaslHandshake asks the broker for its supported SASL mechanisms. Body: none.
type SaslHandshake struct {
	Correlation uint32
	ProtocolVer uint16
}

func (c *SaslHandshake) Key() uint16 { return KeySaslHandshake }
func (c *SaslHandshake) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *SaslHandshake) CorrelationID() (uint32, bool)          { return c.Correlation, true }
func (c *SaslHandshake) BodySize() int                          { return 0 }
func (c *SaslHandshake) WriteBody(w *wire.Writer) (int, error) { return 0, nil }

func init() {
	register(KeySaslHandshake, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		return &SaslHandshake{Correlation: corr, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeySaslHandshake), func(version uint16, r *wire.Reader) (Command, error) {
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
		mechs := make([]string, 0, count)
		for i := uint32(0); i < count; i++ {
			_, m, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			mechs = append(mechs, m)
		}
		return &SaslHandshakeResponse{Correlation: corr, ResponseCode: ResponseCode(code), Mechanisms: mechs, ProtocolVer: version}, nil
	})
}

// SaslHandshakeResponse is the response to SaslHandshake. Body:
// u16 response_code, u32 count, count x string.
type SaslHandshakeResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	Mechanisms   []string
	ProtocolVer  uint16
}

func (c *SaslHandshakeResponse) Key() uint16 { return ResponseKey(KeySaslHandshake) }
func (c *SaslHandshakeResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *SaslHandshakeResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *SaslHandshakeResponse) BodySize() int {
	n := 2 + 4
	for _, m := range c.Mechanisms {
		n += wire.SizeOfString(m)
	}
	return n
}
func (c *SaslHandshakeResponse) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint16(uint16(c.ResponseCode))
	n += w.WriteUint32(uint32(len(c.Mechanisms)))
	for _, m := range c.Mechanisms {
		bn, err := w.WriteString(m)
		if err != nil {
			return n, err
		}
		n += bn
	}
	return n, nil
}

// SaslAuthenticate carries one SASL exchange step. Body: string mechanism,
// bytes sasl_opaque_data (nullable).
type SaslAuthenticate struct {
	Correlation uint32
	Mechanism   string
	Data        []byte
	ProtocolVer uint16
}

func (c *SaslAuthenticate) Key() uint16 { return KeySaslAuthenticate }
func (c *SaslAuthenticate) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *SaslAuthenticate) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *SaslAuthenticate) BodySize() int {
	return wire.SizeOfString(c.Mechanism) + 4 + len(c.Data)
}
func (c *SaslAuthenticate) WriteBody(w *wire.Writer) (int, error) {
	n, err := w.WriteString(c.Mechanism)
	if err != nil {
		return n, err
	}
	n += w.WriteBytes(c.Data)
	return n, nil
}

func init() {
	register(KeySaslAuthenticate, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, mech, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		_, data, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		return &SaslAuthenticate{Correlation: corr, Mechanism: mech, Data: data, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeySaslAuthenticate), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		_, data, err := r.ReadBytes()
		if err != nil {
			return nil, err
		}
		return &SaslAuthenticateResponse{Correlation: corr, ResponseCode: ResponseCode(code), Data: data, ProtocolVer: version}, nil
	})
}

// SaslAuthenticateResponse is the response to SaslAuthenticate. Body:
// u16 response_code, bytes sasl_opaque_data (nullable).
type SaslAuthenticateResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	Data         []byte
	ProtocolVer  uint16
}

func (c *SaslAuthenticateResponse) Key() uint16 { return ResponseKey(KeySaslAuthenticate) }
func (c *SaslAuthenticateResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *SaslAuthenticateResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *SaslAuthenticateResponse) BodySize() int                 { return 2 + 4 + len(c.Data) }
func (c *SaslAuthenticateResponse) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint16(uint16(c.ResponseCode))
	n += w.WriteBytes(c.Data)
	return n, nil
}

// Tune negotiates the frame_max and heartbeat interval for the rest of the
// connection's lifetime. Sent by the broker as a proposal and echoed back
// by the client, possibly with lower values; it carries no correlation id
// in either direction. Body: u32 frame_max, u32 heartbeat.
type Tune struct {
	FrameMax    uint32
	Heartbeat   uint32
	ProtocolVer uint16
}

func (c *Tune) Key() uint16 { return KeyTune }
func (c *Tune) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *Tune) CorrelationID() (uint32, bool) { return 0, false }
func (c *Tune) BodySize() int                 { return 4 + 4 }
func (c *Tune) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint32(c.FrameMax)
	n += w.WriteUint32(c.Heartbeat)
	return n, nil
}

func init() {
	register(KeyTune, func(version uint16, r *wire.Reader) (Command, error) {
		_, frameMax, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		_, heartbeat, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		return &Tune{FrameMax: frameMax, Heartbeat: heartbeat, ProtocolVer: version}, nil
	})
}

// Open requests access to a virtual host once authentication has succeeded.
// Body: string virtual_host.
type Open struct {
	Correlation uint32
	VirtualHost string
	ProtocolVer uint16
}

func (c *Open) Key() uint16 { return KeyOpen }
func (c *Open) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *Open) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *Open) BodySize() int                 { return wire.SizeOfString(c.VirtualHost) }
func (c *Open) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteString(c.VirtualHost)
}

func init() {
	register(KeyOpen, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, vhost, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return &Open{Correlation: corr, VirtualHost: vhost, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeyOpen), func(version uint16, r *wire.Reader) (Command, error) {
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
		return &OpenResponse{Correlation: corr, ResponseCode: ResponseCode(code), ConnectionProperties: props, ProtocolVer: version}, nil
	})
}

// OpenResponse is the response to Open. Body: u16 response_code,
// u32 property_count, property_count x (string key, string value).
type OpenResponse struct {
	Correlation          uint32
	ResponseCode         ResponseCode
	ConnectionProperties map[string]string
	ProtocolVer          uint16
}

func (c *OpenResponse) Key() uint16 { return ResponseKey(KeyOpen) }
func (c *OpenResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *OpenResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *OpenResponse) BodySize() int {
	n := 2 + 4
	for k, v := range c.ConnectionProperties {
		n += wire.SizeOfString(k) + wire.SizeOfString(v)
	}
	return n
}
func (c *OpenResponse) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint16(uint16(c.ResponseCode))
	n += w.WriteUint32(uint32(len(c.ConnectionProperties)))
	for k, v := range c.ConnectionProperties {
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

// Close requests an orderly connection shutdown. Body: u16 code, string reason.
type Close struct {
	Correlation uint32
	Code        ResponseCode
	Reason      string
	ProtocolVer uint16
}

func (c *Close) Key() uint16 { return KeyClose }
func (c *Close) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *Close) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *Close) BodySize() int                 { return 2 + wire.SizeOfString(c.Reason) }
func (c *Close) WriteBody(w *wire.Writer) (int, error) {
	n := w.WriteUint16(uint16(c.Code))
	bn, err := w.WriteString(c.Reason)
	if err != nil {
		return n, err
	}
	return n + bn, nil
}

func init() {
	register(KeyClose, func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		_, reason, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return &Close{Correlation: corr, Code: ResponseCode(code), Reason: reason, ProtocolVer: version}, nil
	})
	register(ResponseKey(KeyClose), func(version uint16, r *wire.Reader) (Command, error) {
		corr, err := readCorrelationID(r)
		if err != nil {
			return nil, err
		}
		_, code, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &CloseResponse{Correlation: corr, ResponseCode: ResponseCode(code), ProtocolVer: version}, nil
	})
}

// CloseResponse is the response to Close. Body: u16 response_code.
type CloseResponse struct {
	Correlation  uint32
	ResponseCode ResponseCode
	ProtocolVer  uint16
}

func (c *CloseResponse) Key() uint16 { return ResponseKey(KeyClose) }
func (c *CloseResponse) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *CloseResponse) CorrelationID() (uint32, bool) { return c.Correlation, true }
func (c *CloseResponse) BodySize() int                 { return 2 }
func (c *CloseResponse) WriteBody(w *wire.Writer) (int, error) {
	return w.WriteUint16(uint16(c.ResponseCode)), nil
}

// Heartbeat carries no payload in either direction; its presence on the
// wire is the entire signal. Fire-and-forget, no correlation id.
type Heartbeat struct {
	ProtocolVer uint16
}

func (c *Heartbeat) Key() uint16 { return KeyHeartbeat }
func (c *Heartbeat) Version() uint16 {
	if c.ProtocolVer == 0 {
		return 1
	}
	return c.ProtocolVer
}
func (c *Heartbeat) CorrelationID() (uint32, bool)          { return 0, false }
func (c *Heartbeat) BodySize() int                          { return 0 }
func (c *Heartbeat) WriteBody(w *wire.Writer) (int, error) { return 0, nil }

func init() {
	register(KeyHeartbeat, func(version uint16, r *wire.Reader) (Command, error) {
		return &Heartbeat{ProtocolVer: version}, nil
	})
}
