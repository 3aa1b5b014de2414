package wire

import "fmt"

// Kind discriminates the five envelope variants carried over the wire once a
// session is past the handshake.
type Kind uint8

const (
	// KindMsg is a fire-and-forget message in either direction.
	KindMsg Kind = iota
	// KindRequest is a client-to-server request awaiting a terminal reply.
	KindRequest
	// KindResponse answers a Request with application data.
	KindResponse
	// KindAck answers a Request with a bare acknowledgement.
	KindAck
	// KindReject answers a Request negatively, or signals a dropped token.
	KindReject
)

func (k Kind) String() string {
	switch k {
	case KindMsg:
		return "Msg"
	case KindRequest:
		return "Request"
	case KindResponse:
		return "Response"
	case KindAck:
		return "Ack"
	case KindReject:
		return "Reject"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Envelope is the single frame type exchanged after handshake. RequestID is
// meaningful for Request/Response/Ack/Reject and zero for Msg. Payload holds
// the codec-encoded application value; it is absent for Ack and Reject.
type Envelope struct {
	Kind      Kind   `msgpack:"k"`
	RequestID uint64 `msgpack:"r,omitempty"`
	Payload   []byte `msgpack:"p,omitempty"`
}

// Encode serializes the envelope itself (not the application payload, which
// is already codec-encoded bytes by the time it reaches here).
func Encode(c Codec, e Envelope) ([]byte, error) {
	b, err := c.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("wire: encode envelope: %w", err)
	}
	return b, nil
}

// Decode deserializes a frame into an Envelope. An error here is always a
// ProtocolError from the caller's point of view: the frame is malformed.
func Decode(c Codec, data []byte) (Envelope, error) {
	var e Envelope
	if err := c.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("wire: decode envelope: %w", err)
	}
	if e.Kind > KindReject {
		return Envelope{}, fmt.Errorf("wire: unknown envelope kind %d", e.Kind)
	}
	return e, nil
}

// EncodePayload codec-encodes an application value for embedding into an
// Envelope's Payload field.
func EncodePayload(c Codec, v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := c.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode payload: %w", err)
	}
	return b, nil
}

// DecodePayload decodes an Envelope's Payload into out.
func DecodePayload(c Codec, payload []byte, out any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := c.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("wire: decode payload: %w", err)
	}
	return nil
}

// Msg builds a fire-and-forget envelope.
func Msg(c Codec, v any) (Envelope, error) {
	p, err := EncodePayload(c, v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: KindMsg, Payload: p}, nil
}

// Request builds a client request envelope.
func Request(c Codec, id uint64, v any) (Envelope, error) {
	p, err := EncodePayload(c, v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: KindRequest, RequestID: id, Payload: p}, nil
}

// Response builds a server response envelope.
func Response(c Codec, id uint64, v any) (Envelope, error) {
	p, err := EncodePayload(c, v)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: KindResponse, RequestID: id, Payload: p}, nil
}

// Ack builds a bare acknowledgement envelope.
func Ack(id uint64) Envelope {
	return Envelope{Kind: KindAck, RequestID: id}
}

// Reject builds a rejection envelope.
func Reject(id uint64) Envelope {
	return Envelope{Kind: KindReject, RequestID: id}
}
