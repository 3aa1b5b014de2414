package client

import "github.com/chanlink/chanlink/wire"

// EventKind discriminates what Next delivers.
type EventKind uint8

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventMsg
	EventResponse
	EventAck
	EventReject
	EventClosedBySelf
	EventDead
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "Connected"
	case EventDisconnected:
		return "Disconnected"
	case EventMsg:
		return "Msg"
	case EventResponse:
		return "Response"
	case EventAck:
		return "Ack"
	case EventReject:
		return "Reject"
	case EventClosedBySelf:
		return "ClosedBySelf"
	case EventDead:
		return "IsDead"
	default:
		return "Unknown"
	}
}

// DeadReason explains why a client transitioned to Dead.
type DeadReason uint8

const (
	ClosedBySelf DeadReason = iota
	ConnectFailed
	TransportError
)

func (r DeadReason) String() string {
	switch r {
	case ClosedBySelf:
		return "ClosedBySelf"
	case ConnectFailed:
		return "ConnectFailed"
	case TransportError:
		return "TransportError"
	default:
		return "Unknown"
	}
}

// Event is the value type delivered by Client.Next.
type Event struct {
	Kind       EventKind
	RequestID  uint64
	DeadReason DeadReason
	// Err is set on an EventDead with DeadReason ConnectFailed; it is a
	// *chanerr.HandshakeRejected when the server explicitly refused the
	// handshake (version mismatch, auth failure, duplicate ClientId, or
	// capacity), or the raw dial error when the server could not be reached
	// at all. errors.As distinguishes the two.
	Err error

	payload []byte
	codec   wire.Codec
}

// Decode unmarshals a Msg or Response event's payload.
func (e Event) Decode(out any) error {
	return wire.DecodePayload(e.codec, e.payload, out)
}
