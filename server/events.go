package server

import (
	"github.com/google/uuid"

	"github.com/chanlink/chanlink/session"
	"github.com/chanlink/chanlink/wire"
)

// EventKind discriminates what Next delivers.
type EventKind uint8

const (
	// EventMsg is a fire-and-forget message from a client.
	EventMsg EventKind = iota
	// EventRequest is a client request; Token must be settled exactly once.
	EventRequest
	// EventConnected reports a session reaching Connected.
	EventConnected
	// EventDisconnected reports a session reaching Dead.
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventMsg:
		return "Msg"
	case EventRequest:
		return "Request"
	case EventConnected:
		return "Connected"
	case EventDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Event is the value type delivered by Server.Next.
type Event struct {
	ClientID uuid.UUID
	Kind     EventKind
	Env      wire.EnvType
	Token    session.RequestToken

	payload []byte
	codec   wire.Codec
}

// DecodeMsg unmarshals a Msg event's payload.
func (e Event) DecodeMsg(out any) error {
	return wire.DecodePayload(e.codec, e.payload, out)
}

// DecodeRequest unmarshals a Request event's payload.
func (e Event) DecodeRequest(out any) error {
	return wire.DecodePayload(e.codec, e.payload, out)
}

// DecodeConnect unmarshals a Connected event's ConnectMsg.
func (e Event) DecodeConnect(out any) error {
	return wire.DecodePayload(e.codec, e.payload, out)
}
