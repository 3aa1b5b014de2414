// Package session implements the connection lifecycle shared by both halves
// of the channel: the Handshaking -> Connected -> Closing -> Dead state
// machine, the single-writer outbound queue with heartbeat and read/write
// pumps over a *websocket.Conn, the per-request token obligation, and the
// unbounded single-consumer event queue the embedding application drains.
package session

import "fmt"

// State is the lifecycle of one connection attempt, shared verbatim by the
// client and server sides of a session.
type State uint8

const (
	Handshaking State = iota
	Connected
	Closing
	Dead
)

func (s State) String() string {
	switch s {
	case Handshaking:
		return "Handshaking"
	case Connected:
		return "Connected"
	case Closing:
		return "Closing"
	case Dead:
		return "Dead"
	default:
		return "Unknown"
	}
}

// CanTransition reports whether moving from `from` to `to` is a legal step
// in the strictly-forward Handshaking -> Connected -> Closing -> Dead chain.
// Self-transitions are rejected; callers that attempt a no-op transition
// should check State() first.
func CanTransition(from, to State) bool {
	switch from {
	case Handshaking:
		return to == Connected || to == Closing || to == Dead
	case Connected:
		return to == Closing || to == Dead
	case Closing:
		return to == Dead
	case Dead:
		return false
	default:
		return false
	}
}

// ErrInvalidTransition is returned by callers that guard state changes with
// CanTransition and want a uniform error to wrap.
func ErrInvalidTransition(from, to State) error {
	return fmt.Errorf("session: invalid transition %s -> %s", from, to)
}
