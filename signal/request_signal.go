package signal

import (
	"fmt"
	"sync/atomic"

	"github.com/chanlink/chanlink/wire"
)

// RequestStatus is the lifecycle of one client request.
type RequestStatus uint8

const (
	RequestSending RequestStatus = iota
	RequestWaiting
	RequestResponded
	RequestAcknowledged
	RequestRejected
	RequestResponseLost
	RequestSendFailed
)

func (s RequestStatus) String() string {
	switch s {
	case RequestSending:
		return "Sending"
	case RequestWaiting:
		return "Waiting"
	case RequestResponded:
		return "Responded"
	case RequestAcknowledged:
		return "Acknowledged"
	case RequestRejected:
		return "Rejected"
	case RequestResponseLost:
		return "ResponseLost"
	case RequestSendFailed:
		return "SendFailed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether s is a status a RequestSignal never leaves.
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestResponded, RequestAcknowledged, RequestRejected, RequestResponseLost, RequestSendFailed:
		return true
	default:
		return false
	}
}

type requestSnapshot struct {
	status  RequestStatus
	payload []byte
}

// RequestSignal is the read handle returned by Request. Once it reaches
// RequestResponded, Decode unpacks the server's response payload.
type RequestSignal struct {
	cell  *atomic.Pointer[requestSnapshot]
	codec wire.Codec
}

func (s RequestSignal) Status() RequestStatus {
	if s.cell == nil {
		return RequestResponseLost
	}
	return s.cell.Load().status
}

// Decode unmarshals the response payload into out. It returns an error if
// the signal has not reached RequestResponded.
func (s RequestSignal) Decode(out any) error {
	snap := s.cell.Load()
	if snap.status != RequestResponded {
		return fmt.Errorf("signal: request is %s, not Responded", snap.status)
	}
	return wire.DecodePayload(s.codec, snap.payload, out)
}

// RequestSettler is the write side of a RequestSignal.
type RequestSettler struct {
	cell *atomic.Pointer[requestSnapshot]
}

// Advance moves Sending -> Waiting. It is a no-op once the signal has left
// Sending (defensive against a settle race with a terminal write).
func (s RequestSettler) Advance(status RequestStatus) {
	for {
		cur := s.cell.Load()
		if cur.status != RequestSending || cur.status.Terminal() {
			return
		}
		next := &requestSnapshot{status: status}
		if s.cell.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Settle moves the signal to a terminal status, optionally carrying a
// response payload (only meaningful for RequestResponded).
func (s RequestSettler) Settle(status RequestStatus, payload []byte) {
	for {
		cur := s.cell.Load()
		if cur.status.Terminal() {
			return
		}
		next := &requestSnapshot{status: status, payload: payload}
		if s.cell.CompareAndSwap(cur, next) {
			return
		}
	}
}

// NewRequestSignal creates a linked read/write pair, initialized to Sending.
func NewRequestSignal(codec wire.Codec) (RequestSignal, RequestSettler) {
	cell := new(atomic.Pointer[requestSnapshot])
	cell.Store(&requestSnapshot{status: RequestSending})
	return RequestSignal{cell: cell, codec: codec}, RequestSettler{cell: cell}
}
