package session

import (
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/chanlink/chanlink/wire"
)

// SettleFunc transmits the final answer to a request: a Response with a
// codec-encoded payload, a bare Ack, or a Reject. It is called at most once
// per token.
type SettleFunc func(kind wire.Kind, payload []byte)

type tokenState struct {
	clientID  uuid.UUID
	requestID uint64
	settle    SettleFunc
	once      sync.Once
}

// RequestToken is the server-held capability representing the obligation to
// answer one client request. It must be consumed by exactly one of Respond,
// Ack, or Reject; dropping it without consuming it is equivalent to Reject.
//
// Go has no destructors, so the "drop implies reject" guarantee is enforced
// two ways: primarily, the server's dispatch loop settles every token still
// outstanding when its session tears down (see server.Session.teardown);
// secondarily, a runtime.SetFinalizer on the token's backing state rejects
// it if the application drops the token outright (e.g. never stores it)
// and it becomes unreachable before the session ever closes. Finalizer
// timing is not deterministic -- it is a backstop, not the primary
// guarantee.
type RequestToken struct {
	state *tokenState
}

// NewRequestToken mints a token bound to one request, installing the
// finalizer backstop.
func NewRequestToken(clientID uuid.UUID, requestID uint64, settle SettleFunc) RequestToken {
	st := &tokenState{clientID: clientID, requestID: requestID, settle: settle}
	runtime.SetFinalizer(st, func(ts *tokenState) {
		ts.once.Do(func() { ts.settle(wire.KindReject, nil) })
	})
	return RequestToken{state: st}
}

func (t RequestToken) ClientID() uuid.UUID { return t.state.clientID }
func (t RequestToken) RequestID() uint64   { return t.state.requestID }

func (t RequestToken) settleOnce(kind wire.Kind, payload []byte) {
	t.state.once.Do(func() {
		runtime.SetFinalizer(t.state, nil)
		t.state.settle(kind, payload)
	})
}

// Respond answers the request with a codec-encoded payload.
func (t RequestToken) Respond(payload []byte) { t.settleOnce(wire.KindResponse, payload) }

// Ack answers the request with a bare acknowledgement.
func (t RequestToken) Ack() { t.settleOnce(wire.KindAck, nil) }

// Reject answers the request negatively.
func (t RequestToken) Reject() { t.settleOnce(wire.KindReject, nil) }
