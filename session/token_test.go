package session_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/chanlink/chanlink/session"
	"github.com/chanlink/chanlink/wire"
)

func TestRequestTokenSettlesExactlyOnce(t *testing.T) {
	var calls []wire.Kind
	tok := session.NewRequestToken(uuid.New(), 1, func(kind wire.Kind, _ []byte) {
		calls = append(calls, kind)
	})

	tok.Ack()
	tok.Reject()  // must be a no-op: already settled
	tok.Respond(nil) // must be a no-op: already settled

	assert.Equal(t, []wire.Kind{wire.KindAck}, calls)
}

func TestRequestTokenRespondCarriesPayload(t *testing.T) {
	var gotPayload []byte
	tok := session.NewRequestToken(uuid.New(), 2, func(kind wire.Kind, payload []byte) {
		gotPayload = payload
	})
	tok.Respond([]byte("answer"))
	assert.Equal(t, []byte("answer"), gotPayload)
}

func TestRequestTokenExposesIdentity(t *testing.T) {
	cid := uuid.New()
	tok := session.NewRequestToken(cid, 42, func(wire.Kind, []byte) {})
	assert.Equal(t, cid, tok.ClientID())
	assert.Equal(t, uint64(42), tok.RequestID())
	tok.Reject()
}
