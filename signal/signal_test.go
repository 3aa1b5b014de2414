package signal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanlink/chanlink/signal"
	"github.com/chanlink/chanlink/wire"
)

func TestMessageSignalTerminalIsWriteOnce(t *testing.T) {
	sig, settler := signal.NewMessageSignal()
	assert.Equal(t, signal.MessageSending, sig.Status())

	settler.Settle(signal.MessageSent)
	assert.Equal(t, signal.MessageSent, sig.Status())

	settler.Settle(signal.MessageFailed)
	assert.Equal(t, signal.MessageSent, sig.Status(), "status must not regress once terminal")
}

func TestMessageSignalCloneSharesState(t *testing.T) {
	sig, settler := signal.NewMessageSignal()
	clone := sig
	settler.Settle(signal.MessageSent)
	assert.Equal(t, signal.MessageSent, clone.Status())
}

func TestRequestSignalReachesExactlyOneTerminalState(t *testing.T) {
	codec := wire.MsgpackCodec{}
	sig, settler := signal.NewRequestSignal(codec)
	assert.Equal(t, signal.RequestSending, sig.Status())

	settler.Advance(signal.RequestWaiting)
	assert.Equal(t, signal.RequestWaiting, sig.Status())

	payload, err := wire.EncodePayload(codec, "answer")
	require.NoError(t, err)
	settler.Settle(signal.RequestResponded, payload)
	assert.Equal(t, signal.RequestResponded, sig.Status())

	// A second settle attempt (e.g. a racing Reject) must not move the
	// signal away from its first terminal state.
	settler.Settle(signal.RequestRejected, nil)
	assert.Equal(t, signal.RequestResponded, sig.Status())

	var out string
	require.NoError(t, sig.Decode(&out))
	assert.Equal(t, "answer", out)
}

func TestRequestSignalDecodeBeforeRespondedFails(t *testing.T) {
	sig, _ := signal.NewRequestSignal(wire.MsgpackCodec{})
	var out string
	assert.Error(t, sig.Decode(&out))
}
