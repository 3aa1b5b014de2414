package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chanlink/chanlink/session"
)

func TestCanTransitionForwardChain(t *testing.T) {
	assert.True(t, session.CanTransition(session.Handshaking, session.Connected))
	assert.True(t, session.CanTransition(session.Connected, session.Closing))
	assert.True(t, session.CanTransition(session.Closing, session.Dead))
	assert.True(t, session.CanTransition(session.Handshaking, session.Dead))
}

func TestCanTransitionRejectsBackwardOrSelf(t *testing.T) {
	assert.False(t, session.CanTransition(session.Connected, session.Handshaking))
	assert.False(t, session.CanTransition(session.Dead, session.Connected))
	assert.False(t, session.CanTransition(session.Connected, session.Connected))
	assert.False(t, session.CanTransition(session.Dead, session.Dead))
}
