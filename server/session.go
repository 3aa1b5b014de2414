package server

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chanlink/chanlink/session"
	"github.com/chanlink/chanlink/wire"
)

// Session is the server's handle on one accepted, authenticated connection.
type Session struct {
	clientID  uuid.UUID
	sessionID uint64
	env       wire.EnvType
	codec     wire.Codec
	core      *session.Core
	srv       *Server

	mu     sync.Mutex
	tokens map[uint64]session.RequestToken
}

func newSession(srv *Server, conn *websocket.Conn, clientID uuid.UUID, sessionID uint64, env wire.EnvType) *Session {
	s := &Session{
		clientID:  clientID,
		sessionID: sessionID,
		env:       env,
		codec:     srv.cfg.Codec,
		srv:       srv,
		tokens:    make(map[uint64]session.RequestToken),
	}
	s.core = session.NewCore(conn, srv.cfg.sessionOptions(), s.dispatch, s.teardown)
	return s
}

func (s *Session) dispatch(e wire.Envelope) error {
	switch e.Kind {
	case wire.KindMsg:
		s.srv.events.Push(Event{ClientID: s.clientID, Kind: EventMsg, payload: e.Payload, codec: s.codec})
		return nil
	case wire.KindRequest:
		s.mu.Lock()
		if _, exists := s.tokens[e.RequestID]; exists {
			s.mu.Unlock()
			return fmt.Errorf("duplicate request id %d from %s", e.RequestID, s.clientID)
		}
		requestID := e.RequestID
		tok := session.NewRequestToken(s.clientID, requestID, func(kind wire.Kind, payload []byte) {
			s.mu.Lock()
			delete(s.tokens, requestID)
			s.mu.Unlock()
			_ = s.core.Send(wire.Envelope{Kind: kind, RequestID: requestID, Payload: payload})
		})
		s.tokens[requestID] = tok
		s.mu.Unlock()
		s.srv.events.Push(Event{ClientID: s.clientID, Kind: EventRequest, Token: tok, payload: e.Payload, codec: s.codec})
		return nil
	default:
		return fmt.Errorf("server session: unexpected envelope kind %s", e.Kind)
	}
}

// teardown runs once, from Core's onClose, after the socket is gone. It
// settles every outstanding request token as Reject -- the primary half of
// the "drop without consuming implies Reject" guarantee -- removes the
// session from the registry, and emits the Disconnected report.
func (s *Session) teardown(reason error) {
	s.mu.Lock()
	tokens := make([]session.RequestToken, 0, len(s.tokens))
	for _, tok := range s.tokens {
		tokens = append(tokens, tok)
	}
	s.tokens = make(map[uint64]session.RequestToken)
	s.mu.Unlock()

	for _, tok := range tokens {
		tok.Reject()
	}

	s.srv.registry.release(s.clientID, s)
	s.srv.events.Push(Event{ClientID: s.clientID, Kind: EventDisconnected})

	if reason != nil {
		s.srv.log.Warn("session closed", slog.String("client_id", s.clientID.String()), slog.Any("reason", reason))
	} else {
		s.srv.log.Info("session closed", slog.String("client_id", s.clientID.String()))
	}
}

// send transmits a fire-and-forget message to this session.
func (s *Session) send(payload []byte) error {
	return s.core.Send(wire.Envelope{Kind: wire.KindMsg, Payload: payload})
}

func (s *Session) disconnect() {
	s.core.Close()
}
