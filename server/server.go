// Package server implements the acceptor and session registry half of the
// channel: it binds a listener, authenticates and deduplicates incoming
// ClientIds, and exposes send/respond/ack/reject/disconnect against the
// live session table.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/chanlink/chanlink/chanerr"
	"github.com/chanlink/chanlink/session"
	"github.com/chanlink/chanlink/wire"
)

// Server is the accepting side of the channel.
type Server struct {
	cfg         ServerConfig
	auth        Authenticator
	acceptorCfg AcceptorConfig

	registry *registry
	events   *session.EventQueue[Event]

	httpServer *http.Server
	listener   net.Listener
	addr       string

	nextSessionID atomic.Uint64
	startedAt     time.Time
	log           *slog.Logger
}

// New binds address, starts serving immediately in the background, and
// returns once the listener is live. The returned Server's URL() reports
// the actual bound address, useful when address specifies port 0.
func New(ctx context.Context, address string, acceptorCfg AcceptorConfig, authenticator Authenticator, cfg ServerConfig) (*Server, error) {
	if authenticator == nil {
		authenticator = NoneAuthenticator{}
	}
	def := DefaultServerConfig()
	if cfg.Codec == nil {
		cfg.Codec = def.Codec
	}
	if cfg.MaxMsgSize == 0 {
		cfg.MaxMsgSize = def.MaxMsgSize
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.KeepaliveTimeout == 0 {
		cfg.KeepaliveTimeout = def.KeepaliveTimeout
	}

	tlsConfig, err := acceptorCfg.loadTLSConfig()
	if err != nil {
		return nil, chanerr.NewConfigError("loading TLS material", err)
	}

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, chanerr.NewConfigError("binding listener", err)
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}

	s := &Server{
		cfg:         cfg,
		auth:        authenticator,
		acceptorCfg: acceptorCfg,
		registry:    newRegistry(),
		events:      session.NewEventQueue[Event](),
		listener:    ln,
		addr:        ln.Addr().String(),
		startedAt:   time.Now(),
		log:         slog.Default().With(slog.String("component", "chanlink.server")),
	}

	s.httpServer = &http.Server{
		Handler:           s.newRouter(),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server exited", slog.Any("err", err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	return s, nil
}

// URL reports the ws:// (or wss://) base URL clients should dial, including
// the /connect path.
func (s *Server) URL() string {
	scheme := "ws"
	if s.acceptorCfg.TLS != nil {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/connect", scheme, s.addr)
}

// NumConnections reports the current live session count.
func (s *Server) NumConnections() int {
	return s.registry.count()
}

// Next drains the next event, blocking until one is available, the server
// is shut down and fully drained, or ctx is done.
func (s *Server) Next(ctx context.Context) (Event, bool) {
	return s.events.Next(ctx)
}

// Send transmits a fire-and-forget message to client_id.
func (s *Server) Send(clientID uuid.UUID, v any) error {
	sess, ok := s.registry.get(clientID)
	if !ok {
		return chanerr.NewApplicationError(fmt.Sprintf("no live session for %s", clientID))
	}
	payload, err := wire.EncodePayload(s.cfg.Codec, v)
	if err != nil {
		return err
	}
	if err := sess.send(payload); err != nil {
		return chanerr.NewApplicationError(err.Error())
	}
	return nil
}

// Respond answers a request with application data, consuming token.
func (s *Server) Respond(token session.RequestToken, v any) error {
	payload, err := wire.EncodePayload(s.cfg.Codec, v)
	if err != nil {
		return err
	}
	token.Respond(payload)
	return nil
}

// Ack answers a request with a bare acknowledgement, consuming token.
func (s *Server) Ack(token session.RequestToken) error {
	token.Ack()
	return nil
}

// Reject answers a request negatively, consuming token.
func (s *Server) Reject(token session.RequestToken) error {
	token.Reject()
	return nil
}

// Disconnect forcibly closes the session for client_id, if any.
func (s *Server) Disconnect(clientID uuid.UUID) error {
	sess, ok := s.registry.get(clientID)
	if !ok {
		return chanerr.NewApplicationError(fmt.Sprintf("no live session for %s", clientID))
	}
	sess.disconnect()
	return nil
}

// Shutdown transitions every live session through Closing, stops accepting
// new connections, and closes the event queue once every session has torn
// down. Subsequent Next calls drain any remaining queued events and then
// return (zero, false).
func (s *Server) Shutdown(ctx context.Context) error {
	_ = s.httpServer.Shutdown(ctx)

	for _, sess := range s.registry.all() {
		sess.disconnect()
	}

	done := make(chan struct{})
	go func() {
		for s.registry.count() > 0 {
			select {
			case <-ctx.Done():
				close(done)
				return
			case <-time.After(50 * time.Millisecond):
			}
		}
		close(done)
	}()
	<-done

	s.events.Close()
	return nil
}
