package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/chanlink/chanlink/wire"
)

// newRouter builds the health, connect, and status routes, wrapped in
// logging middleware.
func (s *Server) newRouter() http.Handler {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(s.log))

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/connect", s.handleConnect)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	return r
}

func loggingMiddleware(log *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug("request", slog.String("method", r.Method), slog.String("path", r.URL.Path),
				slog.Duration("elapsed", time.Since(start)))
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// statusResponse is the body for GET /status, an admin surface reporting
// the current connection count and uptime.
type statusResponse struct {
	NumConnections int       `json:"num_connections"`
	Uptime         string    `json:"uptime"`
	StartedAt      time.Time `json:"started_at"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := statusResponse{
		NumConnections: s.registry.count(),
		Uptime:         time.Since(s.startedAt).String(),
		StartedAt:      s.startedAt,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleConnect performs the entire handshake: query-parameter decode,
// protocol-version check, authentication, and duplicate-ClientId rejection,
// in that order, entirely before the WebSocket upgrade completes so a
// rejection can be reported as a plain HTTP status instead of a wire
// envelope.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	req, err := wire.DecodeHandshakeQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Version != wire.ProtocolVersion {
		http.Error(w, "protocol version mismatch", http.StatusBadRequest)
		return
	}
	if err := s.auth.Authenticate(req); err != nil {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}
	if s.cfg.MaxConnections > 0 && s.registry.count() >= s.cfg.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	if !s.registry.reserve(req.ClientID) {
		http.Error(w, "client id already connected", http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.registry.release(req.ClientID, nil)
		s.log.Warn("upgrade failed", slog.String("client_id", req.ClientID.String()), slog.Any("err", err))
		return
	}

	sessionID := s.nextSessionID.Add(1)
	sess := newSession(s, conn, req.ClientID, sessionID, req.Env)
	s.registry.commit(req.ClientID, sess)

	s.events.Push(Event{ClientID: req.ClientID, Kind: EventConnected, Env: req.Env, payload: req.ConnectMsg, codec: s.cfg.Codec})
	s.log.Info("session connected", slog.String("client_id", req.ClientID.String()), slog.Uint64("session_id", sessionID))
}
