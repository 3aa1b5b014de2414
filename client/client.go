// Package client implements the connector and reconnect loop half of the
// channel: a persistent ClientId identity that drives connection attempts
// with bounded exponential backoff, re-synchronizes in-flight messages
// across reconnects by terminating them rather than carrying them forward,
// and exposes send/request/close against whichever session is currently
// live.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/chanlink/chanlink/chanerr"
	"github.com/chanlink/chanlink/session"
	"github.com/chanlink/chanlink/signal"
	"github.com/chanlink/chanlink/wire"
)

type pendingRequest struct {
	settler signal.RequestSettler
}

// Client is the connecting side of the channel.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc

	clientID   uuid.UUID
	env        wire.EnvType
	connectMsg []byte
	authReq    wire.AuthRequest
	cfg        ClientConfig
	dialURL    url.URL

	mu            sync.Mutex
	core          *session.Core
	pending       map[uint64]pendingRequest
	nextRequestID atomic.Uint64

	events     *session.EventQueue[Event]
	dead       atomic.Bool
	deadReason DeadReason

	log *slog.Logger
}

// New constructs a client identity and immediately starts the connector
// loop in the background. url is the server's ws(s)://host:port/connect
// endpoint; connectMsg is an arbitrary, codec-encodable value cloned into
// every connection attempt.
func New(ctx context.Context, rawURL string, clientID uuid.UUID, env wire.EnvType, authReq wire.AuthRequest, cfg ClientConfig, connectMsg any) (*Client, error) {
	if cfg.Codec == nil {
		def := DefaultClientConfig()
		cfg.Codec = def.Codec
		if cfg.ReconnectIntervalMin == 0 {
			cfg.ReconnectIntervalMin = def.ReconnectIntervalMin
		}
		if cfg.ReconnectIntervalMax == 0 {
			cfg.ReconnectIntervalMax = def.ReconnectIntervalMax
		}
		if cfg.HeartbeatInterval == 0 {
			cfg.HeartbeatInterval = def.HeartbeatInterval
		}
		if cfg.MaxMsgSize == 0 {
			cfg.MaxMsgSize = def.MaxMsgSize
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, chanerr.NewConfigError("parsing server url", err)
	}

	connectPayload, err := wire.EncodePayload(cfg.Codec, connectMsg)
	if err != nil {
		return nil, chanerr.NewConfigError("encoding connect message", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	c := &Client{
		ctx:        cctx,
		cancel:     cancel,
		clientID:   clientID,
		env:        env,
		connectMsg: connectPayload,
		authReq:    authReq,
		cfg:        cfg,
		dialURL:    *u,
		pending:    make(map[uint64]pendingRequest),
		events:     session.NewEventQueue[Event](),
		log:        slog.Default().With(slog.String("component", "chanlink.client"), slog.String("client_id", clientID.String())),
	}

	go c.run()
	return c, nil
}

// onEnvelope is Core's inbound dispatch callback for a client session.
func (c *Client) onEnvelope(e wire.Envelope) error {
	switch e.Kind {
	case wire.KindMsg:
		c.events.Push(Event{Kind: EventMsg, payload: e.Payload, codec: c.cfg.Codec})
		return nil
	case wire.KindResponse:
		return c.settleRequest(e.RequestID, signal.RequestResponded, e.Payload, EventResponse)
	case wire.KindAck:
		return c.settleRequest(e.RequestID, signal.RequestAcknowledged, nil, EventAck)
	case wire.KindReject:
		return c.settleRequest(e.RequestID, signal.RequestRejected, nil, EventReject)
	default:
		return fmt.Errorf("client session: unexpected envelope kind %s", e.Kind)
	}
}

func (c *Client) settleRequest(requestID uint64, status signal.RequestStatus, payload []byte, eventKind EventKind) error {
	c.mu.Lock()
	p, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("response for unknown request id %d", requestID)
	}
	p.settler.Settle(status, payload)
	c.events.Push(Event{Kind: eventKind, RequestID: requestID, payload: payload, codec: c.cfg.Codec})
	return nil
}

// Send transmits a fire-and-forget message, returning a signal observing
// its delivery. If no session is currently connected the signal is
// immediately Failed: the client does not buffer sends across reconnects.
// The signal only settles Sent once the write pump has actually written the
// frame to the socket; if the session closes first with the frame still
// queued, it settles Failed instead.
func (c *Client) Send(v any) signal.MessageSignal {
	sig, settler := signal.NewMessageSignal()

	payload, err := wire.EncodePayload(c.cfg.Codec, v)
	if err != nil {
		settler.Settle(signal.MessageFailed)
		return sig
	}

	c.mu.Lock()
	core := c.core
	c.mu.Unlock()
	if core == nil {
		settler.Settle(signal.MessageFailed)
		return sig
	}

	err = core.SendNotify(wire.Envelope{Kind: wire.KindMsg, Payload: payload}, func(sendErr error) {
		if sendErr != nil {
			settler.Settle(signal.MessageFailed)
			return
		}
		settler.Settle(signal.MessageSent)
	})
	if err != nil {
		settler.Settle(signal.MessageFailed)
	}
	return sig
}

// Request sends a request and returns a signal that reaches exactly one
// terminal state: Responded, Acknowledged, Rejected, ResponseLost, or
// SendFailed. The signal only advances to Waiting once the write pump has
// actually written the frame to the socket; if the session closes first
// with the frame still queued, it settles SendFailed instead.
func (c *Client) Request(v any) signal.RequestSignal {
	sig, settler := signal.NewRequestSignal(c.cfg.Codec)

	payload, err := wire.EncodePayload(c.cfg.Codec, v)
	if err != nil {
		settler.Settle(signal.RequestSendFailed, nil)
		return sig
	}

	requestID := c.nextRequestID.Add(1)

	c.mu.Lock()
	core := c.core
	if core != nil {
		c.pending[requestID] = pendingRequest{settler: settler}
	}
	c.mu.Unlock()

	if core == nil {
		settler.Settle(signal.RequestSendFailed, nil)
		return sig
	}

	env := wire.Envelope{Kind: wire.KindRequest, RequestID: requestID, Payload: payload}
	err = core.SendNotify(env, func(sendErr error) {
		if sendErr != nil {
			c.mu.Lock()
			delete(c.pending, requestID)
			c.mu.Unlock()
			settler.Settle(signal.RequestSendFailed, nil)
			return
		}
		settler.Advance(signal.RequestWaiting)
	})
	if err != nil {
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
		settler.Settle(signal.RequestSendFailed, nil)
		return sig
	}
	return sig
}

// Close begins graceful shutdown: the current session (if any) is closed,
// the connector loop stops retrying, and IsDead(ClosedBySelf) follows.
// Close is idempotent.
func (c *Client) Close() {
	c.cancel()
	c.mu.Lock()
	core := c.core
	c.mu.Unlock()
	if core != nil {
		core.Close()
	}
}

// Next drains the next event, blocking until one is available or the
// client has reached Dead and fully drained its queue.
func (c *Client) Next(ctx context.Context) (Event, bool) {
	return c.events.Next(ctx)
}

// IsDead reports whether the client has permanently stopped, and why.
func (c *Client) IsDead() (bool, DeadReason) {
	return c.dead.Load(), c.deadReason
}
