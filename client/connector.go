package client

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/chanlink/chanlink/chanerr"
	"github.com/chanlink/chanlink/session"
	"github.com/chanlink/chanlink/signal"
	"github.com/chanlink/chanlink/wire"
)

// run is the supervising loop: it drives connection attempts until the
// client is closed, using a bounded exponential backoff with jitter
// (github.com/cenkalti/backoff/v4) in place of a hand-rolled retry loop.
func (c *Client) run() {
	defer c.events.Close()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.ReconnectIntervalMin
	b.MaxInterval = c.cfg.ReconnectIntervalMax
	b.MaxElapsedTime = 0 // bounded instead by MaxInitialConnectAttempts below

	everConnected := false
	attempts := 0

	for {
		if c.ctx.Err() != nil {
			c.markDead(ClosedBySelf, nil)
			return
		}

		connected, graceful, err := c.connectOnce()
		if connected {
			everConnected = true
			b.Reset()
		}

		if c.ctx.Err() != nil {
			c.markDead(ClosedBySelf, nil)
			return
		}

		if !everConnected {
			attempts++
			if c.cfg.MaxInitialConnectAttempts > 0 && attempts >= c.cfg.MaxInitialConnectAttempts {
				c.markDead(ConnectFailed, err)
				return
			}
		} else {
			if graceful && !c.cfg.ReconnectOnServerClose {
				c.markDead(TransportError, nil)
				return
			}
			if !graceful && !c.cfg.ReconnectOnDisconnect {
				c.markDead(TransportError, nil)
				return
			}
		}

		if err != nil {
			c.log.Debug("connect attempt failed", slog.Any("err", err))
		}

		wait := b.NextBackOff()
		// Jitter can push the randomized interval past either bound.
		if wait < c.cfg.ReconnectIntervalMin {
			wait = c.cfg.ReconnectIntervalMin
		}
		if c.cfg.ReconnectIntervalMax > 0 && wait > c.cfg.ReconnectIntervalMax {
			wait = c.cfg.ReconnectIntervalMax
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-c.ctx.Done():
			timer.Stop()
			c.markDead(ClosedBySelf, nil)
			return
		}
	}
}

// connectOnce dials, runs the handshake, and -- if the handshake succeeds --
// blocks until the resulting session dies. It returns whether a session was
// ever established, whether that session ended via a graceful server close,
// and the dial/handshake error if one occurred.
func (c *Client) connectOnce() (connected bool, graceful bool, err error) {
	req := wire.HandshakeRequest{
		Version:    wire.ProtocolVersion,
		ClientID:   c.clientID,
		Env:        c.env,
		ConnectMsg: c.connectMsg,
	}
	authBytes, encErr := wire.EncodeAuth(c.cfg.Codec, c.authReq)
	if encErr != nil {
		return false, false, encErr
	}
	req.Auth = authBytes

	u := c.dialURL
	u.RawQuery = req.EncodeQuery().Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, resp, dialErr := dialer.DialContext(c.ctx, u.String(), nil)
	if dialErr != nil {
		return false, false, classifyDialErr(resp, dialErr)
	}

	done := make(chan struct{})
	var core *session.Core
	core = session.NewCore(conn, c.cfg.sessionOptions(), c.onEnvelope, func(reason error) {
		close(done)
	})

	c.mu.Lock()
	c.core = core
	c.mu.Unlock()

	c.events.Push(Event{Kind: EventConnected})

	<-done

	graceful = core.Graceful()

	c.mu.Lock()
	c.core = nil
	pending := c.pending
	c.pending = make(map[uint64]pendingRequest)
	c.mu.Unlock()

	for _, p := range pending {
		p.settler.Settle(signal.RequestResponseLost, nil)
	}

	// A session ended by Close reports ClosedBySelf/IsDead from run instead.
	if c.ctx.Err() == nil {
		c.events.Push(Event{Kind: EventDisconnected})
	}
	return true, graceful, nil
}

// classifyDialErr turns a failed handshake attempt into a
// *chanerr.HandshakeRejected when the server actually responded at the HTTP
// layer before refusing the WebSocket upgrade -- the version-mismatch,
// auth-failure, too-many-connections, and duplicate-ClientId cases -- so an
// application can tell "the server rejected us" apart from "the server was
// unreachable" via errors.As. A nil response (connection refused, timeout,
// DNS failure) is passed through unwrapped.
func classifyDialErr(resp *http.Response, dialErr error) error {
	if resp == nil {
		return dialErr
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	_ = resp.Body.Close()
	reason := strings.TrimSpace(string(body))
	if reason == "" {
		reason = resp.Status
	}
	return chanerr.NewHandshakeRejected(reason)
}

func (c *Client) markDead(reason DeadReason, err error) {
	if !c.dead.CompareAndSwap(false, true) {
		return
	}
	c.deadReason = reason
	if reason == ClosedBySelf {
		c.events.Push(Event{Kind: EventClosedBySelf})
	}
	c.events.Push(Event{Kind: EventDead, DeadReason: reason, Err: err})
}
