package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chanlink/chanlink/chanerr"
	"github.com/chanlink/chanlink/wire"
)

// Options configures the shared pumps. Both client and server sessions fill
// this in from their respective ClientConfig/ServerConfig before
// constructing a Core.
type Options struct {
	Codec          wire.Codec
	MaxMsgSize     int64
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	PongWait       time.Duration
	MaxMissedPongs int32
	// OutboundBuffer bounds the write-pump channel; Send blocks once full,
	// applying natural backpressure to a slow socket without ever dropping
	// a queued send.
	OutboundBuffer int
}

// DefaultOptions mirrors the constants the reference heartbeat client and
// hub implementations converge on: a 30s ping interval, a pong wait
// comfortably longer than two ping intervals, and two missed pongs before
// the peer is presumed gone.
func DefaultOptions(codec wire.Codec) Options {
	return Options{
		Codec:          codec,
		MaxMsgSize:     128 * 1024,
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		PongWait:       70 * time.Second,
		MaxMissedPongs: 2,
		OutboundBuffer: 64,
	}
}

// OnEnvelope is invoked once per inbound frame from the read pump goroutine.
// A returned error is always treated as a ProtocolError and closes the
// session.
type OnEnvelope func(wire.Envelope) error

// OnClose is invoked exactly once, after the write pump has stopped (or
// WriteTimeout has elapsed waiting for it) and the connection has been
// closed, with the reason the session ended. The read pump is not awaited.
type OnClose func(reason error)

// outboundEnvelope carries one queued frame and, if the caller asked to be
// notified, the callback writePump invokes with the write outcome: nil once
// the frame has actually gone out over the socket, or an error if it was
// never written (a failed WriteMessage, or the queue was drained because the
// session closed first).
type outboundEnvelope struct {
	env  wire.Envelope
	done func(error)
}

// Core owns a *websocket.Conn and runs its read pump, write pump, and
// heartbeat, shared verbatim by the client and server halves of the
// channel. It implements the Connected/Closing/Dead tail of the session
// state machine; Handshaking is resolved by the caller before a Core is
// constructed.
type Core struct {
	conn    *websocket.Conn
	opts    Options
	limiter *kindRateLimiter

	onEnvelope OnEnvelope
	onClose    OnClose

	state atomic.Uint32

	out        chan *outboundEnvelope
	closed     chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once

	pendingPongs atomic.Int32
	graceful     atomic.Bool
}

// Graceful reports whether the peer closed the connection with a normal
// WebSocket close frame, as opposed to a transport failure. The client
// connector consults this to honor ReconnectOnServerClose.
func (c *Core) Graceful() bool {
	return c.graceful.Load()
}

// NewCore wraps conn and immediately starts the read and write pumps. The
// caller must have already completed the handshake; Core starts life in
// Connected.
func NewCore(conn *websocket.Conn, opts Options, onEnvelope OnEnvelope, onClose OnClose) *Core {
	c := &Core{
		conn:       conn,
		opts:       opts,
		limiter:    newKindRateLimiter(),
		onEnvelope: onEnvelope,
		onClose:    onClose,
		out:        make(chan *outboundEnvelope, opts.OutboundBuffer),
		closed:     make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	c.state.Store(uint32(Connected))
	conn.SetReadLimit(opts.MaxMsgSize)

	go c.writePump()
	go c.readPump()
	return c
}

// State returns the session's current lifecycle state.
func (c *Core) State() State {
	return State(c.state.Load())
}

// Send enqueues an envelope for transmission, fire-and-forget. It returns an
// error once the session has begun Closing; it does not wait for the
// envelope to actually reach the socket. Callers that need to know whether
// the frame was actually written (to settle a MessageSignal/RequestSignal)
// should use SendNotify instead.
func (c *Core) Send(e wire.Envelope) error {
	return c.SendNotify(e, nil)
}

// SendNotify enqueues an envelope for transmission and arranges for done,
// if non-nil, to be called exactly once from the write pump: with nil once
// the envelope has actually been written to the socket, or with an error if
// the write failed or the session closed before the envelope was reached.
func (c *Core) SendNotify(e wire.Envelope, done func(error)) error {
	if c.State() != Connected {
		return fmt.Errorf("session: send on non-connected session")
	}
	item := &outboundEnvelope{env: e, done: done}
	select {
	case c.out <- item:
		// If the session closed while this item was being enqueued, the
		// write pump may already have drained the queue; wait for it to
		// finish and drain again so the item is still settled.
		select {
		case <-c.closed:
			<-c.writerDone
			c.drainOutbound()
		default:
		}
		return nil
	case <-c.closed:
		return fmt.Errorf("session: send on closed session")
	}
}

// Close begins graceful shutdown: the write pump is told to drain and stop,
// a WebSocket close frame is sent, and the underlying connection is closed.
// Close is idempotent and may be called from any goroutine, including from
// within onEnvelope/onClose.
func (c *Core) Close() {
	c.closeOnce.Do(func() {
		c.transition(Closing)
		close(c.closed)

		select {
		case c.out <- nil: // sentinel handled by writePump as a stop signal
		default:
		}

		select {
		case <-c.writerDone:
		case <-time.After(c.opts.WriteTimeout):
		}

		deadline := time.Now().Add(c.opts.WriteTimeout)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = c.conn.Close()

		c.transition(Dead)
		if c.onClose != nil {
			c.onClose(nil)
		}
	})
}

// CloseWithError is Close, but records reason for the OnClose callback; it
// is how the read/write pumps report a TransportError/ProtocolError.
func (c *Core) CloseWithError(reason error) {
	c.closeOnce.Do(func() {
		c.transition(Closing)
		close(c.closed)

		select {
		case c.out <- nil: // sentinel handled by writePump as a stop signal
		default:
		}
		select {
		case <-c.writerDone:
		case <-time.After(c.opts.WriteTimeout):
		}

		deadline := time.Now().Add(c.opts.WriteTimeout)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = c.conn.Close()

		c.transition(Dead)
		if c.onClose != nil {
			c.onClose(reason)
		}
	})
}

func (c *Core) transition(to State) {
	for {
		from := c.State()
		if !CanTransition(from, to) {
			return
		}
		if c.state.CompareAndSwap(uint32(from), uint32(to)) {
			return
		}
	}
}

func (c *Core) writePump() {
	defer close(c.writerDone)
	defer c.drainOutbound()

	var ticker *time.Ticker
	var tickC <-chan time.Time
	if c.opts.PingInterval > 0 {
		ticker = time.NewTicker(c.opts.PingInterval)
		tickC = ticker.C
		defer ticker.Stop()
	}

	for {
		select {
		case item, ok := <-c.out:
			if !ok || item == nil {
				return
			}
			err := c.writeEnvelope(item.env)
			if item.done != nil {
				item.done(err)
			}
			if err != nil {
				go c.CloseWithError(chanerr.NewTransportError("write failed", err))
				return
			}
		case <-tickC:
			if c.pendingPongs.Add(1) > c.opts.MaxMissedPongs {
				go c.CloseWithError(chanerr.NewTransportError("missed heartbeat", nil))
				return
			}
			deadline := time.Now().Add(c.opts.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				go c.CloseWithError(chanerr.NewTransportError("ping failed", err))
				return
			}
		case <-c.closed:
			return
		}
	}
}

// drainOutbound settles every envelope still sitting in the outbound queue
// when the write pump exits without having reached it, so a
// MessageSignal/RequestSignal awaiting SendNotify's callback never hangs at
// a non-terminal status just because the session closed out from under it.
func (c *Core) drainOutbound() {
	for {
		select {
		case item := <-c.out:
			if item != nil && item.done != nil {
				item.done(fmt.Errorf("session: closed before envelope was written"))
			}
		default:
			return
		}
	}
}

func (c *Core) writeEnvelope(e wire.Envelope) error {
	b, err := wire.Encode(c.opts.Codec, e)
	if err != nil {
		return err
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (c *Core) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.pendingPongs.Store(0)
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.graceful.Store(true)
			}
			c.CloseWithError(chanerr.NewTransportError("read failed", err))
			return
		}

		e, err := wire.Decode(c.opts.Codec, data)
		if err != nil {
			c.CloseWithError(chanerr.NewProtocolError(err.Error()))
			return
		}
		if !c.limiter.Allow(e.Kind) {
			c.CloseWithError(chanerr.NewTransportError(fmt.Sprintf("inbound rate limit exceeded for %s", e.Kind), nil))
			return
		}
		if err := c.onEnvelope(e); err != nil {
			c.CloseWithError(chanerr.NewProtocolError(err.Error()))
			return
		}
	}
}

// Context returns a context that is cancelled once the session reaches
// Dead, convenient for callers that want to select on session lifetime.
func (c *Core) Context(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		<-c.closed
		<-c.writerDone
		cancel()
	}()
	return ctx
}
