package wire

import (
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// EnvType tags the runtime the client is asserted to be running in. It is
// declared by the caller at construction time rather than inferred, since a
// single Go binary runs identically regardless of target.
type EnvType uint8

const (
	EnvNative EnvType = iota
	EnvBrowser
)

func (e EnvType) String() string {
	if e == EnvBrowser {
		return "browser"
	}
	return "native"
}

func ParseEnvType(s string) (EnvType, error) {
	switch s {
	case "native", "":
		return EnvNative, nil
	case "browser":
		return EnvBrowser, nil
	default:
		return 0, fmt.Errorf("wire: unknown env type %q", s)
	}
}

// Handshake query parameter names. Handshake fields travel as URL query
// parameters on the WebSocket upgrade request rather than headers, since
// browser WebSocket clients cannot set arbitrary headers on the upgrade
// request.
const (
	QueryVersion  = "v"
	QueryClientID = "cid"
	QueryEnv      = "env"
	QueryConnect  = "cm"
	QueryAuth     = "auth"
)

// HandshakeRequest is what the client asserts on every connection attempt.
type HandshakeRequest struct {
	Version  string
	ClientID uuid.UUID
	Env      EnvType
	// ConnectMsg is the codec-encoded, opaque connect payload.
	ConnectMsg []byte
	// Auth is the codec-encoded AuthRequest variant, opaque to this package.
	Auth []byte
}

// EncodeQuery renders the handshake as URL query parameters.
func (h HandshakeRequest) EncodeQuery() url.Values {
	q := url.Values{}
	q.Set(QueryVersion, h.Version)
	q.Set(QueryClientID, h.ClientID.String())
	q.Set(QueryEnv, h.Env.String())
	if len(h.ConnectMsg) > 0 {
		q.Set(QueryConnect, base64.RawURLEncoding.EncodeToString(h.ConnectMsg))
	}
	if len(h.Auth) > 0 {
		q.Set(QueryAuth, base64.RawURLEncoding.EncodeToString(h.Auth))
	}
	return q
}

// DecodeHandshakeQuery parses the handshake fields back out of an incoming
// upgrade request's query parameters.
func DecodeHandshakeQuery(q url.Values) (HandshakeRequest, error) {
	var h HandshakeRequest
	h.Version = q.Get(QueryVersion)
	if h.Version == "" {
		return h, fmt.Errorf("wire: missing protocol version")
	}
	cid, err := uuid.Parse(q.Get(QueryClientID))
	if err != nil {
		return h, fmt.Errorf("wire: invalid client id: %w", err)
	}
	h.ClientID = cid
	env, err := ParseEnvType(q.Get(QueryEnv))
	if err != nil {
		return h, err
	}
	h.Env = env
	if raw := q.Get(QueryConnect); raw != "" {
		b, err := base64.RawURLEncoding.DecodeString(raw)
		if err != nil {
			return h, fmt.Errorf("wire: invalid connect msg encoding: %w", err)
		}
		h.ConnectMsg = b
	}
	if raw := q.Get(QueryAuth); raw != "" {
		b, err := base64.RawURLEncoding.DecodeString(raw)
		if err != nil {
			return h, fmt.Errorf("wire: invalid auth encoding: %w", err)
		}
		h.Auth = b
	}
	return h, nil
}

// HandshakeOutcome is what the server's upgrade handler decides. On
// rejection the HTTP upgrade itself is refused (never completed), so the
// rejection reason travels back as a plain HTTP response body, not a wire
// Envelope.
type HandshakeOutcome struct {
	Accepted bool
	Reason   string
}
