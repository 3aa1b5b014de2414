package client

import (
	"time"

	"github.com/chanlink/chanlink/session"
	"github.com/chanlink/chanlink/wire"
)

// ClientConfig tunes reconnect behavior and per-session limits.
type ClientConfig struct {
	ReconnectOnDisconnect  bool
	ReconnectOnServerClose bool
	ReconnectIntervalMin   time.Duration
	ReconnectIntervalMax   time.Duration
	HeartbeatInterval      time.Duration
	// MaxInitialConnectAttempts bounds only the very first connection
	// attempt; once any handshake has ever succeeded, reconnects are
	// governed solely by ReconnectOnDisconnect/ReconnectOnServerClose.
	// Zero means unlimited.
	MaxInitialConnectAttempts int
	MaxMsgSize                int64
	Codec                     wire.Codec
}

func DefaultClientConfig() ClientConfig {
	opts := session.DefaultOptions(wire.DefaultCodec)
	return ClientConfig{
		ReconnectOnDisconnect:     true,
		ReconnectOnServerClose:    true,
		ReconnectIntervalMin:      time.Second,
		ReconnectIntervalMax:      2 * time.Minute,
		HeartbeatInterval:         opts.PingInterval,
		MaxInitialConnectAttempts: 0,
		MaxMsgSize:                opts.MaxMsgSize,
		Codec:                     wire.DefaultCodec,
	}
}

func (c ClientConfig) sessionOptions() session.Options {
	opts := session.DefaultOptions(c.Codec)
	opts.MaxMsgSize = c.MaxMsgSize
	opts.PingInterval = c.HeartbeatInterval
	return opts
}

// NoneAuth builds an AuthRequest for an Authenticator configured with
// NoneAuthenticator.
func NoneAuth() wire.AuthRequest { return wire.AuthRequest{Kind: wire.AuthNone} }

// SecretAuth builds an AuthRequest carrying a shared secret.
func SecretAuth(secret []byte) wire.AuthRequest {
	return wire.AuthRequest{Kind: wire.AuthSecret, Secret: secret}
}

// TokenAuth builds an AuthRequest carrying a signed token.
func TokenAuth(token string) wire.AuthRequest {
	return wire.AuthRequest{Kind: wire.AuthToken, Token: token}
}
