package server

import (
	"crypto/tls"
	"time"

	"github.com/chanlink/chanlink/session"
	"github.com/chanlink/chanlink/wire"
)

// ServerConfig tunes per-session limits and keepalive behavior. All fields
// have sensible defaults applied by DefaultServerConfig.
type ServerConfig struct {
	// MaxConnections bounds the session table's size. Zero means unbounded.
	MaxConnections int
	// MaxMsgSize is the largest inbound frame accepted before the session
	// is closed with a TransportError.
	MaxMsgSize int64
	HeartbeatInterval time.Duration
	KeepaliveTimeout  time.Duration
	Codec             wire.Codec
}

func DefaultServerConfig() ServerConfig {
	opts := session.DefaultOptions(wire.DefaultCodec)
	return ServerConfig{
		MaxConnections:    0,
		MaxMsgSize:        opts.MaxMsgSize,
		HeartbeatInterval: opts.PingInterval,
		KeepaliveTimeout:  opts.PongWait,
		Codec:             wire.DefaultCodec,
	}
}

func (c ServerConfig) sessionOptions() session.Options {
	opts := session.DefaultOptions(c.Codec)
	opts.MaxMsgSize = c.MaxMsgSize
	opts.PingInterval = c.HeartbeatInterval
	opts.PongWait = c.KeepaliveTimeout
	return opts
}

// AcceptorConfig selects the network listener variant: Default (plain TCP)
// or Tls (certificate material supplied directly).
type AcceptorConfig struct {
	TLS *TLSMaterial
}

// Default constructs a plain, non-TLS acceptor configuration.
func Default() AcceptorConfig { return AcceptorConfig{} }

// TLSMaterial carries a certificate chain and key for AcceptorConfig.Tls.
// Loading is delegated to crypto/tls, the standard library's certificate
// machinery: no pack example wires a third-party certificate-management
// library directly to a raw listener, so stdlib is the idiomatic choice
// here (see DESIGN.md).
type TLSMaterial struct {
	CertFile string
	KeyFile  string
}

// TlsConfig constructs a TLS acceptor configuration from a cert/key pair.
func TlsConfig(certFile, keyFile string) AcceptorConfig {
	return AcceptorConfig{TLS: &TLSMaterial{CertFile: certFile, KeyFile: keyFile}}
}

func (a AcceptorConfig) loadTLSConfig() (*tls.Config, error) {
	if a.TLS == nil {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(a.TLS.CertFile, a.TLS.KeyFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}, nil
}
