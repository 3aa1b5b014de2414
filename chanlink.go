// Package chanlink re-exports the client and server constructors and the
// types shared between them so that typical callers need only this single
// import path. Most non-trivial work lives in the client, server, session,
// signal, and wire subpackages; this file is pure plumbing.
package chanlink

import (
	"context"

	"github.com/google/uuid"

	"github.com/chanlink/chanlink/client"
	"github.com/chanlink/chanlink/server"
	"github.com/chanlink/chanlink/wire"
)

// Re-exported handshake/env/auth types.
type (
	EnvType     = wire.EnvType
	AuthRequest = wire.AuthRequest
)

const (
	EnvNative  = wire.EnvNative
	EnvBrowser = wire.EnvBrowser
)

// NewClientID mints a fresh, process-random client identity.
func NewClientID() uuid.UUID { return uuid.New() }

// NewClient is client.New, re-exported for single-import convenience.
func NewClient(ctx context.Context, url string, clientID uuid.UUID, env wire.EnvType, auth wire.AuthRequest, cfg client.ClientConfig, connectMsg any) (*client.Client, error) {
	return client.New(ctx, url, clientID, env, auth, cfg, connectMsg)
}

// NewServer is server.New, re-exported for single-import convenience.
func NewServer(ctx context.Context, address string, acceptorCfg server.AcceptorConfig, authenticator server.Authenticator, cfg server.ServerConfig) (*server.Server, error) {
	return server.New(ctx, address, acceptorCfg, authenticator, cfg)
}

// DefaultClientConfig and DefaultServerConfig are re-exported for
// discoverability from the root package.
func DefaultClientConfig() client.ClientConfig { return client.DefaultClientConfig() }
func DefaultServerConfig() server.ServerConfig { return server.DefaultServerConfig() }
