package server

import (
	"crypto/subtle"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chanlink/chanlink/wire"
)

// Authenticator validates a client's AuthRequest during handshake. A
// non-nil error rejects the handshake with HandshakeRejected before the
// session table is ever consulted.
type Authenticator interface {
	Authenticate(req wire.HandshakeRequest) error
}

// NoneAuthenticator accepts every handshake unconditionally.
type NoneAuthenticator struct{}

func (NoneAuthenticator) Authenticate(wire.HandshakeRequest) error { return nil }

// SecretAuthenticator requires the client's AuthRequest to carry a secret
// matching Expected, compared in constant time to avoid leaking a match via
// timing.
type SecretAuthenticator struct {
	Codec    wire.Codec
	Expected []byte
}

func NewSecretAuthenticator(codec wire.Codec, expected []byte) *SecretAuthenticator {
	return &SecretAuthenticator{Codec: codec, Expected: expected}
}

func (a *SecretAuthenticator) Authenticate(req wire.HandshakeRequest) error {
	auth, err := wire.DecodeAuth(a.Codec, req.Auth)
	if err != nil {
		return fmt.Errorf("authenticator: %w", err)
	}
	if auth.Kind != wire.AuthSecret {
		return fmt.Errorf("authenticator: expected secret credential")
	}
	if len(auth.Secret) != len(a.Expected) || subtle.ConstantTimeCompare(auth.Secret, a.Expected) != 1 {
		return fmt.Errorf("authenticator: secret mismatch")
	}
	return nil
}

// TokenAuthenticator verifies a signed JWT credential using a shared HMAC
// secret key; any HMAC signing method (HS256, HS384, HS512) is accepted.
type TokenAuthenticator struct {
	Codec  wire.Codec
	Secret []byte
}

func NewTokenAuthenticator(codec wire.Codec, secret []byte) *TokenAuthenticator {
	return &TokenAuthenticator{Codec: codec, Secret: secret}
}

func (a *TokenAuthenticator) Authenticate(req wire.HandshakeRequest) error {
	auth, err := wire.DecodeAuth(a.Codec, req.Auth)
	if err != nil {
		return fmt.Errorf("authenticator: %w", err)
	}
	if auth.Kind != wire.AuthToken {
		return fmt.Errorf("authenticator: expected token credential")
	}
	_, err = jwt.Parse(auth.Token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.Secret, nil
	})
	if err != nil {
		return fmt.Errorf("authenticator: invalid token: %w", err)
	}
	return nil
}
