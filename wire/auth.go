package wire

import "fmt"

// AuthKind discriminates the three AuthRequest variants a client may send
// during handshake, mirrored by the three Authenticator variants a server
// may enforce.
type AuthKind uint8

const (
	AuthNone AuthKind = iota
	AuthSecret
	AuthToken
)

// AuthRequest is the client's credential, codec-encoded into the handshake
// query parameters (see HandshakeRequest.Auth).
type AuthRequest struct {
	Kind   AuthKind `msgpack:"kind"`
	Secret []byte   `msgpack:"secret,omitempty"`
	Token  string   `msgpack:"token,omitempty"`
}

// EncodeAuth codec-encodes an AuthRequest for embedding in a handshake.
func EncodeAuth(c Codec, a AuthRequest) ([]byte, error) {
	b, err := c.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("wire: encode auth: %w", err)
	}
	return b, nil
}

// DecodeAuth decodes the bytes carried in HandshakeRequest.Auth.
func DecodeAuth(c Codec, raw []byte) (AuthRequest, error) {
	if len(raw) == 0 {
		return AuthRequest{Kind: AuthNone}, nil
	}
	var a AuthRequest
	if err := c.Unmarshal(raw, &a); err != nil {
		return AuthRequest{}, fmt.Errorf("wire: decode auth: %w", err)
	}
	return a, nil
}
