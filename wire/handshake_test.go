package wire_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/chanlink/chanlink/wire"
)

func TestHandshakeQueryRoundTrip(t *testing.T) {
	codec := wire.MsgpackCodec{}
	connectMsg, err := wire.EncodePayload(codec, "hello")
	require.NoError(t, err)
	authBytes, err := wire.EncodeAuth(codec, wire.AuthRequest{Kind: wire.AuthSecret, Secret: []byte("s3cr3t")})
	require.NoError(t, err)

	req := wire.HandshakeRequest{
		Version:    wire.ProtocolVersion,
		ClientID:   uuid.New(),
		Env:        wire.EnvBrowser,
		ConnectMsg: connectMsg,
		Auth:       authBytes,
	}

	got, err := wire.DecodeHandshakeQuery(req.EncodeQuery())
	require.NoError(t, err)

	require.Equal(t, req.Version, got.Version)
	require.Equal(t, req.ClientID, got.ClientID)
	require.Equal(t, req.Env, got.Env)
	require.Equal(t, req.ConnectMsg, got.ConnectMsg)

	auth, err := wire.DecodeAuth(codec, got.Auth)
	require.NoError(t, err)
	require.Equal(t, wire.AuthSecret, auth.Kind)
	require.Equal(t, []byte("s3cr3t"), auth.Secret)
}

func TestDecodeHandshakeQueryRejectsMissingVersion(t *testing.T) {
	req := wire.HandshakeRequest{ClientID: uuid.New()}
	_, err := wire.DecodeHandshakeQuery(req.EncodeQuery())
	require.Error(t, err)
}
