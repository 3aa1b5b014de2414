package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanlink/chanlink/wire"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	codec := wire.MsgpackCodec{}

	cases := []wire.Envelope{
		mustMsg(t, codec, "hello"),
		mustRequest(t, codec, 7, map[string]int{"a": 1}),
		mustResponse(t, codec, 7, []int{1, 2, 3}),
		wire.Ack(9),
		wire.Reject(9),
	}

	for _, e := range cases {
		data, err := wire.Encode(codec, e)
		require.NoError(t, err)

		got, err := wire.Decode(codec, data)
		require.NoError(t, err)
		assert.Equal(t, e.Kind, got.Kind)
		assert.Equal(t, e.RequestID, got.RequestID)
		assert.Equal(t, e.Payload, got.Payload)
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	codec := wire.MsgpackCodec{}
	data, err := codec.Marshal(struct {
		K uint8 `msgpack:"k"`
	}{K: 200})
	require.NoError(t, err)

	_, err = wire.Decode(codec, data)
	assert.Error(t, err)
}

func TestRequestPayloadRoundTrip(t *testing.T) {
	codec := wire.MsgpackCodec{}
	type payload struct {
		Name  string
		Count int
	}
	in := payload{Name: "req", Count: 3}

	e, err := wire.Request(codec, 1, in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, wire.DecodePayload(codec, e.Payload, &out))
	assert.Equal(t, in, out)
}

func mustMsg(t *testing.T, c wire.Codec, v any) wire.Envelope {
	t.Helper()
	e, err := wire.Msg(c, v)
	require.NoError(t, err)
	return e
}

func mustRequest(t *testing.T, c wire.Codec, id uint64, v any) wire.Envelope {
	t.Helper()
	e, err := wire.Request(c, id, v)
	require.NoError(t, err)
	return e
}

func mustResponse(t *testing.T, c wire.Codec, id uint64, v any) wire.Envelope {
	t.Helper()
	e, err := wire.Response(c, id, v)
	require.NoError(t, err)
	return e
}
