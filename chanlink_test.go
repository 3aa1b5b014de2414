package chanlink_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanlink/chanlink"
	"github.com/chanlink/chanlink/client"
	"github.com/chanlink/chanlink/server"
)

func startServer(t *testing.T, ctx context.Context) *server.Server {
	t.Helper()
	srv, err := chanlink.NewServer(ctx, "127.0.0.1:0", server.Default(), server.NoneAuthenticator{}, chanlink.DefaultServerConfig())
	require.NoError(t, err)
	return srv
}

func dial(t *testing.T, ctx context.Context, srv *server.Server, connectMsg any) *client.Client {
	t.Helper()
	cl, err := chanlink.NewClient(ctx, srv.URL(), chanlink.NewClientID(), chanlink.EnvNative, chanlink.AuthRequest{Kind: 0}, chanlink.DefaultClientConfig(), connectMsg)
	require.NoError(t, err)
	return cl
}

func requireServerEvent(t *testing.T, ctx context.Context, srv *server.Server, kind server.EventKind) server.Event {
	t.Helper()
	ev, ok := srv.Next(ctx)
	require.True(t, ok, "server queue closed while waiting for %s", kind)
	require.Equal(t, kind, ev.Kind)
	return ev
}

func requireClientEvent(t *testing.T, ctx context.Context, cl *client.Client, kind client.EventKind) client.Event {
	t.Helper()
	ev, ok := cl.Next(ctx)
	require.True(t, ok, "client queue closed while waiting for %s", kind)
	require.Equal(t, kind, ev.Kind)
	return ev
}

// TestBaselineEchoConnect exercises scenario 1: a fresh handshake reports
// Connected on both sides and bumps NumConnections.
func TestBaselineEchoConnect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := startServer(t, ctx)
	assert.Equal(t, 0, srv.NumConnections())

	cl := dial(t, ctx, srv, "hello")
	defer cl.Close()

	connEv := requireServerEvent(t, ctx, srv, server.EventConnected)
	var connectMsg string
	require.NoError(t, connEv.DecodeConnect(&connectMsg))
	assert.Equal(t, "hello", connectMsg)

	requireClientEvent(t, ctx, cl, client.EventConnected)
	assert.Eventually(t, func() bool { return srv.NumConnections() == 1 }, time.Second, 10*time.Millisecond)
}

// TestClientMessageDeliveredToServer exercises scenario 2.
func TestClientMessageDeliveredToServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := startServer(t, ctx)
	cl := dial(t, ctx, srv, nil)
	defer cl.Close()

	requireServerEvent(t, ctx, srv, server.EventConnected)
	requireClientEvent(t, ctx, cl, client.EventConnected)

	sig := cl.Send(uint64(42))
	assert.Eventually(t, func() bool { return sig.Status().String() == "Sent" }, time.Second, 10*time.Millisecond)

	msgEv := requireServerEvent(t, ctx, srv, server.EventMsg)
	var got uint64
	require.NoError(t, msgEv.DecodeMsg(&got))
	assert.Equal(t, uint64(42), got)
}

// TestServerMessageDeliveredToClient exercises scenario 3.
func TestServerMessageDeliveredToClient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := startServer(t, ctx)
	cl := dial(t, ctx, srv, nil)
	defer cl.Close()

	connEv := requireServerEvent(t, ctx, srv, server.EventConnected)
	requireClientEvent(t, ctx, cl, client.EventConnected)

	require.NoError(t, srv.Send(connEv.ClientID, uint64(24)))

	msgEv := requireClientEvent(t, ctx, cl, client.EventMsg)
	var got uint64
	require.NoError(t, msgEv.Decode(&got))
	assert.Equal(t, uint64(24), got)
}

// TestRequestAck exercises scenario 4: request then ack.
func TestRequestAck(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := startServer(t, ctx)
	cl := dial(t, ctx, srv, nil)
	defer cl.Close()

	requireServerEvent(t, ctx, srv, server.EventConnected)
	requireClientEvent(t, ctx, cl, client.EventConnected)

	reqSig := cl.Request(struct{}{})
	assert.Eventually(t, func() bool { return reqSig.Status().String() == "Waiting" }, time.Second, 10*time.Millisecond)

	reqEv := requireServerEvent(t, ctx, srv, server.EventRequest)
	reqEv.Token.Ack()

	requireClientEvent(t, ctx, cl, client.EventAck)
	assert.Equal(t, "Acknowledged", reqSig.Status().String())
}

// TestRequestTokenDroppedOnTeardownRejects exercises scenario 5's guarantee
// through its primary (non-finalizer) mechanism: a session that tears down
// while still holding an unsettled token rejects it.
func TestRequestTokenDroppedOnTeardownRejects(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := startServer(t, ctx)
	cl := dial(t, ctx, srv, nil)
	defer cl.Close()

	connEv := requireServerEvent(t, ctx, srv, server.EventConnected)
	requireClientEvent(t, ctx, cl, client.EventConnected)

	reqSig := cl.Request(struct{}{})

	requireServerEvent(t, ctx, srv, server.EventRequest) // intentionally never settled

	require.NoError(t, srv.Disconnect(connEv.ClientID))

	requireClientEvent(t, ctx, cl, client.EventReject)
	assert.Equal(t, "Rejected", reqSig.Status().String())
}

// TestClose exercises scenario 6.
func TestClose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := startServer(t, ctx)
	cl := dial(t, ctx, srv, nil)

	connEv := requireServerEvent(t, ctx, srv, server.EventConnected)
	requireClientEvent(t, ctx, cl, client.EventConnected)

	cl.Close()

	requireServerEvent(t, ctx, srv, server.EventDisconnected)
	requireClientEvent(t, ctx, cl, client.EventClosedBySelf)
	deadEv := requireClientEvent(t, ctx, cl, client.EventDead)
	assert.Equal(t, client.ClosedBySelf, deadEv.DeadReason)

	assert.Eventually(t, func() bool { return srv.NumConnections() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, connEv.ClientID, connEv.ClientID) // sanity: id stable across the exchange
}

// TestDuplicateClientIDRejected exercises the at-most-one-concurrent-
// handshake-per-ClientId invariant.
func TestDuplicateClientIDRejected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := startServer(t, ctx)

	id := chanlink.NewClientID()
	cfg := chanlink.DefaultClientConfig()
	cfg.MaxInitialConnectAttempts = 1
	cfg.ReconnectOnDisconnect = false

	cl1, err := chanlink.NewClient(ctx, srv.URL(), id, chanlink.EnvNative, chanlink.AuthRequest{}, cfg, nil)
	require.NoError(t, err)
	defer cl1.Close()
	requireServerEvent(t, ctx, srv, server.EventConnected)
	requireClientEvent(t, ctx, cl1, client.EventConnected)

	cl2, err := chanlink.NewClient(ctx, srv.URL(), id, chanlink.EnvNative, chanlink.AuthRequest{}, cfg, nil)
	require.NoError(t, err)
	defer cl2.Close()

	deadEv := requireClientEvent(t, ctx, cl2, client.EventDead)
	assert.Equal(t, client.ConnectFailed, deadEv.DeadReason)
	assert.Equal(t, 1, srv.NumConnections())
}
