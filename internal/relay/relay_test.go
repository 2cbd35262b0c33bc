package relay_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taalhaakaagaan/Lets-Watch/internal/config"
	"github.com/taalhaakaagaan/Lets-Watch/internal/relay"
	"github.com/taalhaakaagaan/Lets-Watch/internal/transport"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Mode:       "release",
		ReadLimit:  32768,
		PingPeriod: time.Minute,
		Secret:     "test-secret",
		JoinLimit:  100,
		JoinWindow: time.Minute,
	}
	ctl := relay.NewController(cfg)
	srv := httptest.NewServer(relay.SetupRouter(cfg, ctl))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/signal"
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(v))
}

func recv(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func join(t *testing.T, ws *websocket.Conn, room, userID, username, password string) {
	t.Helper()
	send(t, ws, map[string]string{
		"type":     "join-room",
		"roomId":   room,
		"userId":   userID,
		"username": username,
		"password": password,
	})
	m := recv(t, ws)
	require.Equal(t, "joined", m["type"], "unexpected reply: %v", m)
	require.Equal(t, room, m["roomId"])
}

func TestJoinBroadcastsPresence(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv)
	join(t, a, "room-1", "user-a", "alice", "")

	b := dial(t, srv)
	join(t, b, "room-1", "user-b", "bob", "")

	m := recv(t, a)
	assert.Equal(t, "user-connected", m["type"])
	assert.Equal(t, "user-b", m["userId"])
	assert.Equal(t, "bob", m["username"])
}

func TestPrivateRoomRejectsWrongPassword(t *testing.T) {
	srv := newTestServer(t)

	host := dial(t, srv)
	send(t, host, map[string]any{
		"type":      "create-room",
		"roomId":    "movie-night",
		"name":      "Movie Night",
		"isPrivate": true,
		"password":  "hunter2",
	})
	m := recv(t, host)
	require.Equal(t, "room-created", m["type"])
	join(t, host, "movie-night", "user-host", "host", "hunter2")

	intruder := dial(t, srv)
	send(t, intruder, map[string]string{
		"type":     "join-room",
		"roomId":   "movie-night",
		"userId":   "user-x",
		"username": "x",
		"password": "wrong",
	})
	m = recv(t, intruder)
	assert.Equal(t, "error", m["type"])
	assert.Equal(t, "invalid password", m["error"])
}

func TestDuplicateUserIDRejected(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv)
	join(t, a, "room-1", "user-a", "alice", "")

	b := dial(t, srv)
	send(t, b, map[string]string{
		"type":     "join-room",
		"roomId":   "room-1",
		"userId":   "user-a",
		"username": "imposter",
	})
	m := recv(t, b)
	assert.Equal(t, "error", m["type"])
	assert.Equal(t, "id in use", m["error"])
}

func TestTargetedOfferRelayedVerbatim(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv)
	join(t, a, "room-1", "user-a", "alice", "")
	b := dial(t, srv)
	join(t, b, "room-1", "user-b", "bob", "")
	recv(t, a) // user-connected for b

	raw := `{"type":"offer","target":"user-b","callerId":"user-a","signal":"v=0 fake-sdp","displayName":"alice"}`
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(raw)))

	require.NoError(t, b.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := b.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(data))
}

func TestSyncEventExcludesSender(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv)
	join(t, a, "room-1", "user-a", "alice", "")
	b := dial(t, srv)
	join(t, b, "room-1", "user-b", "bob", "")
	recv(t, a) // user-connected for b

	send(t, a, map[string]any{
		"type":        "sync-event",
		"roomId":      "room-1",
		"event":       "pause",
		"currentTime": 30.2,
	})

	m := recv(t, b)
	assert.Equal(t, "sync-event", m["type"])
	assert.Equal(t, "pause", m["event"])
	assert.InDelta(t, 30.2, m["currentTime"], 1e-9)

	// The sender must not hear its own event back.
	require.NoError(t, a.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := a.ReadMessage()
	require.Error(t, err)
}

func TestChatIncludesSender(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv)
	join(t, a, "room-1", "user-a", "alice", "")
	b := dial(t, srv)
	join(t, b, "room-1", "user-b", "bob", "")
	recv(t, a) // user-connected for b

	send(t, a, map[string]any{
		"type":    "send-chat",
		"roomId":  "room-1",
		"message": map[string]string{"user": "alice", "text": "hi"},
	})

	for _, ws := range []*websocket.Conn{a, b} {
		m := recv(t, ws)
		assert.Equal(t, "chat-message", m["type"])
		msg, ok := m["message"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "hi", msg["text"])
	}
}

func TestLeaveBroadcastsDisconnect(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv)
	join(t, a, "room-1", "user-a", "alice", "")
	b := dial(t, srv)
	join(t, b, "room-1", "user-b", "bob", "")
	recv(t, a) // user-connected for b

	send(t, b, map[string]string{"type": "leave"})
	require.Equal(t, "left", recv(t, b)["type"])

	m := recv(t, a)
	assert.Equal(t, "user-disconnected", m["type"])
	assert.Equal(t, "user-b", m["userId"])
}

func TestAbruptDisconnectBroadcastsPresence(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv)
	join(t, a, "room-1", "user-a", "alice", "")
	b := dial(t, srv)
	join(t, b, "room-1", "user-b", "bob", "")
	recv(t, a) // user-connected for b

	// Dropping the socket without a leave message must still notify the
	// room, the same as an explicit leave.
	require.NoError(t, b.Close())

	m := recv(t, a)
	assert.Equal(t, "user-disconnected", m["type"])
	assert.Equal(t, "user-b", m["userId"])
}

func TestSwitchingRoomsBroadcastsImplicitLeave(t *testing.T) {
	srv := newTestServer(t)

	a := dial(t, srv)
	join(t, a, "room-1", "user-a", "alice", "")
	b := dial(t, srv)
	join(t, b, "room-1", "user-b", "bob", "")
	recv(t, a) // user-connected for b

	join(t, b, "room-2", "user-b", "bob", "")

	m := recv(t, a)
	assert.Equal(t, "user-disconnected", m["type"])
	assert.Equal(t, "user-b", m["userId"])
}

func TestClientAnnounceDuplicateIdentity(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	first := relay.NewClient(wsURL(srv), "room-1", "alice", "")
	require.NoError(t, first.Dial(ctx))
	t.Cleanup(first.Close)
	require.NoError(t, first.Announce(ctx, "shared-id"))

	second := relay.NewClient(wsURL(srv), "room-1", "bob", "")
	require.NoError(t, second.Dial(ctx))
	t.Cleanup(second.Close)
	err := second.Announce(ctx, "shared-id")
	require.ErrorIs(t, err, transport.ErrIdentityTaken)
}
