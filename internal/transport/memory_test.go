package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
)

func TestHubBindRejectsDuplicateIdentity(t *testing.T) {
	hub := NewHub()

	_, err := hub.Bind(context.Background(), "room-1")
	require.NoError(t, err)

	_, err = hub.Bind(context.Background(), "room-1")
	require.ErrorIs(t, err, ErrIdentityTaken)
}

func TestHubIdentityFreedOnClose(t *testing.T) {
	hub := NewHub()

	ep, err := hub.Bind(context.Background(), "room-1")
	require.NoError(t, err)
	ep.Close()

	_, err = hub.Bind(context.Background(), "room-1")
	require.NoError(t, err)
}

func TestOpenUnknownPeerFails(t *testing.T) {
	hub := NewHub()
	ep, err := hub.Bind(context.Background(), "alice")
	require.NoError(t, err)

	_, err = ep.Open(context.Background(), "nobody", Metadata{})
	require.ErrorIs(t, err, ErrUnreachablePeer)
}

func TestOpenWithoutAcceptorFails(t *testing.T) {
	hub := NewHub()
	_, err := hub.Bind(context.Background(), "room-1")
	require.NoError(t, err)

	ep, err := hub.Bind(context.Background(), "alice")
	require.NoError(t, err)

	// The host exists but never registered OnIncoming.
	_, err = ep.Open(context.Background(), "room-1", Metadata{})
	require.ErrorIs(t, err, ErrUnreachablePeer)
}

func TestFramesBufferUntilHandlerAttached(t *testing.T) {
	hub := NewHub()

	hostEP, err := hub.Bind(context.Background(), "room-1")
	require.NoError(t, err)
	var hostConn Connection
	hostEP.OnIncoming(func(c Connection) { hostConn = c })

	viewerEP, err := hub.Bind(context.Background(), "alice")
	require.NoError(t, err)
	viewerConn, err := viewerEP.Open(context.Background(), "room-1", Metadata{DisplayName: "alice"})
	require.NoError(t, err)
	require.NotNil(t, hostConn)
	assert.Equal(t, "alice", hostConn.Metadata().DisplayName)

	require.NoError(t, hostConn.Send([]byte("one")))
	require.NoError(t, hostConn.Send([]byte("two")))

	var got []string
	viewerConn.OnFrame(func(frame []byte) { got = append(got, string(frame)) })
	assert.Equal(t, []string{"one", "two"}, got)
}

func TestBufferedFramesSurviveClose(t *testing.T) {
	hub := NewHub()

	hostEP, err := hub.Bind(context.Background(), "room-1")
	require.NoError(t, err)
	var hostConn Connection
	hostEP.OnIncoming(func(c Connection) { hostConn = c })

	viewerEP, err := hub.Bind(context.Background(), "alice")
	require.NoError(t, err)
	viewerConn, err := viewerEP.Open(context.Background(), "room-1", Metadata{})
	require.NoError(t, err)

	// A terminal message followed by an active close must still arrive.
	require.NoError(t, hostConn.Send([]byte("room-full")))
	hostConn.Close()

	var got []string
	viewerConn.OnFrame(func(frame []byte) { got = append(got, string(frame)) })
	assert.Equal(t, []string{"room-full"}, got)

	closed := false
	viewerConn.OnClose(func() { closed = true })
	assert.True(t, closed)
	assert.Equal(t, domain.ConnClosed, viewerConn.State())
}

func TestCloseIsSymmetricAndIdempotent(t *testing.T) {
	hub := NewHub()

	hostEP, err := hub.Bind(context.Background(), "room-1")
	require.NoError(t, err)
	var hostConn Connection
	hostEP.OnIncoming(func(c Connection) { hostConn = c })

	viewerEP, err := hub.Bind(context.Background(), "alice")
	require.NoError(t, err)
	viewerConn, err := viewerEP.Open(context.Background(), "room-1", Metadata{})
	require.NoError(t, err)

	hostClosed, viewerClosed := 0, 0
	hostConn.OnClose(func() { hostClosed++ })
	viewerConn.OnClose(func() { viewerClosed++ })

	viewerConn.Close()
	viewerConn.Close()
	hostConn.Close()

	assert.Equal(t, 1, hostClosed)
	assert.Equal(t, 1, viewerClosed)
	assert.NoError(t, viewerConn.Send([]byte("dropped")))
}
