package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
)

func TestEncodeDecodeSync(t *testing.T) {
	frame, err := Encode(&Sync{Event: "play", PositionSeconds: 30.2})
	require.NoError(t, err)

	msg, err := Decode(frame)
	require.NoError(t, err)

	sync, ok := msg.(*Sync)
	require.True(t, ok)
	assert.Equal(t, "play", sync.Event)
	assert.InDelta(t, 30.2, sync.PositionSeconds, 1e-9)
}

func TestDecodeSyncInitial(t *testing.T) {
	frame := []byte(`{"type":"sync-initial","payload":{"positionSeconds":120.0,"isPlaying":true}}`)

	msg, err := Decode(frame)
	require.NoError(t, err)

	snap, ok := msg.(*SyncInitial)
	require.True(t, ok)
	assert.True(t, snap.IsPlaying)
	assert.InDelta(t, 120.0, snap.PositionSeconds, 1e-9)
}

func TestDecodeEndSessionWithoutPayload(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"end-session"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeEndSession, msg.Kind())
}

func TestDecodeUnknownTypeIsDropped(t *testing.T) {
	_, err := Decode([]byte(`{"type":"telemetry-v2","payload":{}}`))
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"type":"sync","payload":"not an object"}`))
	require.Error(t, err)

	_, err = Decode([]byte(`not json at all`))
	require.Error(t, err)
}

func TestSyncEventMapping(t *testing.T) {
	assert.Equal(t, domain.EventPlay, SyncEvent("play"))
	assert.Equal(t, domain.EventPause, SyncEvent("pause"))
	assert.Equal(t, domain.EventSeek, SyncEvent("seek"))
	// Unknown events only correct position, never flip the play state.
	assert.Equal(t, domain.EventSeek, SyncEvent("fast-forward"))
}
