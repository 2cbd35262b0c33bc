package identity

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
)

type fakeStore struct {
	id    domain.PeerID
	saves int
}

func (s *fakeStore) Load() (domain.PeerID, bool) { return s.id, s.id != "" }
func (s *fakeStore) Save(id domain.PeerID) error { s.id = id; s.saves++; return nil }

func TestStaticIdentity(t *testing.T) {
	id, err := Static("movie-ab12cd").Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PeerID("movie-ab12cd"), id)
}

func TestCachedMintsOnceAndPersists(t *testing.T) {
	store := &fakeStore{}
	c := NewCached(store)

	first, err := c.Identity(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, 1, store.saves)

	second, err := c.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.saves)
}

func TestCachedReloadsFromStore(t *testing.T) {
	store := &fakeStore{id: "persisted-id"}
	c := NewCached(store)

	id, err := c.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PeerID("persisted-id"), id)
	assert.Zero(t, store.saves)
}

func TestLANCodeRoundTrip(t *testing.T) {
	id, err := EncodeRoomID(net.IPv4(192, 168, 1, 42))
	require.NoError(t, err)
	assert.Equal(t, domain.RoomID("C0A8012A"), id)

	ip, err := DecodeRoomID(id)
	require.NoError(t, err)
	assert.True(t, ip.Equal(net.IPv4(192, 168, 1, 42)))
}

func TestLANCodeRejectsBadInput(t *testing.T) {
	_, err := EncodeRoomID(net.ParseIP("::1"))
	require.ErrorIs(t, err, ErrBadLANCode)

	for _, bad := range []domain.RoomID{"", "C0A801", "C0A8012AFF", "XYZW1234"} {
		_, err := DecodeRoomID(bad)
		assert.ErrorIs(t, err, ErrBadLANCode, "code %q", bad)
	}
}
