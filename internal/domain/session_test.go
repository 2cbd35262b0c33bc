package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionValidation(t *testing.T) {
	cases := []struct {
		name     string
		roomID   RoomID
		capacity int
		wantErr  error
	}{
		{"valid", "movie-ab12cd", 8, nil},
		{"empty room id", "", 8, ErrRoomIDEmpty},
		{"room id too long", RoomID(strings.Repeat("x", MaxRoomIDLen+1)), 8, ErrRoomIDTooLong},
		{"zero capacity", "movie-ab12cd", 0, ErrBadCapacity},
		{"negative capacity", "movie-ab12cd", -1, ErrBadCapacity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSession(tc.roomID, RoleHost, tc.capacity, SourceFile)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.roomID, s.RoomID)
			assert.Equal(t, tc.capacity, s.Capacity)
		})
	}
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "host", RoleHost.String())
	assert.Equal(t, "viewer", RoleViewer.String())
}
