// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

type Role int

const (
	RoleHost Role = iota
	RoleViewer
)

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "viewer"
}

type SourceKind int

const (
	SourceFile SourceKind = iota
	SourceScreenShare
)

const (
	MaxRoomIDLen    = 36
	DefaultCapacity = 8
)

var (
	ErrRoomIDEmpty   = errors.New("room id empty")
	ErrRoomIDTooLong = errors.New("room id too long")
	ErrBadCapacity   = errors.New("capacity must be positive")
)

// Session is the local view of one watch-party. The RoomID doubles as the
// host's addressable identity so viewers can find it.
type Session struct {
	RoomID   RoomID
	Role     Role
	Capacity int
	Source   SourceKind
}

// NewSession avoids raw literals in adapters and keeps validation in one place.
func NewSession(roomID RoomID, role Role, capacity int, source SourceKind) (*Session, error) {
	if roomID == "" {
		return nil, ErrRoomIDEmpty
	}
	if len(roomID) > MaxRoomIDLen {
		return nil, ErrRoomIDTooLong
	}
	if capacity <= 0 {
		return nil, ErrBadCapacity
	}
	return &Session{RoomID: roomID, Role: role, Capacity: capacity, Source: source}, nil
}
