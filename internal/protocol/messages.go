// Package protocol defines the control-channel messages exchanged between a
// host and its viewers. Every message is a distinct variant behind the
// Message interface so dispatch is an exhaustive type switch instead of a
// stringly-typed payload map.
package protocol

import "github.com/taalhaakaagaan/Lets-Watch/internal/domain"

type MessageType string

const (
	TypeChat           MessageType = "chat"
	TypeSync           MessageType = "sync"
	TypeSyncInitial    MessageType = "sync-initial"
	TypeStartCountdown MessageType = "start-countdown"
	TypeRoomFull       MessageType = "room-full"
	TypeKick           MessageType = "kick"
	TypeEndSession     MessageType = "end-session"
	TypeError          MessageType = "error"
)

type Message interface {
	Kind() MessageType
}

// Chat is relayed by the host to all viewers except the original sender.
type Chat struct {
	User string `json:"user"`
	Text string `json:"text"`
	Time string `json:"time"`
}

func (Chat) Kind() MessageType { return TypeChat }

// Sync is emitted by the host on every local play/pause/seek event.
type Sync struct {
	Event           string  `json:"event"`
	PositionSeconds float64 `json:"positionSeconds"`
}

func (Sync) Kind() MessageType { return TypeSync }

// SyncInitial is sent once to a newly-joined viewer so late joiners do not
// wait for the next organic event to catch up.
type SyncInitial struct {
	PositionSeconds float64 `json:"positionSeconds"`
	IsPlaying       bool    `json:"isPlaying"`
}

func (SyncInitial) Kind() MessageType { return TypeSyncInitial }

// StartCountdown tells every client to begin the pre-playback countdown so
// they enter fullscreen at roughly the same wall-clock moment.
type StartCountdown struct {
	Seconds int `json:"seconds"`
}

func (StartCountdown) Kind() MessageType { return TypeStartCountdown }

// RoomFull is a terminal message: the host sends it before actively closing
// a connection rejected at capacity, so the client gets a deterministic
// signal instead of hanging.
type RoomFull struct {
	Capacity int `json:"capacity"`
}

func (RoomFull) Kind() MessageType { return TypeRoomFull }

// Kick is terminal for the addressed viewer.
type Kick struct {
	Reason string `json:"reason,omitempty"`
}

func (Kick) Kind() MessageType { return TypeKick }

// EndSession is broadcast by the host when it tears the room down.
type EndSession struct{}

func (EndSession) Kind() MessageType { return TypeEndSession }

// Error carries a human-readable failure back to a peer.
type Error struct {
	Error string `json:"error"`
}

func (Error) Kind() MessageType { return TypeError }

// SyncEvent converts the wire event string; unknown strings fall back to
// seek, which only corrects position and never flips the play state.
func SyncEvent(s string) domain.PlaybackEvent {
	switch s {
	case "play":
		return domain.EventPlay
	case "pause":
		return domain.EventPause
	default:
		return domain.EventSeek
	}
}
