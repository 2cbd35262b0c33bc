package domain

type (
	RoomName string
	RoomID   string
)

// RoomConfig is what a host registers with the signaling relay before
// anyone can join. The relay only checks the password, never playback state.
type RoomConfig struct {
	Name      RoomName
	IsPrivate bool
	Password  string
}
