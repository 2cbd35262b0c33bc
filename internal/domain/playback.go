package domain

type PlaybackEvent int

const (
	EventPlay PlaybackEvent = iota
	EventPause
	EventSeek
)

func (e PlaybackEvent) String() string {
	switch e {
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	default:
		return "seek"
	}
}

// PlaybackState is owned exclusively by the host; viewers hold a derived
// copy reconciled from sync messages.
type PlaybackState struct {
	PositionSeconds float64
	IsPlaying       bool
	LastEvent       PlaybackEvent
}
