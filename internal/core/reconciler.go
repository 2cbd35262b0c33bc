package core

import (
	"math"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
)

// DefaultDriftTolerance is how far a viewer may run ahead of or behind the
// host before its position is forcibly overwritten. Small drift is
// tolerated to avoid visible stutter from over-correcting on every
// message; anything larger snaps immediately.
const DefaultDriftTolerance = 0.5

// Player is the viewer's local video element. The reconciler is the only
// writer in sync mode.
type Player interface {
	Position() float64
	Seek(seconds float64)
	Play()
	Pause()
}

// Reconciler applies the host's sync messages to the local player.
type Reconciler struct {
	Tolerance float64
}

func NewReconciler() Reconciler {
	return Reconciler{Tolerance: DefaultDriftTolerance}
}

// Apply runs the two-step reconciliation: hard position snap when drift
// exceeds the tolerance, then the event semantics. Drift exactly at the
// tolerance does not snap; only strictly greater drift does.
func (r Reconciler) Apply(p Player, event domain.PlaybackEvent, position float64) domain.PlaybackState {
	r.correct(p, position)

	state := domain.PlaybackState{PositionSeconds: position, LastEvent: event}
	switch event {
	case domain.EventPlay:
		p.Play()
		state.IsPlaying = true
	case domain.EventPause:
		p.Pause()
	case domain.EventSeek:
		// Position already corrected; play state untouched.
	}
	return state
}

// ApplySnapshot catches a late joiner up from SYNC_INITIAL.
func (r Reconciler) ApplySnapshot(p Player, position float64, isPlaying bool) domain.PlaybackState {
	r.correct(p, position)
	if isPlaying {
		p.Play()
	} else {
		p.Pause()
	}
	return domain.PlaybackState{PositionSeconds: position, IsPlaying: isPlaying, LastEvent: domain.EventSeek}
}

func (r Reconciler) correct(p Player, position float64) {
	if math.Abs(p.Position()-position) > r.Tolerance {
		p.Seek(position)
	}
}
