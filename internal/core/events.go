package core

import (
	"github.com/rs/zerolog/log"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
	"github.com/taalhaakaagaan/Lets-Watch/internal/protocol"
)

type EventKind int

const (
	EventParticipantJoined EventKind = iota
	EventParticipantLeft
	EventChat
	EventPeerError
	EventRoomFull
	EventKicked
	EventSessionEnded
	EventCountdownStarted
	EventCountdownTick
	EventCountdownDone
)

// Event is an asynchronous notification to the UI layer. Fatal conditions
// still return synchronously from Host/Join; everything here is churn the
// session already absorbed.
type Event struct {
	Kind      EventKind
	Peer      domain.PeerID
	Name      string
	Chat      *protocol.Chat
	Error     string
	Remaining int
}

func (s *Session) Events() <-chan Event { return s.events }

// publish never blocks: a stalled UI consumer must not stall the session.
func (s *Session) publish(ev Event) {
	select {
	case s.events <- ev:
	default:
		log.Warn().Str("module", "core.session").Int("kind", int(ev.Kind)).Msg("event dropped, consumer too slow")
	}
}
