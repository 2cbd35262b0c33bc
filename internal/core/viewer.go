package core

import (
	"github.com/rs/zerolog/log"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
	"github.com/taalhaakaagaan/Lets-Watch/internal/protocol"
)

// handleViewerFrame applies the host's control messages. Unknown or
// malformed frames are dropped defensively; peers may run mismatched
// versions.
func (s *Session) handleViewerFrame(frame []byte) {
	msg, err := protocol.Decode(frame)
	if err != nil {
		log.Warn().Err(err).Str("module", "core.session").Msg("dropping bad frame")
		return
	}

	switch m := msg.(type) {
	case *protocol.Sync:
		s.reconcile(func(p Player) domain.PlaybackState {
			return s.rec.Apply(p, protocol.SyncEvent(m.Event), m.PositionSeconds)
		})
	case *protocol.SyncInitial:
		s.reconcile(func(p Player) domain.PlaybackState {
			return s.rec.ApplySnapshot(p, m.PositionSeconds, m.IsPlaying)
		})
	case *protocol.Chat:
		s.publish(Event{Kind: EventChat, Peer: s.hostID(), Chat: m})
	case *protocol.StartCountdown:
		s.publish(Event{Kind: EventCountdownStarted, Remaining: m.Seconds})
	case *protocol.Kick:
		s.publish(Event{Kind: EventKicked})
		s.Terminate()
	case *protocol.EndSession:
		s.publish(Event{Kind: EventSessionEnded})
		s.Terminate()
	case *protocol.RoomFull:
		// Terminal: return to the entry screen, never retry with backoff.
		s.publish(Event{Kind: EventRoomFull})
		s.Terminate()
	case *protocol.Error:
		s.publish(Event{Kind: EventPeerError, Error: m.Error})
	default:
		log.Debug().Str("module", "core.session").Str("type", string(msg.Kind())).Msg("viewer ignoring frame")
	}
}

func (s *Session) reconcile(apply func(Player) domain.PlaybackState) {
	s.mu.Lock()
	p := s.player
	s.mu.Unlock()
	if p == nil {
		return
	}

	state := apply(p)

	s.mu.Lock()
	s.playback = state
	s.mu.Unlock()
}

func (s *Session) sendToHost(msg protocol.Message) error {
	s.mu.Lock()
	var conn interface{ Send([]byte) error }
	for _, p := range s.parts {
		conn = p.conn
		break
	}
	s.mu.Unlock()
	if conn == nil {
		return ErrConnectionFailed
	}

	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return conn.Send(frame)
}

func (s *Session) hostID() domain.PeerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.parts {
		return id
	}
	return ""
}

// onHostGone treats a mid-session host disconnect as the end of the
// session rather than churn; a viewer has nothing left to watch.
func (s *Session) onHostGone(peerID domain.PeerID) {
	s.mu.Lock()
	_, known := s.parts[peerID]
	terminated := s.state == StateTerminated
	s.mu.Unlock()
	if !known || terminated {
		return
	}
	s.RemoveParticipant(peerID)
	s.publish(Event{Kind: EventSessionEnded})
	s.Terminate()
}
