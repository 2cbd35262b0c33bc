package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
	"github.com/taalhaakaagaan/Lets-Watch/internal/protocol"
	"github.com/taalhaakaagaan/Lets-Watch/internal/transport"
)

// kickCommand is the chat convention for moderation; anything after the
// prefix is treated as the display name to kick.
const kickCommand = "/kick "

// AcceptIncoming runs the capacity check before completing the
// handshake. A rejected viewer gets a ROOM_FULL message and an active
// close instead of silently hanging.
func (s *Session) AcceptIncoming(conn transport.Connection) {
	s.mu.Lock()
	if s.state != StateReady || s.meta == nil || s.meta.Role != domain.RoleHost {
		s.mu.Unlock()
		conn.Close()
		return
	}
	if len(s.parts) >= s.meta.Capacity {
		capacity := s.meta.Capacity
		s.mu.Unlock()
		if frame, err := protocol.Encode(&protocol.RoomFull{Capacity: capacity}); err == nil {
			_ = conn.Send(frame)
		}
		conn.Close()
		log.Info().Str("module", "core.session").Str("peer", string(conn.RemoteID())).Msg("rejected, room full")
		s.publish(Event{Kind: EventRoomFull, Peer: conn.RemoteID()})
		return
	}

	meta := domain.NewParticipant(conn.RemoteID(), conn.Metadata().DisplayName)
	meta.State = domain.ConnOpen
	s.parts[conn.RemoteID()] = &participant{meta: meta, conn: conn}
	snapshot := s.playback
	s.mu.Unlock()

	peerID := conn.RemoteID()
	conn.OnClose(func() { s.RemoveParticipant(peerID) })
	conn.OnFrame(func(frame []byte) { s.handleHostFrame(peerID, frame) })

	// Late joiners catch up immediately instead of waiting for the next
	// organic play/pause/seek event.
	s.sendTo(conn, &protocol.SyncInitial{
		PositionSeconds: snapshot.PositionSeconds,
		IsPlaying:       snapshot.IsPlaying,
	})

	log.Info().Str("module", "core.session").Str("peer", string(peerID)).Str("name", meta.DisplayName).Msg("participant joined")
	s.publish(Event{Kind: EventParticipantJoined, Peer: peerID, Name: meta.DisplayName})
}

// Broadcast sends to every open participant except the optionally
// excluded one, used to prevent echo-back to a chat sender.
func (s *Session) Broadcast(msg protocol.Message, exclude domain.PeerID) error {
	if role, err := s.role(); err != nil {
		return err
	} else if role != domain.RoleHost {
		return ErrNotHost
	}

	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	conns := make([]transport.Connection, 0, len(s.parts))
	for id, p := range s.parts {
		if id == exclude || p.meta.State != domain.ConnOpen {
			continue
		}
		conns = append(conns, p.conn)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Send(frame)
	}
	return nil
}

// Kick sends the terminal message, then forces the connection closed
// after a short grace period so the message has a chance to arrive.
func (s *Session) Kick(peerID domain.PeerID) error {
	if role, err := s.role(); err != nil {
		return err
	} else if role != domain.RoleHost {
		return ErrNotHost
	}

	s.mu.Lock()
	p, ok := s.parts[peerID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, peerID)
	}

	s.sendTo(p.conn, &protocol.Kick{})
	time.AfterFunc(s.opts.KickGrace, func() { s.RemoveParticipant(peerID) })
	log.Info().Str("module", "core.session").Str("peer", string(peerID)).Msg("kick sent")
	return nil
}

// KickByName resolves the chat-visible display name to a peer.
func (s *Session) KickByName(name string) error {
	s.mu.Lock()
	var target domain.PeerID
	found := false
	for id, p := range s.parts {
		if p.meta.DisplayName == name {
			target, found = id, true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, name)
	}
	return s.Kick(target)
}

// SendChat sends a chat line. On the host a "/kick <name>" line is a
// moderation command rather than a message. Viewer chat goes to the
// host, which relays it to everyone else.
func (s *Session) SendChat(text string) error {
	role, err := s.role()
	if err != nil {
		return err
	}

	if role == domain.RoleHost && strings.HasPrefix(text, kickCommand) {
		return s.KickByName(strings.TrimSpace(strings.TrimPrefix(text, kickCommand)))
	}

	msg := &protocol.Chat{
		User: s.opts.DisplayName,
		Text: text,
		Time: time.Now().Format("15:04"),
	}
	if role == domain.RoleHost {
		return s.Broadcast(msg, "")
	}
	return s.sendToHost(msg)
}

// EmitLocalPlaybackEvent is called from the host video element's
// play/pause/seek callbacks. It is the only writer of the authoritative
// playback state.
func (s *Session) EmitLocalPlaybackEvent(event domain.PlaybackEvent, position float64) error {
	if role, err := s.role(); err != nil {
		return err
	} else if role != domain.RoleHost {
		return ErrNotHost
	}

	s.mu.Lock()
	s.playback.PositionSeconds = position
	s.playback.LastEvent = event
	switch event {
	case domain.EventPlay:
		s.playback.IsPlaying = true
	case domain.EventPause:
		s.playback.IsPlaying = false
	case domain.EventSeek:
	}
	s.mu.Unlock()

	return s.Broadcast(&protocol.Sync{Event: event.String(), PositionSeconds: position}, "")
}

// StartPlayback begins the synchronized countdown; when it reaches zero
// the host flips to playing and emits the first SYNC.
func (s *Session) StartPlayback() error {
	if role, err := s.role(); err != nil {
		return err
	} else if role != domain.RoleHost {
		return ErrNotHost
	}

	seconds := s.opts.Countdown
	if err := s.Broadcast(&protocol.StartCountdown{Seconds: seconds}, ""); err != nil {
		return err
	}
	s.publish(Event{Kind: EventCountdownStarted, Remaining: seconds})

	cd := startCountdown(seconds, time.Second,
		func(remaining int) {
			s.publish(Event{Kind: EventCountdownTick, Remaining: remaining})
		},
		func() {
			s.mu.Lock()
			s.cd = nil
			position := s.playback.PositionSeconds
			s.mu.Unlock()
			s.publish(Event{Kind: EventCountdownDone})
			if err := s.EmitLocalPlaybackEvent(domain.EventPlay, position); err != nil {
				log.Error().Err(err).Str("module", "core.session").Msg("countdown play")
			}
		})

	s.mu.Lock()
	s.cd = cd
	s.mu.Unlock()
	return nil
}

// CancelCountdown stops a running countdown before playback fires.
func (s *Session) CancelCountdown() {
	s.mu.Lock()
	cd := s.cd
	s.cd = nil
	s.mu.Unlock()
	if cd != nil {
		cd.Cancel()
	}
}

// handleHostFrame processes inbound viewer traffic. The host relays chat
// and ignores everything else: it is the single source of playback truth
// and only ever emits sync, never applies it.
func (s *Session) handleHostFrame(from domain.PeerID, frame []byte) {
	msg, err := protocol.Decode(frame)
	if err != nil {
		log.Warn().Err(err).Str("module", "core.session").Str("peer", string(from)).Msg("dropping bad frame")
		return
	}

	switch m := msg.(type) {
	case *protocol.Chat:
		s.publish(Event{Kind: EventChat, Peer: from, Chat: m})
		if err := s.Broadcast(m, from); err != nil {
			log.Error().Err(err).Str("module", "core.session").Msg("chat relay")
		}
	case *protocol.Error:
		s.publish(Event{Kind: EventPeerError, Peer: from, Error: m.Error})
	default:
		log.Debug().Str("module", "core.session").Str("type", string(msg.Kind())).Msg("host ignoring frame")
	}
}

func (s *Session) sendTo(conn transport.Connection, msg protocol.Message) {
	frame, err := protocol.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "core.session").Msg("encode")
		return
	}
	_ = conn.Send(frame)
}
