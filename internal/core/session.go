// Package core holds the room/session state machine and the playback
// sync protocol logic. It owns membership and playback state but never
// touches raw sockets; all I/O goes through the transport abstraction.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
	"github.com/taalhaakaagaan/Lets-Watch/internal/identity"
	"github.com/taalhaakaagaan/Lets-Watch/internal/protocol"
	"github.com/taalhaakaagaan/Lets-Watch/internal/transport"
)

type SessionState int

const (
	StateInitializing SessionState = iota
	StateReady
	StateTerminated
)

// DefaultKickGrace is how long a kick message gets to reach the viewer
// before the connection is torn down underneath it.
const DefaultKickGrace = 500 * time.Millisecond

const defaultEventBuffer = 32

type Options struct {
	DisplayName    string
	Capacity       int           // max concurrent viewers, host only
	Source         domain.SourceKind
	DriftTolerance float64       // 0 means DefaultDriftTolerance
	KickGrace      time.Duration // 0 means DefaultKickGrace
	Countdown      int           // 0 means DefaultCountdownSeconds
}

type participant struct {
	meta *domain.Participant
	conn transport.Connection
}

// Session is the local end of one watch-party: either the host, which
// owns the authoritative participant list and playback state, or a
// viewer, which knows only the host.
type Session struct {
	net  transport.Network
	idp  identity.Provider
	opts Options
	rec  Reconciler

	mu       sync.Mutex
	state    SessionState
	meta     *domain.Session
	ep       transport.Endpoint
	parts    map[domain.PeerID]*participant
	playback domain.PlaybackState
	player   Player
	cd       *countdown

	events chan Event
}

func NewSession(net transport.Network, idp identity.Provider, opts Options) *Session {
	if opts.Capacity <= 0 {
		opts.Capacity = domain.DefaultCapacity
	}
	if opts.DriftTolerance == 0 {
		opts.DriftTolerance = DefaultDriftTolerance
	}
	if opts.KickGrace == 0 {
		opts.KickGrace = DefaultKickGrace
	}
	if opts.Countdown == 0 {
		opts.Countdown = DefaultCountdownSeconds
	}
	return &Session{
		net:    net,
		idp:    idp,
		opts:   opts,
		rec:    Reconciler{Tolerance: opts.DriftTolerance},
		state:  StateInitializing,
		parts:  make(map[domain.PeerID]*participant),
		events: make(chan Event, defaultEventBuffer),
	}
}

// SetPlayer attaches the local video element a viewer reconciles against.
func (s *Session) SetPlayer(p Player) {
	s.mu.Lock()
	s.player = p
	s.mu.Unlock()
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Meta() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Playback returns the current playback state: authoritative on the
// host, the last reconciled copy on a viewer.
func (s *Session) Playback() domain.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback
}

func (s *Session) ParticipantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.parts)
}

func (s *Session) Participants() []domain.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Participant, 0, len(s.parts))
	for _, p := range s.parts {
		out = append(out, *p.meta)
	}
	return out
}

// Host establishes the local identity as the room's well-known id and
// starts accepting viewers. An ErrIdentityConflict means the id is taken
// and the caller should surface "room id taken, try another".
func (s *Session) Host(ctx context.Context, roomID domain.RoomID) error {
	meta, err := domain.NewSession(roomID, domain.RoleHost, s.opts.Capacity, s.opts.Source)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != StateInitializing {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.mu.Unlock()

	ep, err := s.net.Bind(ctx, domain.PeerID(roomID))
	if err != nil {
		if errors.Is(err, transport.ErrIdentityTaken) {
			return fmt.Errorf("%w: %s", ErrIdentityConflict, roomID)
		}
		return fmt.Errorf("bind host identity: %w", err)
	}

	s.mu.Lock()
	s.meta = meta
	s.ep = ep
	s.state = StateReady
	s.mu.Unlock()

	ep.OnIncoming(s.AcceptIncoming)
	log.Info().Str("module", "core.session").Str("room", string(roomID)).Int("capacity", meta.Capacity).Msg("hosting")
	return nil
}

// Join connects a viewer to the host's identity. Timeouts and rejections
// surface as ErrConnectionFailed; the user retries explicitly.
func (s *Session) Join(ctx context.Context, roomID domain.RoomID) error {
	s.mu.Lock()
	if s.state != StateInitializing {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.mu.Unlock()

	id, err := s.idp.Identity(ctx)
	if err != nil {
		return fmt.Errorf("local identity: %w", err)
	}

	ep, err := s.net.Bind(ctx, id)
	if err != nil {
		if errors.Is(err, transport.ErrIdentityTaken) {
			return fmt.Errorf("%w: %s", ErrIdentityConflict, id)
		}
		return fmt.Errorf("bind viewer identity: %w", err)
	}

	conn, err := ep.Open(ctx, domain.PeerID(roomID), transport.Metadata{DisplayName: s.opts.DisplayName})
	if err != nil {
		ep.Close()
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	meta, err := domain.NewSession(roomID, domain.RoleViewer, s.opts.Capacity, s.opts.Source)
	if err != nil {
		conn.Close()
		ep.Close()
		return err
	}

	host := domain.NewParticipant(conn.RemoteID(), "host")
	host.State = domain.ConnOpen

	s.mu.Lock()
	s.meta = meta
	s.ep = ep
	s.parts[conn.RemoteID()] = &participant{meta: host, conn: conn}
	s.state = StateReady
	s.mu.Unlock()

	// Frames first: a terminal ROOM_FULL queued before the close must be
	// processed before the close callback runs.
	conn.OnFrame(func(frame []byte) { s.handleViewerFrame(frame) })
	conn.OnClose(func() { s.onHostGone(conn.RemoteID()) })

	log.Info().Str("module", "core.session").Str("room", string(roomID)).Msg("joined")
	return nil
}

// RemoveParticipant is idempotent: it is safe to call from both the
// close callback and an explicit kick path without double-counting.
func (s *Session) RemoveParticipant(peerID domain.PeerID) {
	s.mu.Lock()
	p, ok := s.parts[peerID]
	if ok {
		delete(s.parts, peerID)
		p.meta.State = domain.ConnClosed
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	p.conn.Close()
	log.Info().Str("module", "core.session").Str("peer", string(peerID)).Msg("participant removed")
	s.publish(Event{Kind: EventParticipantLeft, Peer: peerID, Name: p.meta.DisplayName})
}

// Terminate tears the local transport down. The host notifies everyone
// first; viewers just leave. Idempotent.
func (s *Session) Terminate() {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return
	}
	wasHost := s.meta != nil && s.meta.Role == domain.RoleHost
	s.state = StateTerminated
	ep := s.ep
	conns := make([]transport.Connection, 0, len(s.parts))
	for _, p := range s.parts {
		conns = append(conns, p.conn)
	}
	s.parts = make(map[domain.PeerID]*participant)
	cd := s.cd
	s.mu.Unlock()

	if cd != nil {
		cd.Cancel()
	}
	if wasHost {
		if frame, err := protocol.Encode(&protocol.EndSession{}); err == nil {
			for _, c := range conns {
				_ = c.Send(frame)
			}
		}
	}
	for _, c := range conns {
		c.Close()
	}
	if ep != nil {
		ep.Close()
	}
	log.Info().Str("module", "core.session").Msg("terminated")
}

func (s *Session) role() (domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateTerminated:
		return 0, ErrTerminated
	case s.state != StateReady || s.meta == nil:
		return 0, ErrNotReady
	}
	return s.meta.Role, nil
}
