package relay

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
)

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrIdentityInUse   = errors.New("identity already in use")
	ErrNoSuchRoom      = errors.New("room does not exist")
)

type session struct {
	sid    string
	conn   *WsConn
	user   *domain.User
	roomID domain.RoomID
}

type roomEntry struct {
	config  domain.RoomConfig
	members map[domain.UserID]string // userID -> sid
}

// Registry tracks which socket belongs to which participant and which
// room, and nothing else: the relay holds no playback or chat state.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	byUser   map[domain.UserID]string
	rooms    map[domain.RoomID]*roomEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		byUser:   make(map[domain.UserID]string),
		rooms:    make(map[domain.RoomID]*roomEntry),
	}
}

func (r *Registry) Bind(sid string, conn *WsConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &session{sid: sid, conn: conn}
	log.Info().Str("module", "relay.registry").Str("sid", sid).Msg("bound session")
}

// Unbind removes the socket and its room membership; it returns what is
// needed for the user-disconnected broadcast.
func (r *Registry) Unbind(sid string) (domain.RoomID, *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	if !ok {
		return "", nil
	}
	delete(r.sessions, sid)
	if s.user != nil {
		delete(r.byUser, s.user.ID)
	}
	roomID := s.roomID
	r.leaveLocked(s)
	return roomID, s.user
}

// CreateRoom registers a host's room config before anyone joins.
func (r *Registry) CreateRoom(roomID domain.RoomID, cfg domain.RoomConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[roomID]; !ok {
		r.rooms[roomID] = &roomEntry{config: cfg, members: make(map[domain.UserID]string)}
		log.Info().Str("module", "relay.registry").Str("room", string(roomID)).Bool("private", cfg.IsPrivate).Msg("room created")
	}
}

// JoinRoom validates the password for private rooms and claims the user
// id within the room. Rooms are created implicitly for the first joiner,
// matching the simple rendezvous mode. When the session was already in a
// different room, that room and the identity it knew are returned so the
// caller can broadcast the implicit departure to its remaining members.
func (r *Registry) JoinRoom(sid string, roomID domain.RoomID, user *domain.User, password string) (domain.RoomID, *domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	if !ok {
		return "", nil, ErrNoSuchRoom
	}

	room, ok := r.rooms[roomID]
	if !ok {
		room = &roomEntry{members: make(map[domain.UserID]string)}
		r.rooms[roomID] = room
	}
	if room.config.IsPrivate && room.config.Password != password {
		return "", nil, ErrInvalidPassword
	}
	if owner, taken := room.members[user.ID]; taken && owner != sid {
		return "", nil, ErrIdentityInUse
	}

	prevRoom, prevUser := s.roomID, s.user
	r.leaveLocked(s)
	room.members[user.ID] = sid
	s.user = user
	s.roomID = roomID
	r.byUser[user.ID] = sid
	if prevRoom == roomID {
		return "", nil, nil
	}
	return prevRoom, prevUser, nil
}

func (r *Registry) leaveLocked(s *session) {
	if s.roomID == "" {
		return
	}
	if room, ok := r.rooms[s.roomID]; ok && s.user != nil {
		delete(room.members, s.user.ID)
		if len(room.members) == 0 {
			delete(r.rooms, s.roomID)
		}
	}
	s.roomID = ""
}

func (r *Registry) Leave(sid string) (domain.RoomID, *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sid]
	if !ok || s.roomID == "" {
		return "", nil
	}
	roomID, user := s.roomID, s.user
	r.leaveLocked(s)
	return roomID, user
}

func (r *Registry) SessionOf(sid string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sid]
	return s, ok
}

func (r *Registry) ByUser(userID domain.UserID) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.byUser[userID]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[sid]
	return s, ok
}

// MembersOf snapshots the sockets in a room, optionally excluding one
// sender sid (sync-event fan-out is room-wide except back to sender).
func (r *Registry) MembersOf(roomID domain.RoomID, exclude string) []*session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]*session, 0, len(room.members))
	for _, sid := range room.members {
		if sid == exclude {
			continue
		}
		if s, ok := r.sessions[sid]; ok {
			out = append(out, s)
		}
	}
	return out
}
