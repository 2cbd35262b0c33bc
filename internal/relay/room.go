package relay

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
)

func (ctl *Controller) handleCreateRoom(sid string, conn *WsConn, data []byte) {
	var p struct {
		Type      string `json:"type"`
		RoomID    string `json:"roomId"`
		Name      string `json:"name"`
		IsPrivate bool   `json:"isPrivate"`
		Password  string `json:"password"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad create-room payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if len(p.RoomID) > domain.MaxRoomIDLen {
		ctl.sendError(conn, "room id too long")
		return
	}

	ctl.Registry.CreateRoom(domain.RoomID(p.RoomID), domain.RoomConfig{
		Name:      domain.RoomName(p.Name),
		IsPrivate: p.IsPrivate,
		Password:  p.Password,
	})
	ctl.sendJSON(conn, struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
	}{"room-created", p.RoomID})
}

// handleJoinRoom validates the password for private rooms; on mismatch
// an error event goes back and no join happens, so the caller must not
// assume membership until it sees "joined".
func (ctl *Controller) handleJoinRoom(sid string, conn *WsConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		RoomID   string `json:"roomId"`
		UserID   string `json:"userId"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.UserID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad join-room payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	user := &domain.User{ID: domain.UserID(p.UserID), Username: p.Username}
	if user.Username == "" {
		user.Username = "guest"
	}

	if !ctl.Limiter.Allow(user.ID) {
		ctl.sendError(conn, "too many join attempts")
		return
	}

	roomID := domain.RoomID(p.RoomID)
	prevRoom, prevUser, err := ctl.Registry.JoinRoom(sid, roomID, user, p.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPassword):
			ctl.sendError(conn, "invalid password")
		case errors.Is(err, ErrIdentityInUse):
			ctl.sendError(conn, "id in use")
		default:
			ctl.sendError(conn, "join failed")
		}
		return
	}

	// Switching rooms is an implicit leave; the old room's members must
	// not keep showing a stale presence entry.
	if prevRoom != "" && prevUser != nil {
		ctl.broadcastRoom(prevRoom, sid, struct {
			Type   string `json:"type"`
			UserID string `json:"userId"`
		}{"user-disconnected", string(prevUser.ID)})
	}

	log.Info().Str("module", "relay").Str("sid", sid).Str("room", p.RoomID).Str("user", p.UserID).Msg("join")
	ctl.sendJSON(conn, struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
	}{"joined", p.RoomID})

	ctl.broadcastRoom(roomID, sid, struct {
		Type     string `json:"type"`
		UserID   string `json:"userId"`
		Username string `json:"username"`
	}{"user-connected", string(user.ID), user.Username})
}

// handleLeave exits the current room without dropping the socket.
func (ctl *Controller) handleLeave(sid string, conn *WsConn) {
	roomID, user := ctl.Registry.Leave(sid)
	ctl.sendJSON(conn, map[string]string{"type": "left"})
	if roomID == "" || user == nil {
		return
	}
	ctl.broadcastRoom(roomID, sid, struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	}{"user-disconnected", string(user.ID)})
}

// handleSyncEvent fans a playback event out room-wide except back to the
// sender. The relay tracks membership for this but never playback state.
func (ctl *Controller) handleSyncEvent(sid string, conn *WsConn, data []byte) {
	var p struct {
		Type        string  `json:"type"`
		RoomID      string  `json:"roomId"`
		Event       string  `json:"event"`
		CurrentTime float64 `json:"currentTime"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad sync-event payload")
		return
	}
	ctl.broadcastRoom(domain.RoomID(p.RoomID), sid, struct {
		Type        string  `json:"type"`
		Event       string  `json:"event"`
		CurrentTime float64 `json:"currentTime"`
	}{"sync-event", p.Event, p.CurrentTime})
}

// handleChat relays a chat message room-wide, sender included.
func (ctl *Controller) handleChat(sid string, conn *WsConn, data []byte) {
	var p struct {
		Type    string          `json:"type"`
		RoomID  string          `json:"roomId"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad send-chat payload")
		return
	}
	ctl.broadcastRoom(domain.RoomID(p.RoomID), "", struct {
		Type    string          `json:"type"`
		Message json.RawMessage `json:"message"`
	}{"chat-message", p.Message})
}
