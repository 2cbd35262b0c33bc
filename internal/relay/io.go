package relay

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
)

func (ctl *Controller) handleMessage(sid string, c *WsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("bad json")
		return
	}

	switch env.Type {
	case "create-room":
		ctl.handleCreateRoom(sid, c, data)
	case "join-room":
		ctl.handleJoinRoom(sid, c, data)
	case "leave":
		ctl.handleLeave(sid, c)
	case "ping":
		ctl.sendJSON(c, map[string]string{"type": "pong"})
	case "offer", "answer", "ice-candidate":
		ctl.handleTargeted(sid, c, env.Type, data)
	case "sync-event":
		ctl.handleSyncEvent(sid, c, data)
	case "send-chat":
		ctl.handleChat(sid, c, data)
	default:
		log.Warn().Str("module", "relay").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *Controller) sendJSON(c *WsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *WsConn, msg string) {
	ctl.sendJSON(c, map[string]string{"type": "error", "error": msg})
}

func (ctl *Controller) broadcastRoom(roomID domain.RoomID, exclude string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("broadcast marshal")
		return
	}
	for _, member := range ctl.Registry.MembersOf(roomID, exclude) {
		_ = member.conn.TrySend(b)
	}
}
