package relay

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
)

// handleTargeted relays offer/answer/ice-candidate payloads verbatim to
// the target participant's socket. The relay never inspects or
// transforms the handshake contents.
func (ctl *Controller) handleTargeted(sid string, conn *WsConn, kind string, data []byte) {
	var p struct {
		Target string `json:"target"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Target == "" {
		log.Error().Err(err).Str("module", "relay").Str("kind", kind).Msg("bad targeted payload")
		return
	}

	target, ok := ctl.Registry.ByUser(domain.UserID(p.Target))
	if !ok {
		log.Debug().Str("module", "relay").Str("kind", kind).Str("target", p.Target).Msg("target not connected")
		return
	}
	if err := target.conn.TrySend(data); err != nil {
		log.Warn().Err(err).Str("module", "relay").Str("kind", kind).Str("target", p.Target).Msg("relay dropped")
	}
}
