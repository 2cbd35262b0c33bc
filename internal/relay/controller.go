// Package relay is the fallback rendezvous service: it exchanges
// connection handshake payloads between participants identified by
// opaque ids and fans out presence, never inspecting the payloads.
package relay

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/taalhaakaagaan/Lets-Watch/internal/config"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Registry *Registry
	Limiter  *JoinRateLimiter
	cfg      *config.Config
}

func NewController(cfg *config.Config) *Controller {
	return &Controller{
		Registry: NewRegistry(),
		Limiter:  NewJoinRateLimiter(cfg.JoinLimit, cfg.JoinWindow),
		cfg:      cfg,
	}
}

type WsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *Controller) HandleSignal(c *gin.Context) {
	sid := c.GetString("client_token")
	log.Info().Str("module", "relay").Str("sid", sid).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.cfg.ReadLimit)

	conn := &WsConn{
		conn: ws,
		send: make(chan []byte, 32),
	}
	ctl.Registry.Bind(sid, conn)

	go ctl.writePump(conn)
	go ctl.readPump(sid, conn)
}

func (ctl *Controller) writePump(c *WsConn) {
	ping := time.NewTicker(ctl.cfg.PingPeriod)
	defer ping.Stop()
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "relay").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "relay").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "relay").Msg("writePump write error")
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) readPump(sid string, c *WsConn) {
	defer func() {
		log.Info().Str("module", "relay").Str("sid", sid).Msg("readPump closing")
		ctl.onDisconnect(sid)
		c.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "relay").Str("sid", sid).Msg("readPump read error")
			return
		}
		ctl.handleMessage(sid, c, data)
	}
}

func (ctl *Controller) onDisconnect(sid string) {
	roomID, user := ctl.Registry.Unbind(sid)
	if roomID == "" || user == nil {
		return
	}
	ctl.broadcastRoom(roomID, "", struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	}{
		Type:   "user-disconnected",
		UserID: string(user.ID),
	})
}
