package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
	"github.com/taalhaakaagaan/Lets-Watch/internal/transport"
)

// Client speaks the relay wire protocol from the participant side and
// implements transport.Signaling, so the pion network can run its
// handshake through the fallback server.
type Client struct {
	url      string
	room     domain.RoomID
	username string
	password string

	conn *websocket.Conn
	send chan []byte

	mu      sync.Mutex
	handler transport.SignalHandler
	self    domain.PeerID
	ack     chan error
	closed  bool
}

func NewClient(url string, room domain.RoomID, username, password string) *Client {
	return &Client{
		url:      url,
		room:     room,
		username: username,
		password: password,
		send:     make(chan []byte, 32),
	}
}

func (c *Client) Dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	c.conn = conn
	go c.writePump()
	go c.readPump()
	return nil
}

// CreateRoom registers the room config before hosting.
func (c *Client) CreateRoom(cfg domain.RoomConfig) error {
	return c.sendJSON(struct {
		Type      string `json:"type"`
		RoomID    string `json:"roomId"`
		Name      string `json:"name"`
		IsPrivate bool   `json:"isPrivate"`
		Password  string `json:"password,omitempty"`
	}{"create-room", string(c.room), string(cfg.Name), cfg.IsPrivate, cfg.Password})
}

// Announce claims the id within the room and waits for the relay's
// verdict. An "id in use" reply surfaces as ErrIdentityTaken.
func (c *Client) Announce(ctx context.Context, id domain.PeerID) error {
	ack := make(chan error, 1)
	c.mu.Lock()
	c.self = id
	c.ack = ack
	c.mu.Unlock()

	err := c.sendJSON(struct {
		Type     string `json:"type"`
		RoomID   string `json:"roomId"`
		UserID   string `json:"userId"`
		Username string `json:"username"`
		Password string `json:"password,omitempty"`
	}{"join-room", string(c.room), string(id), c.username, c.password})
	if err != nil {
		return err
	}

	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) SendOffer(target domain.PeerID, sdp string, md transport.Metadata) error {
	return c.sendJSON(struct {
		Type        string `json:"type"`
		Target      string `json:"target"`
		CallerID    string `json:"callerId"`
		Signal      string `json:"signal"`
		DisplayName string `json:"displayName,omitempty"`
	}{"offer", string(target), string(c.selfID()), sdp, md.DisplayName})
}

func (c *Client) SendAnswer(target domain.PeerID, sdp string) error {
	return c.sendJSON(struct {
		Type     string `json:"type"`
		Target   string `json:"target"`
		CallerID string `json:"callerId"`
		Signal   string `json:"signal"`
	}{"answer", string(target), string(c.selfID()), sdp})
}

func (c *Client) SendCandidate(target domain.PeerID, cand webrtc.ICECandidateInit) error {
	msg := struct {
		Type          string `json:"type"`
		Target        string `json:"target"`
		CallerID      string `json:"callerId"`
		Candidate     string `json:"candidate"`
		SDPMid        string `json:"sdpMid,omitempty"`
		SDPMLineIndex uint16 `json:"sdpMLineIndex,omitempty"`
	}{
		Type:      "ice-candidate",
		Target:    string(target),
		CallerID:  string(c.selfID()),
		Candidate: cand.Candidate,
	}
	if cand.SDPMid != nil {
		msg.SDPMid = *cand.SDPMid
	}
	if cand.SDPMLineIndex != nil {
		msg.SDPMLineIndex = *cand.SDPMLineIndex
	}
	return c.sendJSON(msg)
}

func (c *Client) Handle(h transport.SignalHandler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) selfID() domain.PeerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self
}

func (c *Client) sendJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("relay client closed")
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *Client) writePump() {
	for data := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Str("module", "relay.client").Msg("write error")
			return
		}
	}
}

func (c *Client) readPump() {
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "relay.client").Msg("read error")
			c.resolveAck(errors.New("relay connection lost"))
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "relay.client").Msg("bad json")
		return
	}

	switch env.Type {
	case "joined":
		c.resolveAck(nil)
	case "error":
		var p struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &p)
		if p.Error == "id in use" {
			c.resolveAck(transport.ErrIdentityTaken)
			return
		}
		c.resolveAck(errors.New(p.Error))
	case "offer":
		var p struct {
			CallerID    string `json:"callerId"`
			Signal      string `json:"signal"`
			DisplayName string `json:"displayName"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		if h := c.currentHandler(); h != nil {
			h.HandleOffer(domain.PeerID(p.CallerID), p.Signal, transport.Metadata{DisplayName: p.DisplayName})
		}
	case "answer":
		var p struct {
			CallerID string `json:"callerId"`
			Signal   string `json:"signal"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		if h := c.currentHandler(); h != nil {
			h.HandleAnswer(domain.PeerID(p.CallerID), p.Signal)
		}
	case "ice-candidate":
		var p struct {
			CallerID      string `json:"callerId"`
			Candidate     string `json:"candidate"`
			SDPMid        string `json:"sdpMid"`
			SDPMLineIndex uint16 `json:"sdpMLineIndex"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		cand := webrtc.ICECandidateInit{Candidate: p.Candidate}
		if p.SDPMid != "" {
			cand.SDPMid = &p.SDPMid
		}
		cand.SDPMLineIndex = &p.SDPMLineIndex
		if h := c.currentHandler(); h != nil {
			h.HandleCandidate(domain.PeerID(p.CallerID), cand)
		}
	case "user-connected", "user-disconnected", "sync-event", "chat-message", "room-created", "left", "pong":
		// Presence and room-mode traffic; the P2P session does not need it.
	default:
		log.Warn().Str("module", "relay.client").Str("type", env.Type).Msg("unknown relay event")
	}
}

func (c *Client) currentHandler() transport.SignalHandler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler
}

func (c *Client) resolveAck(err error) {
	c.mu.Lock()
	ack := c.ack
	c.ack = nil
	c.mu.Unlock()
	if ack != nil {
		ack <- err
	}
}
