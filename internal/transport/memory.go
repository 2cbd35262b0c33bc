package transport

import (
	"context"
	"sync"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
)

// Hub is an in-process Network. Frames are delivered synchronously in
// send order, which keeps the single-threaded event model of the real
// transport and makes tests deterministic.
type Hub struct {
	mu  sync.Mutex
	eps map[domain.PeerID]*memEndpoint
}

func NewHub() *Hub {
	return &Hub{eps: make(map[domain.PeerID]*memEndpoint)}
}

func (h *Hub) Bind(_ context.Context, id domain.PeerID) (Endpoint, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.eps[id]; ok {
		return nil, ErrIdentityTaken
	}
	ep := &memEndpoint{hub: h, id: id}
	h.eps[id] = ep
	return ep, nil
}

type memEndpoint struct {
	hub *Hub
	id  domain.PeerID

	mu       sync.Mutex
	incoming func(Connection)
	closed   bool
}

func (e *memEndpoint) ID() domain.PeerID { return e.id }

func (e *memEndpoint) OnIncoming(fn func(Connection)) {
	e.mu.Lock()
	e.incoming = fn
	e.mu.Unlock()
}

func (e *memEndpoint) Open(_ context.Context, remote domain.PeerID, md Metadata) (Connection, error) {
	e.hub.mu.Lock()
	rep, ok := e.hub.eps[remote]
	e.hub.mu.Unlock()
	if !ok {
		return nil, ErrUnreachablePeer
	}

	rep.mu.Lock()
	accept := rep.incoming
	closed := rep.closed
	rep.mu.Unlock()
	if closed || accept == nil {
		return nil, ErrUnreachablePeer
	}

	local := &memConn{remote: remote, state: domain.ConnOpen}
	far := &memConn{remote: e.id, md: md, state: domain.ConnOpen}
	local.peer, far.peer = far, local

	accept(far)
	return local, nil
}

func (e *memEndpoint) Close() {
	e.hub.mu.Lock()
	delete(e.hub.eps, e.id)
	e.hub.mu.Unlock()
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

// memConn buffers frames that arrive before OnFrame is registered, the
// way a real data channel queues until the handler is attached.
type memConn struct {
	remote domain.PeerID
	md     Metadata
	peer   *memConn

	mu      sync.Mutex
	state   domain.ConnectionState
	frameFn func([]byte)
	closeFn func()
	pending [][]byte
}

func (c *memConn) RemoteID() domain.PeerID { return c.remote }
func (c *memConn) Metadata() Metadata      { return c.md }

func (c *memConn) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *memConn) Send(frame []byte) error {
	c.mu.Lock()
	open := c.state == domain.ConnOpen
	c.mu.Unlock()
	if !open {
		return nil
	}
	c.peer.deliver(frame)
	return nil
}

// deliver hands the frame to the handler, or buffers it. Frames already
// in flight when the connection closes still reach the handler: a
// terminal ROOM_FULL or kick races its own close by design.
func (c *memConn) deliver(frame []byte) {
	c.mu.Lock()
	fn := c.frameFn
	if fn == nil {
		c.pending = append(c.pending, frame)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	fn(frame)
}

func (c *memConn) OnFrame(fn func([]byte)) {
	c.mu.Lock()
	c.frameFn = fn
	queued := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, f := range queued {
		fn(f)
	}
}

func (c *memConn) OnClose(fn func()) {
	c.mu.Lock()
	closed := c.state == domain.ConnClosed
	c.closeFn = fn
	c.mu.Unlock()
	if closed {
		fn()
	}
}

func (c *memConn) Close() {
	c.closeSide()
	c.peer.closeSide()
}

func (c *memConn) closeSide() {
	c.mu.Lock()
	if c.state == domain.ConnClosed {
		c.mu.Unlock()
		return
	}
	c.state = domain.ConnClosed
	fn := c.closeFn
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
