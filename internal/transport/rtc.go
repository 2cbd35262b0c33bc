package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
)

const controlChannelLabel = "control"

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// PeerNetwork is the pion-backed Network. Handshakes travel over the
// injected Signaling (the relay client); media and the control data
// channel flow peer-to-peer.
type PeerNetwork struct {
	cfg webrtc.Configuration
	sig Signaling
}

func NewPeerNetwork(sig Signaling) *PeerNetwork {
	return &PeerNetwork{cfg: DefaultWebRTCConfig(), sig: sig}
}

func NewPeerNetworkWithConfig(sig Signaling, cfg webrtc.Configuration) *PeerNetwork {
	return &PeerNetwork{cfg: cfg, sig: sig}
}

func (n *PeerNetwork) Bind(ctx context.Context, id domain.PeerID) (Endpoint, error) {
	if err := n.sig.Announce(ctx, id); err != nil {
		if errors.Is(err, ErrIdentityTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("announce %s: %w", id, err)
	}
	ep := &rtcEndpoint{
		id:    id,
		cfg:   n.cfg,
		sig:   n.sig,
		conns: make(map[domain.PeerID]*rtcConn),
	}
	n.sig.Handle(ep)
	return ep, nil
}

type rtcEndpoint struct {
	id  domain.PeerID
	cfg webrtc.Configuration
	sig Signaling

	mu       sync.Mutex
	conns    map[domain.PeerID]*rtcConn
	incoming func(Connection)
}

func (e *rtcEndpoint) ID() domain.PeerID { return e.id }

func (e *rtcEndpoint) OnIncoming(fn func(Connection)) {
	e.mu.Lock()
	e.incoming = fn
	e.mu.Unlock()
}

// Open dials the remote identity: creates the peer connection and the
// control channel, sends the offer through signaling and waits for the
// channel to open or the context to expire.
func (e *rtcEndpoint) Open(ctx context.Context, remote domain.PeerID, md Metadata) (Connection, error) {
	pc, err := webrtc.NewPeerConnection(e.cfg)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	dc, err := pc.CreateDataChannel(controlChannelLabel, nil)
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("create control channel: %w", err)
	}

	conn := newRTCConn(remote, Metadata{}, pc)
	conn.bindChannel(dc)
	e.track(remote, conn)

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil {
			_ = e.sig.SendCandidate(remote, cand.ToJSON())
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set local description: %w", err)
	}
	if err := e.sig.SendOffer(remote, offer.SDP, md); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send offer: %w", err)
	}

	select {
	case <-conn.opened:
		// opened also unblocks on Close, so a handshake that failed before
		// the channel came up must not pass as a live connection.
		if conn.State() != domain.ConnOpen {
			return nil, fmt.Errorf("%w: %s", ErrUnreachablePeer, remote)
		}
		return conn, nil
	case <-ctx.Done():
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnreachablePeer, remote)
	}
}

func (e *rtcEndpoint) Close() {
	e.mu.Lock()
	conns := make([]*rtcConn, 0, len(e.conns))
	for _, c := range e.conns {
		conns = append(conns, c)
	}
	e.conns = make(map[domain.PeerID]*rtcConn)
	e.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
	e.sig.Close()
}

func (e *rtcEndpoint) track(remote domain.PeerID, c *rtcConn) {
	e.mu.Lock()
	e.conns[remote] = c
	e.mu.Unlock()
	c.OnClose(func() {
		e.mu.Lock()
		if e.conns[remote] == c {
			delete(e.conns, remote)
		}
		e.mu.Unlock()
	})
}

// HandleOffer answers an inbound connection attempt. The answer is sent
// after ICE gathering completes, so no trickle is needed on this leg.
func (e *rtcEndpoint) HandleOffer(from domain.PeerID, sdp string, md Metadata) {
	pc, err := webrtc.NewPeerConnection(e.cfg)
	if err != nil {
		log.Error().Err(err).Str("module", "transport.rtc").Msg("answer: new peer connection")
		return
	}

	conn := newRTCConn(from, md, pc)
	e.track(from, conn)

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != controlChannelLabel {
			return
		}
		conn.bindChannel(dc)
	})

	go func() {
		<-conn.opened
		e.mu.Lock()
		accept := e.incoming
		e.mu.Unlock()
		if accept != nil {
			accept(conn)
		}
	}()

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := pc.SetRemoteDescription(offer); err != nil {
		log.Error().Err(err).Str("module", "transport.rtc").Msg("answer: set remote description")
		conn.Close()
		return
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		log.Error().Err(err).Str("module", "transport.rtc").Msg("answer: create answer")
		conn.Close()
		return
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		log.Error().Err(err).Str("module", "transport.rtc").Msg("answer: set local description")
		conn.Close()
		return
	}
	<-gatherComplete

	if err := e.sig.SendAnswer(from, pc.LocalDescription().SDP); err != nil {
		log.Error().Err(err).Str("module", "transport.rtc").Msg("answer: send")
		conn.Close()
	}
}

func (e *rtcEndpoint) HandleAnswer(from domain.PeerID, sdp string) {
	e.mu.Lock()
	conn, ok := e.conns[from]
	e.mu.Unlock()
	if !ok {
		log.Warn().Str("module", "transport.rtc").Str("from", string(from)).Msg("answer for unknown peer")
		return
	}
	desc := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
	if err := conn.pc.SetRemoteDescription(desc); err != nil {
		log.Error().Err(err).Str("module", "transport.rtc").Str("from", string(from)).Msg("apply answer")
	}
}

func (e *rtcEndpoint) HandleCandidate(from domain.PeerID, cand webrtc.ICECandidateInit) {
	e.mu.Lock()
	conn, ok := e.conns[from]
	e.mu.Unlock()
	if !ok {
		return
	}
	if err := conn.pc.AddICECandidate(cand); err != nil {
		log.Error().Err(err).Str("module", "transport.rtc").Str("from", string(from)).Msg("add ice candidate")
	}
}

type rtcConn struct {
	remote domain.PeerID
	md     Metadata
	pc     *webrtc.PeerConnection
	opened chan struct{}

	mu       sync.Mutex
	dc       *webrtc.DataChannel
	state    domain.ConnectionState
	frameFn  func([]byte)
	closeFn  func()
	pending  [][]byte
	openOnce sync.Once
	closed   bool
}

func newRTCConn(remote domain.PeerID, md Metadata, pc *webrtc.PeerConnection) *rtcConn {
	c := &rtcConn{
		remote: remote,
		md:     md,
		pc:     pc,
		opened: make(chan struct{}),
		state:  domain.ConnConnecting,
	}
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "transport.rtc").Str("peer", string(remote)).Str("state", s.String()).Msg("peer state")
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			c.Close()
		}
	})
	return c
}

func (c *rtcConn) bindChannel(dc *webrtc.DataChannel) {
	c.mu.Lock()
	c.dc = dc
	c.mu.Unlock()

	dc.OnOpen(func() {
		c.mu.Lock()
		if c.state == domain.ConnConnecting {
			c.state = domain.ConnOpen
		}
		c.mu.Unlock()
		c.openOnce.Do(func() { close(c.opened) })
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		c.deliver(msg.Data)
	})
	dc.OnClose(func() {
		c.Close()
	})
}

func (c *rtcConn) RemoteID() domain.PeerID { return c.remote }
func (c *rtcConn) Metadata() Metadata      { return c.md }

func (c *rtcConn) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *rtcConn) Send(frame []byte) error {
	c.mu.Lock()
	dc := c.dc
	open := c.state == domain.ConnOpen
	c.mu.Unlock()
	if !open || dc == nil {
		return nil
	}
	if err := dc.Send(frame); err != nil {
		log.Debug().Err(err).Str("module", "transport.rtc").Str("peer", string(c.remote)).Msg("send dropped")
	}
	return nil
}

func (c *rtcConn) deliver(frame []byte) {
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

func (c *rtcConn) OnFrame(fn func([]byte)) {
	c.mu.Lock()
	c.frameFn = fn
	queued := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, f := range queued {
		fn(f)
	}
}

func (c *rtcConn) OnClose(fn func()) {
	c.mu.Lock()
	closed := c.closed
	prev := c.closeFn
	c.closeFn = func() {
		if prev != nil {
			prev()
		}
		fn()
	}
	c.mu.Unlock()
	if closed {
		fn()
	}
}

func (c *rtcConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.state = domain.ConnClosed
	dc := c.dc
	fn := c.closeFn
	c.mu.Unlock()

	c.openOnce.Do(func() { close(c.opened) })
	if dc != nil {
		_ = dc.Close()
	}
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "transport.rtc").Str("peer", string(c.remote)).Msg("close error")
	}
	if fn != nil {
		fn()
	}
}
