// Package transport abstracts a point-to-point connection carrying a
// reliable ordered control stream and, for the host, an outbound media
// stream. The session core only sees these interfaces; the pion
// implementation and the in-process test hub both satisfy them.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/taalhaakaagaan/Lets-Watch/internal/domain"
)

var (
	// ErrIdentityTaken means the desired addressable identity is already
	// claimed elsewhere. Callers surface it, they do not retry.
	ErrIdentityTaken = errors.New("identity already claimed")
	// ErrUnreachablePeer means the remote identity could not be resolved
	// or the handshake did not complete within the deadline.
	ErrUnreachablePeer = errors.New("peer unreachable")
)

// PresenceTimeout bounds presence checks; primary session joins are
// bounded only by the caller's context.
const PresenceTimeout = 5 * time.Second

// Metadata travels with the connection handshake.
type Metadata struct {
	DisplayName string `json:"displayName,omitempty"`
}

// Connection is one point-to-point link. Send is best-effort: when the
// connection is not open the frame is dropped silently, since control
// messages racing a just-closed connection are expected and harmless.
// Close is idempotent.
type Connection interface {
	RemoteID() domain.PeerID
	Metadata() Metadata
	State() domain.ConnectionState
	Send(frame []byte) error
	OnFrame(func([]byte))
	OnClose(func())
	Close()
}

// Endpoint is a bound local identity that can dial out and accept inbound
// connection attempts.
type Endpoint interface {
	ID() domain.PeerID
	Open(ctx context.Context, remote domain.PeerID, md Metadata) (Connection, error)
	OnIncoming(func(Connection))
	Close()
}

// Network hands out endpoints. Bind fails with ErrIdentityTaken when the
// id is claimed by someone else, which is how a host learns its room id
// is in use.
type Network interface {
	Bind(ctx context.Context, id domain.PeerID) (Endpoint, error)
}

// Signaling carries the connection handshake (offer/answer/ICE) between
// two identities. The relay client implements this over the fallback
// signaling server.
type Signaling interface {
	Announce(ctx context.Context, id domain.PeerID) error
	SendOffer(target domain.PeerID, sdp string, md Metadata) error
	SendAnswer(target domain.PeerID, sdp string) error
	SendCandidate(target domain.PeerID, cand webrtc.ICECandidateInit) error
	Handle(h SignalHandler)
	Close()
}

// SignalHandler receives the remote side of the handshake.
type SignalHandler interface {
	HandleOffer(from domain.PeerID, sdp string, md Metadata)
	HandleAnswer(from domain.PeerID, sdp string)
	HandleCandidate(from domain.PeerID, cand webrtc.ICECandidateInit)
}
