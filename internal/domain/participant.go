package domain

type PeerID string

type ConnectionState int

const (
	ConnConnecting ConnectionState = iota
	ConnOpen
	ConnClosed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnConnecting:
		return "connecting"
	case ConnOpen:
		return "open"
	default:
		return "closed"
	}
}

// Participant represents a remote peer known to the session.
// No transport or lifecycle logic here.
type Participant struct {
	PeerID      PeerID
	DisplayName string
	State       ConnectionState
}

func NewParticipant(id PeerID, name string) *Participant {
	return &Participant{PeerID: id, DisplayName: name, State: ConnConnecting}
}
