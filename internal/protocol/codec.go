package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType marks frames from peers running a different protocol
// version. Callers must drop these instead of failing the connection.
var ErrUnknownType = errors.New("unknown message type")

type envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func Encode(m Message) ([]byte, error) {
	p, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", m.Kind(), err)
	}
	return json.Marshal(envelope{Type: m.Kind(), Payload: p})
}

// Decode parses one control-channel frame. Malformed payloads and
// unrecognized types return an error; they never panic.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var m Message
	switch env.Type {
	case TypeChat:
		m = &Chat{}
	case TypeSync:
		m = &Sync{}
	case TypeSyncInitial:
		m = &SyncInitial{}
	case TypeStartCountdown:
		m = &StartCountdown{}
	case TypeRoomFull:
		m = &RoomFull{}
	case TypeKick:
		m = &Kick{}
	case TypeEndSession:
		return &EndSession{}, nil
	case TypeError:
		m = &Error{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, m); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	}
	return m, nil
}
