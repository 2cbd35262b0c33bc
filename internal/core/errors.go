package core

import "errors"

var (
	// ErrIdentityConflict means the room id is already claimed; the user
	// must pick another one, the session never retries on its own.
	ErrIdentityConflict = errors.New("room id already in use")
	// ErrConnectionFailed covers join timeouts and rejections.
	ErrConnectionFailed = errors.New("could not connect to host")

	ErrNotHost       = errors.New("operation requires the host role")
	ErrNotReady      = errors.New("session is not ready")
	ErrTerminated    = errors.New("session is terminated")
	ErrUnknownPeer   = errors.New("unknown participant")
	ErrAlreadyActive = errors.New("session already initialized")
)
