package service

import "errors"

var (
	// ErrInvalidDifficulty rejects a difficulty tag outside easy|medium|hard.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrInvalidLanguage rejects an editor language outside the known set.
	ErrInvalidLanguage = errors.New("unsupported language")
	// ErrSessionNotFound covers absent and inactive sessions alike.
	ErrSessionNotFound = errors.New("session not found or inactive")
	// ErrInvalidTransition marks a session event outside the transition
	// table. Callers treat it as a no-op, never a crash.
	ErrInvalidTransition = errors.New("invalid session state transition")
	// ErrRoomNotFound marks operations addressed to an unknown room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomClosed marks mutations addressed to a terminal room.
	ErrRoomClosed = errors.New("room is closed")
	// ErrNotParticipant marks a room-scoped event from a session that is not
	// bound to that room.
	ErrNotParticipant = errors.New("not a participant of this room")
	// ErrInvalidToken covers unparseable, forged, and expired credentials.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrIdentityRejected is returned when the identity provider does not
	// vouch for a credential.
	ErrIdentityRejected = errors.New("identity verification failed")
)
