package game

import "errors"

// Precondition failures. These stop evaluation before any mutation reaches
// storage.
var (
	ErrUnauthorized = errors.New("access denied")
	ErrInvalidRole  = errors.New("only players can play matches")
	ErrNotFound     = errors.New("object not found")
	ErrInactive     = errors.New("match is inactive")
)

// ErrSessionLocked is returned when a concurrent answer submission already
// holds the session's lock.
var ErrSessionLocked = errors.New("session is being updated by another request")
