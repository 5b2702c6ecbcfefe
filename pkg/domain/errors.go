package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrNodeNotFound is returned by graph stores when a lookup has no matching record.
// It is a miss, not a failure: the resolver turns it into a terminal outcome.
var ErrNodeNotFound = errors.New("node not found")

// ErrUnknownBackend is returned when configuration names an adapter that does not exist.
var ErrUnknownBackend = errors.New("unknown backend")
