// Package uuidv7 generates time-ordered identifiers for sessions and
// requests. UUIDv7 combines a 48-bit millisecond timestamp with 74 random
// bits, so identifiers sort by creation time and collisions among live
// sessions are negligible.
package uuidv7

import "github.com/google/uuid"

// New returns a UUIDv7 value or panics if the random source fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns the string form of a fresh UUIDv7.
func NewString() string {
	return New().String()
}
