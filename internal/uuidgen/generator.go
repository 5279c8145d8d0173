// Package uuidgen issues identifiers for live connections.
package uuidgen

import (
	"github.com/google/uuid"
)

// NewConnectionID returns a time-ordered UUIDv7 string, falling back to a
// random UUIDv4 if v7 generation fails
func NewConnectionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
