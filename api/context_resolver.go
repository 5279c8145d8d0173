package api

import (
	"errors"
)

// ErrSessionNotFoundForSocket is returned for a connection that has not joined a session
var ErrSessionNotFoundForSocket = errors.New("Session ID not found for this socket") //nolint:staticcheck // ST1005 - client-facing message

// SessionLocator maps a connection to its joined session
type SessionLocator interface {
	SessionIDForConnection(connectionID string) (int64, bool)
}

// ContextResolver resolves the session a connection is working in
type ContextResolver struct {
	sessions SessionLocator
}

// NewContextResolver creates a resolver over the presence connection map
func NewContextResolver(sessions SessionLocator) *ContextResolver {
	return &ContextResolver{sessions: sessions}
}

// SessionIDOrError returns the connection's joined session
func (r *ContextResolver) SessionIDOrError(c *Client) (int64, error) {
	if c == nil {
		return 0, ErrSessionNotFoundForSocket
	}
	sessionID, ok := r.sessions.SessionIDForConnection(c.ID())
	if !ok || sessionID == 0 {
		return 0, ErrSessionNotFoundForSocket
	}
	return sessionID, nil
}
