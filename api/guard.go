package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/tidwall/gjson"
)

// SessionIDHeader carries a session id on the WebSocket handshake
const SessionIDHeader = "X-Session-Id"

// Guard denials; the messages are sent to clients verbatim
var (
	ErrForbidden               = errors.New("Forbidden resource")               //nolint:staticcheck // ST1005 - client-facing message
	ErrNotSessionMember        = errors.New("You are not part of this session") //nolint:staticcheck // ST1005 - client-facing message
	ErrInsufficientPermissions = errors.New("Insufficient permissions")         //nolint:staticcheck // ST1005 - client-facing message
)

// SessionScope names the session a guarded event acts on
type SessionScope int

const (
	// ScopeJoined events act on the connection's joined session; a payload
	// sessionId must name that same session
	ScopeJoined SessionScope = iota
	// ScopePayload events act on the session their payload names
	ScopePayload
)

// PermissionLookup loads a user's permission row for a session
type PermissionLookup interface {
	Find(ctx context.Context, userID, sessionID int64) (*models.UserSession, error)
}

// Guard authorises events against the caller's permissions in a session
type Guard struct {
	members  PermissionLookup
	resolver *ContextResolver
}

// NewGuard creates a permission guard
func NewGuard(members PermissionLookup, resolver *ContextResolver) *Guard {
	return &Guard{members: members, resolver: resolver}
}

// Check authorises an event whose route declared required permissions.
// The session comes from the payload's sessionId, else the connection's
// joined session, else the handshake header.
func (g *Guard) Check(ctx context.Context, c *Client, data []byte, scope SessionScope, required []models.Permission) error {
	if len(required) == 0 {
		return nil
	}
	if c == nil || c.UserID() == 0 {
		return ErrForbidden
	}

	sessionID := g.sessionFor(c, data, scope)
	if sessionID == 0 {
		return ErrForbidden
	}
	return g.Authorize(ctx, c.UserID(), sessionID, required...)
}

// Authorize allows when the user's permission set holds any of required
func (g *Guard) Authorize(ctx context.Context, userID, sessionID int64, required ...models.Permission) error {
	row, err := g.members.Find(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrNotSessionMember
	}
	if !row.Permissions.Intersects(required...) {
		return ErrInsufficientPermissions
	}
	return nil
}

// sessionFor returns 0 when no session can be resolved or when a ScopeJoined
// payload names a session other than the joined one
func (g *Guard) sessionFor(c *Client, data []byte, scope SessionScope) int64 {
	joined, joinErr := g.resolver.SessionIDOrError(c)
	if v := gjson.GetBytes(data, "sessionId"); v.Exists() && v.Int() > 0 {
		if scope == ScopeJoined && (joinErr != nil || joined != v.Int()) {
			return 0
		}
		return v.Int()
	}
	if joinErr == nil {
		return joined
	}
	if id, err := strconv.ParseInt(c.Header(SessionIDHeader), 10, 64); err == nil && id > 0 {
		return id
	}
	return 0
}
