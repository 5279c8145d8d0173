package api

import (
	"context"
	"errors"
	"time"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
)

// NotFoundError reports a missing entity, e.g. "Session not found"
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

// ValidationError reports input a collaborator refused to persist
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsNotFound reports whether err wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// UserStore reads and creates accounts
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, email, name, password string) (*models.User, error)
}

// SessionStore persists collaboration sessions
type SessionStore interface {
	// Create stores a session and grants the creator READ, EDIT and ADMIN
	Create(ctx context.Context, name string, creatorID int64) (*models.Session, error)
	Get(ctx context.Context, id int64) (*models.Session, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Session, error)
	Rename(ctx context.Context, id int64, name string) (*models.Session, error)
	Delete(ctx context.Context, id int64) error
}

// UserSessionStore persists per-session permission rows
type UserSessionStore interface {
	// Find returns nil without error when the user is not part of the session
	Find(ctx context.Context, userID, sessionID int64) (*models.UserSession, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.UserSession, error)
	Grant(ctx context.Context, userID, sessionID int64, perms models.PermissionSet) (*models.UserSession, error)
	UpdatePermissions(ctx context.Context, userID, sessionID int64, perms models.PermissionSet) (*models.UserSession, error)
	AddTimeSpent(ctx context.Context, userID, sessionID, seconds int64, at time.Time) error
}

// DocumentStore persists documents
type DocumentStore interface {
	Create(ctx context.Context, sessionID int64, title, content string) (*models.Document, error)
	Get(ctx context.Context, id int64) (*models.Document, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.Document, error)
	UpdateTitle(ctx context.Context, id int64, title string) (*models.Document, error)
	UpdateContent(ctx context.Context, id int64, content string) (*models.Document, error)
	Delete(ctx context.Context, id int64) error
}

// VersionStore persists document versions
type VersionStore interface {
	Create(ctx context.Context, documentID int64, content, userEmail string) (*models.Version, error)
	Get(ctx context.Context, id int64) (*models.Version, error)
	ListByDocument(ctx context.Context, documentID int64) ([]models.Version, error)
}

// MessageStore persists chat messages
type MessageStore interface {
	Create(ctx context.Context, sessionID, senderID int64, text string) (*models.Message, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.Message, error)
}

// InvitationStore persists invitations and their notification state
type InvitationStore interface {
	Create(ctx context.Context, invitation *models.Invitation) (*models.Invitation, error)
	Get(ctx context.Context, id int64) (*models.Invitation, error)
	ListByEmail(ctx context.Context, email string) ([]models.Invitation, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.Invitation, error)
	UpdateNotificationStatus(ctx context.Context, id int64, status string) (*models.Invitation, error)
	UpdateRole(ctx context.Context, id int64, role models.Permission) (*models.Invitation, error)
	Delete(ctx context.Context, id int64) error
}

// AiUsageStore persists AI tool invocations
type AiUsageStore interface {
	Create(ctx context.Context, usage *models.AiToolUsage) (*models.AiToolUsage, error)
	ListByDocument(ctx context.Context, documentID int64) ([]models.AiToolUsage, error)
}

// Stores bundles every collaborator store the gateway uses
type Stores struct {
	Users        UserStore
	Sessions     SessionStore
	UserSessions UserSessionStore
	Documents    DocumentStore
	Versions     VersionStore
	Messages     MessageStore
	Invitations  InvitationStore
	AiUsage      AiUsageStore
}
