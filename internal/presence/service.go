package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
)

// MembershipStore is the permission-row collaborator presence depends on
type MembershipStore interface {
	// Find returns nil without error when the user is not part of the session
	Find(ctx context.Context, userID, sessionID int64) (*models.UserSession, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.UserSession, error)
	AddTimeSpent(ctx context.Context, userID, sessionID, seconds int64, at time.Time) error
}

// SessionGetter loads session entities for snapshots
type SessionGetter interface {
	Get(ctx context.Context, id int64) (*models.Session, error)
}

// Identity is attached to a connection once it authenticates
type Identity struct {
	ConnectionID string
	UserID       int64
}

// OnlineUser describes a present participant
type OnlineUser struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Email       string               `json:"email"`
	Avatar      *string              `json:"avatar"`
	Permissions models.PermissionSet `json:"permissions"`
}

// SessionTotalData is the snapshot sent to a client after it joins
type SessionTotalData struct {
	Session     *models.Session `json:"session"`
	OnlineUsers []OnlineUser    `json:"onlineUsers"`
	TimeSpent   int64           `json:"timeSpent"`
}

// JoinResult is the outcome of Join
type JoinResult struct {
	Allowed     bool
	Snapshot    *SessionTotalData
	IsFirstJoin bool
	NewUser     *OnlineUser
	// PreviousSessionID is set when the connection left another session to join this one
	PreviousSessionID int64
}

// Service mediates the join and leave lifecycle over a StateStore
type Service struct {
	state    *StateStore
	members  MembershipStore
	sessions SessionGetter
	now      func() time.Time
}

// NewService creates a presence service
func NewService(state *StateStore, members MembershipStore, sessions SessionGetter) *Service {
	return &Service{
		state:    state,
		members:  members,
		sessions: sessions,
		now:      time.Now,
	}
}

// Join authorises the connection against the user's permission row and
// records it as present in the session. When the snapshot fails after the
// connection left another session, the result is returned alongside the error
// so the caller can still release the previous session's room.
func (s *Service) Join(ctx context.Context, id Identity, sessionID int64) (*JoinResult, error) {
	row, err := s.members.Find(ctx, id.UserID, sessionID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		slogging.Get().Debug("User %d is not part of session %d", id.UserID, sessionID)
		return &JoinResult{Allowed: false}, nil
	}

	result := &JoinResult{Allowed: true}

	// state is re-read here, after the lookup returned
	previous, joined := s.state.SessionFor(id.ConnectionID)
	rejoin := joined && previous == sessionID
	if joined && !rejoin {
		if left, ok := s.Leave(ctx, id.ConnectionID, id.UserID); ok {
			result.PreviousSessionID = left
		}
	}

	result.IsFirstJoin, _ = s.state.AddConnection(id.UserID, sessionID, id.ConnectionID, s.now())
	result.NewUser = toOnlineUser(row)

	snapshot, err := s.GetSessionTotalData(ctx, id, sessionID)
	if err != nil {
		// a rejoin keeps the presence it already had
		if !rejoin {
			s.state.RemoveConnection(id.UserID, id.ConnectionID)
		}
		if result.PreviousSessionID != 0 {
			return &JoinResult{PreviousSessionID: result.PreviousSessionID}, err
		}
		return nil, err
	}
	result.Snapshot = snapshot

	slogging.Get().Debug("User %d joined session %d on connection %s (first=%t)",
		id.UserID, sessionID, id.ConnectionID, result.IsFirstJoin)
	return result, nil
}

// Leave removes the connection from its session. When it was the user's last
// connection there, the elapsed time is persisted. ok is false when the
// connection had not joined a session.
func (s *Service) Leave(ctx context.Context, connectionID string, userID int64) (sessionID int64, ok bool) {
	removed, ok := s.state.RemoveConnection(userID, connectionID)
	if !ok {
		return 0, false
	}

	if removed.LastConnection {
		now := s.now()
		elapsed := int64(now.Sub(removed.StartTime) / time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		if err := s.members.AddTimeSpent(ctx, userID, removed.SessionID, elapsed, now); err != nil {
			slogging.Get().Warn("Failed to record %ds spent by user %d in session %d: %v",
				elapsed, userID, removed.SessionID, err)
		}
	}
	return removed.SessionID, true
}

// GetOnlineUsers returns the session's participants that are currently present
func (s *Service) GetOnlineUsers(ctx context.Context, sessionID int64) ([]OnlineUser, error) {
	rows, err := s.members.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	online := s.state.OnlineUserIDs(sessionID)
	users := make([]OnlineUser, 0, len(online))
	for i := range rows {
		if _, ok := online[rows[i].UserID]; ok {
			users = append(users, *toOnlineUser(&rows[i]))
		}
	}
	return users, nil
}

// GetTimeUserSpent returns stored plus live seconds the user has spent in the
// session, registering the connection when it is not yet present
func (s *Service) GetTimeUserSpent(ctx context.Context, sessionID int64, id Identity) (int64, error) {
	row, err := s.members.Find(ctx, id.UserID, sessionID)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, nil
	}

	now := s.now()
	start := s.state.Touch(id.UserID, sessionID, id.ConnectionID, now)
	live := int64(now.Sub(start) / time.Second)
	if live < 0 {
		live = 0
	}
	return row.TimeSpent + live, nil
}

// GetSessionTotalData composes the join snapshot; a zero sessionID yields nil
func (s *Service) GetSessionTotalData(ctx context.Context, id Identity, sessionID int64) (*SessionTotalData, error) {
	if sessionID == 0 {
		return nil, nil
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	users, err := s.GetOnlineUsers(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list online users: %w", err)
	}
	spent, err := s.GetTimeUserSpent(ctx, sessionID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to compute time spent: %w", err)
	}

	return &SessionTotalData{
		Session:     session,
		OnlineUsers: users,
		TimeSpent:   spent,
	}, nil
}

// SessionIDForConnection returns the session a connection has joined
func (s *Service) SessionIDForConnection(connectionID string) (int64, bool) {
	return s.state.SessionFor(connectionID)
}

// EvictSession forgets all presence for a deleted session without recording
// time and returns the evicted connection ids
func (s *Service) EvictSession(sessionID int64) []string {
	return s.state.DropSession(sessionID)
}

// OnlineCount returns the number of live presence entries
func (s *Service) OnlineCount() int {
	return s.state.Len()
}

func toOnlineUser(row *models.UserSession) *OnlineUser {
	return &OnlineUser{
		ID:          row.UserID,
		Name:        row.User.Name,
		Email:       row.User.Email,
		Avatar:      row.User.Avatar,
		Permissions: row.Permissions,
	}
}
