package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"gorm.io/gorm"
)

// GormUserSessionStore implements UserSessionStore using GORM
type GormUserSessionStore struct {
	db *gorm.DB
}

// NewGormUserSessionStore creates a new GORM-backed permission row store
func NewGormUserSessionStore(db *gorm.DB) *GormUserSessionStore {
	return &GormUserSessionStore{db: db}
}

// Find returns the user's row for a session with the user preloaded, or nil
func (s *GormUserSessionStore) Find(ctx context.Context, userID, sessionID int64) (*models.UserSession, error) {
	var row models.UserSession
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slogging.Get().Error("Failed to load permissions for user %d in session %d: %v", userID, sessionID, err)
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	return &row, nil
}

// ListBySession returns every participant row of a session with users preloaded
func (s *GormUserSessionStore) ListBySession(ctx context.Context, sessionID int64) ([]models.UserSession, error) {
	var rows []models.UserSession
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list session participants: %w", err)
	}
	return rows, nil
}

// Grant adds perms to the user's row, creating it when absent
func (s *GormUserSessionStore) Grant(ctx context.Context, userID, sessionID int64, perms models.PermissionSet) (*models.UserSession, error) {
	row, err := s.Find(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if row == nil {
		row = &models.UserSession{
			UserID:      userID,
			SessionID:   sessionID,
			Permissions: models.NewPermissionSet(perms...),
		}
		if err := s.db.WithContext(ctx).Omit("User", "Session").Create(row).Error; err != nil {
			slogging.Get().Error("Failed to grant session %d to user %d: %v", sessionID, userID, err)
			return nil, fmt.Errorf("failed to grant permissions: %w", err)
		}
		return row, nil
	}

	merged := models.NewPermissionSet(append(append(models.PermissionSet{}, row.Permissions...), perms...)...)
	return s.UpdatePermissions(ctx, userID, sessionID, merged)
}

// UpdatePermissions replaces the user's permission set in a session
func (s *GormUserSessionStore) UpdatePermissions(ctx context.Context, userID, sessionID int64, perms models.PermissionSet) (*models.UserSession, error) {
	result := s.db.WithContext(ctx).
		Model(&models.UserSession{}).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Update("permissions", models.NewPermissionSet(perms...))
	if result.Error != nil {
		slogging.Get().Error("Failed to update permissions for user %d in session %d: %v", userID, sessionID, result.Error)
		return nil, fmt.Errorf("failed to update permissions: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Entity: "User session"}
	}
	return s.Find(ctx, userID, sessionID)
}

// AddTimeSpent accumulates seconds of presence and stamps the interaction time
func (s *GormUserSessionStore) AddTimeSpent(ctx context.Context, userID, sessionID, seconds int64, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.UserSession{}).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Updates(map[string]any{
			"time_spent":      gorm.Expr("time_spent + ?", seconds),
			"last_interacted": at.UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to record time spent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Entity: "User session"}
	}
	return nil
}
