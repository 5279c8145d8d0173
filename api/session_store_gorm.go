package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/unicodecheck"
	"gorm.io/gorm"
)

// GormSessionStore implements SessionStore using GORM
type GormSessionStore struct {
	db *gorm.DB
}

// NewGormSessionStore creates a new GORM-backed session store
func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

// Create stores a session and makes the creator its administrator
func (s *GormSessionStore) Create(ctx context.Context, name string, creatorID int64) (*models.Session, error) {
	logger := slogging.Get()

	name, err := unicodecheck.ValidateLabel("Session name", name)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	session := models.Session{Name: name}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		membership := models.UserSession{
			UserID:    creatorID,
			SessionID: session.ID,
			Permissions: models.NewPermissionSet(
				models.PermissionRead,
				models.PermissionEdit,
				models.PermissionAdmin,
			),
		}
		return tx.Omit("User", "Session").Create(&membership).Error
	})
	if err != nil {
		logger.Error("Failed to create session for user %d: %v", creatorID, err)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logger.Debug("Created session %d for user %d", session.ID, creatorID)
	return &session, nil
}

// Get retrieves a session by ID
func (s *GormSessionStore) Get(ctx context.Context, id int64) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "Session"}
		}
		slogging.Get().Error("Failed to get session %d: %v", id, err)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// ListForUser returns every session the user holds a permission row in,
// most recently used first
func (s *GormSessionStore) ListForUser(ctx context.Context, userID int64) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Joins("JOIN user_sessions ON user_sessions.session_id = sessions.id").
		Where("user_sessions.user_id = ?", userID).
		Order("user_sessions.last_interacted DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Rename changes a session's name; renaming to the current name is a no-op
func (s *GormSessionStore) Rename(ctx context.Context, id int64, name string) (*models.Session, error) {
	name, err := unicodecheck.ValidateLabel("Session name", name)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Name == name {
		return session, nil
	}

	if err := s.db.WithContext(ctx).Model(session).Update("name", name).Error; err != nil {
		slogging.Get().Error("Failed to rename session %d: %v", id, err)
		return nil, fmt.Errorf("failed to rename session: %w", err)
	}
	session.Name = name
	return session, nil
}

// Delete removes a session and everything that belongs to it
func (s *GormSessionStore) Delete(ctx context.Context, id int64) error {
	logger := slogging.Get()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		docIDs := tx.Model(&models.Document{}).Select("id").Where("session_id = ?", id)
		if err := tx.Where("document_id IN (?)", docIDs).Delete(&models.Version{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id IN (?)", docIDs).Delete(&models.AiToolUsage{}).Error; err != nil {
			return err
		}
		for _, model := range []any{&models.Document{}, &models.Message{}, &models.Invitation{}, &models.UserSession{}} {
			if err := tx.Where("session_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&models.Session{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Entity: "Session"}
		}
		return nil
	})
	if err != nil {
		if IsNotFound(err) {
			return err
		}
		logger.Error("Failed to delete session %d: %v", id, err)
		return fmt.Errorf("failed to delete session: %w", err)
	}

	logger.Info("Deleted session %d", id)
	return nil
}
