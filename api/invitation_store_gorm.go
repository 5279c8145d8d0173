package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"gorm.io/gorm"
)

// GormInvitationStore implements InvitationStore using GORM
type GormInvitationStore struct {
	db *gorm.DB
}

// NewGormInvitationStore creates a new GORM-backed invitation store
func NewGormInvitationStore(db *gorm.DB) *GormInvitationStore {
	return &GormInvitationStore{db: db}
}

// Create stores a pending, unread invitation
func (s *GormInvitationStore) Create(ctx context.Context, invitation *models.Invitation) (*models.Invitation, error) {
	invitation.Email = strings.TrimSpace(invitation.Email)
	if invitation.Email == "" {
		return nil, &ValidationError{Message: "Invitation email is required"}
	}
	if invitation.NotificationStatus == "" {
		invitation.NotificationStatus = models.NotificationUnread
	}
	if invitation.InvitationStatus == "" {
		invitation.InvitationStatus = models.InvitationPending
	}

	var existing int64
	err := s.db.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("session_id = ? AND LOWER(email) = ? AND invitation_status = ?",
			invitation.SessionID, strings.ToLower(invitation.Email), models.InvitationPending).
		Count(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check invitations: %w", err)
	}
	if existing > 0 {
		return nil, &ValidationError{Message: "User has already been invited to this session"}
	}

	if err := s.db.WithContext(ctx).Omit("Session").Create(invitation).Error; err != nil {
		slogging.Get().Error("Failed to create invitation for session %d: %v", invitation.SessionID, err)
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	return s.Get(ctx, invitation.ID)
}

// Get retrieves an invitation with its session
func (s *GormInvitationStore) Get(ctx context.Context, id int64) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := s.db.WithContext(ctx).Preload("Session").First(&invitation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "Invitation"}
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return &invitation, nil
}

// ListByEmail returns invitations addressed to email, newest first
func (s *GormInvitationStore) ListByEmail(ctx context.Context, email string) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := s.db.WithContext(ctx).
		Preload("Session").
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Order("date DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// ListBySession returns a session's invitations, newest first
func (s *GormInvitationStore) ListBySession(ctx context.Context, sessionID int64) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("date DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// UpdateNotificationStatus marks an invitation read or unread
func (s *GormInvitationStore) UpdateNotificationStatus(ctx context.Context, id int64, status string) (*models.Invitation, error) {
	if status != models.NotificationRead && status != models.NotificationUnread {
		return nil, &ValidationError{Message: fmt.Sprintf("Invalid notification status: %s", status)}
	}
	return s.update(ctx, id, "notification_status", status)
}

// UpdateRole changes the role an invitation offers
func (s *GormInvitationStore) UpdateRole(ctx context.Context, id int64, role models.Permission) (*models.Invitation, error) {
	return s.update(ctx, id, "role", role)
}

func (s *GormInvitationStore) update(ctx context.Context, id int64, column string, value any) (*models.Invitation, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Invitation{ID: id}).
		Update(column, value)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update invitation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Entity: "Invitation"}
	}
	return s.Get(ctx, id)
}

// Delete removes an invitation
func (s *GormInvitationStore) Delete(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&models.Invitation{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete invitation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Entity: "Invitation"}
	}
	return nil
}
