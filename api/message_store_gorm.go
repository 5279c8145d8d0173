package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"gorm.io/gorm"
)

// GormMessageStore implements MessageStore using GORM
type GormMessageStore struct {
	db *gorm.DB
}

// NewGormMessageStore creates a new GORM-backed chat store
func NewGormMessageStore(db *gorm.DB) *GormMessageStore {
	return &GormMessageStore{db: db}
}

// Create stores a message and returns it with its sender loaded
func (s *GormMessageStore) Create(ctx context.Context, sessionID, senderID int64, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Message: "Message text is required"}
	}

	msg := models.Message{
		SessionID: sessionID,
		SenderID:  senderID,
		Text:      text,
	}
	if err := s.db.WithContext(ctx).Omit("Sender", "Session").Create(&msg).Error; err != nil {
		slogging.Get().Error("Failed to store message in session %d: %v", sessionID, err)
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if err := s.db.WithContext(ctx).Preload("Sender").First(&msg, msg.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	return &msg, nil
}

// ListBySession returns a session's chat history in posting order
func (s *GormMessageStore) ListBySession(ctx context.Context, sessionID int64) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}
