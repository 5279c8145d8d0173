package api

import (
	"context"
	"fmt"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"gorm.io/gorm"
)

// GormAiUsageStore implements AiUsageStore using GORM
type GormAiUsageStore struct {
	db *gorm.DB
}

// NewGormAiUsageStore creates a new GORM-backed AI usage store
func NewGormAiUsageStore(db *gorm.DB) *GormAiUsageStore {
	return &GormAiUsageStore{db: db}
}

// Create records a tool invocation
func (s *GormAiUsageStore) Create(ctx context.Context, usage *models.AiToolUsage) (*models.AiToolUsage, error) {
	if err := s.db.WithContext(ctx).Omit("Document").Create(usage).Error; err != nil {
		return nil, fmt.Errorf("failed to record ai usage: %w", err)
	}
	return usage, nil
}

// ListByDocument returns a document's tool history, newest first
func (s *GormAiUsageStore) ListByDocument(ctx context.Context, documentID int64) ([]models.AiToolUsage, error) {
	var usages []models.AiToolUsage
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("id DESC").
		Find(&usages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ai usage: %w", err)
	}
	return usages, nil
}
