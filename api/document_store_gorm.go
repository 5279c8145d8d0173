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

// GormDocumentStore implements DocumentStore using GORM
type GormDocumentStore struct {
	db *gorm.DB
}

// NewGormDocumentStore creates a new GORM-backed document store
func NewGormDocumentStore(db *gorm.DB) *GormDocumentStore {
	return &GormDocumentStore{db: db}
}

// Create creates a new document
func (s *GormDocumentStore) Create(ctx context.Context, sessionID int64, title, content string) (*models.Document, error) {
	logger := slogging.Get()
	logger.Debug("Creating document: %s in session: %d", title, sessionID)

	title, err := unicodecheck.ValidateLabel("Document title", title)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	doc := models.Document{
		SessionID:   sessionID,
		Title:       title,
		RichContent: content,
	}
	if err := s.db.WithContext(ctx).Omit("Session").Create(&doc).Error; err != nil {
		logger.Error("Failed to create document in database: %v", err)
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return &doc, nil
}

// Get retrieves a document by ID
func (s *GormDocumentStore) Get(ctx context.Context, id int64) (*models.Document, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "Document"}
		}
		slogging.Get().Error("Failed to get document %d from database: %v", id, err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// ListBySession returns a session's documents, most recently updated first
func (s *GormDocumentStore) ListBySession(ctx context.Context, sessionID int64) ([]models.Document, error) {
	var docs []models.Document
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("last_updated DESC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// UpdateTitle renames a document
func (s *GormDocumentStore) UpdateTitle(ctx context.Context, id int64, title string) (*models.Document, error) {
	title, err := unicodecheck.ValidateLabel("Document title", title)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	return s.update(ctx, id, "title", title)
}

// UpdateContent replaces a document's content
func (s *GormDocumentStore) UpdateContent(ctx context.Context, id int64, content string) (*models.Document, error) {
	return s.update(ctx, id, "rich_content", content)
}

func (s *GormDocumentStore) update(ctx context.Context, id int64, column string, value any) (*models.Document, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Document{ID: id}).
		Update(column, value)
	if result.Error != nil {
		slogging.Get().Error("Failed to update %s of document %d: %v", column, id, result.Error)
		return nil, fmt.Errorf("failed to update document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Entity: "Document"}
	}
	return s.Get(ctx, id)
}

// Delete removes a document with its versions and AI usage history
func (s *GormDocumentStore) Delete(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.Version{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&models.AiToolUsage{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Document{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Entity: "Document"}
		}
		return nil
	})
	if err != nil {
		if IsNotFound(err) {
			return err
		}
		slogging.Get().Error("Failed to delete document %d: %v", id, err)
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// GormVersionStore implements VersionStore using GORM
type GormVersionStore struct {
	db *gorm.DB
}

// NewGormVersionStore creates a new GORM-backed version store
func NewGormVersionStore(db *gorm.DB) *GormVersionStore {
	return &GormVersionStore{db: db}
}

// Create snapshots content as a new version
func (s *GormVersionStore) Create(ctx context.Context, documentID int64, content, userEmail string) (*models.Version, error) {
	version := models.Version{
		DocumentID:  documentID,
		RichContent: content,
		UserEmail:   userEmail,
	}
	if err := s.db.WithContext(ctx).Omit("Document").Create(&version).Error; err != nil {
		slogging.Get().Error("Failed to create version for document %d: %v", documentID, err)
		return nil, fmt.Errorf("failed to create version: %w", err)
	}
	return &version, nil
}

// Get retrieves a version by ID
func (s *GormVersionStore) Get(ctx context.Context, id int64) (*models.Version, error) {
	var version models.Version
	if err := s.db.WithContext(ctx).First(&version, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "Version"}
		}
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return &version, nil
}

// ListByDocument returns a document's versions, newest first
func (s *GormVersionStore) ListByDocument(ctx context.Context, documentID int64) ([]models.Version, error) {
	var versions []models.Version
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("id DESC").
		Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return versions, nil
}
