package api

import (
	"context"
	"fmt"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
)

// DocumentService pairs document mutations with the version each one records
type DocumentService struct {
	documents DocumentStore
	versions  VersionStore
}

// NewDocumentService creates a document service over the given stores
func NewDocumentService(documents DocumentStore, versions VersionStore) *DocumentService {
	return &DocumentService{documents: documents, versions: versions}
}

// CreateDocument creates an empty document and its initial version
func (s *DocumentService) CreateDocument(ctx context.Context, sessionID int64, title, userEmail string) (*models.Document, *models.Version, error) {
	doc, err := s.documents.Create(ctx, sessionID, title, "")
	if err != nil {
		return nil, nil, err
	}
	version, err := s.versions.Create(ctx, doc.ID, doc.RichContent, userEmail)
	if err != nil {
		return nil, nil, err
	}
	return doc, version, nil
}

// DuplicateDocument copies a document into the same session
func (s *DocumentService) DuplicateDocument(ctx context.Context, documentID int64, userEmail string) (*models.Document, *models.Version, error) {
	source, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}

	doc, err := s.documents.Create(ctx, source.SessionID, "Copy of "+source.Title, source.RichContent)
	if err != nil {
		return nil, nil, err
	}
	version, err := s.versions.Create(ctx, doc.ID, doc.RichContent, userEmail)
	if err != nil {
		return nil, nil, err
	}

	slogging.Get().Debug("Duplicated document %d as %d", documentID, doc.ID)
	return doc, version, nil
}

// ChangeContentAndSave stores sanitised content and snapshots it as a version
func (s *DocumentService) ChangeContentAndSave(ctx context.Context, documentID int64, content, userEmail string) (*models.Document, *models.Version, error) {
	doc, err := s.documents.UpdateContent(ctx, documentID, SanitizeContent(content))
	if err != nil {
		return nil, nil, err
	}
	version, err := s.versions.Create(ctx, doc.ID, doc.RichContent, userEmail)
	if err != nil {
		return nil, nil, err
	}
	return doc, version, nil
}

// ApplyVersion rolls a document back to a version's content, recorded as a new version
func (s *DocumentService) ApplyVersion(ctx context.Context, documentID, versionID int64, userEmail string) (*models.Document, *models.Version, error) {
	source, err := s.versions.Get(ctx, versionID)
	if err != nil {
		return nil, nil, err
	}
	if source.DocumentID != documentID {
		return nil, nil, &ValidationError{Message: fmt.Sprintf("Version %d does not belong to document %d", versionID, documentID)}
	}
	return s.ChangeContentAndSave(ctx, documentID, source.RichContent, userEmail)
}

// RenameDocument changes a document's title
func (s *DocumentService) RenameDocument(ctx context.Context, documentID int64, title string) (*models.Document, error) {
	return s.documents.UpdateTitle(ctx, documentID, title)
}

// DeleteDocument removes a document and its history
func (s *DocumentService) DeleteDocument(ctx context.Context, documentID int64) error {
	return s.documents.Delete(ctx, documentID)
}

// GetDocument retrieves one document
func (s *DocumentService) GetDocument(ctx context.Context, documentID int64) (*models.Document, error) {
	return s.documents.Get(ctx, documentID)
}

// SessionDocuments lists a session's documents
func (s *DocumentService) SessionDocuments(ctx context.Context, sessionID int64) ([]models.Document, error) {
	return s.documents.ListBySession(ctx, sessionID)
}

// Versions lists a document's versions
func (s *DocumentService) Versions(ctx context.Context, documentID int64) ([]models.Version, error) {
	return s.versions.ListByDocument(ctx, documentID)
}
