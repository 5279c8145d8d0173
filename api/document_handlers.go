package api

import (
	"context"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/ai"
)

const (
	msgDocumentNotFound   = "Document not found"
	msgDocumentNotInScope = "Document does not belong to this session"
)

// sessionDocument resolves the caller's session and loads a document that
// belongs to it
func (g *Gateway) sessionDocument(ctx context.Context, c *Client, documentID int64) (int64, *models.Document, error) {
	sessionID, err := g.resolver.SessionIDOrError(c)
	if err != nil {
		return 0, nil, err
	}
	doc, err := g.documents.GetDocument(ctx, documentID)
	if err != nil {
		return 0, nil, err
	}
	if doc.SessionID != sessionID {
		return 0, nil, &ValidationError{Message: msgDocumentNotInScope}
	}
	return sessionID, doc, nil
}

func (g *Gateway) handleChangeDocumentTitle(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[changeDocumentTitlePayload](data)
	if err != nil {
		return err
	}
	sessionID, _, err := g.sessionDocument(ctx, c, p.DocumentID)
	if err != nil {
		return err
	}

	doc, err := g.documents.RenameDocument(ctx, p.DocumentID, p.NewTitle)
	if err != nil {
		return err
	}

	g.hub.Broadcast(SessionRoom(sessionID), EventDocumentUpdated, doc)
	return nil
}

func (g *Gateway) handleCreateDocument(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[createDocumentPayload](data)
	if err != nil {
		return err
	}
	sessionID, err := g.resolver.SessionIDOrError(c)
	if err != nil {
		return err
	}
	email, err := g.userEmail(ctx, c.UserID())
	if err != nil {
		return err
	}

	doc, version, err := g.documents.CreateDocument(ctx, sessionID, p.Title, email)
	if err != nil {
		return err
	}

	room := SessionRoom(sessionID)
	g.hub.Broadcast(room, EventDocumentCreated, doc)
	g.hub.Broadcast(room, EventVersionCreated, version)
	return nil
}

func (g *Gateway) handleDeleteDocument(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[documentIDPayload](data)
	if err != nil {
		return err
	}
	sessionID, _, err := g.sessionDocument(ctx, c, p.DocumentID)
	if err != nil {
		return err
	}

	if err := g.documents.DeleteDocument(ctx, p.DocumentID); err != nil {
		return err
	}

	g.hub.Broadcast(SessionRoom(sessionID), EventDocumentDeleted, documentDeletedPayload{DocumentID: p.DocumentID})
	return nil
}

func (g *Gateway) handleDuplicateDocument(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[documentIDPayload](data)
	if err != nil {
		return err
	}
	sessionID, _, err := g.sessionDocument(ctx, c, p.DocumentID)
	if err != nil {
		return err
	}
	email, err := g.userEmail(ctx, c.UserID())
	if err != nil {
		return err
	}

	doc, version, err := g.documents.DuplicateDocument(ctx, p.DocumentID, email)
	if err != nil {
		return err
	}

	room := SessionRoom(sessionID)
	g.hub.Broadcast(room, EventDocumentDuplicated, doc)
	g.hub.Broadcast(room, EventVersionCreated, version)
	return nil
}

func (g *Gateway) handleChangeContentAndSaveDocument(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[changeContentPayload](data)
	if err != nil {
		return err
	}
	sessionID, _, err := g.sessionDocument(ctx, c, p.DocumentID)
	if err != nil {
		return err
	}
	email, err := g.userEmail(ctx, c.UserID())
	if err != nil {
		return err
	}

	doc, version, err := g.documents.ChangeContentAndSave(ctx, p.DocumentID, p.NewContent, email)
	if err != nil {
		return err
	}

	room := SessionRoom(sessionID)
	g.hub.Broadcast(room, EventDocumentUpdated, doc)
	g.hub.Broadcast(room, EventVersionCreated, version)
	return nil
}

func (g *Gateway) handleApplyVersion(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[applyVersionPayload](data)
	if err != nil {
		return err
	}
	sessionID, _, err := g.sessionDocument(ctx, c, p.DocumentID)
	if err != nil {
		return err
	}
	email, err := g.userEmail(ctx, c.UserID())
	if err != nil {
		return err
	}

	doc, version, err := g.documents.ApplyVersion(ctx, p.DocumentID, p.VersionID, email)
	if err != nil {
		return err
	}

	room := SessionRoom(sessionID)
	g.hub.Broadcast(room, EventDocumentUpdated, doc)
	g.hub.Broadcast(room, EventVersionCreated, version)
	return nil
}

// handleGetDocument answers missing and foreign documents with invalidDocument
// to the caller instead of an error
func (g *Gateway) handleGetDocument(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[documentIDPayload](data)
	if err != nil {
		return err
	}
	sessionID, err := g.resolver.SessionIDOrError(c)
	if err != nil {
		return err
	}

	doc, err := g.documents.GetDocument(ctx, p.DocumentID)
	if err != nil {
		if IsNotFound(err) {
			c.Emit(EventInvalidDocument, invalidDocumentPayload{Message: msgDocumentNotFound, DocumentID: p.DocumentID})
			return nil
		}
		return err
	}
	if doc.SessionID != sessionID {
		c.Emit(EventInvalidDocument, invalidDocumentPayload{Message: msgDocumentNotInScope, DocumentID: p.DocumentID})
		return nil
	}

	c.Emit(EventDocumentData, doc)
	c.Emit(EventLastEditedDocument, doc)
	return nil
}

func (g *Gateway) handleGetDocumentAiUsage(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[documentIDPayload](data)
	if err != nil {
		return err
	}
	sessionID, _, err := g.sessionDocument(ctx, c, p.DocumentID)
	if err != nil {
		return err
	}

	usage, err := g.ai.DocumentUsage(ctx, p.DocumentID)
	if err != nil {
		return err
	}

	g.hub.Broadcast(SessionRoom(sessionID), EventDocumentAiUsage, usage)
	return nil
}

func (g *Gateway) handleCreateDocumentAiUsage(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[createAiUsagePayload](data)
	if err != nil {
		return err
	}
	sessionID, _, err := g.sessionDocument(ctx, c, p.DocumentID)
	if err != nil {
		return err
	}

	usage, err := g.ai.ExecuteTool(ctx, c.UserID(), ai.Request{
		ToolName:       p.ToolName,
		Text:           p.Text,
		DocumentID:     p.DocumentID,
		SessionID:      sessionID,
		TargetLanguage: p.TargetLanguage,
	})
	if err != nil {
		return err
	}

	g.hub.Broadcast(SessionRoom(sessionID), EventDocumentAiUsageCreated, usage)
	return nil
}

func (g *Gateway) handleGetVersions(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[documentIDPayload](data)
	if err != nil {
		return err
	}
	if _, _, err := g.sessionDocument(ctx, c, p.DocumentID); err != nil {
		return err
	}

	versions, err := g.documents.Versions(ctx, p.DocumentID)
	if err != nil {
		return err
	}

	c.Emit(EventVersionsData, versions)
	return nil
}

func (g *Gateway) handleGetSessionDocuments(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[sessionIDPayload](data)
	if err != nil {
		return err
	}
	sessionID := p.SessionID
	if sessionID == 0 {
		if sessionID, err = g.resolver.SessionIDOrError(c); err != nil {
			return err
		}
	}

	docs, err := g.documents.SessionDocuments(ctx, sessionID)
	if err != nil {
		return err
	}

	c.Emit(EventSessionDocuments, docs)
	return nil
}
