// Package ai runs AI text tools on document content through langchaingo
// and records every invocation.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/config"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	// ErrDisabled is returned when no model is configured
	ErrDisabled = errors.New("AI tools are not configured")
	// ErrEmptyResult is returned when the model produced no choice
	ErrEmptyResult = errors.New("AI tool returned no result")
)

// UsageStore persists tool invocations
type UsageStore interface {
	Create(ctx context.Context, usage *models.AiToolUsage) (*models.AiToolUsage, error)
	ListByDocument(ctx context.Context, documentID int64) ([]models.AiToolUsage, error)
}

// Request is one tool invocation on a document
type Request struct {
	ToolName       string
	Text           string
	DocumentID     int64
	SessionID      int64
	TargetLanguage string
}

// Service executes tools and keeps their history
type Service struct {
	llm     llms.Model
	usage   UsageStore
	timeout time.Duration
}

// NewService creates an AI facade; llm may be nil when no provider is configured
func NewService(llm llms.Model, usage UsageStore, timeout time.Duration) *Service {
	return &Service{llm: llm, usage: usage, timeout: timeout}
}

// NewModel builds the provider client named by cfg. It returns nil without
// error when the provider is disabled.
func NewModel(cfg config.AIConfig) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "none":
		return nil, nil
	case "openai":
		if cfg.APIKey == "" {
			slogging.Get().Warn("AI provider openai has no API key; AI tools are disabled")
			return nil, nil
		}
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}

// ExecuteTool runs a tool for userID and records the result
func (s *Service) ExecuteTool(ctx context.Context, userID int64, req Request) (*models.AiToolUsage, error) {
	logger := slogging.Get()

	tool, ok := LookupTool(req.ToolName)
	if !ok {
		return nil, fmt.Errorf("unknown AI tool: %s", req.ToolName)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("text is required")
	}
	if tool.RequiresTarget && strings.TrimSpace(req.TargetLanguage) == "" {
		return nil, fmt.Errorf("%s requires a target language", tool.Name)
	}
	if s.llm == nil {
		return nil, ErrDisabled
	}

	prompt, err := tool.Prompt(req.Text, req.TargetLanguage)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := s.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithTemperature(tool.Temperature))
	if err != nil {
		logger.Warn("AI tool %s failed for user %d: %v", tool.Name, userID, err)
		return nil, fmt.Errorf("AI tool %s failed: %w", tool.Name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrEmptyResult
	}
	logger.Debug("AI tool %s completed for user %d in %s", tool.Name, userID, time.Since(started))

	return s.usage.Create(ctx, &models.AiToolUsage{
		UserID:     userID,
		SessionID:  req.SessionID,
		DocumentID: req.DocumentID,
		ToolName:   tool.Name,
		SentText:   req.Text,
		Result:     strings.TrimSpace(resp.Choices[0].Content),
	})
}

// DocumentUsage returns a document's tool history
func (s *Service) DocumentUsage(ctx context.Context, documentID int64) ([]models.AiToolUsage, error) {
	return s.usage.ListByDocument(ctx, documentID)
}
