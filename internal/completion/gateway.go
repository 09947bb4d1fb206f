// Package completion forwards chat prompts to the generative model and
// exposes the chat-with-gemini endpoint.
package completion

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/prompts"
)

// MessageConfigMissing is reported when no API key is configured.
const MessageConfigMissing = "API key not configured"

// Generator produces model text for a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Configured() bool
}

// Request is a single chat completion request.
type Request struct {
	Message         string     `json:"message"`
	SubjectID       *uuid.UUID `json:"subject_id"`
	DocumentContext *uuid.UUID `json:"document_context"`
	Language        string     `json:"language"`
}

// Gateway builds prompts and forwards them to a Generator.
type Gateway struct {
	gen     Generator
	prompts *prompts.Config
	logger  *slog.Logger
}

func NewGateway(gen Generator, cfg *prompts.Config, logger *slog.Logger) *Gateway {
	return &Gateway{gen: gen, prompts: cfg, logger: logger.With("service", "completion")}
}

// Languages lists the languages the assistant can answer in.
func (g *Gateway) Languages() []prompts.Language {
	return g.prompts.Languages
}

// DefaultLanguage is the language that needs no explicit instruction.
func (g *Gateway) DefaultLanguage() string {
	return g.prompts.DefaultLanguage
}

// Configured reports whether a generator with credentials is attached.
func (g *Gateway) Configured() bool {
	return g.gen != nil && g.gen.Configured()
}

// Complete returns the model's answer to req.
func (g *Gateway) Complete(ctx context.Context, req Request) (string, error) {
	if !g.Configured() {
		return "", apperr.Configuration(MessageConfigMissing)
	}
	if strings.TrimSpace(req.Message) == "" {
		return "", apperr.Validation("Message is required")
	}

	prompt := g.prompts.Build(req.Message, req.SubjectID != nil, req.Language)

	text, err := g.gen.GenerateContent(ctx, prompt)
	if err != nil {
		g.logger.ErrorContext(ctx, "completion failed", "language", req.Language, "error", err)
		return "", apperr.Backend("Failed to get a response from the assistant", err)
	}

	g.logger.DebugContext(ctx, "completion succeeded",
		"language", req.Language,
		"has_subject", req.SubjectID != nil,
		"response_chars", len(text),
	)
	return text, nil
}
