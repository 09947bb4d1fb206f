// Package chat stores users' chat logs and runs the send/reply exchange
// with the completion gateway.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/models"
)

// History reads and appends chat_history rows.
type History struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewHistory(db *gorm.DB, logger *slog.Logger) *History {
	return &History{db: db, logger: logger.With("service", "chat_history")}
}

// NewMessage is a chat entry to append.
type NewMessage struct {
	Message       string
	IsUserMessage bool
	SubjectID     *uuid.UUID
	DocumentID    *uuid.UUID
}

// Fetch returns the user's messages in creation order, optionally limited to
// one subject.
func (h *History) Fetch(ctx context.Context, userID uuid.UUID, subjectID *uuid.UUID) ([]models.ChatMessage, error) {
	if userID == uuid.Nil {
		return nil, apperr.AuthRequired()
	}

	q := h.db.WithContext(ctx).Where("user_id = ?", userID)
	if subjectID != nil {
		q = q.Where("subject_id = ?", *subjectID)
	}

	var rows []models.ChatMessage
	if err := q.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, apperr.Backend("Failed to load chat history", fmt.Errorf("failed to query chat history: %w", err))
	}
	return rows, nil
}

// Add appends a message to the user's log and returns the stored row.
func (h *History) Add(ctx context.Context, userID uuid.UUID, m NewMessage) (*models.ChatMessage, error) {
	if userID == uuid.Nil {
		return nil, apperr.AuthRequired()
	}
	if strings.TrimSpace(m.Message) == "" {
		return nil, apperr.Validation("Message cannot be empty")
	}

	row := models.ChatMessage{
		UserID:          userID,
		Message:         m.Message,
		IsUserMessage:   m.IsUserMessage,
		SubjectID:       m.SubjectID,
		DocumentContext: m.DocumentID,
	}
	if err := h.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, apperr.Backend("Failed to save message", fmt.Errorf("failed to insert chat message: %w", err))
	}
	return &row, nil
}

// Transcript is an ordered, append-only view of a conversation. It is safe
// for concurrent use.
type Transcript struct {
	mu       sync.Mutex
	messages []models.ChatMessage
}

// NewTranscript starts a transcript from previously fetched messages.
func NewTranscript(messages []models.ChatMessage) *Transcript {
	return &Transcript{messages: append([]models.ChatMessage(nil), messages...)}
}

// Append adds messages after every earlier entry.
func (t *Transcript) Append(messages ...models.ChatMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, messages...)
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []models.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.ChatMessage(nil), t.messages...)
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
