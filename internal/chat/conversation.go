package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/completion"
	"github.com/jimdaga/studymate/internal/models"
)

// State is where a user's conversation is in the send/reply cycle.
type State string

const (
	StateIdle               State = "idle"
	StateSending            State = "sending"
	StateAwaitingCompletion State = "awaiting_completion"
)

// Completer answers a chat prompt.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (string, error)
}

// SendRequest is a question from the user.
type SendRequest struct {
	Message    string     `json:"message"`
	Language   string     `json:"language"`
	SubjectID  *uuid.UUID `json:"subject_id"`
	DocumentID *uuid.UUID `json:"document_context"`
}

// Exchange is a persisted question and the assistant's reply.
type Exchange struct {
	Question models.ChatMessage `json:"question"`
	Answer   models.ChatMessage `json:"answer"`
}

// Conversation persists a question, asks the completer and persists the
// reply. Each user may have one send in flight at a time.
type Conversation struct {
	history   *History
	completer Completer
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]State
}

func NewConversation(history *History, completer Completer, logger *slog.Logger) *Conversation {
	return &Conversation{
		history:   history,
		completer: completer,
		logger:    logger.With("service", "chat"),
		inFlight:  make(map[uuid.UUID]State),
	}
}

// State reports the user's current state.
func (c *Conversation) State(userID uuid.UUID) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.inFlight[userID]; ok {
		return s
	}
	return StateIdle
}

// Send runs one exchange. When the completer fails the question stays in
// the log, no reply is stored and the error is returned.
func (c *Conversation) Send(ctx context.Context, userID uuid.UUID, req SendRequest) (*Exchange, error) {
	if userID == uuid.Nil {
		return nil, apperr.AuthRequired()
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, apperr.Validation("Message cannot be empty")
	}

	if !c.begin(userID) {
		return nil, apperr.Conflict("A message is already being sent")
	}
	defer c.finish(userID)

	question, err := c.history.Add(ctx, userID, NewMessage{
		Message:       req.Message,
		IsUserMessage: true,
		SubjectID:     req.SubjectID,
		DocumentID:    req.DocumentID,
	})
	if err != nil {
		return nil, err
	}

	c.transition(userID, StateAwaitingCompletion)

	answer, err := c.completer.Complete(ctx, completion.Request{
		Message:         req.Message,
		SubjectID:       req.SubjectID,
		DocumentContext: req.DocumentID,
		Language:        req.Language,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "no reply for chat message",
			"user_id", userID,
			"message_id", question.ID,
			"error", err,
		)
		return nil, err
	}

	reply, err := c.history.Add(ctx, userID, NewMessage{
		Message:       answer,
		IsUserMessage: false,
		SubjectID:     req.SubjectID,
		DocumentID:    req.DocumentID,
	})
	if err != nil {
		return nil, err
	}

	return &Exchange{Question: *question, Answer: *reply}, nil
}

func (c *Conversation) begin(userID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[userID]; busy {
		return false
	}
	c.inFlight[userID] = StateSending
	return true
}

func (c *Conversation) transition(userID uuid.UUID, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight[userID] = s
}

func (c *Conversation) finish(userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, userID)
}
