package chat

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jimdaga/studymate/internal/auth"
	"github.com/jimdaga/studymate/internal/prompts"
	"github.com/jimdaga/studymate/internal/respond"
)

// Handler serves /api/chat.
type Handler struct {
	conversation *Conversation
	history      *History
	prompts      *prompts.Config
	logger       *slog.Logger
}

func NewHandler(conversation *Conversation, history *History, cfg *prompts.Config, logger *slog.Logger) *Handler {
	return &Handler{conversation: conversation, history: history, prompts: cfg, logger: logger}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/history", h.History)
	rg.POST("/messages", h.Send)
	rg.GET("/languages", h.Languages)
}

func (h *Handler) History(c *gin.Context) {
	var subjectID *uuid.UUID
	if raw := c.Query("subject_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respond.BadRequest(c, "Invalid subject_id")
			return
		}
		subjectID = &id
	}

	messages, err := h.history.Fetch(c.Request.Context(), auth.UserID(c), subjectID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, gin.H{"messages": messages})
}

func (h *Handler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Invalid request body")
		return
	}

	exchange, err := h.conversation.Send(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, exchange)
}

func (h *Handler) Languages(c *gin.Context) {
	respond.OK(c, gin.H{
		"languages": h.prompts.Languages,
		"default":   h.prompts.DefaultLanguage,
	})
}
