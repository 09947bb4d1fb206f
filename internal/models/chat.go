package models

import (
	"github.com/google/uuid"
)

// ChatMessage is one entry of a user's append-only chat log.
type ChatMessage struct {
	Base
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User            User       `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Message         string     `gorm:"type:text;not null" json:"message"`
	IsUserMessage   bool       `gorm:"column:is_user_message;not null" json:"is_user_message"`
	SubjectID       *uuid.UUID `gorm:"type:uuid;index" json:"subject_id"`
	DocumentContext *uuid.UUID `gorm:"column:document_context;type:uuid" json:"document_context"`
}

func (ChatMessage) TableName() string { return "chat_history" }
