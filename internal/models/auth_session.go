package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthSession is a server-side sign-in session. Bearer tokens reference it by
// ID so sign-out can revoke them before they expire.
type AuthSession struct {
	Base
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User       `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	UserAgent string     `gorm:"column:user_agent;not null;default:''" json:"user_agent"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the session can still authenticate requests at now.
func (s *AuthSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
