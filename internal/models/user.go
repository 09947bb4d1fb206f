package models

import (
	"time"

	"github.com/google/uuid"
)

// Role values
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account. Password sign-in users carry a bcrypt hash;
// Google sign-in users have an AuthIdentity instead.
type User struct {
	Base
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null;default:''" json:"-"`
	Role         string     `gorm:"not null;default:'user'" json:"role"` // enum: 'user' or 'admin'
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Profile is the user-editable public profile plus server-side copies of the
// client preferences.
type Profile struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"` // same as users.id
	FullName          *string   `json:"full_name"`
	Username          *string   `gorm:"uniqueIndex" json:"username"`
	AvatarURL         *string   `gorm:"column:avatar_url" json:"avatar_url"`
	Theme             string    `gorm:"not null;default:'light'" json:"theme"`
	PreferredLanguage string    `gorm:"column:preferred_language;not null;default:'en'" json:"preferred_language"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
