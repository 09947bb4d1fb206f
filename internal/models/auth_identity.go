package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jimdaga/studymate/internal/crypto"
)

var sealer *crypto.Sealer

// InitEncryption initializes the token sealer for the models package.
// Without it, OAuth tokens are stored as given.
func InitEncryption(encryptionKey string) error {
	s, err := crypto.NewSealer(encryptionKey)
	if err != nil {
		return err
	}
	sealer = s
	return nil
}

// AuthIdentity links a user to an external OAuth identity with sealed token storage
type AuthIdentity struct {
	Base
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User           User           `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Provider       string         `gorm:"not null;uniqueIndex:idx_auth_identities_provider_user" json:"provider"` // e.g., "google"
	ProviderUserID string         `gorm:"not null;uniqueIndex:idx_auth_identities_provider_user" json:"provider_user_id"`
	AccessToken    string         `gorm:"type:text" json:"-"`
	RefreshToken   string         `gorm:"type:text" json:"-"`
	TokenExpiry    *time.Time     `json:"token_expiry,omitempty"`
	RawData        datatypes.JSON `json:"-"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// BeforeSave seals tokens before saving to database.
func (a *AuthIdentity) BeforeSave(tx *gorm.DB) error {
	if sealer == nil {
		return nil
	}

	var err error
	if a.AccessToken, err = sealer.Seal(a.AccessToken); err != nil {
		return err
	}
	if a.RefreshToken, err = sealer.Seal(a.RefreshToken); err != nil {
		return err
	}
	return nil
}

// AfterFind opens sealed tokens after loading from database
func (a *AuthIdentity) AfterFind(tx *gorm.DB) error {
	if sealer == nil {
		return nil
	}

	var err error
	if a.AccessToken, err = sealer.Open(a.AccessToken); err != nil {
		return err
	}
	if a.RefreshToken, err = sealer.Open(a.RefreshToken); err != nil {
		return err
	}
	return nil
}
