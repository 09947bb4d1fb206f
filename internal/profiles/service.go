// Package profiles manages users' public profiles and stored preferences.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/auth"
	"github.com/jimdaga/studymate/internal/models"
	"github.com/jimdaga/studymate/internal/validation"
)

// LanguageSet reports whether a chat language code is supported.
type LanguageSet interface {
	Supports(code string) bool
}

// UpdateInput changes a profile. Nil fields are left untouched; an empty
// username or full name clears it.
type UpdateInput struct {
	FullName          *string `json:"full_name" validate:"omitempty,max=100"`
	Username          *string `json:"username" validate:"omitempty,min=3,max=30,alphanum_"`
	AvatarURL         *string `json:"avatar_url" validate:"omitempty,url,max=500"`
	Theme             *string `json:"theme" validate:"omitnil,oneof=light dark"`
	PreferredLanguage *string `json:"preferred_language" validate:"omitempty,max=16"`
}

type Service struct {
	db        *gorm.DB
	events    *auth.Events
	languages LanguageSet
	validate  *validation.Validator
	logger    *slog.Logger
}

func NewService(db *gorm.DB, events *auth.Events, languages LanguageSet, validate *validation.Validator, logger *slog.Logger) *Service {
	return &Service{
		db:        db,
		events:    events,
		languages: languages,
		validate:  validate,
		logger:    logger.With("service", "profiles"),
	}
}

// Get returns the user's profile, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, apperr.AuthRequired()
	}

	profile := models.Profile{ID: userID, Theme: "light", PreferredLanguage: "en"}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&profile).Error
	if err != nil {
		return nil, apperr.Backend("Failed to load profile", fmt.Errorf("failed to ensure profile: %w", err))
	}

	if err := s.db.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		return nil, apperr.Backend("Failed to load profile", fmt.Errorf("failed to load profile: %w", err))
	}
	return &profile, nil
}

// Update applies in to the user's profile and announces the change.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, in UpdateInput) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, apperr.AuthRequired()
	}

	in.FullName = trimmed(in.FullName)
	in.Username = trimmed(in.Username)
	in.AvatarURL = trimmed(in.AvatarURL)
	if err := s.validate.Struct(withoutClears(in)); err != nil {
		return nil, err
	}
	if in.PreferredLanguage != nil && s.languages != nil && !s.languages.Supports(*in.PreferredLanguage) {
		return nil, apperr.Validation("Unsupported language "+*in.PreferredLanguage,
			apperr.FieldError{Field: "preferred_language", Error: "preferred_language is not supported"})
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.FullName != nil {
		updates["full_name"] = nullable(*in.FullName)
	}
	if in.Username != nil {
		updates["username"] = nullable(*in.Username)
	}
	if in.AvatarURL != nil {
		updates["avatar_url"] = nullable(*in.AvatarURL)
	}
	if in.Theme != nil {
		updates["theme"] = *in.Theme
	}
	if in.PreferredLanguage != nil {
		updates["preferred_language"] = strings.ToLower(*in.PreferredLanguage)
	}
	if len(updates) == 0 {
		return profile, nil
	}

	err = s.db.WithContext(ctx).Model(profile).Updates(updates).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, apperr.Conflict("Username already taken")
	}
	if err != nil {
		return nil, apperr.Backend("Failed to update profile", fmt.Errorf("failed to update profile: %w", err))
	}

	if err := s.db.WithContext(ctx).First(profile, "id = ?", userID).Error; err != nil {
		return nil, apperr.Backend("Failed to update profile", fmt.Errorf("failed to reload profile: %w", err))
	}

	s.events.Emit(ctx, auth.Event{Type: auth.EventUserUpdated, UserID: userID})
	s.logger.InfoContext(ctx, "profile updated", "user_id", userID, "fields", len(updates))
	return profile, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// withoutClears drops empty values, which clear a field and need no
// validation.
func withoutClears(in UpdateInput) UpdateInput {
	for _, f := range []**string{&in.FullName, &in.Username, &in.AvatarURL} {
		if *f != nil && **f == "" {
			*f = nil
		}
	}
	return in
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
