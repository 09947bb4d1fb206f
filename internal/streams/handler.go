package streams

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jimdaga/studymate/internal/auth"
	"github.com/jimdaga/studymate/internal/models"
)

// HandleAuthEvent returns a handler applying the database side effects of auth events.
func HandleAuthEvent(db *gorm.DB, logger *slog.Logger) func(context.Context, AuthEvent) error {
	return func(ctx context.Context, ev AuthEvent) error {
		if ev.UserID == uuid.Nil {
			return fmt.Errorf("auth event %s has no user id", ev.Type)
		}

		switch auth.EventType(ev.Type) {
		case auth.EventSignedUp:
			// Profile rows are created once per user; replays are no-ops.
			profile := models.Profile{ID: ev.UserID, Theme: "light", PreferredLanguage: "en"}
			err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&profile).Error
			if err != nil {
				return fmt.Errorf("failed to create profile: %w", err)
			}
			logger.Info("profile ensured", "user_id", ev.UserID)

		case auth.EventSignedIn:
			at := ev.OccurredAt
			if at.IsZero() {
				at = time.Now().UTC()
			}
			err := db.WithContext(ctx).Model(&models.User{}).
				Where("id = ?", ev.UserID).
				Update("last_login_at", at).Error
			if err != nil {
				return fmt.Errorf("failed to record last login: %w", err)
			}

		case auth.EventSignedOut, auth.EventUserUpdated:
			logger.Info("auth event", "type", ev.Type, "user_id", ev.UserID, "session_id", ev.SessionID)

		default:
			return fmt.Errorf("unknown auth event type: %s", ev.Type)
		}

		return nil
	}
}
