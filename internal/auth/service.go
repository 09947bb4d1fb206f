package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/markbates/goth"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/models"
	"github.com/jimdaga/studymate/internal/validation"
)

// revokedRetention is how long revoked sessions are kept before purging.
const revokedRetention = 24 * time.Hour

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID    uuid.UUID `json:"user_id"`
	SessionID uuid.UUID `json:"session_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

// Session is the result of a successful sign-in.
type Session struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	SessionID   uuid.UUID   `json:"-"`
	User        models.User `json:"user"`
}

// Credentials is the email/password pair used by sign-up and sign-in.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Service owns users, sign-in sessions and their bearer tokens.
type Service struct {
	db       *gorm.DB
	events   *Events
	validate *validation.Validator
	logger   *slog.Logger
	secret   []byte
	ttl      time.Duration
	hashCost int
	now      func() time.Time
}

func NewService(db *gorm.DB, events *Events, validate *validation.Validator, secret string, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		events:   events,
		validate: validate,
		logger:   logger.With("service", "auth"),
		secret:   []byte(secret),
		ttl:      ttl,
		hashCost: bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Events returns the hub the service emits on.
func (s *Service) Events() *Events {
	return s.events
}

// SignUp registers a password user.
func (s *Service) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	creds := Credentials{Email: normalizeEmail(email), Password: password}
	if err := s.validate.Struct(creds); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{Email: creds.Email, PasswordHash: string(hash), Role: models.RoleUser}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("User already registered")
		}
		return nil, apperr.Backend("Failed to create account", fmt.Errorf("failed to create user: %w", err))
	}

	s.logger.Info("user signed up", "user_id", user.ID)
	s.events.Emit(ctx, Event{Type: EventSignedUp, UserID: user.ID, Email: user.Email})
	return &user, nil
}

// SignIn verifies a password and starts a session.
func (s *Service) SignIn(ctx context.Context, email, password, userAgent string) (*Session, error) {
	creds := Credentials{Email: normalizeEmail(email), Password: password}
	if creds.Email == "" || creds.Password == "" {
		return nil, apperr.Validation("Email and password are required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", creds.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.AuthFailed("Invalid login credentials")
	}
	if err != nil {
		return nil, apperr.Backend("Failed to sign in", fmt.Errorf("failed to load user: %w", err))
	}

	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil {
		return nil, apperr.AuthFailed("Invalid login credentials")
	}

	return s.StartSession(ctx, &user, userAgent)
}

// StartSession records a session row for user and signs its bearer token.
func (s *Service) StartSession(ctx context.Context, user *models.User, userAgent string) (*Session, error) {
	now := s.now()
	row := models.AuthSession{
		UserID:    user.ID,
		UserAgent: truncate(userAgent, 255),
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, apperr.Backend("Failed to sign in", fmt.Errorf("failed to create session: %w", err))
	}

	token, err := s.signToken(user.ID, row.ID, now, row.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	s.logger.Info("user signed in", "user_id", user.ID, "session_id", row.ID)
	s.events.Emit(ctx, Event{Type: EventSignedIn, UserID: user.ID, Email: user.Email, SessionID: row.ID})

	return &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   row.ExpiresAt,
		SessionID:   row.ID,
		User:        *user,
	}, nil
}

// SignOut revokes the session. Revoking an unknown or already revoked
// session is not an error.
func (s *Service) SignOut(ctx context.Context, sessionID uuid.UUID) error {
	var row models.AuthSession
	err := s.db.WithContext(ctx).Where("id = ?", sessionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Backend("Failed to sign out", fmt.Errorf("failed to load session: %w", err))
	}
	if row.RevokedAt != nil {
		return nil
	}

	result := s.db.WithContext(ctx).Model(&models.AuthSession{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", s.now())
	if result.Error != nil {
		return apperr.Backend("Failed to sign out", fmt.Errorf("failed to revoke session: %w", result.Error))
	}

	if result.RowsAffected > 0 {
		s.logger.Info("user signed out", "user_id", row.UserID, "session_id", sessionID)
		s.events.Emit(ctx, Event{Type: EventSignedOut, UserID: row.UserID, SessionID: sessionID})
	}
	return nil
}

// Authenticate verifies a bearer token and its backing session.
func (s *Service) Authenticate(ctx context.Context, token string) (*Identity, error) {
	userID, sessionID, err := s.parseToken(token)
	if err != nil {
		return nil, apperr.AuthFailed("Invalid or expired session")
	}

	var row models.AuthSession
	err = s.db.WithContext(ctx).Preload("User").Where("id = ? AND user_id = ?", sessionID, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.AuthFailed("Invalid or expired session")
	}
	if err != nil {
		return nil, apperr.Backend("Failed to verify session", fmt.Errorf("failed to load session: %w", err))
	}
	if !row.Active(s.now()) {
		return nil, apperr.AuthFailed("Invalid or expired session")
	}

	return &Identity{
		UserID:    row.UserID,
		SessionID: row.ID,
		Email:     row.User.Email,
		Role:      row.User.Role,
	}, nil
}

// User loads a user by ID.
func (s *Service) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Backend("Failed to load user", err)
	}
	return &user, nil
}

// PurgeExpiredSessions deletes expired sessions and sessions revoked more
// than a day before now. It returns the number of rows removed.
func (s *Service) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", now, now.Add(-revokedRetention)).
		Delete(&models.AuthSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// UpsertOAuthUser finds or creates the user behind an OAuth identity and
// stores the provider tokens.
func (s *Service) UpsertOAuthUser(ctx context.Context, gu goth.User) (*models.User, error) {
	email := normalizeEmail(gu.Email)
	if email == "" {
		return nil, apperr.Validation("OAuth provider did not return an email address")
	}

	var (
		user    models.User
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var identity models.AuthIdentity
		err := tx.Where("provider = ? AND provider_user_id = ?", gu.Provider, gu.UserID).First(&identity).Error
		switch {
		case err == nil:
			if err := tx.First(&user, "id = ?", identity.UserID).Error; err != nil {
				return fmt.Errorf("failed to load user: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			err := tx.Where("email = ?", email).First(&user).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				user = models.User{Email: email, Role: models.RoleUser}
				if err := tx.Create(&user).Error; err != nil {
					return fmt.Errorf("failed to create user: %w", err)
				}
				created = true
			} else if err != nil {
				return fmt.Errorf("failed to load user: %w", err)
			}
		default:
			return fmt.Errorf("failed to load identity: %w", err)
		}

		raw, err := json.Marshal(gu.RawData)
		if err != nil {
			raw = []byte("{}")
		}
		identity = models.AuthIdentity{
			UserID:         user.ID,
			Provider:       gu.Provider,
			ProviderUserID: gu.UserID,
			AccessToken:    gu.AccessToken,
			RefreshToken:   gu.RefreshToken,
			RawData:        datatypes.JSON(raw),
		}
		if !gu.ExpiresAt.IsZero() {
			expiry := gu.ExpiresAt.UTC()
			identity.TokenExpiry = &expiry
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "token_expiry", "raw_data", "updated_at"}),
		}).Create(&identity).Error
	})
	if err != nil {
		return nil, apperr.Backend("Failed to sign in with Google", err)
	}

	if created {
		s.events.Emit(ctx, Event{Type: EventSignedUp, UserID: user.ID, Email: user.Email})
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
