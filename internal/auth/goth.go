package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	gorillasessions "github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/config"
	"github.com/jimdaga/studymate/internal/respond"
)

// InitProviders configures Goth's Google provider. Returns false when Google
// sign-in is not configured.
func InitProviders(cfg *config.Config, logger *slog.Logger) bool {
	// Gothic keeps its own gorilla store for OAuth state; the default has
	// Secure=true which breaks plain-HTTP localhost.
	gothStore := gorillasessions.NewCookieStore([]byte(cfg.SessionSecret))
	gothStore.Options = &gorillasessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = gothStore

	if cfg.GoogleClientID == "" {
		logger.Warn("GOOGLE_CLIENT_ID not set; Google sign-in is disabled")
		return false
	}

	goth.UseProviders(
		google.New(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleCallbackURL,
			"email",
			"profile",
		),
	)

	logger.Info("goth providers initialized", "providers", "google")
	return true
}

// OAuthHandler runs the Google sign-in redirect flow.
type OAuthHandler struct {
	svc         *Service
	frontendURL string
	logger      *slog.Logger
}

func NewOAuthHandler(svc *Service, frontendURL string, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{svc: svc, frontendURL: strings.TrimRight(frontendURL, "/"), logger: logger}
}

// Register mounts /google/login and /google/callback on rg (normally /auth).
func (h *OAuthHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/google/login", h.Login)
	rg.GET("/google/callback", h.Callback)
}

// Login initiates the Google OAuth flow
func (h *OAuthHandler) Login(c *gin.Context) {
	if _, err := goth.GetProvider("google"); err != nil {
		respond.Error(c, apperr.Configuration("Google sign-in is not configured"))
		return
	}

	// Gothic requires the "provider" query parameter
	q := c.Request.URL.Query()
	q.Set("provider", "google")
	c.Request.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// Callback completes the OAuth flow, upserts the user and starts a session.
func (h *OAuthHandler) Callback(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("provider", "google")
	c.Request.URL.RawQuery = q.Encode()

	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		h.logger.Warn("oauth callback failed", "error", err)
		c.Redirect(http.StatusFound, h.frontendURL+"/auth?error=auth_failed")
		return
	}

	user, err := h.svc.UpsertOAuthUser(c.Request.Context(), gothUser)
	if err != nil {
		h.logger.Error("oauth user upsert failed", "error", err, "email", gothUser.Email)
		c.Redirect(http.StatusFound, h.frontendURL+"/auth?error=auth_failed")
		return
	}

	session, err := h.svc.StartSession(c.Request.Context(), user, c.Request.UserAgent())
	if err != nil {
		h.logger.Error("oauth session start failed", "error", err, "user_id", user.ID)
		c.Redirect(http.StatusFound, h.frontendURL+"/auth?error=session_failed")
		return
	}

	cookie := sessions.Default(c)
	cookie.Set(SessionTokenKey, session.AccessToken)
	if err := cookie.Save(); err != nil {
		h.logger.Error("session save failed", "error", err)
		c.Redirect(http.StatusFound, h.frontendURL+"/auth?error=session_failed")
		return
	}

	c.Redirect(http.StatusFound, h.frontendURL+"/dashboard")
}
