package auth

import (
	"log/slog"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/respond"
)

// Handler serves the /api/auth endpoints.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the routes on rg (normally /api/auth).
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/signup", h.SignUp)
	rg.POST("/signin", h.SignIn)
	rg.POST("/signout", RequireAuth(h.svc), h.SignOut)
	rg.GET("/session", OptionalAuth(h.svc), h.Session)
}

// SignUp registers the user and signs them straight in.
func (h *Handler) SignUp(c *gin.Context) {
	var req Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.svc.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(c, err)
		return
	}

	session, err := h.svc.StartSession(c.Request.Context(), user, c.Request.UserAgent())
	if err != nil {
		respond.Error(c, err)
		return
	}

	h.storeToken(c, session.AccessToken)
	respond.Created(c, session)
}

func (h *Handler) SignIn(c *gin.Context) {
	var req Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Invalid request body")
		return
	}

	session, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password, c.Request.UserAgent())
	if err != nil {
		respond.Error(c, err)
		return
	}

	h.storeToken(c, session.AccessToken)
	respond.OK(c, session)
}

func (h *Handler) SignOut(c *gin.Context) {
	identity, _ := IdentityFrom(c)
	if err := h.svc.SignOut(c.Request.Context(), identity.SessionID); err != nil {
		respond.Error(c, err)
		return
	}

	if _, ok := c.Get(sessions.DefaultKey); ok {
		session := sessions.Default(c)
		session.Clear()
		if err := session.Save(); err != nil {
			h.logger.Warn("session clear failed", "error", err)
		}
	}

	respond.OK(c, gin.H{"message": "Signed out"})
}

// Session returns the current user, or a null session for anonymous callers.
func (h *Handler) Session(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		respond.OK(c, gin.H{"session": nil})
		return
	}

	user, err := h.svc.User(c.Request.Context(), identity.UserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			respond.OK(c, gin.H{"session": nil})
			return
		}
		respond.Error(c, err)
		return
	}

	respond.OK(c, gin.H{"session": gin.H{
		"session_id": identity.SessionID,
		"user":       user,
	}})
}

func (h *Handler) storeToken(c *gin.Context, token string) {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return
	}
	session := sessions.Default(c)
	session.Set(SessionTokenKey, token)
	if err := session.Save(); err != nil {
		h.logger.Warn("session save failed", "error", err)
	}
}

