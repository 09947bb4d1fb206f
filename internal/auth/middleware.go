package auth

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/respond"
)

const (
	identityKey = "auth_identity"
	tokenKey    = "auth_token"

	// SessionTokenKey is the cookie-session key holding the bearer token.
	SessionTokenKey = "access_token"
)

// RequireAuth aborts with 401 unless the request carries a valid session token.
func RequireAuth(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			respond.Error(c, apperr.AuthRequired())
			return
		}

		identity, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			respond.Error(c, err)
			return
		}

		SetIdentity(c, identity)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := tokenFromRequest(c); token != "" {
			identity, err := svc.Authenticate(c.Request.Context(), token)
			switch {
			case err == nil:
				SetIdentity(c, identity)
				c.Set(tokenKey, token)
			case !apperr.Is(err, apperr.KindAuthRequired):
				svc.logger.WarnContext(c.Request.Context(), "session check failed, continuing anonymously",
					"path", c.Request.URL.Path, "error", err)
			}
		}
		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated identity has role.
// It must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			respond.Error(c, apperr.AuthRequired())
			return
		}
		if identity.Role != role {
			respond.Error(c, apperr.Forbidden("You do not have permission to do that"))
			return
		}
		c.Next()
	}
}

// SetIdentity attaches identity to the request context.
func SetIdentity(c *gin.Context, identity *Identity) {
	c.Set(identityKey, identity)
}

// IdentityFrom returns the request's identity, if any.
func IdentityFrom(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*Identity)
	return identity, ok && identity != nil
}

// UserID returns the signed-in user's ID, or uuid.Nil for anonymous requests.
func UserID(c *gin.Context) uuid.UUID {
	if identity, ok := IdentityFrom(c); ok {
		return identity.UserID
	}
	return uuid.Nil
}

func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}

	// Cookie sessions are only available when the sessions middleware ran.
	if _, ok := c.Get(sessions.DefaultKey); ok {
		if token, ok := sessions.Default(c).Get(SessionTokenKey).(string); ok {
			return token
		}
	}
	return ""
}
