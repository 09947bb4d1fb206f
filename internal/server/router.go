// Package server assembles the HTTP router from the feature handlers.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jimdaga/studymate/internal/auth"
	"github.com/jimdaga/studymate/internal/catalog"
	"github.com/jimdaga/studymate/internal/chat"
	"github.com/jimdaga/studymate/internal/completion"
	"github.com/jimdaga/studymate/internal/config"
	"github.com/jimdaga/studymate/internal/dashboard"
	"github.com/jimdaga/studymate/internal/health"
	"github.com/jimdaga/studymate/internal/materials"
	"github.com/jimdaga/studymate/internal/profiles"
	"github.com/jimdaga/studymate/internal/prompts"
	"github.com/jimdaga/studymate/internal/storage"
)

const (
	sessionCookieName = "studymate_session"
	functionsPrefix   = "/functions/v1"
)

// Deps are the services the router exposes.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *slog.Logger
	Store  storage.Store

	Auth      *auth.Service
	Materials *materials.Service
	History   *chat.History
	Chat      *chat.Conversation
	Gateway   *completion.Gateway
	Prompts   *prompts.Config
	Dashboard *dashboard.Service
	Profiles  *profiles.Service
	Catalog   *catalog.Service
}

// NewRouter builds the gin engine.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	logger := d.Logger

	r := gin.New()
	r.Use(
		Recovery(logger),
		RequestLogger(logger.With("component", "http")),
		corsByPrefix(functionsPrefix, completion.CORS(), APICORS(cfg.AllowedOrigins)),
	)

	r.GET("/health", gin.WrapF(health.Handler))
	r.GET("/ready", gin.WrapH(health.ReadyHandler(d.DB)))

	if local, ok := d.Store.(*storage.Local); ok {
		r.Static(storage.PublicPathPrefix+"/"+local.Bucket(), local.Dir())
	}

	functions := r.Group(functionsPrefix)
	completion.NewHandler(d.Gateway, logger).Register(functions)

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	withSession := sessions.Sessions(sessionCookieName, store)

	// Browser redirect flow for Google sign-in.
	oauth := r.Group("/auth", withSession)
	auth.NewOAuthHandler(d.Auth, cfg.FrontendURL, logger).Register(oauth)

	api := r.Group("/api", withSession)
	auth.NewHandler(d.Auth, logger).Register(api.Group("/auth"))

	authed := api.Group("", auth.OptionalAuth(d.Auth))
	materials.NewHandler(d.Materials, logger).Register(authed.Group("/materials"))
	chat.NewHandler(d.Chat, d.History, d.Prompts, logger).Register(authed.Group("/chat"))
	dashboard.NewHandler(d.Dashboard, logger).Register(authed.Group("/dashboard"))
	profiles.NewHandler(d.Profiles, logger).Register(authed.Group("/profile"))
	catalog.NewHandler(d.Catalog, logger).Register(authed)

	return r
}

// NewHTTPServer wraps handler with the listener timeouts used in every mode.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}
