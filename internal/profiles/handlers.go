package profiles

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/studymate/internal/auth"
	"github.com/jimdaga/studymate/internal/respond"
)

// Handler serves /api/profile.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
}

func (h *Handler) Get(c *gin.Context) {
	profile, err := h.svc.Get(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, profile)
}

func (h *Handler) Update(c *gin.Context) {
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.BadRequest(c, "Invalid request body")
		return
	}

	profile, err := h.svc.Update(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, profile)
}
