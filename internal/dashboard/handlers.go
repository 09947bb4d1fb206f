package dashboard

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/auth"
	"github.com/jimdaga/studymate/internal/respond"
)

// Handler serves /api/dashboard. Backend failures still answer 200 with
// empty data and a message for the client to show.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/activity", h.Activity)
	rg.GET("/stats", h.Stats)
}

func (h *Handler) Activity(c *gin.Context) {
	activity, err := h.svc.UserActivity(c.Request.Context(), auth.UserID(c))
	if err != nil {
		if !h.degrade(c, err) {
			return
		}
		respond.OK(c, gin.H{"activity": []Activity{}, "message": messageOf(err)})
		return
	}
	respond.OK(c, gin.H{"activity": activity})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.DashboardStats(c.Request.Context(), auth.UserID(c))
	if err != nil {
		if !h.degrade(c, err) {
			return
		}
		respond.OK(c, gin.H{"question_count": 0, "material_count": 0, "message": messageOf(err)})
		return
	}
	respond.OK(c, stats)
}

// degrade logs backend failures and reports whether the caller should answer
// with empty data. Other errors are written as usual.
func (h *Handler) degrade(c *gin.Context, err error) bool {
	if apperr.KindOf(err) != apperr.KindBackend {
		respond.Error(c, err)
		return false
	}
	h.logger.ErrorContext(c.Request.Context(), "dashboard query failed", "path", c.FullPath(), "error", err)
	return true
}

func messageOf(err error) string {
	if appErr, ok := apperr.As(err); ok && appErr.Message != "" {
		return appErr.Message
	}
	return "Failed to load dashboard data"
}
