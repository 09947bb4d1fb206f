package completion

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jimdaga/studymate/internal/apperr"
)

const maxRequestBytes = 64 << 10

var corsHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

// CORS allows the endpoint to be called from any origin.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodPost, http.MethodOptions},
		AllowHeaders:    corsHeaders,
		MaxAge:          12 * time.Hour,
	})
}

// Handler serves POST /chat-with-gemini. Responses are {"response": text}
// or {"error": message}.
type Handler struct {
	gateway *Gateway
	logger  *slog.Logger
}

func NewHandler(gateway *Gateway, logger *slog.Logger) *Handler {
	return &Handler{gateway: gateway, logger: logger}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.OPTIONS("/chat-with-gemini", h.Preflight)
	rg.POST("/chat-with-gemini", h.Chat)
}

// Preflight answers OPTIONS even when the request carries no Origin.
func (h *Handler) Preflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	c.Status(http.StatusOK)
}

func (h *Handler) Chat(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")

	if !h.gateway.Configured() {
		h.fail(c, apperr.Configuration(MessageConfigMissing))
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes))
	if err != nil {
		h.fail(c, apperr.Validation("Request body too large"))
		return
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		h.fail(c, apperr.Validation("Request body must be a JSON object"))
		return
	}
	if err := validateRequest(body); err != nil {
		h.fail(c, err)
		return
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		h.fail(c, apperr.Validation("Invalid request: "+err.Error()))
		return
	}

	text, err := h.gateway.Complete(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": text})
}

func (h *Handler) fail(c *gin.Context, err error) {
	msg := err.Error()
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		msg = appErr.Message
	}

	kind := apperr.KindOf(err)
	if kind == apperr.KindBackend || kind == apperr.KindConfiguration {
		h.logger.ErrorContext(c.Request.Context(), "chat-with-gemini failed", "kind", kind.String(), "error", err)
	}
	c.AbortWithStatusJSON(kind.Status(), gin.H{"error": msg})
}
