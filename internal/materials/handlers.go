package materials

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/auth"
	"github.com/jimdaga/studymate/internal/models"
	"github.com/jimdaga/studymate/internal/respond"
)

// multipartOverhead leaves room for form fields and boundaries beyond the file itself.
const multipartOverhead = 1 << 20

// Handler serves /api/materials. The group must run auth.OptionalAuth; the
// service rejects anonymous writes itself.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Upload)
	rg.GET("/subjects", h.Subjects)
	rg.GET("/:id", h.Get)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/download", h.Download)
	rg.GET("/:id/rating", h.GetRating)
	rg.PUT("/:id/rating", h.Rate)
	rg.GET("/:id/saved", h.IsSaved)
	rg.POST("/:id/save", h.Save)
	rg.DELETE("/:id/save", h.Unsave)
}

// List serves the three tabs of the materials page: all, mine and saved.
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)

	var (
		items []Material
		err   error
	)
	switch tab := c.DefaultQuery("tab", "all"); tab {
	case "all":
		filter, ferr := filterFromQuery(c)
		if ferr != nil {
			respond.Error(c, ferr)
			return
		}
		items, err = h.svc.Fetch(ctx, filter)
	case "mine":
		items, err = h.svc.Mine(ctx, userID)
	case "saved":
		items, err = h.svc.Saved(ctx, userID)
	default:
		respond.BadRequest(c, "Unknown tab "+tab)
		return
	}
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.OK(c, gin.H{"materials": items})
}

func filterFromQuery(c *gin.Context) (Filter, error) {
	f := Filter{
		SearchQuery: c.Query("q"),
		SortBy:      ParseSortBy(c.Query("sort")),
	}
	if subject := c.Query("subject"); subject != "" && subject != "all" {
		f.Subject = subject
	}
	if ft := c.Query("type"); ft != "" && ft != "all" {
		f.FileType = models.FileType(ft)
		if !f.FileType.Valid() {
			return Filter{}, apperr.Validation("Unknown material type " + ft)
		}
	}
	return f, nil
}

func (h *Handler) Subjects(c *gin.Context) {
	subjects, err := h.svc.Subjects(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, gin.H{"subjects": subjects})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := materialID(c)
	if !ok {
		return
	}

	m, err := h.svc.ByID(c.Request.Context(), id, auth.UserID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, m)
}

// Upload accepts a multipart form with a "file" part and the metadata fields.
func (h *Handler) Upload(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == uuid.Nil {
		respond.Error(c, apperr.AuthRequired())
		return
	}

	limit := h.svc.maxUploadBytes + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || c.Request.ContentLength > limit {
			respond.Error(c, apperr.Validation("File size exceeds "+formatLimit(h.svc.maxUploadBytes)+" limit"))
			return
		}
		respond.Error(c, apperr.Validation("Please select a file to upload", apperr.FieldError{Field: "file", Error: "file is required"}))
		return
	}

	var in UploadInput
	if err := c.ShouldBind(&in); err != nil {
		respond.BadRequest(c, "Invalid upload form")
		return
	}

	// Reject oversized files before opening them.
	if header.Size > h.svc.maxUploadBytes {
		respond.Error(c, apperr.Validation("File size exceeds "+formatLimit(h.svc.maxUploadBytes)+" limit"))
		return
	}

	f, err := header.Open()
	if err != nil {
		respond.Error(c, apperr.Backend("Failed to read uploaded file", err))
		return
	}
	defer f.Close()

	m, err := h.svc.Upload(c.Request.Context(), userID, in, File{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Content:     f,
	})
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, m)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := materialID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), auth.UserID(c), id); err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, gin.H{"deleted": true})
}

func (h *Handler) Download(c *gin.Context) {
	id, ok := materialID(c)
	if !ok {
		return
	}
	respond.OK(c, gin.H{"downloads": h.svc.IncrementDownload(c.Request.Context(), id)})
}

type rateRequest struct {
	Rating int `json:"rating"`
}

func (h *Handler) Rate(c *gin.Context) {
	id, ok := materialID(c)
	if !ok {
		return
	}

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	row, err := h.svc.Rate(ctx, auth.UserID(c), id, req.Rating)
	if err != nil {
		respond.Error(c, err)
		return
	}
	summary, err := h.svc.MaterialRating(ctx, id)
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.OK(c, gin.H{
		"user_rating":    row.Rating,
		"average_rating": summary.Average,
		"ratings_count":  summary.Count,
	})
}

func (h *Handler) GetRating(c *gin.Context) {
	id, ok := materialID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	summary, err := h.svc.MaterialRating(ctx, id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	userRating, err := h.svc.UserRating(ctx, auth.UserID(c), id)
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.OK(c, gin.H{
		"user_rating":    userRating,
		"average_rating": summary.Average,
		"ratings_count":  summary.Count,
	})
}

func (h *Handler) IsSaved(c *gin.Context) {
	id, ok := materialID(c)
	if !ok {
		return
	}

	saved, err := h.svc.IsSaved(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, gin.H{"saved": saved})
}

func (h *Handler) Save(c *gin.Context) {
	id, ok := materialID(c)
	if !ok {
		return
	}

	if err := h.svc.Save(c.Request.Context(), auth.UserID(c), id); err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, gin.H{"saved": true, "message": "Material saved"})
}

func (h *Handler) Unsave(c *gin.Context) {
	id, ok := materialID(c)
	if !ok {
		return
	}

	if err := h.svc.Unsave(c.Request.Context(), auth.UserID(c), id); err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, gin.H{"saved": false, "message": "Material removed from saved"})
}

func materialID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Error(c, apperr.NotFound("Material not found"))
		return uuid.Nil, false
	}
	return id, true
}
