package catalog

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/studymate/internal/auth"
	"github.com/jimdaga/studymate/internal/models"
	"github.com/jimdaga/studymate/internal/respond"
)

// Handler serves the catalog lists under /api.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the routes. rg must run auth.OptionalAuth so that the
// admin check on subject creation can see the identity.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/subjects", h.ListSubjects)
	rg.POST("/subjects", auth.RequireRole(models.RoleAdmin), h.CreateSubject)
	rg.GET("/course-codes", h.ListCourseCodes)
	rg.POST("/course-codes", h.CreateCourseCode)
	rg.GET("/academic-years", h.ListAcademicYears)
	rg.POST("/academic-years", h.CreateAcademicYear)
}

func (h *Handler) ListSubjects(c *gin.Context) {
	rows, err := h.svc.Subjects(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, gin.H{"subjects": rows})
}

func (h *Handler) CreateSubject(c *gin.Context) {
	var in SubjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.BadRequest(c, "Invalid request body")
		return
	}
	row, err := h.svc.CreateSubject(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, row)
}

func (h *Handler) ListCourseCodes(c *gin.Context) {
	rows, err := h.svc.CourseCodes(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, gin.H{"course_codes": rows})
}

func (h *Handler) CreateCourseCode(c *gin.Context) {
	var in CourseCodeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.BadRequest(c, "Invalid request body")
		return
	}
	row, err := h.svc.CreateCourseCode(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, row)
}

func (h *Handler) ListAcademicYears(c *gin.Context) {
	rows, err := h.svc.AcademicYears(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, gin.H{"academic_years": rows})
}

func (h *Handler) CreateAcademicYear(c *gin.Context) {
	var in AcademicYearInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.BadRequest(c, "Invalid request body")
		return
	}
	row, err := h.svc.CreateAcademicYear(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Created(c, row)
}
