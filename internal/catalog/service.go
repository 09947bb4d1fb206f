// Package catalog maintains the reference lists used when tagging
// materials and chats: subjects, course codes and academic years.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/models"
)

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger.With("service", "catalog")}
}

// SubjectInput creates a subject.
type SubjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CourseCodeInput creates a course code.
type CourseCodeInput struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// AcademicYearInput creates an academic year.
type AcademicYearInput struct {
	Year string `json:"year"`
}

func (s *Service) Subjects(ctx context.Context) ([]models.Subject, error) {
	var rows []models.Subject
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, apperr.Backend("Failed to load subjects", fmt.Errorf("failed to query subjects: %w", err))
	}
	return rows, nil
}

// CreateSubject adds a subject. Callers must check the admin role.
func (s *Service) CreateSubject(ctx context.Context, userID uuid.UUID, in SubjectInput) (*models.Subject, error) {
	if userID == uuid.Nil {
		return nil, apperr.AuthRequired()
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("Please enter a subject name")
	}

	row := models.Subject{Name: name}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		row.Description = &desc
	}
	if err := s.create(ctx, &row, "Subject already exists", "Failed to add subject"); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "subject added", "subject_id", row.ID, "user_id", userID)
	return &row, nil
}

func (s *Service) CourseCodes(ctx context.Context) ([]models.CourseCode, error) {
	var rows []models.CourseCode
	if err := s.db.WithContext(ctx).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, apperr.Backend("Failed to load course codes", fmt.Errorf("failed to query course codes: %w", err))
	}
	return rows, nil
}

func (s *Service) CreateCourseCode(ctx context.Context, userID uuid.UUID, in CourseCodeInput) (*models.CourseCode, error) {
	if userID == uuid.Nil {
		return nil, apperr.AuthRequired()
	}
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	name := strings.TrimSpace(in.Name)
	if code == "" || name == "" {
		return nil, apperr.Validation("Please enter both course code and name")
	}

	row := models.CourseCode{Code: code, Name: name}
	if err := s.create(ctx, &row, "Course code already exists", "Failed to add course code"); err != nil {
		return nil, err
	}
	return &row, nil
}

// AcademicYears lists years newest first.
func (s *Service) AcademicYears(ctx context.Context) ([]models.AcademicYear, error) {
	var rows []models.AcademicYear
	if err := s.db.WithContext(ctx).Order("year DESC").Find(&rows).Error; err != nil {
		return nil, apperr.Backend("Failed to load academic years", fmt.Errorf("failed to query academic years: %w", err))
	}
	return rows, nil
}

func (s *Service) CreateAcademicYear(ctx context.Context, userID uuid.UUID, in AcademicYearInput) (*models.AcademicYear, error) {
	if userID == uuid.Nil {
		return nil, apperr.AuthRequired()
	}
	year := strings.TrimSpace(in.Year)
	if year == "" {
		return nil, apperr.Validation("Please enter an academic year")
	}

	row := models.AcademicYear{Year: year}
	if err := s.create(ctx, &row, "Academic year already exists", "Failed to add academic year"); err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Service) create(ctx context.Context, row any, conflictMsg, failMsg string) error {
	err := s.db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(conflictMsg)
	}
	if err != nil {
		return apperr.Backend(failMsg, fmt.Errorf("failed to insert %T: %w", row, err))
	}
	return nil
}
