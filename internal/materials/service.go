// Package materials implements the learning-materials exchange: browsing,
// uploading, deleting and download counting, plus ratings and saves.
package materials

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/database"
	"github.com/jimdaga/studymate/internal/models"
	"github.com/jimdaga/studymate/internal/storage"
	"github.com/jimdaga/studymate/internal/validation"
)

// Service reads and writes learning materials.
type Service struct {
	db             *gorm.DB
	store          storage.Store
	bucket         string
	maxUploadBytes int64
	cleanup        FileCleanup
	validate       *validation.Validator
	logger         *slog.Logger
	now            func() time.Time
}

// Options configures a Service.
type Options struct {
	Bucket         string
	MaxUploadBytes int64
	// Cleanup retries storage removals that failed during Delete. Optional.
	Cleanup FileCleanup
}

func NewService(db *gorm.DB, store storage.Store, validate *validation.Validator, opts Options, logger *slog.Logger) *Service {
	return &Service{
		db:             db,
		store:          store,
		bucket:         opts.Bucket,
		maxUploadBytes: opts.MaxUploadBytes,
		cleanup:        opts.Cleanup,
		validate:       validate,
		logger:         logger.With("service", "materials"),
		now:            time.Now,
	}
}

// Fetch lists materials matching f, annotated with rating aggregates.
func (s *Service) Fetch(ctx context.Context, f Filter) ([]Material, error) {
	q := s.db.WithContext(ctx).Model(&models.LearningMaterial{})

	if f.Subject != "" {
		q = q.Where("subject = ?", f.Subject)
	}
	if f.FileType != "" {
		q = q.Where("file_type = ?", f.FileType)
	}
	if term := strings.TrimSpace(f.SearchQuery); term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		q = q.Where(searchCondition(s.db), like, like, like)
	}

	switch f.SortBy {
	case SortPopular, SortHighestRated:
		q = q.Order("downloads DESC").Order("created_at DESC")
	default:
		q = q.Order("created_at DESC")
	}

	var rows []models.LearningMaterial
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperr.Backend("Failed to load materials", fmt.Errorf("failed to query materials: %w", err))
	}

	out, err := s.annotate(ctx, rows)
	if err != nil {
		return nil, err
	}

	if f.SortBy == SortHighestRated {
		slices.SortStableFunc(out, func(a, b Material) int {
			return cmp.Or(
				cmp.Compare(b.AverageRating, a.AverageRating),
				cmp.Compare(b.RatingsCount, a.RatingsCount),
				cmp.Compare(b.Downloads, a.Downloads),
			)
		})
	}
	return out, nil
}

// Mine lists the user's own uploads, newest first.
func (s *Service) Mine(ctx context.Context, userID uuid.UUID) ([]Material, error) {
	if userID == uuid.Nil {
		return nil, apperr.AuthRequired()
	}

	var rows []models.LearningMaterial
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Backend("Failed to load your materials", fmt.Errorf("failed to query own materials: %w", err))
	}
	return s.annotate(ctx, rows)
}

// Saved lists the materials the user bookmarked, most recently saved first.
func (s *Service) Saved(ctx context.Context, userID uuid.UUID) ([]Material, error) {
	if userID == uuid.Nil {
		return nil, apperr.AuthRequired()
	}

	var rows []models.LearningMaterial
	err := s.db.WithContext(ctx).
		Select("learning_materials.*").
		Joins("JOIN saved_materials ON saved_materials.material_id = learning_materials.id").
		Where("saved_materials.user_id = ?", userID).
		Order("saved_materials.created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Backend("Failed to load saved materials", fmt.Errorf("failed to query saved materials: %w", err))
	}
	return s.annotate(ctx, rows)
}

// ByID returns one material. When viewer is signed in, UserRating carries
// their own rating if they rated it.
func (s *Service) ByID(ctx context.Context, id, viewer uuid.UUID) (*Material, error) {
	row, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	annotated, err := s.annotate(ctx, []models.LearningMaterial{*row})
	if err != nil {
		return nil, err
	}
	m := annotated[0]

	if viewer != uuid.Nil {
		rating, err := s.UserRating(ctx, viewer, id)
		if err != nil {
			return nil, err
		}
		m.UserRating = rating
	}
	return &m, nil
}

// Subjects lists the distinct subjects of all materials, sorted.
func (s *Service) Subjects(ctx context.Context) ([]string, error) {
	var subjects []string
	err := s.db.WithContext(ctx).
		Model(&models.LearningMaterial{}).
		Distinct("subject").
		Order("subject").
		Pluck("subject", &subjects).Error
	if err != nil {
		return nil, apperr.Backend("Failed to load subjects", fmt.Errorf("failed to query subjects: %w", err))
	}
	return subjects, nil
}

// Upload stores file and records its metadata. The size limit is enforced
// before anything is written.
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, in UploadInput, file File) (*Material, error) {
	if userID == uuid.Nil {
		return nil, apperr.AuthRequired()
	}
	if file.Size > s.maxUploadBytes {
		return nil, apperr.Validation(fmt.Sprintf("File size exceeds %s limit", formatLimit(s.maxUploadBytes)))
	}
	if file.Content == nil || file.Size <= 0 {
		return nil, apperr.Validation("Please select a file to upload", apperr.FieldError{Field: "file", Error: "file is required"})
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Subject = strings.TrimSpace(in.Subject)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if in.FileType == "" {
		in.FileType = models.FileTypeOther
	}
	if !in.FileType.Valid() {
		return nil, apperr.Validation("Invalid file type", apperr.FieldError{Field: "file_type", Error: "file_type is not a valid material type"})
	}

	path := s.objectPath(userID, file.Name)
	if err := s.store.Upload(ctx, path, file.Content, file.Size, file.ContentType); err != nil {
		return nil, apperr.Backend("Failed to upload file", fmt.Errorf("failed to store %s: %w", path, err))
	}

	row := models.LearningMaterial{
		Title:       in.Title,
		Description: optional(in.Description),
		Subject:     in.Subject,
		CourseCode:  optional(in.CourseCode),
		FileURL:     s.store.PublicURL(path),
		FileType:    in.FileType,
		FileSize:    file.Size,
		UserID:      userID,
		Downloads:   0,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		// The object is unreachable without its metadata row.
		if rmErr := s.store.Remove(context.WithoutCancel(ctx), path); rmErr != nil {
			s.logger.Warn("failed to remove orphaned upload", "path", path, "error", rmErr)
		}
		return nil, apperr.Backend("Failed to upload material", fmt.Errorf("failed to insert material: %w", err))
	}

	s.logger.Info("material uploaded", "material_id", row.ID, "user_id", userID, "size", file.Size)
	return &Material{LearningMaterial: row}, nil
}

// Delete removes the user's material, its stored file, ratings and saves.
// A failed file removal is logged and retried in the background; it does not
// block deleting the metadata.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil {
		return apperr.AuthRequired()
	}

	row, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if row.UserID != userID {
		return apperr.Forbidden("You can only delete your own materials")
	}

	s.removeFile(ctx, row)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("material_id = ?", id).Delete(&models.SavedMaterial{}).Error; err != nil {
			return fmt.Errorf("failed to delete saves: %w", err)
		}
		if err := tx.Where("material_id = ?", id).Delete(&models.MaterialRating{}).Error; err != nil {
			return fmt.Errorf("failed to delete ratings: %w", err)
		}
		if err := tx.Delete(&models.LearningMaterial{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete material: %w", err)
		}
		return nil
	})
	if err != nil {
		return apperr.Backend("Failed to delete material", err)
	}

	s.logger.Info("material deleted", "material_id", id, "user_id", userID)
	return nil
}

func (s *Service) removeFile(ctx context.Context, row *models.LearningMaterial) {
	path, err := storage.PathFromURL(row.FileURL, s.bucket)
	if err != nil {
		s.logger.Warn("cannot derive storage path", "material_id", row.ID, "file_url", row.FileURL, "error", err)
		return
	}

	err = s.store.Remove(ctx, path)
	if err == nil || errors.Is(err, storage.ErrObjectNotFound) {
		return
	}
	s.logger.Warn("failed to remove stored file", "material_id", row.ID, "path", path, "error", err)

	if s.cleanup == nil {
		return
	}
	if err := s.cleanup.EnqueueRemoveMaterialFile(context.WithoutCancel(ctx), path); err != nil {
		s.logger.Error("failed to enqueue file removal", "path", path, "error", err)
	}
}

// IncrementDownload bumps the download counter and returns the new value.
// On failure it returns the last known value instead of an error.
func (s *Service) IncrementDownload(ctx context.Context, id uuid.UUID) int64 {
	var prior int64
	err := s.db.WithContext(ctx).
		Model(&models.LearningMaterial{}).
		Select("downloads").
		Where("id = ?", id).
		Scan(&prior).Error
	if err != nil {
		s.logger.Warn("failed to read download count", "material_id", id, "error", err)
		return prior
	}

	result := s.db.WithContext(ctx).
		Model(&models.LearningMaterial{}).
		Where("id = ?", id).
		UpdateColumn("downloads", gorm.Expr("downloads + 1"))
	if result.Error != nil {
		s.logger.Warn("failed to increment downloads", "material_id", id, "error", result.Error)
		return prior
	}
	if result.RowsAffected == 0 {
		return prior
	}

	var current int64
	err = s.db.WithContext(ctx).
		Model(&models.LearningMaterial{}).
		Select("downloads").
		Where("id = ?", id).
		Scan(&current).Error
	if err != nil {
		return prior + 1
	}
	return current
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*models.LearningMaterial, error) {
	var row models.LearningMaterial
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Material not found")
	}
	if err != nil {
		return nil, apperr.Backend("Failed to load material", fmt.Errorf("failed to query material: %w", err))
	}
	return &row, nil
}

type ratingAggregate struct {
	MaterialID   uuid.UUID
	Average      float64
	RatingsCount int64
}

// annotate attaches rating aggregates with one grouped query.
func (s *Service) annotate(ctx context.Context, rows []models.LearningMaterial) ([]Material, error) {
	out := make([]Material, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}

	var aggs []ratingAggregate
	err := s.db.WithContext(ctx).
		Model(&models.MaterialRating{}).
		Select("material_id, AVG(rating) AS average, COUNT(*) AS ratings_count").
		Where("material_id IN ?", ids).
		Group("material_id").
		Scan(&aggs).Error
	if err != nil {
		return nil, apperr.Backend("Failed to load ratings", fmt.Errorf("failed to aggregate ratings: %w", err))
	}

	byID := make(map[uuid.UUID]ratingAggregate, len(aggs))
	for _, a := range aggs {
		byID[a.MaterialID] = a
	}
	for i, r := range rows {
		a := byID[r.ID]
		out[i] = Material{LearningMaterial: r, AverageRating: a.Average, RatingsCount: a.RatingsCount}
	}
	return out, nil
}

func (s *Service) objectPath(userID uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s/%d_%s%s", userID, s.now().UnixMilli(), random, ext)
}

// searchCondition matches a lowered LIKE pattern against title, description
// and subject. SQLite's LOWER folds ASCII letters only, so non-ASCII searches
// stay case-sensitive there; Postgres uses ILIKE.
func searchCondition(db *gorm.DB) string {
	if database.IsSQLite(db) {
		return `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\' OR LOWER(subject) LIKE ? ESCAPE '\')`
	}
	return `(title ILIKE ? ESCAPE '\' OR COALESCE(description, '') ILIKE ? ESCAPE '\' OR subject ILIKE ? ESCAPE '\')`
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func formatLimit(n int64) string {
	if n%(1024*1024) == 0 {
		return fmt.Sprintf("%dMB", n/(1024*1024))
	}
	return fmt.Sprintf("%d bytes", n)
}
