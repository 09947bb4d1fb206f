package materials

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/models"
)

// Rate records the user's rating of a material. Repeated calls update the
// same row, so each (material, user) pair keeps exactly one rating.
func (s *Service) Rate(ctx context.Context, userID, materialID uuid.UUID, rating int) (*models.MaterialRating, error) {
	if userID == uuid.Nil {
		return nil, apperr.AuthRequired()
	}
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("Rating must be between 1 and 5", apperr.FieldError{Field: "rating", Error: "rating must be between 1 and 5"})
	}
	if err := s.ensureExists(ctx, materialID); err != nil {
		return nil, err
	}

	row := models.MaterialRating{MaterialID: materialID, UserID: userID, Rating: rating}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "material_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating"}),
	}).Create(&row).Error
	if err != nil {
		return nil, apperr.Backend("Failed to save rating", fmt.Errorf("failed to upsert rating: %w", err))
	}

	// On conflict the generated ID is not the stored one; reload the row.
	var stored models.MaterialRating
	err = s.db.WithContext(ctx).
		Where("material_id = ? AND user_id = ?", materialID, userID).
		First(&stored).Error
	if err != nil {
		return nil, apperr.Backend("Failed to save rating", fmt.Errorf("failed to reload rating: %w", err))
	}
	return &stored, nil
}

// UserRating returns the user's rating of the material, or nil when they
// have not rated it or are not signed in.
func (s *Service) UserRating(ctx context.Context, userID, materialID uuid.UUID) (*int, error) {
	if userID == uuid.Nil {
		return nil, nil
	}

	var row models.MaterialRating
	err := s.db.WithContext(ctx).
		Where("material_id = ? AND user_id = ?", materialID, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Backend("Failed to load rating", fmt.Errorf("failed to query rating: %w", err))
	}
	return &row.Rating, nil
}

// MaterialRating returns the mean and count of all ratings of a material.
// The mean is 0 when there are no ratings.
func (s *Service) MaterialRating(ctx context.Context, materialID uuid.UUID) (RatingSummary, error) {
	var agg ratingAggregate
	err := s.db.WithContext(ctx).
		Model(&models.MaterialRating{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS ratings_count").
		Where("material_id = ?", materialID).
		Scan(&agg).Error
	if err != nil {
		return RatingSummary{}, apperr.Backend("Failed to load ratings", fmt.Errorf("failed to aggregate rating: %w", err))
	}
	if agg.RatingsCount == 0 {
		return RatingSummary{}, nil
	}
	return RatingSummary{Average: agg.Average, Count: agg.RatingsCount}, nil
}

// Save bookmarks a material. Saving twice is reported as a conflict.
func (s *Service) Save(ctx context.Context, userID, materialID uuid.UUID) error {
	if userID == uuid.Nil {
		return apperr.AuthRequired()
	}
	if err := s.ensureExists(ctx, materialID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Create(&models.SavedMaterial{MaterialID: materialID, UserID: userID}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("You've already saved this material")
	}
	if err != nil {
		return apperr.Backend("Failed to save material", fmt.Errorf("failed to insert save: %w", err))
	}
	return nil
}

// Unsave removes a bookmark. Removing a bookmark that does not exist succeeds.
func (s *Service) Unsave(ctx context.Context, userID, materialID uuid.UUID) error {
	if userID == uuid.Nil {
		return apperr.AuthRequired()
	}

	err := s.db.WithContext(ctx).
		Where("material_id = ? AND user_id = ?", materialID, userID).
		Delete(&models.SavedMaterial{}).Error
	if err != nil {
		return apperr.Backend("Failed to remove material from saved", fmt.Errorf("failed to delete save: %w", err))
	}
	return nil
}

// IsSaved reports whether the user bookmarked the material. Anonymous
// callers get false.
func (s *Service) IsSaved(ctx context.Context, userID, materialID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.SavedMaterial{}).
		Where("material_id = ? AND user_id = ?", materialID, userID).
		Count(&count).Error
	if err != nil {
		return false, apperr.Backend("Failed to check saved status", fmt.Errorf("failed to count saves: %w", err))
	}
	return count > 0, nil
}

func (s *Service) ensureExists(ctx context.Context, materialID uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.LearningMaterial{}).
		Where("id = ?", materialID).
		Count(&count).Error
	if err != nil {
		return apperr.Backend("Failed to load material", fmt.Errorf("failed to check material: %w", err))
	}
	if count == 0 {
		return apperr.NotFound("Material not found")
	}
	return nil
}
