// Package dashboard aggregates a user's recent activity and totals.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/models"
)

const (
	perSourceLimit = 5
	activityLimit  = 10
)

// ActivityType discriminates Activity entries.
type ActivityType string

const (
	ActivityQuestion ActivityType = "question"
	ActivityMaterial ActivityType = "material"
)

// Activity is one entry of the activity feed: a question the user asked or
// a material they uploaded. MaterialType is set only for materials.
type Activity struct {
	ID           uuid.UUID        `json:"id"`
	Type         ActivityType     `json:"type"`
	Content      string           `json:"content"`
	Timestamp    time.Time        `json:"timestamp"`
	MaterialType *models.FileType `json:"material_type,omitempty"`
}

// Stats are the user's totals.
type Stats struct {
	QuestionCount int64 `json:"question_count"`
	MaterialCount int64 `json:"material_count"`
}

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger.With("service", "dashboard")}
}

// UserActivity merges the user's latest questions and uploads, newest first.
func (s *Service) UserActivity(ctx context.Context, userID uuid.UUID) ([]Activity, error) {
	if userID == uuid.Nil {
		return nil, apperr.AuthRequired()
	}

	var questions []models.ChatMessage
	err := s.db.WithContext(ctx).
		Select("id", "message", "created_at").
		Where("user_id = ? AND is_user_message = ?", userID, true).
		Order("created_at DESC").
		Limit(perSourceLimit).
		Find(&questions).Error
	if err != nil {
		return nil, apperr.Backend("Failed to load dashboard data", fmt.Errorf("failed to query recent questions: %w", err))
	}

	var uploads []models.LearningMaterial
	err = s.db.WithContext(ctx).
		Select("id", "title", "created_at", "file_type").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(perSourceLimit).
		Find(&uploads).Error
	if err != nil {
		return nil, apperr.Backend("Failed to load dashboard data", fmt.Errorf("failed to query recent uploads: %w", err))
	}

	feed := make([]Activity, 0, len(questions)+len(uploads))
	for _, q := range questions {
		feed = append(feed, Activity{
			ID:        q.ID,
			Type:      ActivityQuestion,
			Content:   q.Message,
			Timestamp: q.CreatedAt,
		})
	}
	for _, m := range uploads {
		ft := m.FileType
		feed = append(feed, Activity{
			ID:           m.ID,
			Type:         ActivityMaterial,
			Content:      m.Title,
			Timestamp:    m.CreatedAt,
			MaterialType: &ft,
		})
	}

	slices.SortStableFunc(feed, func(a, b Activity) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if len(feed) > activityLimit {
		feed = feed[:activityLimit]
	}
	return feed, nil
}

// DashboardStats counts the user's questions and uploads.
func (s *Service) DashboardStats(ctx context.Context, userID uuid.UUID) (Stats, error) {
	if userID == uuid.Nil {
		return Stats{}, apperr.AuthRequired()
	}

	var stats Stats
	err := s.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("user_id = ? AND is_user_message = ?", userID, true).
		Count(&stats.QuestionCount).Error
	if err != nil {
		return Stats{}, apperr.Backend("Failed to load dashboard statistics", fmt.Errorf("failed to count questions: %w", err))
	}

	err = s.db.WithContext(ctx).
		Model(&models.LearningMaterial{}).
		Where("user_id = ?", userID).
		Count(&stats.MaterialCount).Error
	if err != nil {
		return Stats{}, apperr.Backend("Failed to load dashboard statistics", fmt.Errorf("failed to count uploads: %w", err))
	}
	return stats, nil
}
