package materials

import (
	"context"
	"io"

	"github.com/jimdaga/studymate/internal/models"
)

// SortBy orders material listings.
type SortBy string

const (
	SortNewest       SortBy = "newest"
	SortPopular      SortBy = "popular"
	SortHighestRated SortBy = "highest_rated"
)

// ParseSortBy maps a query value to a SortBy, defaulting to newest.
func ParseSortBy(s string) SortBy {
	switch SortBy(s) {
	case SortPopular, SortHighestRated:
		return SortBy(s)
	default:
		return SortNewest
	}
}

// Filter narrows a material listing. Zero values mean "no filter".
type Filter struct {
	// Subject matches exactly.
	Subject string
	// FileType matches exactly.
	FileType models.FileType
	// SearchQuery is a case-insensitive substring matched against title,
	// description or subject.
	SearchQuery string
	SortBy      SortBy
}

// Material is a learning material annotated with its rating aggregate.
type Material struct {
	models.LearningMaterial
	AverageRating float64 `json:"average_rating"`
	RatingsCount  int64   `json:"ratings_count"`
	UserRating    *int    `json:"user_rating,omitempty"`
}

// RatingSummary is the mean and count of a material's ratings.
type RatingSummary struct {
	Average float64 `json:"average_rating"`
	Count   int64   `json:"ratings_count"`
}

// UploadInput is the metadata sent with an uploaded file.
type UploadInput struct {
	Title       string          `form:"title" json:"title" validate:"required,max=200"`
	Description string          `form:"description" json:"description" validate:"max=2000"`
	Subject     string          `form:"subject" json:"subject" validate:"required,max=100"`
	CourseCode  string          `form:"course_code" json:"course_code" validate:"max=50"`
	FileType    models.FileType `form:"file_type" json:"file_type"`
}

// File is the uploaded file content.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Content     io.Reader
}

// FileCleanup schedules a retried removal of a stored object.
type FileCleanup interface {
	EnqueueRemoveMaterialFile(ctx context.Context, path string) error
}
