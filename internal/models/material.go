package models

import (
	"time"

	"github.com/google/uuid"
)

// FileType is the learning_material_type enum.
type FileType string

const (
	FileTypeNotes      FileType = "notes"
	FileTypeStudyGuide FileType = "study_guide"
	FileTypeSummary    FileType = "summary"
	FileTypeReference  FileType = "reference"
	FileTypeOther      FileType = "other"
)

// FileTypes lists the enum values in display order.
var FileTypes = []FileType{FileTypeNotes, FileTypeStudyGuide, FileTypeSummary, FileTypeReference, FileTypeOther}

// Valid reports whether t is one of the enum values.
func (t FileType) Valid() bool {
	for _, ft := range FileTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// LearningMaterial is an uploaded study document and its metadata.
// Readable by everyone; only the owner may delete it.
type LearningMaterial struct {
	Base
	Title       string    `gorm:"not null" json:"title"`
	Description *string   `json:"description"`
	Subject     string    `gorm:"not null;index" json:"subject"`
	CourseCode  *string   `gorm:"column:course_code" json:"course_code"`
	FileURL     string    `gorm:"column:file_url;not null" json:"file_url"`
	FileType    FileType  `gorm:"column:file_type;not null;default:'other'" json:"file_type"`
	FileSize    int64     `gorm:"column:file_size;not null" json:"file_size"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User        User      `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Downloads   int64     `gorm:"not null;default:0;check:downloads >= 0" json:"downloads"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MaterialRating holds one user's 1-5 rating of a material. At most one row per (material, user).
type MaterialRating struct {
	Base
	MaterialID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_material_ratings_material_user" json:"material_id"`
	Material   LearningMaterial `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	UserID     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_material_ratings_material_user;index" json:"user_id"`
	User       User             `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Rating     int              `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
}

// SavedMaterial is a bookmark. At most one row per (material, user).
type SavedMaterial struct {
	Base
	MaterialID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_saved_materials_material_user" json:"material_id"`
	Material   LearningMaterial `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	UserID     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_saved_materials_material_user;index" json:"user_id"`
	User       User             `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}
