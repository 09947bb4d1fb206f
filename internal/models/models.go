package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the UUID primary key and creation timestamp shared by every table.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// BeforeCreate assigns a random UUID when the caller did not set one.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// All lists every persisted model, in dependency order, for AutoMigrate in tests.
func All() []any {
	return []any{
		&User{},
		&AuthIdentity{},
		&AuthSession{},
		&Profile{},
		&Subject{},
		&CourseCode{},
		&AcademicYear{},
		&LearningMaterial{},
		&MaterialRating{},
		&SavedMaterial{},
		&ChatMessage{},
	}
}
