package database

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/jimdaga/studymate/internal/models"
)

// DevUserEmail and DevUserPassword identify the seeded development account.
const (
	DevUserEmail    = "dev@studymate.local"
	DevUserPassword = "studymate-dev"
)

var seedSubjects = []string{"Mathematics", "Physics", "Chemistry", "Biology", "Computer Science", "History"}

var seedCourseCodes = []models.CourseCode{
	{Code: "MAT101", Name: "Calculus I"},
	{Code: "PHY110", Name: "Mechanics"},
	{Code: "CSC201", Name: "Data Structures"},
}

var seedAcademicYears = []string{"2023/2024", "2024/2025", "2025/2026"}

// SeedDevData populates the database with development data.
// Idempotent: skips if the dev user already exists.
func SeedDevData(db *gorm.DB, logger *slog.Logger) error {
	var existing models.User
	err := db.Where("email = ?", DevUserEmail).First(&existing).Error
	if err == nil {
		logger.Info("seed data already exists, skipping")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for seed data: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DevUserPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash dev password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		user := models.User{Email: DevUserEmail, PasswordHash: string(hash), Role: models.RoleAdmin}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		fullName, username := "Dev Student", "dev_student"
		profile := models.Profile{ID: user.ID, FullName: &fullName, Username: &username, Theme: "light", PreferredLanguage: "en"}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}

		for _, name := range seedSubjects {
			subject := models.Subject{Name: name}
			if err := tx.Where("name = ?", name).FirstOrCreate(&subject).Error; err != nil {
				return err
			}
		}
		for _, cc := range seedCourseCodes {
			cc := cc
			if err := tx.Where("code = ?", cc.Code).FirstOrCreate(&cc).Error; err != nil {
				return err
			}
		}
		for _, year := range seedAcademicYears {
			ay := models.AcademicYear{Year: year}
			if err := tx.Where("year = ?", year).FirstOrCreate(&ay).Error; err != nil {
				return err
			}
		}

		logger.Info("seeded dev data",
			"user", DevUserEmail,
			"subjects", len(seedSubjects),
			"course_codes", len(seedCourseCodes),
			"academic_years", len(seedAcademicYears),
		)
		return nil
	})
}
