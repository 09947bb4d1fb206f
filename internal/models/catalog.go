package models

// Subject is a course subject users can chat about.
type Subject struct {
	Base
	Name        string  `gorm:"uniqueIndex;not null" json:"name"`
	Description *string `json:"description"`
}

// CourseCode pairs an institution course code with its name.
type CourseCode struct {
	Base
	Code string `gorm:"uniqueIndex;not null" json:"code"`
	Name string `gorm:"not null" json:"name"`
}

// AcademicYear is a label such as "2024/2025".
type AcademicYear struct {
	Base
	Year string `gorm:"uniqueIndex;not null" json:"year"`
}
