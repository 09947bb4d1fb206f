package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/database/dbtest"
	"github.com/jimdaga/studymate/internal/logging"
)

func TestCourseCodes(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.CreateUser(t, db, "catalog@example.com")
	svc := NewService(db, logging.Discard())
	ctx := context.Background()

	if _, err := svc.CreateCourseCode(ctx, user.ID, CourseCodeInput{Code: "CS101"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	} else if err.Error() != "Please enter both course code and name" {
		t.Errorf("unexpected message %q", err.Error())
	}

	row, err := svc.CreateCourseCode(ctx, user.ID, CourseCodeInput{Code: " cs101 ", Name: "Intro to Programming"})
	if err != nil {
		t.Fatalf("CreateCourseCode: %v", err)
	}
	if row.Code != "CS101" {
		t.Errorf("expected normalized code, got %q", row.Code)
	}

	if _, err := svc.CreateCourseCode(ctx, user.ID, CourseCodeInput{Code: "CS101", Name: "Again"}); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	if _, err := svc.CreateCourseCode(ctx, user.ID, CourseCodeInput{Code: "BIO200", Name: "Cell Biology"}); err != nil {
		t.Fatalf("CreateCourseCode: %v", err)
	}
	codes, err := svc.CourseCodes(ctx)
	if err != nil {
		t.Fatalf("CourseCodes: %v", err)
	}
	if len(codes) != 2 || codes[0].Code != "BIO200" {
		t.Errorf("unexpected codes %+v", codes)
	}
}

func TestAcademicYears(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.CreateUser(t, db, "years@example.com")
	svc := NewService(db, logging.Discard())
	ctx := context.Background()

	if _, err := svc.CreateAcademicYear(ctx, user.ID, AcademicYearInput{Year: " "}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	for _, y := range []string{"2024/2025", "2025/2026"} {
		if _, err := svc.CreateAcademicYear(ctx, user.ID, AcademicYearInput{Year: y}); err != nil {
			t.Fatalf("CreateAcademicYear %s: %v", y, err)
		}
	}
	if _, err := svc.CreateAcademicYear(ctx, user.ID, AcademicYearInput{Year: "2024/2025"}); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	years, err := svc.AcademicYears(ctx)
	if err != nil {
		t.Fatalf("AcademicYears: %v", err)
	}
	if len(years) != 2 || years[0].Year != "2025/2026" {
		t.Errorf("expected newest first, got %+v", years)
	}
}

func TestSubjects(t *testing.T) {
	db := dbtest.Open(t)
	admin := dbtest.CreateUser(t, db, "admin@example.com")
	svc := NewService(db, logging.Discard())
	ctx := context.Background()

	row, err := svc.CreateSubject(ctx, admin.ID, SubjectInput{Name: "Physics", Description: "Mechanics and waves"})
	if err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	if row.Description == nil || *row.Description != "Mechanics and waves" {
		t.Error("expected description to be stored")
	}
	if _, err := svc.CreateSubject(ctx, admin.ID, SubjectInput{Name: "Physics"}); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if _, err := svc.CreateSubject(ctx, admin.ID, SubjectInput{}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCatalogWritesRequireUser(t *testing.T) {
	svc := NewService(nil, logging.Discard())
	ctx := context.Background()

	if _, err := svc.CreateSubject(ctx, uuid.Nil, SubjectInput{Name: "x"}); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Errorf("subject: expected auth required, got %v", err)
	}
	if _, err := svc.CreateCourseCode(ctx, uuid.Nil, CourseCodeInput{Code: "x", Name: "y"}); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Errorf("course code: expected auth required, got %v", err)
	}
	if _, err := svc.CreateAcademicYear(ctx, uuid.Nil, AcademicYearInput{Year: "x"}); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Errorf("year: expected auth required, got %v", err)
	}
}
