package materials

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/database/dbtest"
	"github.com/jimdaga/studymate/internal/models"
)

func TestRateConvergesToLastValue(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "r1@example.com")
	userA := dbtest.CreateUser(t, db, "r2@example.com")
	svc := newTestService(t, db, newFakeStore(), nil)
	ctx := context.Background()
	m := createMaterial(t, db, owner.ID, materialFixture{title: "R"})

	for _, r := range []int{5, 1, 3} {
		if _, err := svc.Rate(ctx, userA.ID, m.ID, r); err != nil {
			t.Fatalf("Rate(%d): %v", r, err)
		}
	}

	got, err := svc.UserRating(ctx, userA.ID, m.ID)
	if err != nil {
		t.Fatalf("UserRating: %v", err)
	}
	if got == nil || *got != 3 {
		t.Errorf("expected rating 3, got %v", got)
	}

	var rows int64
	db.Model(&models.MaterialRating{}).Where("material_id = ? AND user_id = ?", m.ID, userA.ID).Count(&rows)
	if rows != 1 {
		t.Errorf("expected exactly one rating row, got %d", rows)
	}

	summary, err := svc.MaterialRating(ctx, m.ID)
	if err != nil {
		t.Fatalf("MaterialRating: %v", err)
	}
	if summary.Count != 1 || summary.Average != 3 {
		t.Errorf("expected 3/1, got %v/%d", summary.Average, summary.Count)
	}
}

func TestMaterialRatingAverage(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "a1@example.com")
	svc := newTestService(t, db, newFakeStore(), nil)
	ctx := context.Background()
	m := createMaterial(t, db, owner.ID, materialFixture{title: "Avg"})

	summary, err := svc.MaterialRating(ctx, m.ID)
	if err != nil {
		t.Fatalf("MaterialRating: %v", err)
	}
	if summary.Average != 0 || summary.Count != 0 {
		t.Errorf("expected 0/0 for unrated material, got %v/%d", summary.Average, summary.Count)
	}

	for i, r := range []int{5, 4, 2, 4} {
		u := dbtest.CreateUser(t, db, "rater"+string(rune('a'+i))+"@example.com")
		if _, err := svc.Rate(ctx, u.ID, m.ID, r); err != nil {
			t.Fatalf("Rate: %v", err)
		}
	}

	summary, _ = svc.MaterialRating(ctx, m.ID)
	if summary.Average != 3.75 || summary.Count != 4 {
		t.Errorf("expected 3.75/4, got %v/%d", summary.Average, summary.Count)
	}
}

func TestRateValidation(t *testing.T) {
	svc := newTestService(t, nil, newFakeStore(), nil)
	ctx := context.Background()

	if _, err := svc.Rate(ctx, uuid.Nil, uuid.New(), 3); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Errorf("expected auth required, got %v", err)
	}
	for _, r := range []int{0, 6, -1} {
		if _, err := svc.Rate(ctx, uuid.New(), uuid.New(), r); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("rating %d: expected validation error, got %v", r, err)
		}
	}
}

func TestRateUnknownMaterial(t *testing.T) {
	db := dbtest.Open(t)
	user := dbtest.CreateUser(t, db, "u@example.com")
	svc := newTestService(t, db, newFakeStore(), nil)

	if _, err := svc.Rate(context.Background(), user.ID, uuid.New(), 4); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSaveTwiceReportsAlreadySaved(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "s1@example.com")
	user := dbtest.CreateUser(t, db, "s2@example.com")
	svc := newTestService(t, db, newFakeStore(), nil)
	ctx := context.Background()
	m := createMaterial(t, db, owner.ID, materialFixture{title: "S"})

	if err := svc.Save(ctx, user.ID, m.ID); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	err := svc.Save(ctx, user.ID, m.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err.Error() != "You've already saved this material" {
		t.Errorf("unexpected message %q", err.Error())
	}

	var rows int64
	db.Model(&models.SavedMaterial{}).Count(&rows)
	if rows != 1 {
		t.Errorf("expected one saved row, got %d", rows)
	}

	saved, err := svc.IsSaved(ctx, user.ID, m.ID)
	if err != nil || !saved {
		t.Errorf("expected saved=true, got %v (%v)", saved, err)
	}
}

func TestUnsaveIsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "us1@example.com")
	user := dbtest.CreateUser(t, db, "us2@example.com")
	svc := newTestService(t, db, newFakeStore(), nil)
	ctx := context.Background()
	m := createMaterial(t, db, owner.ID, materialFixture{title: "U"})

	if err := svc.Unsave(ctx, user.ID, m.ID); err != nil {
		t.Errorf("Unsave of unsaved pair: %v", err)
	}
	if err := svc.Save(ctx, user.ID, m.ID); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := svc.Unsave(ctx, user.ID, m.ID); err != nil {
			t.Errorf("Unsave %d: %v", i, err)
		}
	}
	if saved, _ := svc.IsSaved(ctx, user.ID, m.ID); saved {
		t.Errorf("expected material to be unsaved")
	}
}

func TestAnonymousSaveChecks(t *testing.T) {
	// A nil database proves no query is issued.
	svc := newTestService(t, nil, newFakeStore(), nil)
	ctx := context.Background()

	if err := svc.Save(ctx, uuid.Nil, uuid.New()); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Errorf("expected auth required, got %v", err)
	}
	if err := svc.Unsave(ctx, uuid.Nil, uuid.New()); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Errorf("expected auth required, got %v", err)
	}
	saved, err := svc.IsSaved(ctx, uuid.Nil, uuid.New())
	if err != nil || saved {
		t.Errorf("expected false without error, got %v (%v)", saved, err)
	}
	rating, err := svc.UserRating(ctx, uuid.Nil, uuid.New())
	if err != nil || rating != nil {
		t.Errorf("expected nil rating without error, got %v (%v)", rating, err)
	}
}
