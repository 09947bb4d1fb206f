package profiles

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/auth"
	"github.com/jimdaga/studymate/internal/database/dbtest"
	"github.com/jimdaga/studymate/internal/logging"
	"github.com/jimdaga/studymate/internal/prompts"
	"github.com/jimdaga/studymate/internal/validation"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *[]auth.Event) {
	t.Helper()
	db := dbtest.Open(t)
	events := auth.NewEvents()
	var got []auth.Event
	events.Subscribe(func(_ context.Context, ev auth.Event) { got = append(got, ev) })
	return NewService(db, events, prompts.Default(), validation.New(), logging.Discard()), db, &got
}

func ptr(s string) *string { return &s }

func TestGetCreatesProfile(t *testing.T) {
	svc, db, _ := newTestService(t)
	user := dbtest.CreateUser(t, db, "profile@example.com")

	first, err := svc.Get(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first.ID != user.ID || first.Theme != "light" || first.PreferredLanguage != "en" {
		t.Errorf("unexpected new profile %+v", first)
	}

	second, err := svc.Get(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("second Get must return the existing profile")
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, db, events := newTestService(t)
	user := dbtest.CreateUser(t, db, "update@example.com")

	profile, err := svc.Update(context.Background(), user.ID, UpdateInput{
		FullName:          ptr("  Amina Njeri "),
		Username:          ptr("amina_n"),
		Theme:             ptr("dark"),
		PreferredLanguage: ptr("sw"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if *profile.FullName != "Amina Njeri" || *profile.Username != "amina_n" {
		t.Errorf("unexpected names %q %q", *profile.FullName, *profile.Username)
	}
	if profile.Theme != "dark" || profile.PreferredLanguage != "sw" {
		t.Errorf("unexpected preferences %+v", profile)
	}
	if len(*events) != 1 || (*events)[0].Type != auth.EventUserUpdated || (*events)[0].UserID != user.ID {
		t.Errorf("expected one USER_UPDATED event, got %+v", *events)
	}

	cleared, err := svc.Update(context.Background(), user.ID, UpdateInput{Username: ptr("")})
	if err != nil {
		t.Fatalf("clear username: %v", err)
	}
	if cleared.Username != nil {
		t.Errorf("expected username to be cleared, got %q", *cleared.Username)
	}
	if cleared.FullName == nil || *cleared.FullName != "Amina Njeri" {
		t.Error("untouched fields must be kept")
	}
}

func TestUpdateUsernameTaken(t *testing.T) {
	svc, db, _ := newTestService(t)
	alice := dbtest.CreateUser(t, db, "alice@example.com")
	bob := dbtest.CreateUser(t, db, "bob@example.com")

	if _, err := svc.Update(context.Background(), alice.ID, UpdateInput{Username: ptr("scholar")}); err != nil {
		t.Fatalf("Update alice: %v", err)
	}

	_, err := svc.Update(context.Background(), bob.ID, UpdateInput{Username: ptr("scholar")})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err.Error() != "Username already taken" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestUpdateValidation(t *testing.T) {
	svc, db, events := newTestService(t)
	user := dbtest.CreateUser(t, db, "invalid@example.com")

	tests := []struct {
		name string
		in   UpdateInput
	}{
		{"username symbols", UpdateInput{Username: ptr("bad name!")}},
		{"username short", UpdateInput{Username: ptr("ab")}},
		{"theme", UpdateInput{Theme: ptr("sepia")}},
		{"empty theme", UpdateInput{Theme: ptr("")}},
		{"empty language", UpdateInput{PreferredLanguage: ptr("")}},
		{"avatar", UpdateInput{AvatarURL: ptr("not a url")}},
		{"language", UpdateInput{PreferredLanguage: ptr("de")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Update(context.Background(), user.ID, tt.in); !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
	if len(*events) != 0 {
		t.Errorf("rejected updates must not emit events, got %d", len(*events))
	}
}

func TestProfilesRequireUser(t *testing.T) {
	svc := NewService(nil, nil, prompts.Default(), validation.New(), logging.Discard())
	if _, err := svc.Get(context.Background(), uuid.Nil); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Errorf("Get: expected auth required, got %v", err)
	}
	if _, err := svc.Update(context.Background(), uuid.Nil, UpdateInput{}); !apperr.Is(err, apperr.KindAuthRequired) {
		t.Errorf("Update: expected auth required, got %v", err)
	}
}
