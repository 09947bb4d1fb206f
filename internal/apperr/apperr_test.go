package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("failed to save material: %w", Conflict("You've already saved this material"))

	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict, got %v", KindOf(err))
	}
	if !Is(err, KindConflict) {
		t.Errorf("expected Is(conflict) to be true")
	}
	appErr, ok := As(err)
	if !ok || appErr.Message != "You've already saved this material" {
		t.Errorf("unexpected extracted error: %#v", appErr)
	}
}

func TestUnclassifiedIsBackend(t *testing.T) {
	if KindOf(errors.New("boom")) != KindBackend {
		t.Errorf("expected plain errors to be backend errors")
	}
	if Is(nil, KindBackend) {
		t.Errorf("nil must not match any kind")
	}
}

func TestStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindAuthRequired:  http.StatusUnauthorized,
		KindValidation:    http.StatusBadRequest,
		KindConflict:      http.StatusConflict,
		KindNotFound:      http.StatusNotFound,
		KindForbidden:     http.StatusForbidden,
		KindConfiguration: http.StatusInternalServerError,
		KindBackend:       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.Status(); got != want {
			t.Errorf("%s: expected %d, got %d", kind, want, got)
		}
	}
}

func TestBackendUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Backend("failed to load materials", cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected backend error to unwrap to its cause")
	}
	if err.Error() != "failed to load materials" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
