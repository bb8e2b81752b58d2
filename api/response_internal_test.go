package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/garnizeh/marketplace/pkg/models"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&models.ValidationError{Field: "category", Message: "required"}, http.StatusBadRequest, "validation_error"},
		{fmt.Errorf("%w: bad", models.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{fmt.Errorf("job x: %w", models.ErrNotFound), http.StatusNotFound, "not_found"},
		{models.ErrNotOwner, http.StatusForbidden, "not_owner"},
		{models.ErrContactLocked, http.StatusForbidden, "contact_locked"},
		{models.ErrForbidden, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("reserve: %w", models.ErrInsufficientCredits), http.StatusPaymentRequired, "insufficient_credits"},
		{models.ErrJobNotOpen, http.StatusConflict, "job_not_open"},
		{models.ErrDuplicateQuote, http.StatusConflict, "duplicate_quote"},
		{models.ErrAlreadyDecided, http.StatusConflict, "already_decided"},
		{models.ErrJobClosed, http.StatusConflict, "job_closed"},
		{models.ErrHasQuotes, http.StatusConflict, "has_quotes"},
		{models.ErrNoQuotes, http.StatusConflict, "no_quotes"},
		{models.ErrAlreadyTerminal, http.StatusConflict, "already_terminal"},
		{models.ErrConflict, http.StatusConflict, "conflict"},
		{fmt.Errorf("profile u: %w", models.ErrProfileInactive), http.StatusUnauthorized, "profile_inactive"},
		{models.ErrRetryable, http.StatusServiceUnavailable, "retry"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}
	for _, c := range cases {
		status, apiErr := mapError(c.err)
		if status != c.status || apiErr.Code != c.code {
			t.Fatalf("%v: got %d/%s, want %d/%s", c.err, status, apiErr.Code, c.status, c.code)
		}
	}
}

func TestWriteError_RetryAfterAndDetails(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, models.ErrRetryable)
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After on 503")
	}

	_, apiErr := mapError(&models.ValidationError{Field: "details.pages", Message: "must be >= 1"})
	if len(apiErr.Details) != 1 || apiErr.Details[0].Field != "details.pages" {
		t.Fatalf("expected field details, got %+v", apiErr.Details)
	}
}
