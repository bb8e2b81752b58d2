package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/garnizeh/marketplace/pkg/models"
)

// APIError is the body of every error response.
type APIError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, apiErr := mapError(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, errorEnvelope{Error: apiErr}, status)
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &models.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

var policyErrors = []struct {
	err    error
	status int
	code   string
}{
	{models.ErrProfileInactive, http.StatusUnauthorized, "profile_inactive"},
	{models.ErrProfileMissing, http.StatusUnauthorized, "profile_inactive"},
	{models.ErrInsufficientCredits, http.StatusPaymentRequired, "insufficient_credits"},
	{models.ErrNotOwner, http.StatusForbidden, "not_owner"},
	{models.ErrContactLocked, http.StatusForbidden, "contact_locked"},
	{models.ErrForbidden, http.StatusForbidden, "forbidden"},
	{models.ErrNotFound, http.StatusNotFound, "not_found"},
	{models.ErrJobNotOpen, http.StatusConflict, "job_not_open"},
	{models.ErrDuplicateQuote, http.StatusConflict, "duplicate_quote"},
	{models.ErrAlreadyDecided, http.StatusConflict, "already_decided"},
	{models.ErrJobClosed, http.StatusConflict, "job_closed"},
	{models.ErrHasQuotes, http.StatusConflict, "has_quotes"},
	{models.ErrNoQuotes, http.StatusConflict, "no_quotes"},
	{models.ErrAlreadyTerminal, http.StatusConflict, "already_terminal"},
	{models.ErrConflict, http.StatusConflict, "conflict"},
	{models.ErrRetryable, http.StatusServiceUnavailable, "retry"},
	{models.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
}

func mapError(err error) (int, APIError) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, APIError{
			Code:    "validation_error",
			Message: "The request is invalid",
			Details: []FieldError{{Field: ve.Field, Message: ve.Message}},
		}
	}

	for _, pe := range policyErrors {
		if errors.Is(err, pe.err) {
			return pe.status, APIError{Code: pe.code, Message: pe.err.Error()}
		}
	}

	logger.Error("unhandled error", slog.Any("err", err))
	return http.StatusInternalServerError, APIError{
		Code:    "internal_error",
		Message: "An internal error occurred",
	}
}
