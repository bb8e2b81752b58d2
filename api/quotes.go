package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/marketplace/internal/lifecycle"
	"github.com/garnizeh/marketplace/internal/matching"
)

type QuotesHandler struct {
	ctl      *lifecycle.Controller
	matching *matching.Service
}

func NewQuotesHandler(ctl *lifecycle.Controller, m *matching.Service) *QuotesHandler {
	return &QuotesHandler{ctl: ctl, matching: m}
}

func (h *QuotesHandler) SubmitQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	var in lifecycle.QuoteInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	q, err := h.ctl.SubmitQuote(r.Context(), mux.Vars(r)["id"], id.UserID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, q, http.StatusCreated)
}

func (h *QuotesHandler) ListJobQuotes(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	quotes, err := h.ctl.ListJobQuotes(r.Context(), mux.Vars(r)["id"], id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"quotes": quotes}, http.StatusOK)
}

func (h *QuotesHandler) ListMyQuotes(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	quotes, err := h.ctl.ListProfessionalQuotes(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"quotes": quotes}, http.StatusOK)
}

func (h *QuotesHandler) AcceptQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	job, q, err := h.ctl.AcceptQuote(r.Context(), mux.Vars(r)["id"], id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"job": job, "quote": q}, http.StatusOK)
}

func (h *QuotesHandler) RejectQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	q, err := h.ctl.RejectQuote(r.Context(), mux.Vars(r)["id"], id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, q, http.StatusOK)
}

// ListMatches ranks quotable jobs for the calling professional. Pass
// ?order=oldest to break score ties oldest first.
func (h *QuotesHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	oldest := r.URL.Query().Get("order") == "oldest"
	matches, err := h.matching.ListMatches(r.Context(), id.UserID, oldest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"matches": matches}, http.StatusOK)
}
