package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/marketplace/internal/catalog"
	"github.com/garnizeh/marketplace/internal/credits"
	"github.com/garnizeh/marketplace/pkg/models"
)

type AdminHandler struct {
	ledger  *credits.Ledger
	catalog *catalog.Loader
}

func NewAdminHandler(l *credits.Ledger, c *catalog.Loader) *AdminHandler {
	return &AdminHandler{ledger: l, catalog: c}
}

type grantRequest struct {
	Amount int `json:"amount"`
}

type planRequest struct {
	Plan models.Plan `json:"plan"`
}

type schemaRequest struct {
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

func (h *AdminHandler) GrantCredits(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	bal, err := h.ledger.Credit(r.Context(), mux.Vars(r)["id"], req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"credits": bal}, http.StatusOK)
}

func (h *AdminHandler) Refill(w http.ResponseWriter, r *http.Request) {
	bal, err := h.ledger.Refill(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"credits": bal, "mode": h.ledger.Mode()}, http.StatusOK)
}

func (h *AdminHandler) SetPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	bal, err := h.ledger.SetPlan(r.Context(), mux.Vars(r)["id"], req.Plan)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"credits": bal, "plan": req.Plan}, http.StatusOK)
}

func (h *AdminHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"categories": h.catalog.Categories()}, http.StatusOK)
}

// PutSchema stores the JSON Schema that job details of a category must satisfy.
func (h *AdminHandler) PutSchema(w http.ResponseWriter, r *http.Request) {
	var req schemaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Schema) == 0 {
		writeError(w, &models.ValidationError{Field: "schema", Message: "required"})
		return
	}
	s := &models.CategorySchema{
		Category:    mux.Vars(r)["category"],
		Description: req.Description,
		SchemaJSON:  string(req.Schema),
	}
	if err := h.catalog.Put(r.Context(), s); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s, http.StatusOK)
}
