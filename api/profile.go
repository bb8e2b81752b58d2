package api

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/garnizeh/marketplace/internal/catalog"
	"github.com/garnizeh/marketplace/internal/credits"
	"github.com/garnizeh/marketplace/internal/repair"
	"github.com/garnizeh/marketplace/internal/validation"
	"github.com/garnizeh/marketplace/pkg/models"
	"github.com/garnizeh/marketplace/pkg/repository"
)

type ProfileHandler struct {
	profiles repository.ProfileRepo
	repair   *repair.Repairer
	ledger   *credits.Ledger
	catalog  *catalog.Loader
	validate *validation.AppValidator
}

func NewProfileHandler(profiles repository.ProfileRepo, r *repair.Repairer, l *credits.Ledger, c *catalog.Loader) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, repair: r, ledger: l, catalog: c, validate: validation.New()}
}

// ProfileInput is the self-service part of a profile; nil means unchanged.
type ProfileInput struct {
	DisplayName *string   `json:"display_name" validate:"omitempty,min=1,max=100"`
	BrandName   *string   `json:"brand_name" validate:"omitempty,max=100"`
	Location    *string   `json:"location" validate:"omitempty,max=200"`
	Email       *string   `json:"email" validate:"omitempty,email"`
	Phone       *string   `json:"phone" validate:"omitempty,max=40"`
	Services    *[]string `json:"services" validate:"omitempty,max=20,dive,min=1,max=100"`
}

// GetMe returns the caller's profile, creating or completing it first.
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	p, err := h.repair.Ensure(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, p, http.StatusOK)
}

func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	var in ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Validate(in); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.repair.Ensure(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if in.Services != nil {
		services, err := h.checkServices(*in.Services)
		if err != nil {
			writeError(w, err)
			return
		}
		in.Services = &services
	}
	applyProfile(p, in)

	if err := h.profiles.UpdateProfile(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, p, http.StatusOK)
}

// checkServices accepts only catalogued categories once a catalog exists
// and rewrites each service to the catalog's spelling.
func (h *ProfileHandler) checkServices(services []string) ([]string, error) {
	known := h.catalog.Categories()
	if len(known) == 0 {
		return services, nil
	}
	out := make([]string, 0, len(services))
	for _, s := range services {
		i := slices.IndexFunc(known, func(k string) bool { return strings.EqualFold(k, strings.TrimSpace(s)) })
		if i < 0 {
			return nil, &models.ValidationError{Field: "services", Message: fmt.Sprintf("unknown category %q", s)}
		}
		out = append(out, known[i])
	}
	return out, nil
}

func applyProfile(p *models.Profile, in ProfileInput) {
	if in.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.BrandName != nil {
		p.BrandName = strings.TrimSpace(*in.BrandName)
	}
	if in.Location != nil {
		p.Location = strings.TrimSpace(*in.Location)
	}
	if in.Email != nil {
		p.Email = strings.TrimSpace(*in.Email)
	}
	if in.Phone != nil {
		p.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Services != nil {
		set := make(models.StringSet, 0, len(*in.Services))
		for _, s := range *in.Services {
			if s = strings.TrimSpace(s); !slices.Contains(set, s) {
				set = append(set, s)
			}
		}
		p.Services = set
	}
}

// Credits returns the calling professional's balance and plan.
func (h *ProfileHandler) Credits(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	bal, plan, err := h.ledger.Balance(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"credits": bal, "plan": plan}, http.StatusOK)
}
