package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/marketplace/internal/lifecycle"
	"github.com/garnizeh/marketplace/pkg/models"
)

type JobsHandler struct {
	ctl *lifecycle.Controller
}

func NewJobsHandler(ctl *lifecycle.Controller) *JobsHandler {
	return &JobsHandler{ctl: ctl}
}

// actor returns the authenticated identity or writes a 401.
func actor(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	var in lifecycle.JobInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	job, err := h.ctl.CreateJob(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, job, http.StatusCreated)
}

func (h *JobsHandler) ListMyJobs(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	jobs, err := h.ctl.ListClientJobs(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"jobs": jobs}, http.StatusOK)
}

func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	job, err := h.ctl.GetJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, job, http.StatusOK)
}

func (h *JobsHandler) EditJob(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	var patch lifecycle.JobPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}

	job, err := h.ctl.EditJob(r.Context(), mux.Vars(r)["id"], id.UserID, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, job, http.StatusOK)
}

func (h *JobsHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.ctl.DeleteJob(r.Context(), mux.Vars(r)["id"], id.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type jobTransition func(ctx context.Context, jobID, clientID string) (*models.Job, error)

// Transition serves the close, archive and complete endpoints.
func (h *JobsHandler) Transition(op jobTransition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := actor(w, r)
		if !ok {
			return
		}
		job, err := op(r.Context(), mux.Vars(r)["id"], id.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, job, http.StatusOK)
	}
}

func (h *JobsHandler) Contact(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(w, r)
	if !ok {
		return
	}
	contact, err := h.ctl.ContactFor(r.Context(), mux.Vars(r)["id"], id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, contact, http.StatusOK)
}
