package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"jobtrack/internal/jobs"
)

// ListJobs returns all applications in status-priority order.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	apps, err := h.jobs.List(r.Context())
	if err != nil {
		h.sendAppError(w, err, "Failed to list applications")
		return
	}
	if apps == nil {
		apps = []*jobs.Application{}
	}
	h.sendJSONResponse(w, apps)
}

// CreateJob inserts a new application.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var app jobs.Application
	if err := h.parseJSONRequest(r, &app); err != nil {
		h.sendAppError(w, err, "Failed to parse application")
		return
	}

	if err := h.jobs.Create(r.Context(), &app); err != nil {
		h.sendAppError(w, err, "Failed to create application")
		return
	}

	w.WriteHeader(http.StatusCreated)
	h.sendJSONResponse(w, app)
}

// GetJob returns one application.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	app, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		h.sendAppError(w, err, "Failed to get application")
		return
	}
	h.sendJSONResponse(w, app)
}

// UpdateJob rewrites an application.
func (h *Handlers) UpdateJob(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	var app jobs.Application
	if err := h.parseJSONRequest(r, &app); err != nil {
		h.sendAppError(w, err, "Failed to parse application")
		return
	}
	app.ID = id

	if err := h.jobs.Update(r.Context(), &app); err != nil {
		h.sendAppError(w, err, "Failed to update application")
		return
	}
	h.sendJSONResponse(w, app)
}

// DeleteJob removes an application.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	if err := h.jobs.Delete(r.Context(), id); err != nil {
		h.sendAppError(w, err, "Failed to delete application")
		return
	}
	h.sendJSONResponse(w, map[string]string{"status": "deleted"})
}
