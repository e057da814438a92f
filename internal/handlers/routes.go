package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"jobtrack/internal/middleware"
)

// RegisterRoutes wires every endpoint onto the router. Login, the OAuth
// callback, and health stay outside the session middleware; the callback is
// protected by the state check instead.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.Use(middleware.LoggingMiddleware)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/oauth2callback", h.OAuthCallback).Methods(http.MethodGet)

	protected := r.NewRoute().Subrouter()
	protected.Use(h.auth.RequireAuth)

	protected.HandleFunc("/api/logout", h.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/oauth/authorize", h.OAuthAuthorize).Methods(http.MethodGet)

	protected.HandleFunc("/api/dashboard", h.Dashboard).Methods(http.MethodGet)
	protected.HandleFunc("/api/dashboard/summary", h.DashboardSummary).Methods(http.MethodGet)

	protected.HandleFunc("/api/jobs", h.ListJobs).Methods(http.MethodGet)
	protected.HandleFunc("/api/jobs", h.CreateJob).Methods(http.MethodPost)
	protected.HandleFunc("/api/jobs/{id:[0-9]+}", h.GetJob).Methods(http.MethodGet)
	protected.HandleFunc("/api/jobs/{id:[0-9]+}", h.UpdateJob).Methods(http.MethodPut)
	protected.HandleFunc("/api/jobs/{id:[0-9]+}", h.DeleteJob).Methods(http.MethodDelete)

	protected.HandleFunc("/api/tasks", h.ListTasks).Methods(http.MethodGet)
	protected.HandleFunc("/api/tasks", h.CreateTask).Methods(http.MethodPost)
	protected.HandleFunc("/api/tasks/{id:[0-9]+}", h.UpdateTask).Methods(http.MethodPut)
	protected.HandleFunc("/api/tasks/{id:[0-9]+}", h.DeleteTask).Methods(http.MethodDelete)
	protected.HandleFunc("/api/tasks/{id:[0-9]+}/toggle", h.ToggleTask).Methods(http.MethodPost)

	protected.HandleFunc("/api/maps/geocode/{placeID}", h.Geocode).Methods(http.MethodGet)
	protected.HandleFunc("/api/maps/distance", h.Distance).Methods(http.MethodGet)
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.sendJSONResponse(w, map[string]string{"status": "ok"})
}
