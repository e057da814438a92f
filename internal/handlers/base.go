// Package handlers implements the HTTP API.
package handlers

import (
	"encoding/json"
	"net/http"

	"jobtrack/internal/auth"
	"jobtrack/internal/authflow"
	"jobtrack/internal/common/errors"
	"jobtrack/internal/common/logging"
	"jobtrack/internal/config"
	"jobtrack/internal/dashboard"
	"jobtrack/internal/jobs"
	"jobtrack/internal/maps"
	"jobtrack/internal/tasks"
)

// defaultIdentity names the credential owner when no session user is known.
const defaultIdentity = "default"

type Handlers struct {
	config    *config.Config
	auth      *auth.Auth
	flow      *authflow.Flow
	dashboard *dashboard.Service
	jobs      *jobs.Repo
	tasks     *tasks.Repo
	maps      *maps.Client
	logger    logging.Logger
}

func New(cfg *config.Config, authHandler *auth.Auth, flow *authflow.Flow,
	dashboardSvc *dashboard.Service, jobsRepo *jobs.Repo, tasksRepo *tasks.Repo,
	mapsClient *maps.Client) *Handlers {
	return &Handlers{
		config:    cfg,
		auth:      authHandler,
		flow:      flow,
		dashboard: dashboardSvc,
		jobs:      jobsRepo,
		tasks:     tasksRepo,
		maps:      mapsClient,
		logger:    logging.WithFields(logging.String("component", "handlers")),
	}
}

// identity returns the credential owner for this request.
func (h *Handlers) identity(r *http.Request) string {
	if username := r.Header.Get("X-Username"); username != "" {
		return username
	}
	return defaultIdentity
}

// sendJSONResponse writes data as a JSON body.
func (h *Handlers) sendJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", err)
	}
}

// sendJSONError logs the full error and returns only the user-safe message.
// Upstream provider bodies never reach the client this way.
func (h *Handlers) sendJSONError(w http.ResponseWriter, err error, logMsg, userMsg string, status int) {
	h.logger.Error(logMsg, err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": userMsg})
}

// sendAppError maps an application error onto an HTTP status with a
// user-safe message.
func (h *Handlers) sendAppError(w http.ResponseWriter, err error, logMsg string) {
	var (
		status  int
		userMsg string
	)

	switch errors.GetType(err) {
	case errors.ErrTypeValidation, errors.ErrTypeMissingCode:
		status, userMsg = http.StatusBadRequest, "Invalid request"
		if appErr, ok := err.(*errors.AppError); ok {
			userMsg = appErr.Message
		}
	case errors.ErrTypeStateMismatch:
		status, userMsg = http.StatusBadRequest, "Authorization state is invalid or expired, please try again"
	case errors.ErrTypeAuth:
		status, userMsg = http.StatusUnauthorized, "Authentication failed"
	case errors.ErrTypeNotFound:
		status, userMsg = http.StatusNotFound, "Not found"
	case errors.ErrTypeDuplicate:
		status, userMsg = http.StatusConflict, "Already exists"
	case errors.ErrTypeTokenExchange, errors.ErrTypeAuthorizationExpired:
		status, userMsg = http.StatusBadGateway, "Authorization with the mail provider failed, please reconnect"
	case errors.ErrTypeTransientProvider:
		status, userMsg = http.StatusServiceUnavailable, "Upstream service is temporarily unavailable"
	case errors.ErrTypeTimeout:
		status, userMsg = http.StatusGatewayTimeout, "Upstream service timed out"
	default:
		status, userMsg = http.StatusInternalServerError, "Internal server error"
	}

	h.sendJSONError(w, err, logMsg, userMsg, status)
}

// parseJSONRequest decodes the request body into dest.
func (h *Handlers) parseJSONRequest(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return errors.ValidationError("invalid JSON request body")
	}
	return nil
}
