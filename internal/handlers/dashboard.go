package handlers

import (
	"net/http"

	"jobtrack/internal/gmail"
	"jobtrack/internal/jobs"
	"jobtrack/internal/tasks"
)

type dashboardResponse struct {
	Emails           []gmail.Summary `json:"emails"`
	AuthorizationURL string          `json:"authorization_url,omitempty"`
}

// Dashboard returns the unread-mail section. When the mail account is not
// connected, the response carries the consent URL instead of messages.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	emails, authURL, err := h.dashboard.Unread(r.Context(), h.identity(r))
	if err != nil {
		h.sendAppError(w, err, "Failed to load dashboard")
		return
	}

	if emails == nil {
		emails = []gmail.Summary{}
	}
	h.sendJSONResponse(w, dashboardResponse{
		Emails:           emails,
		AuthorizationURL: authURL,
	})
}

type dashboardSummaryResponse struct {
	Contacted *jobs.ContactedCounts `json:"contacted"`
	Tasks     []*tasks.Task         `json:"tasks"`
}

// DashboardSummary returns the application-volume counters and the task
// list shown beside the unread mail.
func (h *Handlers) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	contacted, err := h.jobs.Contacted(r.Context())
	if err != nil {
		h.sendAppError(w, err, "Failed to load contacted counts")
		return
	}

	taskList, err := h.tasks.List(r.Context())
	if err != nil {
		h.sendAppError(w, err, "Failed to load tasks")
		return
	}
	if taskList == nil {
		taskList = []*tasks.Task{}
	}

	h.sendJSONResponse(w, dashboardSummaryResponse{
		Contacted: contacted,
		Tasks:     taskList,
	})
}
