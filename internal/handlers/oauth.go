package handlers

import (
	"net/http"

	"jobtrack/internal/common/logging"
)

// OAuthAuthorize redirects the user to the provider's consent screen.
func (h *Handlers) OAuthAuthorize(w http.ResponseWriter, r *http.Request) {
	url, err := h.flow.AuthorizationURL(r.Context(), h.identity(r))
	if err != nil {
		h.sendAppError(w, err, "Failed to build authorization URL")
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// OAuthCallback completes the consent flow: the state token proves the
// callback belongs to an authorization this server started.
func (h *Handlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if provErr := query.Get("error"); provErr != "" {
		h.logger.Warn("Provider reported a consent error", logging.String("error", provErr))
		http.Redirect(w, r, "/?auth=denied", http.StatusFound)
		return
	}

	identity, err := h.flow.HandleCallback(r.Context(), query.Get("code"), query.Get("state"))
	if err != nil {
		h.sendAppError(w, err, "OAuth callback failed")
		return
	}

	h.logger.Info("Authorization callback completed", logging.String("identity", identity))
	http.Redirect(w, r, "/", http.StatusFound)
}
