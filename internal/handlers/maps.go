package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Geocode proxies a place-id lookup to the maps provider.
func (h *Handlers) Geocode(w http.ResponseWriter, r *http.Request) {
	body, err := h.maps.Geocode(r.Context(), mux.Vars(r)["placeID"])
	if err != nil {
		h.sendAppError(w, err, "Geocode lookup failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// Distance proxies an origin/destination distance lookup.
func (h *Handlers) Distance(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	body, err := h.maps.Distance(r.Context(), query.Get("origin"), query.Get("destination"))
	if err != nil {
		h.sendAppError(w, err, "Distance lookup failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
