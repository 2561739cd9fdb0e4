package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter registers the API routes.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/scan", h.Scan).Methods(http.MethodPost)
	api.HandleFunc("/load", h.Load).Methods(http.MethodPost)
	api.HandleFunc("/groups", h.Groups).Methods(http.MethodPost)
	api.HandleFunc("/preview", h.Preview).Methods(http.MethodPost)
	api.HandleFunc("/drives", h.Drives).Methods(http.MethodGet)
	api.HandleFunc("/relink", h.Relink).Methods(http.MethodPost)
	api.HandleFunc("/drive-swap", h.DriveSwap).Methods(http.MethodPost)
	api.HandleFunc("/backups", h.Backups).Methods(http.MethodGet)
	api.HandleFunc("/restore", h.Restore).Methods(http.MethodPost)
	api.HandleFunc("/history", h.History).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	return r
}
