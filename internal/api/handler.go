// Package api provides HTTP handlers for the datachat UI and API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashureev/datachat/internal/explorer"
	"github.com/ashureev/datachat/internal/identity"
	"github.com/ashureev/datachat/internal/session"
	"github.com/ashureev/datachat/internal/shared"
	"github.com/go-chi/chi/v5"
)

// Handler serves the page, the JSON API and chart files.
type Handler struct {
	svc      *explorer.Service
	chartDir string
}

// NewHandler creates a new Handler.
func NewHandler(svc *explorer.Service, chartDir string) *Handler {
	return &Handler{svc: svc, chartDir: chartDir}
}

// RegisterRoutes registers page, API and chart routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/select/database", h.SelectDatabaseForm)
	r.Post("/select/collection", h.SelectCollectionForm)
	r.Post("/ask", h.AskForm)

	r.Route("/api", func(r chi.Router) {
		r.Get("/databases", h.ListDatabases)
		r.Get("/collections", h.ListCollections)
		r.Get("/selection", h.GetSelection)
		r.Put("/selection", h.PutSelection)
		r.Get("/preview", h.GetPreview)
		r.Get("/transcript", h.GetTranscript)
		r.Post("/chat", h.PostChat)
	})

	r.Get("/charts/{name}", h.ServeChart)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// ErrorFrom writes err as a JSON error, with the status and kind derived from it.
func ErrorFrom(w http.ResponseWriter, err error) {
	status := shared.StatusCode(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "status", status, "kind", shared.Kind(err), "error", err)
	}
	JSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  shared.Kind(err),
	})
}

func sessionFrom(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess := identity.SessionFromContext(r.Context())
	if sess == nil {
		Error(w, http.StatusInternalServerError, "no session")
		return nil, false
	}
	return sess, true
}
