package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ashureev/datachat/internal/domain"
	"github.com/ashureev/datachat/internal/explorer"
	"github.com/ashureev/datachat/internal/shared"
)

type selectionResponse struct {
	Selection domain.Selection `json:"selection"`
	Rows      int              `json:"rows"`
	Loaded    bool             `json:"loaded"`
}

// ListDatabases returns the store's databases.
func (h *Handler) ListDatabases(w http.ResponseWriter, r *http.Request) {
	dbs, err := h.svc.Databases(r.Context())
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string][]string{"databases": nonNil(dbs)})
}

// ListCollections returns the collections of the selected database.
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	colls, err := h.svc.Collections(r.Context(), sess)
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string][]string{"collections": nonNil(colls)})
}

// GetSelection returns the session's current selection.
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	ds := sess.Dataset()
	JSON(w, http.StatusOK, selectionResponse{Selection: sess.Selection(), Rows: ds.Len(), Loaded: ds != nil})
}

// PutSelection changes the database and optionally the collection.
func (h *Handler) PutSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var req explorer.SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorFrom(w, fmt.Errorf("%w: invalid request body", shared.ErrInvalidInput))
		return
	}
	if err := h.svc.ApplySelection(r.Context(), sess, req); err != nil {
		ErrorFrom(w, err)
		return
	}

	ds := sess.Dataset()
	JSON(w, http.StatusOK, selectionResponse{Selection: sess.Selection(), Rows: ds.Len(), Loaded: ds != nil})
}

// GetPreview returns the first rows of the session's dataset.
func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	preview := h.svc.Preview(sess)
	if preview == nil {
		ErrorFrom(w, fmt.Errorf("%w: no collection loaded", shared.ErrNotFound))
		return
	}
	JSON(w, http.StatusOK, preview)
}

// GetTranscript returns every entry of the session's conversation.
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	entries := make([]entryView, 0, sess.Transcript().Len())
	for e := range sess.Transcript().Entries() {
		entries = append(entries, newEntryView(e))
	}
	JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// PostChat answers one question and returns the new entry.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var req explorer.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorFrom(w, fmt.Errorf("%w: invalid request body", shared.ErrInvalidInput))
		return
	}

	entry, err := h.svc.Ask(r.Context(), sess, req.Message)
	if err != nil {
		ErrorFrom(w, err)
		return
	}
	JSON(w, http.StatusOK, newEntryView(entry))
}

// entryView adds the browser URL of image responses.
type entryView struct {
	domain.ConversationEntry
	ImageURL string `json:"image_url,omitempty"`
}

func newEntryView(e domain.ConversationEntry) entryView {
	v := entryView{ConversationEntry: e}
	if e.Response.Kind == domain.ResponseImage {
		v.ImageURL = chartURL(e.Response.ImagePath)
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
