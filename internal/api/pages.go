package api

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/ashureev/datachat/internal/session"
	"github.com/ashureev/datachat/web"
)

// Index renders the chat page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	data := web.PageData{
		Selection: sess.Selection(),
		Preview:   h.svc.Preview(sess),
		Notice:    sess.TakeNotice(),
	}
	for e := range sess.Transcript().Entries() {
		data.Entries = append(data.Entries, e)
	}

	dbs, err := h.svc.Databases(r.Context())
	if err != nil {
		data.Notice = joinNotice(data.Notice, "Could not list databases: "+err.Error())
	}
	data.Databases = dbs

	if data.Selection.HasDatabase() {
		colls, err := h.svc.Collections(r.Context(), sess)
		if err != nil {
			data.Notice = joinNotice(data.Notice, "Could not list collections: "+err.Error())
		}
		data.Collections = colls
	}

	var buf bytes.Buffer
	if err := web.RenderPage(&buf, data); err != nil {
		slog.Error("Failed to render page", "session_id", sess.ID, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("Failed to write page", "error", err)
	}
}

// SelectDatabaseForm handles the database select box.
func (h *Handler) SelectDatabaseForm(w http.ResponseWriter, r *http.Request) {
	h.handleForm(w, r, func(sess *session.Session) error {
		return h.svc.SelectDatabase(r.Context(), sess, r.PostFormValue("database"))
	})
}

// SelectCollectionForm handles the collection select box.
func (h *Handler) SelectCollectionForm(w http.ResponseWriter, r *http.Request) {
	h.handleForm(w, r, func(sess *session.Session) error {
		return h.svc.SelectCollection(r.Context(), sess, r.PostFormValue("collection"))
	})
}

// AskForm handles the question input.
func (h *Handler) AskForm(w http.ResponseWriter, r *http.Request) {
	h.handleForm(w, r, func(sess *session.Session) error {
		_, err := h.svc.Ask(r.Context(), sess, r.PostFormValue("message"))
		return err
	})
}

// handleForm runs action and redirects back to the page, carrying any
// error as a one-shot notice.
func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request, action func(*session.Session) error) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		sess.SetNotice("Invalid form submission")
	} else if err := action(sess); err != nil {
		sess.SetNotice(err.Error())
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func joinNotice(existing, msg string) string {
	if existing == "" {
		return msg
	}
	return existing + "\n" + msg
}
