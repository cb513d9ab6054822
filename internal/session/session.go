package session

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ashureev/datachat/internal/domain"
)

// Session is the state of one interactive user session.
type Session struct {
	ID        string
	CreatedAt time.Time

	transcript *Transcript

	mu        sync.Mutex
	selection domain.Selection
	dataset   *domain.Dataset
	notice    string

	// questions keeps one question in flight at a time.
	questions sync.Mutex
}

// New creates a session with an empty selection and a fresh transcript.
func New(id string) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  time.Now().UTC(),
		transcript: NewTranscript(),
	}
}

// Transcript returns the session's conversation log.
func (s *Session) Transcript() *Transcript {
	return s.transcript
}

// Selection returns the current database/collection choice.
func (s *Session) Selection() domain.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Dataset returns the dataset of the current selection, or nil.
func (s *Session) Dataset() *domain.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset
}

// SelectDatabase switches the database and clears the collection and dataset.
func (s *Session) SelectDatabase(database string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = domain.Selection{Database: database}
	s.dataset = nil
}

// SelectCollection records the collection and drops the previous dataset.
func (s *Session) SelectCollection(collection string) domain.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Collection = collection
	s.dataset = nil
	return s.selection
}

// SetDataset stores ds if sel is still the current selection.
// It reports whether the dataset was kept.
func (s *Session) SetDataset(sel domain.Selection, ds *domain.Dataset) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection != sel {
		return false
	}
	s.dataset = ds
	return true
}

// SetNotice stores a one-shot message for the next page render.
func (s *Session) SetNotice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = msg
}

// TakeNotice returns and clears the pending notice.
func (s *Session) TakeNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.notice
	s.notice = ""
	return msg
}

// LockQuestions blocks until no other question of this session is in
// flight. The returned func releases the lock.
func (s *Session) LockQuestions() func() {
	s.questions.Lock()
	return s.questions.Unlock
}

// Close removes the chart files produced for this session.
func (s *Session) Close() {
	removed := 0
	for e := range s.transcript.Entries() {
		if e.Response.Kind != domain.ResponseImage || e.Response.ImagePath == "" {
			continue
		}
		if err := os.Remove(e.Response.ImagePath); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove chart", "session_id", s.ID, "path", e.Response.ImagePath, "error", err)
			continue
		}
		removed++
	}
	slog.Debug("Session closed", "session_id", s.ID, "entries", s.transcript.Len(), "charts_removed", removed)
}
