// Package explorer orchestrates one user action at a time: browsing the
// store, selecting a collection and asking questions about it.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/datachat/internal/domain"
	"github.com/ashureev/datachat/internal/session"
	"github.com/ashureev/datachat/internal/shared"
	"github.com/ashureev/datachat/internal/store"
	"github.com/go-playground/validator/v10"
)

// Answerer turns a question about a dataset into a response.
type Answerer interface {
	Answer(ctx context.Context, ds *domain.Dataset, question string) (domain.Response, error)
}

// AskRequest is a single user question.
type AskRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// SelectionRequest changes the database and optionally the collection.
type SelectionRequest struct {
	Database   string `json:"database" validate:"required,max=255"`
	Collection string `json:"collection" validate:"omitempty,max=255"`
}

// Service wires the store connector, the query engine and sessions together.
type Service struct {
	store       store.Connector
	engine      Answerer
	previewRows int
	validate    *validator.Validate
}

// NewService creates an explorer service.
func NewService(conn store.Connector, engine Answerer, previewRows int) *Service {
	return &Service{
		store:       conn,
		engine:      engine,
		previewRows: previewRows,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Databases lists the store's databases.
func (s *Service) Databases(ctx context.Context) ([]string, error) {
	dbs, err := s.store.ListDatabases(ctx)
	if err != nil {
		slog.Error("Failed to list databases", "error", err)
		return nil, err
	}
	return dbs, nil
}

// Collections lists the collections of the session's selected database.
func (s *Service) Collections(ctx context.Context, sess *session.Session) ([]string, error) {
	sel := sess.Selection()
	if !sel.HasDatabase() {
		return nil, fmt.Errorf("%w: select a database first", shared.ErrInvalidInput)
	}

	colls, err := s.store.ListCollections(ctx, sel.Database)
	if err != nil {
		slog.Error("Failed to list collections", "session_id", sess.ID, "database", sel.Database, "error", err)
		return nil, err
	}
	return colls, nil
}

// SelectDatabase switches the session's database, clearing its collection and dataset.
func (s *Service) SelectDatabase(_ context.Context, sess *session.Session, database string) error {
	database = strings.TrimSpace(database)
	if err := s.validate.Var(database, "required,max=255"); err != nil {
		return invalid("database", err)
	}

	sess.SelectDatabase(database)
	slog.Info("Database selected", "session_id", sess.ID, "database", database)
	return nil
}

// SelectCollection records the collection and fetches its dataset. On a
// store error the selection stays but no dataset is attached.
func (s *Service) SelectCollection(ctx context.Context, sess *session.Session, collection string) error {
	collection = strings.TrimSpace(collection)
	if err := s.validate.Var(collection, "required,max=255"); err != nil {
		return invalid("collection", err)
	}
	if !sess.Selection().HasDatabase() {
		return fmt.Errorf("%w: select a database first", shared.ErrInvalidInput)
	}

	sel := sess.SelectCollection(collection)
	ds, err := s.store.FetchDataset(ctx, sel.Database, sel.Collection)
	if err != nil {
		slog.Error("Failed to fetch dataset",
			"session_id", sess.ID,
			"database", sel.Database,
			"collection", sel.Collection,
			"error", err,
		)
		return err
	}

	if !sess.SetDataset(sel, ds) {
		slog.Debug("Selection changed during fetch, dataset dropped", "session_id", sess.ID)
		return nil
	}
	slog.Info("Dataset fetched",
		"session_id", sess.ID,
		"database", sel.Database,
		"collection", sel.Collection,
		"rows", ds.Len(),
	)
	return nil
}

// ApplySelection applies a database and, when given, a collection in one step.
func (s *Service) ApplySelection(ctx context.Context, sess *session.Session, req SelectionRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return invalid("selection", err)
	}
	if req.Database != sess.Selection().Database {
		if err := s.SelectDatabase(ctx, sess, req.Database); err != nil {
			return err
		}
	}
	if req.Collection == "" {
		return nil
	}
	return s.SelectCollection(ctx, sess, req.Collection)
}

// Preview returns the first rows of the session's dataset, or nil without one.
func (s *Service) Preview(sess *session.Session) *domain.Dataset {
	ds := sess.Dataset()
	if ds == nil {
		return nil
	}
	return ds.Head(s.previewRows)
}

// Ask answers one question about the session's dataset and appends the
// result to its transcript. Engine failures are recorded as failed entries
// rather than returned.
func (s *Service) Ask(ctx context.Context, sess *session.Session, message string) (domain.ConversationEntry, error) {
	req := AskRequest{Message: strings.TrimSpace(message)}
	if err := s.validate.Struct(req); err != nil {
		return domain.ConversationEntry{}, invalid("message", err)
	}

	unlock := sess.LockQuestions()
	defer unlock()

	ds := sess.Dataset()
	if ds == nil {
		return domain.ConversationEntry{}, fmt.Errorf("%w: select a collection before asking", shared.ErrInvalidInput)
	}

	resp, err := s.engine.Answer(ctx, ds, req.Message)
	if err != nil {
		slog.Error("Failed to answer question", "session_id", sess.ID, "kind", shared.Kind(err), "error", err)
		resp = domain.FailedResponse(err)
	}

	entry := sess.Transcript().Append(req.Message, resp)
	slog.Info("Question answered", "session_id", sess.ID, "kind", resp.Kind, "failed", resp.Failed)
	return entry, nil
}

func invalid(field string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s failed %q check", shared.ErrInvalidInput, field, verrs[0].Tag())
	}
	return fmt.Errorf("%w: %s: %w", shared.ErrInvalidInput, field, err)
}
