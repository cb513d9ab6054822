package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/ashureev/datachat/internal/domain"
	"github.com/ashureev/datachat/internal/shared"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var systemDatabases = []string{"admin", "config", "local"}

// MongoStore implements Connector on top of a MongoDB deployment.
type MongoStore struct {
	client     *mongo.Client
	hideSystem bool
}

// NewMongo creates a MongoDB connector. No network I/O happens until the first
// operation, so an unreachable server surfaces as ErrConnection per operation.
func NewMongo(ctx context.Context, uri string, opts Options) (*MongoStore, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: connect mongodb: %w", shared.ErrConnection, err)
	}

	return &MongoStore{client: client, hideSystem: opts.HideSystemDatabases}, nil
}

// ListDatabases returns all database names, sorted.
func (s *MongoStore) ListDatabases(ctx context.Context) ([]string, error) {
	names, err := s.client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, mongoError("list databases", err)
	}
	if s.hideSystem {
		names = slices.DeleteFunc(names, func(n string) bool {
			return slices.Contains(systemDatabases, n)
		})
	}
	slices.Sort(names)
	return names, nil
}

// ListCollections returns the collection names of a database, sorted.
func (s *MongoStore) ListCollections(ctx context.Context, database string) ([]string, error) {
	exists, err := s.databaseExists(ctx, database)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: database %q", shared.ErrNotFound, database)
	}

	names, err := s.client.Database(database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, mongoError("list collections", err)
	}
	slices.Sort(names)
	return names, nil
}

// FetchDataset reads every document of a collection.
func (s *MongoStore) FetchDataset(ctx context.Context, database, collection string) (*domain.Dataset, error) {
	db := s.client.Database(database)

	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: collection}})
	if err != nil {
		return nil, mongoError("check collection", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: collection %s.%s", shared.ErrNotFound, database, collection)
	}

	cursor, err := db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, mongoError("find documents", err)
	}
	defer func() {
		if closeErr := cursor.Close(ctx); closeErr != nil {
			slog.Debug("failed to close mongo cursor", "error", closeErr)
		}
	}()

	b := NewDatasetBuilder()
	for cursor.Next(ctx) {
		var doc primitive.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, mongoError("decode document", err)
		}
		b.Add(mongoDocumentID(doc), mongoFields(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, mongoError("iterate documents", err)
	}

	slog.Debug("Fetched mongo collection", "database", database, "collection", collection, "rows", b.Len())
	return b.Build(), nil
}

// Ping verifies the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return mongoError("ping", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) databaseExists(ctx context.Context, database string) (bool, error) {
	names, err := s.client.ListDatabaseNames(ctx, bson.D{{Key: "name", Value: database}})
	if err != nil {
		return false, mongoError("check database", err)
	}
	return len(names) > 0, nil
}

// mongoError classifies a driver error. Everything the driver reports is
// either a transport or an authentication problem from the caller's view.
func mongoError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", shared.ErrConnection, op, err)
}

// mongoDocumentID renders _id as text the same way cells are rendered, so
// compound ids become compact JSON.
func mongoDocumentID(doc primitive.D) string {
	for _, e := range doc {
		if e.Key != domain.IDColumn {
			continue
		}
		switch id := scalarize(normalizeMongoValue(e.Value)).(type) {
		case nil:
			return ""
		case string:
			return id
		case time.Time:
			return id.Format(time.RFC3339Nano)
		default:
			return fmt.Sprint(id)
		}
	}
	return ""
}

func mongoFields(doc primitive.D) []Field {
	fields := make([]Field, 0, len(doc))
	for _, e := range doc {
		fields = append(fields, Field{Key: e.Key, Value: normalizeMongoValue(e.Value)})
	}
	return fields
}

// normalizeMongoValue converts BSON-specific types into plain Go values.
func normalizeMongoValue(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC()
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return t.String()
		}
		return f
	case primitive.Binary:
		return base64.StdEncoding.EncodeToString(t.Data)
	case primitive.Regex:
		return "/" + t.Pattern + "/" + t.Options
	case primitive.Symbol:
		return string(t)
	case primitive.JavaScript:
		return string(t)
	case primitive.Null, primitive.Undefined:
		return nil
	case primitive.MinKey, primitive.MaxKey:
		return nil
	case int32:
		return int64(t)
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeMongoValue(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = normalizeMongoValue(e)
		}
		return m
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeMongoValue(e)
		}
		return out
	default:
		return t
	}
}
