// Package store provides read-only access to external document stores.
package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ashureev/datachat/internal/domain"
	"github.com/ashureev/datachat/internal/shared"
)

// Connector defines the interface for browsing a document store and
// materializing its collections as datasets.
type Connector interface {
	// ListDatabases returns all logical database names, sorted.
	ListDatabases(ctx context.Context) ([]string, error)

	// ListCollections returns the collection names of a database, sorted.
	// Returns an error wrapping shared.ErrNotFound if the database does not exist.
	ListCollections(ctx context.Context, database string) ([]string, error)

	// FetchDataset reads every document of a collection into a dataset.
	// An empty collection yields a zero-row dataset, not an error.
	FetchDataset(ctx context.Context, database, collection string) (*domain.Dataset, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying client.
	Close(ctx context.Context) error
}

// Options tunes connector behavior independent of the driver.
type Options struct {
	HideSystemDatabases bool
}

// Open creates a connector for the store addressed by rawURL.
// The scheme selects the driver: mongodb, mongodb+srv or dynamodb.
func Open(ctx context.Context, rawURL string, opts Options) (Connector, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse store url: %w", shared.ErrInvalidInput, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "mongodb", "mongodb+srv":
		s, err := NewMongo(ctx, rawURL, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "dynamodb":
		s, err := NewDynamo(ctx, u)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unsupported store scheme %q", shared.ErrInvalidInput, u.Scheme)
	}
}
