package store

import (
	"context"
	"errors"
	"testing"

	"github.com/ashureev/datachat/internal/shared"
	"github.com/stretchr/testify/assert"
)

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "postgres://localhost/db", Options{})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	assert.Equal(t, "invalid_input", shared.Kind(err))
}

func TestOpenRejectsMalformedURL(t *testing.T) {
	_, err := Open(context.Background(), "mongodb://%zz", Options{})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestOpenSelectsDriver(t *testing.T) {
	c, err := Open(context.Background(), "dynamodb://us-east-1?endpoint=http://localhost:8000&access_key=x&secret_key=y", Options{})
	assert.NoError(t, err)
	assert.IsType(t, &DynamoStore{}, c)
}
