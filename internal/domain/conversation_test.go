package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelection(t *testing.T) {
	assert.False(t, Selection{}.HasDatabase())
	assert.True(t, Selection{Database: "shop"}.HasDatabase())
	assert.False(t, Selection{Database: "shop"}.Complete())
	assert.True(t, Selection{Database: "shop", Collection: "orders"}.Complete())
}

func TestFailedResponse(t *testing.T) {
	r := FailedResponse(errors.New("reasoning service timed out"))

	assert.Equal(t, ResponseText, r.Kind)
	assert.True(t, r.Failed)
	assert.Contains(t, r.Text, "reasoning service timed out")
}
