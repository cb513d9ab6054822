package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/datachat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreate(t *testing.T) {
	r := NewRegistry(time.Hour)

	a, created := r.GetOrCreate("a")
	assert.True(t, created)
	again, created := r.GetOrCreate("a")
	assert.False(t, created)
	assert.Same(t, a, again)

	b, _ := r.GetOrCreate("b")
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, r.Count())
}

func TestSessionsAreIsolated(t *testing.T) {
	r := NewRegistry(time.Hour)
	a, _ := r.GetOrCreate("a")
	b, _ := r.GetOrCreate("b")

	a.SelectDatabase("shop")
	a.Transcript().Append("q", domain.TextResponse("x"))

	assert.Equal(t, domain.Selection{}, b.Selection())
	assert.Equal(t, 1, b.Transcript().Len())
	assert.Equal(t, 2, a.Transcript().Len())
}

func TestDeleteClosesSession(t *testing.T) {
	chart := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, os.WriteFile(chart, []byte("png"), 0o644))

	r := NewRegistry(time.Hour)
	s, _ := r.GetOrCreate("a")
	s.Transcript().Append("plot", domain.ImageResponse(chart))

	r.Delete("a")

	_, ok := r.Get("a")
	assert.False(t, ok)
	_, err := os.Stat(chart)
	assert.True(t, os.IsNotExist(err))
}

func TestExpiredSessionStartsOver(t *testing.T) {
	r := NewRegistry(20 * time.Millisecond)
	s, _ := r.GetOrCreate("a")
	s.Transcript().Append("q", domain.TextResponse("x"))

	time.Sleep(40 * time.Millisecond)

	_, ok := r.Get("a")
	assert.False(t, ok)
	fresh, created := r.GetOrCreate("a")
	assert.True(t, created)
	assert.Equal(t, 1, fresh.Transcript().Len())
}

func TestFlush(t *testing.T) {
	r := NewRegistry(time.Hour)
	r.GetOrCreate("a")
	r.GetOrCreate("b")

	r.Flush()
	assert.Equal(t, 0, r.Count())
}
