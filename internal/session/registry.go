package session

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/datachat/internal/domain"
	"github.com/patrickmn/go-cache"
)

// Registry keeps sessions in memory and expires them after a period of inactivity.
type Registry struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewRegistry creates a registry whose sessions expire after ttl without use.
func NewRegistry(ttl time.Duration) *Registry {
	cleanup := time.Minute
	if ttl < cleanup {
		cleanup = ttl
	}

	c := cache.New(ttl, cleanup)
	c.OnEvicted(func(id string, v interface{}) {
		if s, ok := v.(*Session); ok {
			s.Close()
		}
		slog.Info("Session expired", "session_id", id)
	})
	return &Registry{cache: c}
}

// GetOrCreate returns the session for id, creating it when missing.
// Either way the session's expiry is pushed back.
func (r *Registry) GetOrCreate(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if x, found := r.cache.Get(id); found {
		s := x.(*Session)
		r.cache.Set(id, s, cache.DefaultExpiration)
		return s, false
	}

	s := New(id)
	r.cache.Set(id, s, cache.DefaultExpiration)
	slog.Info("Session created", "session_id", id)
	return s, true
}

// Get returns the session for id without creating or refreshing it.
func (r *Registry) Get(id string) (*Session, bool) {
	if x, found := r.cache.Get(id); found {
		return x.(*Session), true
	}
	return nil, false
}

// Delete tears a session down.
func (r *Registry) Delete(id string) {
	r.cache.Delete(id)
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	return r.cache.ItemCount()
}

// Flush tears down every session.
func (r *Registry) Flush() {
	for id := range r.cache.Items() {
		r.cache.Delete(id)
	}
}

// ChartPaths returns the chart files referenced by live sessions.
func (r *Registry) ChartPaths() map[string]struct{} {
	paths := make(map[string]struct{})
	for _, item := range r.cache.Items() {
		s, ok := item.Object.(*Session)
		if !ok {
			continue
		}
		for e := range s.Transcript().Entries() {
			if e.Response.Kind == domain.ResponseImage {
				paths[filepath.Clean(e.Response.ImagePath)] = struct{}{}
			}
		}
	}
	return paths
}
