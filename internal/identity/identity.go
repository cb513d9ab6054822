// Package identity provides anonymous per-browser session identity.
package identity

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/ashureev/datachat/internal/session"
	"github.com/google/uuid"
)

const (
	SessionCookieName = "datachat_session"
	sessionCookieAge  = 24 * time.Hour
)

type contextKey int

const (
	sessionKey contextKey = iota
)

// SessionFromContext extracts the session from the request context.
func SessionFromContext(ctx context.Context) *session.Session {
	if v, ok := ctx.Value(sessionKey).(*session.Session); ok {
		return v
	}
	return nil
}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func isValidSessionID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.Version() == 4
}

func getOrCreateSessionID(w http.ResponseWriter, r *http.Request, isDev bool) string {
	var id string
	if c, err := r.Cookie(SessionCookieName); err == nil && isValidSessionID(c.Value) {
		id = c.Value
	} else {
		id = uuid.NewString()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionCookieAge.Seconds()),
		Expires:  time.Now().Add(sessionCookieAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
	return id
}

// Middleware attaches the caller's session, creating one on first visit.
func Middleware(registry *session.Registry, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := getOrCreateSessionID(w, r, isDev)
			sess, _ := registry.GetOrCreate(id)
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
