package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashureev/datachat/internal/explorer"
	"github.com/ashureev/datachat/internal/identity"
	"github.com/ashureev/datachat/internal/session"
	"github.com/ashureev/datachat/internal/shared"
	"github.com/coder/websocket"
)

// ChatSocket serves the live chat channel over a WebSocket.
type ChatSocket struct {
	svc            *explorer.Service
	registry       *session.Registry
	allowedOrigins []string
	isDev          bool
}

// NewChatSocket creates a chat WebSocket handler. Every inbound message
// counts as activity for the session in registry.
func NewChatSocket(svc *explorer.Service, registry *session.Registry, allowedOrigins []string, isDev bool) *ChatSocket {
	return &ChatSocket{svc: svc, registry: registry, allowedOrigins: allowedOrigins, isDev: isDev}
}

// wsMessage is a client message.
type wsMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// wsReply is a server message.
type wsReply struct {
	Type  string     `json:"type"`
	Entry *entryView `json:"entry,omitempty"`
	Error string     `json:"error,omitempty"`
	Kind  string     `json:"kind,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *ChatSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := identity.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}
	slog.Info("WebSocket connection request", "session_id", sess.ID, "ip", identity.IPFromRequest(r))

	opts := &websocket.AcceptOptions{OriginPatterns: h.allowedOrigins}
	if h.isDev {
		opts.InsecureSkipVerify = true
	}
	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sess.ID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sess.ID)
		}
	}()

	h.readLoop(r.Context(), ws, sess)
	slog.Info("Chat socket ended", "session_id", sess.ID)
}

func (h *ChatSocket) readLoop(ctx context.Context, ws *websocket.Conn, sess *session.Session) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "session_id", sess.ID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session_id", sess.ID)
			}
			return
		}

		// Only HTTP requests pass the identity middleware, so the socket
		// refreshes the expiry itself.
		current, created := h.registry.GetOrCreate(sess.ID)
		if created {
			slog.Info("Chat socket session expired, continuing with a new one", "session_id", sess.ID)
		}
		sess = current

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := h.writeJSON(ctx, ws, wsReply{Type: "error", Error: "malformed message", Kind: "invalid_input"}); err != nil {
				return
			}
			continue
		}

		var reply wsReply
		switch msg.Type {
		case "ask":
			entry, err := h.svc.Ask(ctx, sess, msg.Message)
			if err != nil {
				reply = wsReply{Type: "error", Error: err.Error(), Kind: shared.Kind(err)}
			} else {
				view := newEntryView(entry)
				reply = wsReply{Type: "entry", Entry: &view}
			}
		case "ping":
			reply = wsReply{Type: "pong"}
		default:
			reply = wsReply{Type: "error", Error: "unknown message type " + msg.Type, Kind: "invalid_input"}
		}

		if err := h.writeJSON(ctx, ws, reply); err != nil {
			slog.Debug("Failed to write reply", "error", err, "session_id", sess.ID)
			return
		}
	}
}

func (h *ChatSocket) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
