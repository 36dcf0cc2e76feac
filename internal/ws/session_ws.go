package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"campus-chat/internal/authz"
	"campus-chat/internal/chat"
	"campus-chat/internal/identity"
	"campus-chat/internal/observability"
	"campus-chat/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientCommand is what the browser sends over the session socket.
type clientCommand struct {
	Type    string `json:"type"`
	GroupID string `json:"group_id,omitempty"`
	Body    string `json:"body,omitempty"`
}

// errorEvent is pushed when a command fails.
type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// SessionWebSocketHandler drives one ChatSessionController per websocket
// connection.
type SessionWebSocketHandler struct {
	verifier *identity.Verifier
	resolver *authz.Resolver
	stream   *chat.MessageStream
	bridge   *chat.AttachmentBridge
	audit    *telemetry.AuditEmitter
}

// NewSessionWebSocketHandler constructs a SessionWebSocketHandler.
func NewSessionWebSocketHandler(verifier *identity.Verifier, resolver *authz.Resolver, stream *chat.MessageStream, bridge *chat.AttachmentBridge, audit *telemetry.AuditEmitter) *SessionWebSocketHandler {
	return &SessionWebSocketHandler{verifier: verifier, resolver: resolver, stream: stream, bridge: bridge, audit: audit}
}

// Handle upgrades the connection and runs the session until the client
// disconnects. The token comes from the Authorization header or, for
// browser websocket clients, the token query parameter.
func (h *SessionWebSocketHandler) Handle(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	ident, err := h.verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      ident.ID,
		Role:        string(ident.Role),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		ConnectedAt: time.Now(),
	}

	var writeMu sync.Mutex
	writeJSON := func(v any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(v); err != nil {
			log.Printf("websocket write error: %v", err)
		}
	}

	session := chat.NewChatSession(h.resolver, h.stream, h.bridge, func(event chat.SessionEvent) {
		observability.IncSessionEvent(string(event.Type))
		writeJSON(event)
	})

	observability.IncActiveSessions()

	// The subscription outlives this handler; the request context dies
	// when Handle returns.
	ctx := context.Background()

	if err := session.Start(ctx, ident); err != nil {
		log.Printf("session start failed for %s: %v", ident.ID, err)
		writeJSON(errorEvent{Type: "error", Error: "could not load groups"})
		observability.DecActiveSessions()
		conn.Close()
		return
	}

	go func() {
		defer func() {
			session.Logout()
			observability.DecActiveSessions()
			conn.Close()
			h.emitAudit(ctx, "INFO", "session_closed", "chat session closed", info)
		}()
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var cmd clientCommand
			if err := json.Unmarshal(payload, &cmd); err != nil {
				writeJSON(errorEvent{Type: "error", Error: "malformed command"})
				continue
			}
			h.dispatch(ctx, session, cmd, writeJSON)
		}
	}()
}

func (h *SessionWebSocketHandler) dispatch(ctx context.Context, session *chat.ChatSessionController, cmd clientCommand, writeJSON func(any)) {
	switch cmd.Type {
	case "select_group":
		if err := session.SelectGroup(ctx, cmd.GroupID); err != nil {
			writeJSON(errorEvent{Type: "error", Error: err.Error()})
		}
	case "send":
		if _, err := session.Send(ctx, cmd.Body); err != nil {
			writeJSON(errorEvent{Type: "error", Error: err.Error()})
		}
	case "refresh_groups":
		if err := session.RefreshGroups(ctx); err != nil {
			writeJSON(errorEvent{Type: "error", Error: err.Error()})
		}
	default:
		writeJSON(errorEvent{Type: "error", Error: "unknown command"})
	}
}

func (h *SessionWebSocketHandler) emitAudit(ctx context.Context, level, action, text string, info ConnInfo) {
	if h.audit == nil {
		return
	}
	userID := info.UserID
	h.audit.Emit(ctx, level, action, text, info.RequestID, &userID)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") {
			return ""
		}
		return token
	}
	return c.Query("token")
}
