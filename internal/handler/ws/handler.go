package ws

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/orchestrator"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/sanction"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/pkg/utils"
)

// Handler serves the journey over a WebSocket so chat frontends can keep a
// single connection for the whole conversation.
type Handler struct {
	orch     *orchestrator.Orchestrator
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// New creates the WebSocket handler.
func New(orch *orchestrator.Orchestrator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		orch: orch,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// RegisterRoutes wires the WebSocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionID is required")
		return
	}

	if _, err := h.orch.Store().Get(sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "session", sessionID, "err", err)
		return
	}
	defer conn.Close()

	h.log.Info("websocket connected", "session", sessionID)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", "session", sessionID, "err", err)
			}
			return
		}

		switch inbound.Type {
		case "ping":
			h.send(conn, outgoingMessage{Type: "pong", SessionID: sessionID})

		case "message":
			if inbound.Text == "" {
				h.send(conn, outgoingMessage{Type: "error", SessionID: sessionID, Error: "text is required"})
				continue
			}

			res, err := h.orch.Advance(r.Context(), sessionID, inbound.Text)
			if err != nil && !errors.Is(err, sanction.ErrRenderFailed) {
				h.log.Error("websocket advance failed", "session", sessionID, "err", err)
				h.send(conn, outgoingMessage{Type: "error", SessionID: sessionID, Error: "could not process message"})
				continue
			}
			h.send(conn, outgoingMessage{Type: "reply", SessionID: sessionID, Data: res})

		default:
			h.send(conn, outgoingMessage{Type: "error", SessionID: sessionID, Error: "unknown message type"})
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, msg outgoingMessage) {
	msg.Timestamp = time.Now().UnixMilli()
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Warn("websocket write failed", "err", err)
	}
}
