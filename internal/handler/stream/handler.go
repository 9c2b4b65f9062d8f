package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/orchestrator"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/sanction"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/session"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/pkg/utils"
)

// Handler pushes journey replies over Server-Sent Events so frontends can
// show stage progress as it happens.
type Handler struct {
	orch *orchestrator.Orchestrator
	log  *slog.Logger
}

// New creates a stream handler.
func New(orch *orchestrator.Orchestrator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{orch: orch, log: log}
}

// StreamResponse is one SSE chunk.
type StreamResponse struct {
	Event             string `json:"event"`
	SessionID         string `json:"sessionId,omitempty"`
	Content           string `json:"content,omitempty"`
	Stage             string `json:"stage,omitempty"`
	DownloadAvailable bool   `json:"downloadAvailable,omitempty"`
	Finished          bool   `json:"finished,omitempty"`
	Error             string `json:"error,omitempty"`
}

// HandleStreamRequest advances the session with one message and streams the
// reply and resulting stage back to the client.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
	})

	res, err := h.orch.Advance(ctx, sessionID, userMessage)
	if err != nil && !errors.Is(err, sanction.ErrRenderFailed) {
		if errors.Is(err, session.ErrNotFound) {
			h.sendSSEError(w, flusher, "session not found")
		} else {
			h.log.Error("stream advance failed", "session", sessionID, "err", err)
			h.sendSSEError(w, flusher, "could not process message")
		}
		return err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   res.Reply,
	})

	h.sendSSE(w, flusher, StreamResponse{
		Event:             "stage",
		SessionID:         sessionID,
		Stage:             string(res.Stage),
		DownloadAvailable: res.DownloadAvailable,
	})

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	h.log.Info("stream completed", "session", sessionID, "stage", res.Stage)
	return nil
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEEvent(w, flusher, response.Event, response)
}

func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{Event: "error", Error: errorMsg})
}
