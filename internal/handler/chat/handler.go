package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/orchestrator"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/sanction"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/session"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/pkg/utils"
)

// Handler is the REST surface of the loan journey.
type Handler struct {
	orch     *orchestrator.Orchestrator
	validate *validator.Validate
	log      *slog.Logger
}

// New creates the journey handler.
func New(orch *orchestrator.Orchestrator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		orch:     orch,
		validate: validator.New(),
		log:      log,
	}
}

// RegisterRoutes wires the journey endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Post("/start", h.handleStart)
	r.Post("/chat", h.handleChat)
	r.Get("/session/{sessionID}", h.handleGetSession)
	r.Get("/download/{sessionID}", h.handleDownload)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	res, err := h.orch.StartSession(r.Context())
	if err != nil {
		h.log.Error("start session failed", "err", err)
		utils.RespondError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, res)
}

type chatPayload struct {
	SessionID string `json:"sessionId" validate:"omitempty,uuid4"`
	Message   string `json:"message" validate:"required,max=2000"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	// A missing session id opens a fresh journey with this first message.
	if payload.SessionID == "" {
		start, err := h.orch.StartSession(r.Context())
		if err != nil {
			h.log.Error("start session failed", "err", err)
			utils.RespondError(w, http.StatusInternalServerError, "could not start session")
			return
		}
		payload.SessionID = start.SessionID
	}

	res, err := h.orch.Advance(r.Context(), payload.SessionID, payload.Message)
	switch {
	case errors.Is(err, session.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	case errors.Is(err, sanction.ErrRenderFailed):
		// The reply already tells the customer to retry; the approval holds.
		h.log.Error("sanction letter failed", "session", payload.SessionID, "err", err)
	case err != nil:
		h.log.Error("advance failed", "session", payload.SessionID, "err", err)
		utils.RespondError(w, http.StatusInternalServerError, "could not process message")
		return
	}

	utils.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	snap, err := h.orch.Store().Get(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	snap, err := h.orch.Store().Get(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	if snap.ArtifactRef == "" {
		utils.RespondError(w, http.StatusNotFound, "no sanction letter for this session")
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(snap.ArtifactRef)))
	http.ServeFile(w, r, snap.ArtifactRef)
}

// validationMessage flattens the first field error into client-facing text.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", jsonField(fe.Field()))
		case "uuid4":
			return "sessionId must be a valid session identifier"
		case "max":
			return fmt.Sprintf("%s is too long", jsonField(fe.Field()))
		}
	}
	return "invalid request"
}

func jsonField(name string) string {
	switch name {
	case "SessionID":
		return "sessionId"
	case "Message":
		return "message"
	default:
		return name
	}
}
