package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"agents-backend/application/usecases"
)

// HistoryHandler exposes stored conversations. It is only mounted when
// the manifest configures a conversation-history use case.
type HistoryHandler struct {
	history *usecases.ConversationHistoryUseCase
	logger  *zap.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(history *usecases.ConversationHistoryUseCase, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, logger: logger}
}

// ListSessions handles GET /history/sessions.
func (h *HistoryHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.history.Sessions(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if sessions == nil {
		sessions = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// GetMessages handles GET /history/sessions/{sessionID}.
func (h *HistoryHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.history.Messages(r.Context(), sessionID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   messages,
	})
}
