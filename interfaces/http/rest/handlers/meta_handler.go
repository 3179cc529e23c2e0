package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"agents-backend/infrastructure/config"
	"agents-backend/infrastructure/di"
)

// MetaHandler serves read-only views of the loaded configuration: which
// components, agents and use cases exist. Secret values never appear in
// the output; the summaries render them redacted.
type MetaHandler struct {
	settings *config.Settings
	agents   *di.AgentRegistry
	logger   *zap.Logger
}

// NewMetaHandler creates a new meta handler.
func NewMetaHandler(settings *config.Settings, agents *di.AgentRegistry, logger *zap.Logger) *MetaHandler {
	return &MetaHandler{settings: settings, agents: agents, logger: logger}
}

// ListComponents handles GET /meta/components.
func (h *MetaHandler) ListComponents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.settings.ListComponents())
}

// ListAgents handles GET /meta/agents. The configured view comes from the
// manifest; the "initialized" list reflects what the registry actually
// built, which is useful when the two disagree.
func (h *MetaHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"configured":  h.settings.ListAgents(),
		"initialized": h.agents.Keys(),
	})
}

// ListUseCases handles GET /meta/use-cases.
func (h *MetaHandler) ListUseCases(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.settings.ListUseCases())
}
