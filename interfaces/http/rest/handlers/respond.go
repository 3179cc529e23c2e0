// Package handlers contains the REST endpoint handlers. Every handler
// receives its collaborators at construction and writes JSON responses
// through the shared respond helpers so error mapping stays uniform.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apperrors "agents-backend/pkg/errors"
)

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps the application error taxonomy onto HTTP status codes.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	errType := "INTERNAL"

	switch {
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
		errType = "NOT_FOUND"
	case apperrors.IsValidation(err), apperrors.IsInvalidReference(err):
		status = http.StatusBadRequest
		errType = "VALIDATION"
	case apperrors.IsInstantiation(err):
		status = http.StatusBadGateway
		errType = "INSTANTIATION"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	} else {
		logger.Warn("request rejected", zap.Error(err))
	}

	respondJSON(w, status, errorResponse{Error: err.Error(), Type: errType})
}
