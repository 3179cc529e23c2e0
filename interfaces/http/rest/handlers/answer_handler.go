package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"agents-backend/application/ports"
	"agents-backend/infrastructure/di"
	apperrors "agents-backend/pkg/errors"
	"agents-backend/pkg/observability"
)

// AnswerHandler dispatches answer requests to whichever configured use
// case the URL names. Any use case exposing the answer contract is
// routable without code changes; adding one is purely a manifest edit.
type AnswerHandler struct {
	useCases *di.UseCaseRegistry
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAnswerHandler creates a new answer handler.
func NewAnswerHandler(useCases *di.UseCaseRegistry, metrics *observability.Metrics, logger *zap.Logger) *AnswerHandler {
	return &AnswerHandler{useCases: useCases, metrics: metrics, logger: logger}
}

type answerRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type answerResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

func (h *AnswerHandler) resolve(name string) (ports.AnswerCapable, error) {
	useCase, err := h.useCases.Get(name)
	if err != nil {
		return nil, err
	}
	capable, ok := useCase.(ports.AnswerCapable)
	if !ok {
		return nil, apperrors.NewValidation(fmt.Sprintf(
			"use case %q does not answer questions", name))
	}
	return capable, nil
}

func (h *AnswerHandler) parseRequest(r *http.Request) (answerRequest, error) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, apperrors.NewValidation("invalid request body: " + err.Error())
	}
	if req.Message == "" {
		return req, apperrors.NewValidation("message is required")
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}
	return req, nil
}

// Invoke handles POST /answers/{useCase}.
func (h *AnswerHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "useCase")

	useCase, err := h.resolve(name)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	req, err := h.parseRequest(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	answer, err := useCase.Invoke(r.Context(), ports.AnswerRequest{
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	h.metrics.RecordUseCaseInvocation(name, err)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, answerResponse{SessionID: req.SessionID, Answer: answer})
}

// Stream handles POST /answers/{useCase}/stream as server-sent events:
// one "data:" line per chunk, a final "done" event, or an "error" event
// if the stream fails partway.
func (h *AnswerHandler) Stream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "useCase")

	useCase, err := h.resolve(name)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	req, err := h.parseRequest(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, h.logger, apperrors.NewInternal("streaming unsupported by connection", nil))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Session-ID", req.SessionID)
	w.WriteHeader(http.StatusOK)

	chunks, errCh := useCase.Stream(r.Context(), ports.AnswerRequest{
		SessionID: req.SessionID,
		Message:   req.Message,
	})

	for chunk := range chunks {
		payload, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	streamErr := <-errCh
	h.metrics.RecordUseCaseInvocation(name, streamErr)
	if streamErr != nil {
		h.logger.Warn("answer stream failed",
			zap.String("use_case", name), zap.Error(streamErr))
		fmt.Fprintf(w, "event: error\ndata: %q\n\n", streamErr.Error())
	} else {
		fmt.Fprint(w, "event: done\ndata: {}\n\n")
	}
	flusher.Flush()
}
