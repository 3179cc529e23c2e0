// Package usecases contains the application-layer use cases constructed
// by the use-case registry. Each use case receives its dependencies
// (agents, components) fully resolved; none owns disposable resources.
package usecases

import (
	"context"

	"agents-backend/application/ports"
)

// BasicAnswerUseCase forwards a question to a single agent and returns
// its answer.
type BasicAnswerUseCase struct {
	agent ports.AgentEngine
}

var _ ports.AnswerCapable = (*BasicAnswerUseCase)(nil)

// NewBasicAnswerUseCase creates the use case around one agent.
func NewBasicAnswerUseCase(agent ports.AgentEngine) *BasicAnswerUseCase {
	return &BasicAnswerUseCase{agent: agent}
}

// Invoke answers one request.
func (uc *BasicAnswerUseCase) Invoke(ctx context.Context, req ports.AnswerRequest) (string, error) {
	result, err := uc.agent.Invoke(ctx, ports.AgentInput{
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

// Stream answers one request as a chunk stream.
func (uc *BasicAnswerUseCase) Stream(ctx context.Context, req ports.AnswerRequest) (<-chan string, <-chan error) {
	return uc.agent.Stream(ctx, ports.AgentInput{
		SessionID: req.SessionID,
		Message:   req.Message,
	})
}
