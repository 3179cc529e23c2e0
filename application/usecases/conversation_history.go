package usecases

import (
	"context"

	"agents-backend/application/ports"
)

// ConversationHistoryUseCase exposes stored conversations for browsing.
// It consumes a component directly rather than an agent, which is why the
// use-case registry also accepts component dependency groups.
type ConversationHistoryUseCase struct {
	history ports.ChatHistoryRepository
}

// NewConversationHistoryUseCase creates the use case around a
// chat-history repository.
func NewConversationHistoryUseCase(history ports.ChatHistoryRepository) *ConversationHistoryUseCase {
	return &ConversationHistoryUseCase{history: history}
}

// Sessions lists the session identifiers with stored history.
func (uc *ConversationHistoryUseCase) Sessions(ctx context.Context) ([]string, error) {
	return uc.history.Sessions(ctx)
}

// Messages returns one session's turns in order.
func (uc *ConversationHistoryUseCase) Messages(ctx context.Context, sessionID string) ([]ports.StoredMessage, error) {
	return uc.history.Messages(ctx, sessionID)
}
