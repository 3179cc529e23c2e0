// Package ports declares the interfaces the application layer consumes.
// Concrete adapters live under infrastructure/ and are constructed by the
// component registry; only their construction contract and these
// capability interfaces matter to the core.
package ports

import "context"

// ChatMessage is one turn of a conversation passed to a chat model.
type ChatMessage struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// ChatModel is the outbound port for LLM chat completion providers.
type ChatModel interface {
	Generate(ctx context.Context, messages []ChatMessage) (string, error)
	// Stream emits response chunks on the first channel; a terminal error,
	// if any, arrives on the second. Both channels are closed when done.
	Stream(ctx context.Context, messages []ChatMessage) (<-chan string, <-chan error)
}

// Embedder turns text into dense vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ScoredDocument is a vector-store search hit.
type ScoredDocument struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// VectorStore is the outbound port for similarity search backends.
type VectorStore interface {
	Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error
	Search(ctx context.Context, vector []float32, limit int) ([]ScoredDocument, error)
}

// StoredMessage is one persisted conversation turn.
type StoredMessage struct {
	SessionID string
	Role      string
	Content   string
}

// ChatHistoryRepository persists and recalls conversation turns.
type ChatHistoryRepository interface {
	Append(ctx context.Context, message StoredMessage) error
	Messages(ctx context.Context, sessionID string) ([]StoredMessage, error)
	Sessions(ctx context.Context) ([]string, error)
}

// Checkpointer persists opaque per-session agent state between turns.
type Checkpointer interface {
	Put(ctx context.Context, sessionID string, state []byte) error
	Get(ctx context.Context, sessionID string) ([]byte, error)
}

// AgentInput is what a caller hands to an agent for one turn.
type AgentInput struct {
	SessionID string
	Message   string
}

// AgentResult is the agent's final answer for one turn.
type AgentResult struct {
	Content string
}

// AgentEngine is the outbound port for agent implementations.
type AgentEngine interface {
	Invoke(ctx context.Context, input AgentInput) (AgentResult, error)
	Stream(ctx context.Context, input AgentInput) (<-chan string, <-chan error)
}

// AnswerRequest is the transport-agnostic request a dispatching caller
// hands to an answer-capable use case.
type AnswerRequest struct {
	SessionID string
	Message   string
}

// AnswerCapable marks use cases that a generic dispatcher can drive
// without knowing their concrete type. Declared by implementing, checked
// by type assertion.
type AnswerCapable interface {
	Invoke(ctx context.Context, req AnswerRequest) (string, error)
	Stream(ctx context.Context, req AnswerRequest) (<-chan string, <-chan error)
}

// Disposable is the synchronous cleanup hook the component registry calls
// at shutdown.
type Disposable interface {
	Close() error
}

// ContextDisposable is the context-aware cleanup hook. When a component
// implements both, the registry prefers this one.
type ContextDisposable interface {
	Shutdown(ctx context.Context) error
}
