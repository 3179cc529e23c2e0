package agents

import (
	"context"
	"encoding/json"
	"strings"

	"agents-backend/application/ports"
	"agents-backend/infrastructure/di"
)

// MemoryAnswerModuleClass is the type-registry identifier for the
// memory-backed answer agent.
const MemoryAnswerModuleClass = "agents.memory_answer.Agent"

// MemoryAnswerAgent answers with conversation memory: prior turns are
// loaded from the chat-history repository, the exchange is persisted
// after each turn. With a checkpointer attached, the trimmed message
// window is additionally checkpointed per session and later turns read
// the checkpoint instead of rescanning the full history.
type MemoryAnswerAgent struct {
	llm          ports.ChatModel
	history      ports.ChatHistoryRepository
	checkpointer ports.Checkpointer
	systemPrompt string
	windowSize   int
}

var _ ports.AgentEngine = (*MemoryAnswerAgent)(nil)

// memoryCheckpoint is the opaque per-session state stored through the
// checkpointer: the trimmed window as of the last completed turn.
type memoryCheckpoint struct {
	Messages []ports.ChatMessage `json:"messages"`
}

// NewMemoryAnswerAgent creates the agent from its resolved dependencies.
// The checkpointer is optional; pass nil to always rebuild the window
// from the history repository.
func NewMemoryAnswerAgent(
	llm ports.ChatModel,
	history ports.ChatHistoryRepository,
	checkpointer ports.Checkpointer,
	systemPrompt string,
	windowSize int,
) *MemoryAnswerAgent {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	if windowSize <= 0 {
		windowSize = 20
	}
	return &MemoryAnswerAgent{
		llm:          llm,
		history:      history,
		checkpointer: checkpointer,
		systemPrompt: systemPrompt,
		windowSize:   windowSize,
	}
}

// RegisterMemoryAnswer adds the agent factory to the type registry. The
// factory expects an "llms" group with a "default" alias, a
// "chat_history" dependency and an optional "checkpointers" dependency.
func RegisterMemoryAnswer(types *di.TypeRegistry) {
	types.MustRegisterAgent(MemoryAnswerModuleClass, func(_ context.Context, kwargs map[string]any) (any, error) {
		llm, err := groupComponent[ports.ChatModel](kwargs, "llms", "default")
		if err != nil {
			return nil, err
		}
		history, err := groupComponent[ports.ChatHistoryRepository](kwargs, "chat_history", "default")
		if err != nil {
			return nil, err
		}
		var checkpointer ports.Checkpointer
		if _, ok := kwargs["checkpointers"]; ok {
			checkpointer, err = groupComponent[ports.Checkpointer](kwargs, "checkpointers", "default")
			if err != nil {
				return nil, err
			}
		}
		return NewMemoryAnswerAgent(
			llm,
			history,
			checkpointer,
			configValue(kwargs, "system_prompt", ""),
			configInt(kwargs, "window_size", 0),
		), nil
	})
}

// window returns the prior turns to prompt with: the session checkpoint
// when one exists, otherwise the trimmed tail of the stored history.
func (a *MemoryAnswerAgent) window(ctx context.Context, sessionID string) ([]ports.ChatMessage, error) {
	if a.checkpointer != nil {
		state, err := a.checkpointer.Get(ctx, sessionID)
		if err == nil && len(state) > 0 {
			var cp memoryCheckpoint
			if json.Unmarshal(state, &cp) == nil {
				return cp.Messages, nil
			}
		}
		// unreadable or missing checkpoint: rebuild from history
	}

	stored, err := a.history.Messages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(stored) > a.windowSize {
		stored = stored[len(stored)-a.windowSize:]
	}

	window := make([]ports.ChatMessage, len(stored))
	for i, m := range stored {
		window[i] = ports.ChatMessage{Role: m.Role, Content: m.Content}
	}
	return window, nil
}

func (a *MemoryAnswerAgent) prompt(window []ports.ChatMessage, message string) []ports.ChatMessage {
	messages := make([]ports.ChatMessage, 0, len(window)+2)
	messages = append(messages, ports.ChatMessage{Role: "system", Content: a.systemPrompt})
	messages = append(messages, window...)
	return append(messages, ports.ChatMessage{Role: "user", Content: message})
}

func (a *MemoryAnswerAgent) persistTurn(ctx context.Context, input ports.AgentInput, window []ports.ChatMessage, answer string) error {
	err := a.history.Append(ctx, ports.StoredMessage{
		SessionID: input.SessionID,
		Role:      "user",
		Content:   input.Message,
	})
	if err != nil {
		return err
	}
	err = a.history.Append(ctx, ports.StoredMessage{
		SessionID: input.SessionID,
		Role:      "assistant",
		Content:   answer,
	})
	if err != nil {
		return err
	}

	if a.checkpointer == nil {
		return nil
	}

	next := make([]ports.ChatMessage, 0, len(window)+2)
	next = append(next, window...)
	next = append(next,
		ports.ChatMessage{Role: "user", Content: input.Message},
		ports.ChatMessage{Role: "assistant", Content: answer})
	if len(next) > a.windowSize {
		next = next[len(next)-a.windowSize:]
	}

	state, err := json.Marshal(memoryCheckpoint{Messages: next})
	if err != nil {
		return err
	}
	return a.checkpointer.Put(ctx, input.SessionID, state)
}

// Invoke answers one turn with memory and persists the exchange.
func (a *MemoryAnswerAgent) Invoke(ctx context.Context, input ports.AgentInput) (ports.AgentResult, error) {
	window, err := a.window(ctx, input.SessionID)
	if err != nil {
		return ports.AgentResult{}, err
	}

	content, err := a.llm.Generate(ctx, a.prompt(window, input.Message))
	if err != nil {
		return ports.AgentResult{}, err
	}

	if err := a.persistTurn(ctx, input, window, content); err != nil {
		return ports.AgentResult{}, err
	}
	return ports.AgentResult{Content: content}, nil
}

// Stream answers one turn as a chunk stream, persisting the full exchange
// once the stream completes.
func (a *MemoryAnswerAgent) Stream(ctx context.Context, input ports.AgentInput) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		window, err := a.window(ctx, input.SessionID)
		if err != nil {
			errCh <- err
			return
		}

		chunks, llmErr := a.llm.Stream(ctx, a.prompt(window, input.Message))
		var answer strings.Builder
		for chunk := range chunks {
			answer.WriteString(chunk)
			select {
			case out <- chunk:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := <-llmErr; err != nil {
			errCh <- err
			return
		}

		if err := a.persistTurn(ctx, input, window, answer.String()); err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}
