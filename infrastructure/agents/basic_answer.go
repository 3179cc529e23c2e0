package agents

import (
	"context"

	"agents-backend/application/ports"
	"agents-backend/infrastructure/di"
)

// BasicAnswerModuleClass is the type-registry identifier for the basic
// answer agent.
const BasicAnswerModuleClass = "agents.basic_answer.Agent"

const defaultSystemPrompt = "You are a helpful assistant. Answer the user's question clearly and concisely."

// BasicAnswerAgent is the simplest agent engine: one LLM call per turn,
// no memory, no tools.
type BasicAnswerAgent struct {
	llm          ports.ChatModel
	systemPrompt string
}

var _ ports.AgentEngine = (*BasicAnswerAgent)(nil)

// NewBasicAnswerAgent creates the agent from its resolved dependencies.
func NewBasicAnswerAgent(llm ports.ChatModel, systemPrompt string) *BasicAnswerAgent {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &BasicAnswerAgent{llm: llm, systemPrompt: systemPrompt}
}

// RegisterBasicAnswer adds the agent factory to the type registry. The
// factory expects an "llms" dependency group with a "default" alias.
func RegisterBasicAnswer(types *di.TypeRegistry) {
	types.MustRegisterAgent(BasicAnswerModuleClass, func(_ context.Context, kwargs map[string]any) (any, error) {
		llm, err := groupComponent[ports.ChatModel](kwargs, "llms", "default")
		if err != nil {
			return nil, err
		}
		return NewBasicAnswerAgent(llm, configValue(kwargs, "system_prompt", "")), nil
	})
}

func (a *BasicAnswerAgent) messages(input ports.AgentInput) []ports.ChatMessage {
	return []ports.ChatMessage{
		{Role: "system", Content: a.systemPrompt},
		{Role: "user", Content: input.Message},
	}
}

// Invoke answers one turn.
func (a *BasicAnswerAgent) Invoke(ctx context.Context, input ports.AgentInput) (ports.AgentResult, error) {
	content, err := a.llm.Generate(ctx, a.messages(input))
	if err != nil {
		return ports.AgentResult{}, err
	}
	return ports.AgentResult{Content: content}, nil
}

// Stream answers one turn as a chunk stream.
func (a *BasicAnswerAgent) Stream(ctx context.Context, input ports.AgentInput) (<-chan string, <-chan error) {
	return a.llm.Stream(ctx, a.messages(input))
}
