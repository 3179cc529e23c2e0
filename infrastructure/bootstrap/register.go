// Package bootstrap assembles the process-wide type registry: every
// built-in component, agent and use-case type is registered here under
// the module-class identifier the manifest refers to it by.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"agents-backend/application/ports"
	"agents-backend/application/usecases"
	"agents-backend/infrastructure/agents"
	"agents-backend/infrastructure/di"
	openaiembed "agents-backend/infrastructure/embeddings/openai"
	"agents-backend/infrastructure/llm/anthropic"
	"agents-backend/infrastructure/llm/groq"
	"agents-backend/infrastructure/persistence/mongo"
	"agents-backend/infrastructure/vectorstore/qdrant"
)

// Use-case module-class identifiers.
const (
	BasicAnswerUseCaseModuleClass         = "usecases.basic_answer.UseCase"
	RobustAnswerUseCaseModuleClass        = "usecases.robust_answer.UseCase"
	ConversationHistoryUseCaseModuleClass = "usecases.conversation_history.UseCase"
)

// NewTypeRegistry builds a registry with all built-in types registered.
func NewTypeRegistry() *di.TypeRegistry {
	types := di.NewTypeRegistry()

	// Components
	groq.Register(types)
	anthropic.Register(types)
	openaiembed.Register(types)
	mongo.RegisterClient(types)
	mongo.RegisterChatHistory(types)
	mongo.RegisterCheckpointer(types)
	qdrant.Register(types)

	// Agents
	agents.RegisterBasicAnswer(types)
	agents.RegisterMemoryAnswer(types)

	// Use cases
	registerUseCases(types)

	return types
}

func registerUseCases(types *di.TypeRegistry) {
	types.MustRegisterUseCase(BasicAnswerUseCaseModuleClass,
		func(_ context.Context, kwargs map[string]any) (any, error) {
			agent, err := agentFromKwargs(kwargs)
			if err != nil {
				return nil, err
			}
			return usecases.NewBasicAnswerUseCase(agent), nil
		})

	types.MustRegisterUseCase(RobustAnswerUseCaseModuleClass,
		func(_ context.Context, kwargs map[string]any) (any, error) {
			agent, err := agentFromKwargs(kwargs)
			if err != nil {
				return nil, err
			}
			return usecases.NewRobustAnswerUseCase(agent, robustConfig(kwargs)), nil
		})

	types.MustRegisterUseCase(ConversationHistoryUseCaseModuleClass,
		func(_ context.Context, kwargs map[string]any) (any, error) {
			history, err := dependency[ports.ChatHistoryRepository](kwargs, "chat_history", "default")
			if err != nil {
				return nil, err
			}
			return usecases.NewConversationHistoryUseCase(history), nil
		})
}

// agentFromKwargs reads the single-agent dependency the registry binds
// under the bare "agent" keyword.
func agentFromKwargs(kwargs map[string]any) (ports.AgentEngine, error) {
	raw, ok := kwargs["agent"]
	if !ok {
		return nil, fmt.Errorf("missing agent dependency (declare components.agents with alias 'agent')")
	}
	agent, ok := raw.(ports.AgentEngine)
	if !ok {
		return nil, fmt.Errorf("agent dependency has unexpected type %T", raw)
	}
	return agent, nil
}

func dependency[T any](kwargs map[string]any, group, alias string) (T, error) {
	var zero T

	raw, ok := kwargs[group]
	if !ok {
		return zero, fmt.Errorf("missing dependency group %q", group)
	}
	if aliased, ok := raw.(map[string]any); ok {
		raw, ok = aliased[alias]
		if !ok {
			return zero, fmt.Errorf("dependency group %q has no alias %q", group, alias)
		}
	}

	typed, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("dependency %q has unexpected type %T", group, raw)
	}
	return typed, nil
}

func robustConfig(kwargs map[string]any) usecases.RobustAnswerConfig {
	config, _ := kwargs["config"].(map[string]any)
	return usecases.RobustAnswerConfig{
		MaxRetries:     intValue(config, "max_retries"),
		InitialBackoff: time.Duration(intValue(config, "initial_backoff_ms")) * time.Millisecond,
		BreakerTimeout: time.Duration(intValue(config, "breaker_timeout_ms")) * time.Millisecond,
	}
}

func intValue(config map[string]any, key string) int {
	if config == nil {
		return 0
	}
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
