package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"agents-backend/infrastructure/config"
	apperrors "agents-backend/pkg/errors"
)

// AgentRegistry holds the agent instances built at startup, keyed by
// "framework.agent_name".
type AgentRegistry struct {
	logger *zap.Logger
	agents map[string]any
}

// BuildAgents constructs every configured agent eagerly, resolving each
// declared component dependency group through the component registry. Any
// failure aborts the whole build; there is no partial agent set.
func BuildAgents(
	ctx context.Context,
	settings *config.Settings,
	types *TypeRegistry,
	components *ComponentRegistry,
	logger *zap.Logger,
) (*AgentRegistry, error) {
	agents := map[string]any{}

	for framework, frameworkAgents := range settings.Agents {
		for name, agentCfg := range frameworkAgents {
			fullKey := fmt.Sprintf("%s.%s", framework, name)
			logger.Info("initializing agent",
				zap.String("agent", fullKey),
				zap.String("name", agentCfg.Info.Name))

			factory, err := types.Agent(agentCfg.Constructor.ModuleClass)
			if err != nil {
				return nil, err
			}

			kwargs := map[string]any{"config": map[string]any{}}
			if agentCfg.Constructor.Config != nil {
				merged := map[string]any{}
				for k, v := range agentCfg.Constructor.Config {
					merged[k] = v
				}
				kwargs["config"] = merged
			}

			for group, dependency := range agentCfg.Constructor.Components {
				resolved, err := resolveComponentGroup(ctx, components, dependency)
				if err != nil {
					return nil, apperrors.Wrap(err, fmt.Sprintf(
						"agent %q dependency group %q", fullKey, group))
				}
				kwargs[group] = resolved
			}

			agent, err := factory(ctx, kwargs)
			if err != nil {
				return nil, apperrors.NewInstantiation(fmt.Sprintf(
					"agent %q (%s)", fullKey, agentCfg.Constructor.ModuleClass), err)
			}

			agents[fullKey] = agent
			logger.Debug("agent initialized", zap.String("agent", fullKey))
		}
	}

	return &AgentRegistry{logger: logger, agents: agents}, nil
}

// resolveComponentGroup resolves one dependency declaration: a single
// reference becomes the bare instance, an alias mapping becomes
// map[alias]instance.
func resolveComponentGroup(
	ctx context.Context,
	components *ComponentRegistry,
	dependency config.Dependency,
) (any, error) {
	if dependency.IsSingle() {
		return components.Get(ctx, dependency.Ref)
	}

	resolved := make(map[string]any, len(dependency.Refs))
	for alias, ref := range dependency.Refs {
		instance, err := components.Get(ctx, ref)
		if err != nil {
			return nil, err
		}
		resolved[alias] = instance
	}
	return resolved, nil
}

// Get retrieves an agent by its "framework.agent_name" key, accepting the
// same separator spellings as component references and an optional
// "agents." prefix.
func (r *AgentRegistry) Get(key string) (any, error) {
	normalized := config.Normalize(key)
	if len(normalized) > 7 && normalized[:7] == "agents." {
		normalized = normalized[7:]
	}
	agent, ok := r.agents[normalized]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("unknown agent %q", key))
	}
	return agent, nil
}

// Keys returns the fully qualified keys of all built agents.
func (r *AgentRegistry) Keys() []string {
	keys := make([]string, 0, len(r.agents))
	for key := range r.agents {
		keys = append(keys, key)
	}
	return keys
}
