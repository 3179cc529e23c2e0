package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"agents-backend/application/ports"
	"agents-backend/infrastructure/config"
	apperrors "agents-backend/pkg/errors"
)

// UseCaseRegistry holds the use-case instances built at startup, keyed by
// their configuration name.
type UseCaseRegistry struct {
	logger   *zap.Logger
	useCases map[string]any
}

// BuildUseCases constructs every configured use case eagerly, after the
// agent registry. Agent dependencies resolve from the agent registry;
// other dependency groups resolve from the component registry when one is
// supplied, else the raw reference string is passed through with a warning
// so callers that only need identifiers still work.
func BuildUseCases(
	ctx context.Context,
	settings *config.Settings,
	types *TypeRegistry,
	agents *AgentRegistry,
	components *ComponentRegistry,
	logger *zap.Logger,
) (*UseCaseRegistry, error) {
	useCases := map[string]any{}

	for name, useCaseCfg := range settings.UseCases {
		logger.Info("setting up use case",
			zap.String("use_case", name),
			zap.String("name", useCaseCfg.Info.Name))

		factory, err := types.UseCase(useCaseCfg.Constructor.ModuleClass)
		if err != nil {
			return nil, err
		}

		kwargs := map[string]any{}
		if useCaseCfg.Constructor.Config != nil {
			kwargs["config"] = useCaseCfg.Constructor.Config
		}

		for group, dependency := range useCaseCfg.Constructor.Components {
			if group == "agents" {
				if err := resolveAgentGroup(kwargs, agents, dependency); err != nil {
					return nil, apperrors.Wrap(err, fmt.Sprintf(
						"use case %q agent dependencies", name))
				}
				continue
			}

			resolved, err := resolveUseCaseGroup(ctx, components, group, dependency, logger)
			if err != nil {
				return nil, apperrors.Wrap(err, fmt.Sprintf(
					"use case %q dependency group %q", name, group))
			}
			kwargs[group] = resolved
		}

		useCase, err := factory(ctx, kwargs)
		if err != nil {
			return nil, apperrors.NewInstantiation(fmt.Sprintf(
				"use case %q (%s)", name, useCaseCfg.Constructor.ModuleClass), err)
		}

		useCases[name] = useCase
		logger.Debug("use case initialized", zap.String("use_case", name))
	}

	return &UseCaseRegistry{logger: logger, useCases: useCases}, nil
}

// resolveAgentGroup resolves agent dependencies into kwargs. A single
// aliased dependency named "agent" is passed as a bare "agent" keyword,
// the ergonomic shape for single-agent use cases.
func resolveAgentGroup(kwargs map[string]any, agents *AgentRegistry, dependency config.Dependency) error {
	if dependency.IsSingle() {
		agent, err := agents.Get(dependency.Ref)
		if err != nil {
			return err
		}
		kwargs["agents"] = agent
		return nil
	}

	resolved := make(map[string]any, len(dependency.Refs))
	for alias, ref := range dependency.Refs {
		agent, err := agents.Get(ref)
		if err != nil {
			return err
		}
		resolved[alias] = agent
	}

	if len(resolved) == 1 {
		if agent, ok := resolved["agent"]; ok {
			kwargs["agent"] = agent
			return nil
		}
	}
	kwargs["agents"] = resolved
	return nil
}

// resolveUseCaseGroup resolves a non-agent dependency group. With no
// component registry available the raw reference strings pass through
// unresolved (degraded mode). A single alias matching the group name
// collapses to the bare instance.
func resolveUseCaseGroup(
	ctx context.Context,
	components *ComponentRegistry,
	group string,
	dependency config.Dependency,
	logger *zap.Logger,
) (any, error) {
	if dependency.IsSingle() {
		if components == nil {
			logger.Warn("component registry not available, passing raw reference",
				zap.String("ref", dependency.Ref))
			return dependency.Ref, nil
		}
		return components.Get(ctx, dependency.Ref)
	}

	resolved := make(map[string]any, len(dependency.Refs))
	for alias, ref := range dependency.Refs {
		if components == nil {
			logger.Warn("component registry not available, passing raw reference",
				zap.String("ref", ref))
			resolved[alias] = ref
			continue
		}
		instance, err := components.Get(ctx, ref)
		if err != nil {
			return nil, err
		}
		resolved[alias] = instance
	}

	if len(resolved) == 1 {
		if instance, ok := resolved[group]; ok {
			return instance, nil
		}
	}
	return resolved, nil
}

// Get retrieves a use case by name.
func (r *UseCaseRegistry) Get(name string) (any, error) {
	useCase, ok := r.useCases[name]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("unknown use case %q", name))
	}
	return useCase, nil
}

// AgentAnswerUseCases filters the built use cases to those a generic
// dispatcher can drive: anything implementing ports.AnswerCapable.
func (r *UseCaseRegistry) AgentAnswerUseCases() map[string]ports.AnswerCapable {
	result := map[string]ports.AnswerCapable{}
	for name, useCase := range r.useCases {
		if capable, ok := useCase.(ports.AnswerCapable); ok {
			result[name] = capable
		}
	}
	return result
}
