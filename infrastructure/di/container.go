package di

import (
	"context"

	"go.uber.org/zap"

	"agents-backend/infrastructure/config"
	"agents-backend/pkg/observability"
)

// AppContainer composes the three registries in their required build
// order: components, then agents, then use cases. Dependencies only ever
// point backwards along that chain.
type AppContainer struct {
	Settings   *config.Settings
	Components *ComponentRegistry
	Agents     *AgentRegistry
	UseCases   *UseCaseRegistry

	logger *zap.Logger
}

// Build assembles the full container. The component registry itself is
// cheap to construct and instantiates nothing eagerly; agents and use
// cases are built immediately and any failure aborts application boot.
func Build(
	ctx context.Context,
	settings *config.Settings,
	types *TypeRegistry,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*AppContainer, error) {
	logger.Info("building application components")
	components := NewComponentRegistry(settings, types, logger, metrics)

	logger.Info("initializing agents")
	agents, err := BuildAgents(ctx, settings, types, components, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("setting up use cases")
	useCases, err := BuildUseCases(ctx, settings, types, agents, components, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("container build complete")
	return &AppContainer{
		Settings:   settings,
		Components: components,
		Agents:     agents,
		UseCases:   useCases,
		logger:     logger,
	}, nil
}

// Shutdown disposes long-lived resources. Agents and use cases hold
// references to components but own nothing disposable of their own, so
// only the component registry is cleaned up. Safe to call more than once.
func (c *AppContainer) Shutdown(ctx context.Context) {
	c.logger.Info("cleaning up resources")
	c.Components.Shutdown(ctx)
	c.logger.Info("resources cleaned up")
}
