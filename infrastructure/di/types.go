// Package di implements the three-tier build orchestration: a lazy,
// thread-safe component registry, eager agent and use-case registries, and
// the application container that sequences them.
//
// Dynamic-import-by-string from the original design is replaced by an
// explicit type registry: every constructible type is registered under its
// module-class identifier at process init, and resolution is a map lookup.
package di

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	apperrors "agents-backend/pkg/errors"
)

// ErrUnexpectedParam is returned by strict constructors when the parameter
// map carries a key the constructor does not accept. The component registry
// uses it to fall back to the config-map strategy; any other construction
// error propagates unchanged.
var ErrUnexpectedParam = errors.New("unexpected parameter")

// FactoryFunc constructs a component from its resolved parameter map.
// Secrets have been revealed and _ref parameters replaced with live
// instances by the time a factory runs.
type FactoryFunc func(ctx context.Context, params map[string]any) (any, error)

// Constructors declares which construction strategies a component type
// supports. The registry picks the first non-nil strategy in order
// Build, Create, New, NewFromConfig. New is the strict keyword-style
// constructor: it must return ErrUnexpectedParam (wrapped or bare) when
// handed an unknown parameter, which triggers fallback to NewFromConfig.
type Constructors struct {
	Build         FactoryFunc
	Create        FactoryFunc
	New           FactoryFunc
	NewFromConfig FactoryFunc
}

func (c Constructors) empty() bool {
	return c.Build == nil && c.Create == nil && c.New == nil && c.NewFromConfig == nil
}

// KwargsFunc constructs an agent or use case from keyword-style arguments:
// the optional flat "config" map merged with resolved dependency groups.
type KwargsFunc func(ctx context.Context, kwargs map[string]any) (any, error)

// TypeRegistry maps module-class identifiers to factories, one table per
// entity kind so a component identifier can never shadow an agent one.
// Registration happens at process init; lookups afterward are read-only.
type TypeRegistry struct {
	mu         sync.RWMutex
	components map[string]Constructors
	agents     map[string]KwargsFunc
	useCases   map[string]KwargsFunc
}

// NewTypeRegistry creates an empty type registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		components: map[string]Constructors{},
		agents:     map[string]KwargsFunc{},
		useCases:   map[string]KwargsFunc{},
	}
}

// RegisterComponent registers the constructors for a component type.
func (t *TypeRegistry) RegisterComponent(moduleClass string, ctors Constructors) error {
	if ctors.empty() {
		return apperrors.NewValidation(fmt.Sprintf(
			"component type %q registered without any constructor", moduleClass))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.components[moduleClass]; exists {
		return apperrors.NewValidation(fmt.Sprintf(
			"component type %q already registered", moduleClass))
	}
	t.components[moduleClass] = ctors
	return nil
}

// MustRegisterComponent is RegisterComponent that panics on error, for use
// in process-init registration tables.
func (t *TypeRegistry) MustRegisterComponent(moduleClass string, ctors Constructors) {
	if err := t.RegisterComponent(moduleClass, ctors); err != nil {
		panic(err)
	}
}

// RegisterAgent registers the factory for an agent type.
func (t *TypeRegistry) RegisterAgent(moduleClass string, factory KwargsFunc) error {
	if factory == nil {
		return apperrors.NewValidation(fmt.Sprintf(
			"agent type %q registered with nil factory", moduleClass))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.agents[moduleClass]; exists {
		return apperrors.NewValidation(fmt.Sprintf(
			"agent type %q already registered", moduleClass))
	}
	t.agents[moduleClass] = factory
	return nil
}

// MustRegisterAgent is RegisterAgent that panics on error.
func (t *TypeRegistry) MustRegisterAgent(moduleClass string, factory KwargsFunc) {
	if err := t.RegisterAgent(moduleClass, factory); err != nil {
		panic(err)
	}
}

// RegisterUseCase registers the factory for a use-case type.
func (t *TypeRegistry) RegisterUseCase(moduleClass string, factory KwargsFunc) error {
	if factory == nil {
		return apperrors.NewValidation(fmt.Sprintf(
			"use case type %q registered with nil factory", moduleClass))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.useCases[moduleClass]; exists {
		return apperrors.NewValidation(fmt.Sprintf(
			"use case type %q already registered", moduleClass))
	}
	t.useCases[moduleClass] = factory
	return nil
}

// MustRegisterUseCase is RegisterUseCase that panics on error.
func (t *TypeRegistry) MustRegisterUseCase(moduleClass string, factory KwargsFunc) {
	if err := t.RegisterUseCase(moduleClass, factory); err != nil {
		panic(err)
	}
}

// Component looks up the constructors registered for moduleClass.
func (t *TypeRegistry) Component(moduleClass string) (Constructors, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ctors, ok := t.components[moduleClass]
	if !ok {
		return Constructors{}, apperrors.NewNotFound(fmt.Sprintf(
			"no component type registered as %q", moduleClass))
	}
	return ctors, nil
}

// Agent looks up the factory registered for moduleClass.
func (t *TypeRegistry) Agent(moduleClass string) (KwargsFunc, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	factory, ok := t.agents[moduleClass]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf(
			"no agent type registered as %q", moduleClass))
	}
	return factory, nil
}

// UseCase looks up the factory registered for moduleClass.
func (t *TypeRegistry) UseCase(moduleClass string) (KwargsFunc, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	factory, ok := t.useCases[moduleClass]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf(
			"no use case type registered as %q", moduleClass))
	}
	return factory, nil
}

// DecodeParams decodes a parameter map into a typed options struct,
// rejecting unknown keys with ErrUnexpectedParam. Strict constructors use
// it to implement keyword-argument semantics deterministically: unknown
// keys are detected structurally via decoder metadata, not by probing
// error text.
func DecodeParams(params map[string]any, target any) error {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		Metadata:         &md,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(params); err != nil {
		return err
	}
	if len(md.Unused) > 0 {
		return fmt.Errorf("%w: %v", ErrUnexpectedParam, md.Unused)
	}
	return nil
}
