package config

import (
	"fmt"
	"strings"

	"agents-backend/pkg/errors"
)

// Kind discriminates what a reference is expected to point at. Tagging the
// kind at every resolution site surfaces "wrong kind" mistakes as clear
// arity errors instead of generic lookup misses.
type Kind string

const (
	KindComponent Kind = "component"
	KindAgent     Kind = "agent"
	KindUseCase   Kind = "use_case"
)

// Normalize rewrites the accepted separators ('/', '-') to dots so that all
// spellings of a reference share one identity.
func Normalize(ref string) string {
	ref = strings.ReplaceAll(ref, "/", ".")
	return strings.ReplaceAll(ref, "-", ".")
}

// ResolvedComponent is the construction contract for one component
// instance: the type-registry identifier plus the merged parameter map.
// Params may contain secret.Secret values; they are revealed by the
// component registry at instantiation time, not here.
type ResolvedComponent struct {
	ModuleClass string
	Params      map[string]any
}

// ResolveComponent resolves a 4-segment component reference
// (type.framework.family.instance) against the tree.
//
// The returned parameter map is a copy: instance params plus, when the
// family declares an api_key, that secret injected under "api_key".
func (s *Settings) ResolveComponent(ref string) (*ResolvedComponent, error) {
	normalized := Normalize(ref)
	parts := strings.Split(normalized, ".")
	if len(parts) != 4 {
		return nil, errors.NewInvalidReference(fmt.Sprintf(
			"component reference %q has %d segments, expected 4 (type.framework.family.instance)",
			ref, len(parts)))
	}

	compType, framework, family, instance := parts[0], parts[1], parts[2], parts[3]

	frameworks, ok := s.Components[compType]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf(
			"component %q: unknown component type %q", ref, compType))
	}
	families, ok := frameworks[framework]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf(
			"component %q: unknown framework %q", ref, framework))
	}
	providerFamily, ok := families[family]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf(
			"component %q: unknown family %q", ref, family))
	}
	instanceCfg, ok := providerFamily.Instances[instance]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf(
			"component %q: unknown instance %q", ref, instance))
	}

	params := make(map[string]any, len(instanceCfg.Params)+1)
	for k, v := range instanceCfg.Params {
		params[k] = v
	}
	if providerFamily.Constructor.APIKey != nil {
		params["api_key"] = *providerFamily.Constructor.APIKey
	}

	return &ResolvedComponent{
		ModuleClass: providerFamily.Constructor.ModuleClass,
		Params:      params,
	}, nil
}

// ResolveAgent resolves a 2-segment agent reference (framework.name),
// accepting and stripping an optional leading "agents." segment.
func (s *Settings) ResolveAgent(ref string) (*AgentConfig, error) {
	normalized := strings.TrimPrefix(Normalize(ref), "agents.")
	parts := strings.Split(normalized, ".")
	if len(parts) != 2 {
		return nil, errors.NewInvalidReference(fmt.Sprintf(
			"agent reference %q has %d segments, expected 2 (framework.agent_name)",
			ref, len(parts)))
	}

	framework, name := parts[0], parts[1]

	agents, ok := s.Agents[framework]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf(
			"agent %q: unknown framework %q", ref, framework))
	}
	cfg, ok := agents[name]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf(
			"agent %q: unknown agent %q", ref, name))
	}
	return &cfg, nil
}

// ResolveUseCase resolves a 1-segment use-case reference.
func (s *Settings) ResolveUseCase(ref string) (*UseCaseConfig, error) {
	normalized := Normalize(ref)
	if strings.Contains(normalized, ".") {
		return nil, errors.NewInvalidReference(fmt.Sprintf(
			"use case reference %q must be a single segment", ref))
	}

	cfg, ok := s.UseCases[normalized]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf("unknown use case %q", ref))
	}
	return &cfg, nil
}

// Resolve dispatches on kind. Components return a *ResolvedComponent,
// agents an *AgentConfig, use cases a *UseCaseConfig. Resolution is a pure
// lookup: resolving the same reference against the same tree always yields
// equal results.
func (s *Settings) Resolve(ref string, kind Kind) (any, error) {
	switch kind {
	case KindComponent:
		return s.ResolveComponent(ref)
	case KindAgent:
		return s.ResolveAgent(ref)
	case KindUseCase:
		return s.ResolveUseCase(ref)
	default:
		return nil, errors.NewInvalidReference(fmt.Sprintf("invalid reference kind %q", kind))
	}
}
