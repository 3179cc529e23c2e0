// Package config implements the multi-source settings loader and the
// reference resolver for the component / agent / use-case trees.
//
// Configuration is merged from five tiers, highest priority first:
//
//  1. Constructor options (WithComponents, WithAgents, WithUseCases)
//  2. OS environment variables
//  3. A .env file
//  4. Mounted secret files (default /run/secrets)
//  5. The YAML manifest, with ${VAR} placeholders expanded before parsing
//
// Tiers 2-4 participate through placeholder expansion of the raw manifest
// text; the loader never writes anything back to the process environment.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"agents-backend/pkg/errors"
	"agents-backend/pkg/secret"
)

var validate = validator.New()

// ComponentConstructor describes how a component family is built.
//
// ModuleClass is a dotted identifier whose final segment is the type name
// and whose prefix is the providing package (e.g. "llm.groq.ChatModel").
// It is looked up in the process-wide type registry, never reflected.
type ComponentConstructor struct {
	ModuleClass string         `yaml:"module_class" validate:"required"`
	APIKey      *secret.Secret `yaml:"api_key"`
}

// ComponentInstance is a named parameter set within a family.
type ComponentInstance struct {
	Params map[string]any `yaml:"params"`
}

// ProviderFamily groups same-kind component instances sharing one
// constructor and an optional family-level secret.
type ProviderFamily struct {
	Constructor ComponentConstructor         `yaml:"constructor"`
	Instances   map[string]ComponentInstance `yaml:"instances"`
}

// ComponentsTree is the full component configuration:
// component_type -> framework -> family -> ProviderFamily.
type ComponentsTree map[string]map[string]map[string]ProviderFamily

// Dependency declares what an agent or use case needs from an earlier
// registry. It is either a single reference string or a mapping of
// alias -> reference.
type Dependency struct {
	Ref  string
	Refs map[string]string
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (d *Dependency) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&d.Ref)
	case yaml.MappingNode:
		return node.Decode(&d.Refs)
	default:
		return fmt.Errorf("dependency must be a reference string or an alias mapping (line %d)", node.Line)
	}
}

// MarshalJSON mirrors the YAML shape: the bare reference string or the
// alias map, never the struct's field names.
func (d Dependency) MarshalJSON() ([]byte, error) {
	if d.IsSingle() {
		return json.Marshal(d.Ref)
	}
	return json.Marshal(d.Refs)
}

// IsSingle reports whether the dependency is a bare reference string.
func (d Dependency) IsSingle() bool {
	return d.Ref != ""
}

// AgentInfo holds agent metadata.
type AgentInfo struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`
}

// AgentConstructor describes how an agent is built and what it depends on.
type AgentConstructor struct {
	ModuleClass string                `yaml:"module_class" validate:"required"`
	Components  map[string]Dependency `yaml:"components"`
	Config      map[string]any        `yaml:"config"`
}

// AgentConfig is the full definition of one configured agent.
type AgentConfig struct {
	Info        AgentInfo        `yaml:"info"`
	Constructor AgentConstructor `yaml:"constructor"`
}

// AgentsTree is the agent configuration: framework -> agent name -> AgentConfig.
type AgentsTree map[string]map[string]AgentConfig

// UseCaseInfo holds use-case metadata.
type UseCaseInfo struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`
	PathPrefix  string `yaml:"path_prefix"`
}

// UseCaseConstructor describes how a use case is built and what it depends on.
type UseCaseConstructor struct {
	ModuleClass string                `yaml:"module_class" validate:"required"`
	Components  map[string]Dependency `yaml:"components"`
	Config      map[string]any        `yaml:"config"`
}

// UseCaseConfig is the full definition of one configured use case.
type UseCaseConfig struct {
	Info        UseCaseInfo        `yaml:"info"`
	Constructor UseCaseConstructor `yaml:"constructor"`
}

// UseCasesTree is the use-case configuration keyed by use-case name.
type UseCasesTree map[string]UseCaseConfig

// Settings is the validated configuration tree the rest of the system
// reads. It is built once at startup and consumed read-only.
type Settings struct {
	Components ComponentsTree `yaml:"components"`
	Agents     AgentsTree     `yaml:"agents"`
	UseCases   UseCasesTree   `yaml:"use_cases"`
}

// Validate checks structural invariants of the loaded tree.
func (s *Settings) Validate() error {
	for compType, frameworks := range s.Components {
		for framework, families := range frameworks {
			for family, cfg := range families {
				path := fmt.Sprintf("components.%s.%s.%s", compType, framework, family)
				if err := validate.Struct(cfg.Constructor); err != nil {
					return errors.NewValidation(fmt.Sprintf("%s: %v", path, err))
				}
			}
		}
	}

	for framework, agents := range s.Agents {
		for name, cfg := range agents {
			path := fmt.Sprintf("agents.%s.%s", framework, name)
			if err := validate.Struct(cfg.Constructor); err != nil {
				return errors.NewValidation(fmt.Sprintf("%s: %v", path, err))
			}
			if err := validate.Struct(cfg.Info); err != nil {
				return errors.NewValidation(fmt.Sprintf("%s: %v", path, err))
			}
		}
	}

	for name, cfg := range s.UseCases {
		path := fmt.Sprintf("use_cases.%s", name)
		if err := validate.Struct(cfg.Constructor); err != nil {
			return errors.NewValidation(fmt.Sprintf("%s: %v", path, err))
		}
		if err := validate.Struct(cfg.Info); err != nil {
			return errors.NewValidation(fmt.Sprintf("%s: %v", path, err))
		}
	}

	return nil
}
