package config

import (
	"fmt"
	"sort"

	"agents-backend/pkg/secret"
)

// ComponentSummary is the introspection view of one configured component
// instance. Secrets are rendered redacted.
type ComponentSummary struct {
	Ref       string         `json:"ref"`
	Framework string         `json:"framework"`
	Family    string         `json:"family"`
	Instance  string         `json:"instance"`
	APIKey    string         `json:"api_key,omitempty"`
	Params    map[string]any `json:"params"`
}

// ListComponents returns every configured component instance grouped by
// component type, sorted by reference for stable output.
func (s *Settings) ListComponents() map[string][]ComponentSummary {
	result := map[string][]ComponentSummary{}

	for compType, frameworks := range s.Components {
		var list []ComponentSummary
		for framework, families := range frameworks {
			for familyName, family := range families {
				for instanceName, instance := range family.Instances {
					item := ComponentSummary{
						Ref:       fmt.Sprintf("%s.%s.%s.%s", compType, framework, familyName, instanceName),
						Framework: framework,
						Family:    familyName,
						Instance:  instanceName,
						Params:    instance.Params,
					}
					if family.Constructor.APIKey != nil {
						item.APIKey = secret.Redacted
					}
					list = append(list, item)
				}
			}
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Ref < list[j].Ref })
		result[compType] = list
	}

	return result
}

// AgentSummary is the introspection view of one configured agent.
type AgentSummary struct {
	Ref         string                `json:"ref"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Components  map[string]Dependency `json:"components,omitempty"`
}

// ListAgents returns every configured agent sorted by reference.
func (s *Settings) ListAgents() []AgentSummary {
	var result []AgentSummary

	for framework, agents := range s.Agents {
		for name, cfg := range agents {
			result = append(result, AgentSummary{
				Ref:         fmt.Sprintf("agents.%s.%s", framework, name),
				Name:        cfg.Info.Name,
				Description: cfg.Info.Description,
				Components:  cfg.Constructor.Components,
			})
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Ref < result[j].Ref })
	return result
}

// UseCaseSummary is the introspection view of one configured use case.
type UseCaseSummary struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	PathPrefix  string                `json:"path_prefix"`
	ModuleClass string                `json:"module_class"`
	Components  map[string]Dependency `json:"components,omitempty"`
}

// ListUseCases returns every configured use case keyed by registry name.
func (s *Settings) ListUseCases() map[string]UseCaseSummary {
	result := map[string]UseCaseSummary{}
	for name, cfg := range s.UseCases {
		result[name] = UseCaseSummary{
			Name:        cfg.Info.Name,
			Description: cfg.Info.Description,
			PathPrefix:  cfg.Info.PathPrefix,
			ModuleClass: cfg.Constructor.ModuleClass,
			Components:  cfg.Constructor.Components,
		}
	}
	return result
}
