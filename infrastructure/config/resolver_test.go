package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "agents-backend/pkg/errors"
	"agents-backend/pkg/secret"
)

func testSettings() *Settings {
	apiKey := secret.New("raw-key")
	return &Settings{
		Components: ComponentsTree{
			"llms": {
				"native": {
					"groq": ProviderFamily{
						Constructor: ComponentConstructor{
							ModuleClass: "llm.groq.ChatModel",
							APIKey:      &apiKey,
						},
						Instances: map[string]ComponentInstance{
							"main": {Params: map[string]any{"model": "llama-3.3-70b-versatile"}},
						},
					},
				},
			},
		},
		Agents: AgentsTree{
			"native": {
				"basic_answer": AgentConfig{
					Info:        AgentInfo{Name: "Basic"},
					Constructor: AgentConstructor{ModuleClass: "agents.basic_answer.Agent"},
				},
			},
		},
		UseCases: UseCasesTree{
			"basic_answer": {
				Info:        UseCaseInfo{Name: "Basic"},
				Constructor: UseCaseConstructor{ModuleClass: "usecases.basic_answer.UseCase"},
			},
		},
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "llms.native.groq.main", Normalize("llms/native/groq/main"))
	assert.Equal(t, "llms.native.groq.main", Normalize("llms-native-groq-main"))
	assert.Equal(t, "llms.native.groq.main", Normalize("llms.native/groq-main"))
}

func TestResolveComponent(t *testing.T) {
	settings := testSettings()

	resolved, err := settings.ResolveComponent("llms/native/groq/main")
	require.NoError(t, err)
	assert.Equal(t, "llm.groq.ChatModel", resolved.ModuleClass)
	assert.Equal(t, "llama-3.3-70b-versatile", resolved.Params["model"])

	// family api_key injected as a Secret, not a raw string
	injected, ok := resolved.Params["api_key"].(secret.Secret)
	require.True(t, ok)
	assert.Equal(t, "raw-key", injected.Reveal())
}

func TestResolveComponentReturnsCopy(t *testing.T) {
	settings := testSettings()

	first, err := settings.ResolveComponent("llms.native.groq.main")
	require.NoError(t, err)
	first.Params["model"] = "mutated"

	second, err := settings.ResolveComponent("llms.native.groq.main")
	require.NoError(t, err)
	assert.Equal(t, "llama-3.3-70b-versatile", second.Params["model"])
}

func TestResolveComponentArity(t *testing.T) {
	settings := testSettings()

	for _, ref := range []string{"llms.native.groq", "llms.native.groq.main.extra", "main"} {
		_, err := settings.ResolveComponent(ref)
		require.Error(t, err, ref)
		assert.True(t, apperrors.IsInvalidReference(err), ref)
	}
}

func TestResolveComponentNamesMissingHop(t *testing.T) {
	settings := testSettings()

	tests := []struct {
		ref     string
		wantMsg string
	}{
		{"nope.native.groq.main", "unknown component type"},
		{"llms.nope.groq.main", "unknown framework"},
		{"llms.native.nope.main", "unknown family"},
		{"llms.native.groq.nope", "unknown instance"},
	}
	for _, tt := range tests {
		_, err := settings.ResolveComponent(tt.ref)
		require.Error(t, err, tt.ref)
		assert.True(t, apperrors.IsNotFound(err), tt.ref)
		assert.Contains(t, err.Error(), tt.wantMsg)
	}
}

func TestResolveAgent(t *testing.T) {
	settings := testSettings()

	for _, ref := range []string{"native.basic_answer", "agents.native.basic_answer", "agents/native/basic_answer"} {
		cfg, err := settings.ResolveAgent(ref)
		require.NoError(t, err, ref)
		assert.Equal(t, "agents.basic_answer.Agent", cfg.Constructor.ModuleClass)
	}

	_, err := settings.ResolveAgent("basic_answer")
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidReference(err))

	_, err = settings.ResolveAgent("native.missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestResolveUseCase(t *testing.T) {
	settings := testSettings()

	cfg, err := settings.ResolveUseCase("basic_answer")
	require.NoError(t, err)
	assert.Equal(t, "usecases.basic_answer.UseCase", cfg.Constructor.ModuleClass)

	_, err = settings.ResolveUseCase("some.dotted.name")
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidReference(err))

	_, err = settings.ResolveUseCase("missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestResolveDispatchesOnKind(t *testing.T) {
	settings := testSettings()

	resolved, err := settings.Resolve("llms.native.groq.main", KindComponent)
	require.NoError(t, err)
	assert.IsType(t, &ResolvedComponent{}, resolved)

	resolved, err = settings.Resolve("native.basic_answer", KindAgent)
	require.NoError(t, err)
	assert.IsType(t, &AgentConfig{}, resolved)

	resolved, err = settings.Resolve("basic_answer", KindUseCase)
	require.NoError(t, err)
	assert.IsType(t, &UseCaseConfig{}, resolved)

	_, err = settings.Resolve("anything", Kind("bogus"))
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidReference(err))
}

func TestListComponentsRedactsSecrets(t *testing.T) {
	settings := testSettings()

	listed := settings.ListComponents()
	require.Len(t, listed["llms"], 1)
	assert.Equal(t, "llms.native.groq.main", listed["llms"][0].Ref)
	assert.Equal(t, secret.Redacted, listed["llms"][0].APIKey)
}
