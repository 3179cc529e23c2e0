package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agents-backend/infrastructure/config"
)

const manifestYAML = `
components:
  llms:
    native:
      groq:
        constructor:
          module_class: llm.groq.ChatModel
          api_key: ${GROQ_API_KEY}
        instances:
          llama_3_3_70b_cold:
            params:
              temperature: 0.1
`

// Loads a manifest from disk, expands the API key from the environment and
// builds the component through the registry, checking the constructor sees
// the fully assembled parameter set.
func TestManifestToComponentEndToEnd(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifestYAML), 0o600))
	t.Setenv("GROQ_API_KEY", "abc123")

	settings, err := config.NewLoader(
		config.WithManifestPath(manifestPath),
		config.WithSecretsDir(filepath.Join(dir, "no-secrets")),
		config.WithDotenvPath(filepath.Join(dir, "no-dotenv")),
	).Load()
	require.NoError(t, err)

	var seen map[string]any
	types := NewTypeRegistry()
	types.MustRegisterComponent("llm.groq.ChatModel", Constructors{
		New: func(_ context.Context, params map[string]any) (any, error) {
			seen = params
			return &fakeModel{}, nil
		},
	})

	registry := NewComponentRegistry(settings, types, zap.NewNop(), nil)

	instance, err := registry.Get(context.Background(), "llms/native/groq/llama_3_3_70b_cold")
	require.NoError(t, err)
	require.NotNil(t, instance)

	assert.Equal(t, 0.1, seen["temperature"])
	assert.Equal(t, "abc123", seen["api_key"])
	assert.True(t, registry.Cached("llms.native.groq.llama_3_3_70b_cold"))

	again, err := registry.Get(context.Background(), "llms.native.groq.llama_3_3_70b_cold")
	require.NoError(t, err)
	assert.Same(t, instance, again)
}
