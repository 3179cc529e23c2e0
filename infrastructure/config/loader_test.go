package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "agents-backend/pkg/errors"
	"agents-backend/pkg/secret"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingManifestYieldsEmptyTree(t *testing.T) {
	loader := NewLoader(WithManifestPath(filepath.Join(t.TempDir(), "absent.yaml")))

	settings, err := loader.Load()
	require.NoError(t, err)
	assert.Empty(t, settings.Components)
	assert.Empty(t, settings.Agents)
	assert.Empty(t, settings.UseCases)
}

func TestLoadMalformedYAMLIsParseError(t *testing.T) {
	path := writeManifest(t, "components: [unterminated")

	_, err := NewLoader(WithManifestPath(path)).Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigParse(err))
}

func TestLoadWrongFieldTypeIsValidationError(t *testing.T) {
	// instances must be a mapping, not a scalar
	path := writeManifest(t, `
components:
  llms:
    native:
      groq:
        constructor:
          module_class: llm.groq.ChatModel
        instances: "nope"
`)

	_, err := NewLoader(WithManifestPath(path)).Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestLoadMissingModuleClassFailsValidation(t *testing.T) {
	path := writeManifest(t, `
components:
  llms:
    native:
      groq:
        constructor:
          api_key: k
        instances:
          default:
            params: {}
`)

	_, err := NewLoader(WithManifestPath(path)).Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestLoadExpandsSecretsIntoManifest(t *testing.T) {
	secretsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "MOUNTED_KEY"), []byte("mounted\n"), 0o600))

	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("DOTENV_KEY=from-dotenv\nOS_WINS=dotenv-loses\n"), 0o600))

	t.Setenv("OS_WINS", "from-os")

	path := writeManifest(t, `
components:
  llms:
    native:
      groq:
        constructor:
          module_class: llm.groq.ChatModel
          api_key: ${MOUNTED_KEY}
        instances:
          default:
            params:
              a: ${DOTENV_KEY}
              b: ${OS_WINS}
`)

	settings, err := NewLoader(
		WithManifestPath(path),
		WithSecretsDir(secretsDir),
		WithDotenvPath(dotenv),
	).Load()
	require.NoError(t, err)

	family := settings.Components["llms"]["native"]["groq"]
	require.NotNil(t, family.Constructor.APIKey)
	assert.Equal(t, "mounted", family.Constructor.APIKey.Reveal())
	assert.Equal(t, secret.Redacted, family.Constructor.APIKey.String())

	params := family.Instances["default"].Params
	assert.Equal(t, "from-dotenv", params["a"])
	assert.Equal(t, "from-os", params["b"])
}

func TestLoadConstructorTreesSuppressManifest(t *testing.T) {
	path := writeManifest(t, `
use_cases:
  from_manifest:
    info:
      name: Should not load
    constructor:
      module_class: usecases.ignored.UseCase
`)

	settings, err := NewLoader(
		WithManifestPath(path),
		WithComponents(ComponentsTree{
			"llms": {
				"native": {
					"fake": ProviderFamily{
						Constructor: ComponentConstructor{ModuleClass: "llm.fake.ChatModel"},
						Instances:   map[string]ComponentInstance{"default": {}},
					},
				},
			},
		}),
	).Load()
	require.NoError(t, err)

	assert.Contains(t, settings.Components["llms"]["native"], "fake")
	assert.Empty(t, settings.UseCases, "manifest must be suppressed by constructor trees")
}
