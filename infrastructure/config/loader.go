package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	apperrors "agents-backend/pkg/errors"
)

const (
	// DefaultManifestPath is where the YAML manifest is expected unless
	// SETTINGS_YAML_PATH overrides it.
	DefaultManifestPath = "settings.yaml"

	// DefaultSecretsDir mirrors the container-orchestrator convention for
	// mounted secret files. Overridden by SECRETS_DIR.
	DefaultSecretsDir = "/run/secrets"

	// DefaultDotenvPath is the .env file consulted for expansion values.
	DefaultDotenvPath = ".env"
)

// Loader assembles Settings from the configured sources.
type Loader struct {
	manifestPath string
	secretsDir   string
	dotenvPath   string

	components ComponentsTree
	agents     AgentsTree
	useCases   UseCasesTree

	logger *zap.Logger
}

// Option customizes a Loader.
type Option func(*Loader)

// WithManifestPath overrides the YAML manifest location.
func WithManifestPath(path string) Option {
	return func(l *Loader) { l.manifestPath = path }
}

// WithSecretsDir overrides the mounted-secrets directory.
func WithSecretsDir(dir string) Option {
	return func(l *Loader) { l.secretsDir = dir }
}

// WithDotenvPath overrides the .env file location.
func WithDotenvPath(path string) Option {
	return func(l *Loader) { l.dotenvPath = path }
}

// WithComponents supplies the component tree directly, bypassing the
// manifest. This is the highest-priority tier and is what tests use.
func WithComponents(tree ComponentsTree) Option {
	return func(l *Loader) { l.components = tree }
}

// WithAgents supplies the agent tree directly, bypassing the manifest.
func WithAgents(tree AgentsTree) Option {
	return func(l *Loader) { l.agents = tree }
}

// WithUseCases supplies the use-case tree directly, bypassing the manifest.
func WithUseCases(tree UseCasesTree) Option {
	return func(l *Loader) { l.useCases = tree }
}

// WithLogger sets the logger used during loading.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader builds a Loader with defaults taken from the environment:
// SETTINGS_YAML_PATH and SECRETS_DIR mirror the deployment conventions.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		manifestPath: getEnv("SETTINGS_YAML_PATH", DefaultManifestPath),
		secretsDir:   getEnv("SECRETS_DIR", DefaultSecretsDir),
		dotenvPath:   DefaultDotenvPath,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load produces a validated Settings tree.
//
// A missing manifest file yields an empty tree so that constructor-only
// configuration works. Malformed YAML is a fatal parse error; wrong field
// types are fatal validation errors.
func (l *Loader) Load() (*Settings, error) {
	settings := &Settings{
		Components: ComponentsTree{},
		Agents:     AgentsTree{},
		UseCases:   UseCasesTree{},
	}

	// Constructor-supplied trees take precedence over everything and
	// suppress the manifest entirely, the same way explicit arguments do.
	if l.components != nil || l.agents != nil || l.useCases != nil {
		if l.components != nil {
			settings.Components = l.components
		}
		if l.agents != nil {
			settings.Agents = l.agents
		}
		if l.useCases != nil {
			settings.UseCases = l.useCases
		}
		if err := settings.Validate(); err != nil {
			return nil, err
		}
		return settings, nil
	}

	raw, err := os.ReadFile(l.manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Info("settings manifest not found, using empty tree",
				zap.String("path", l.manifestPath))
			return settings, nil
		}
		return nil, apperrors.NewConfigParse(
			fmt.Sprintf("reading manifest %s", l.manifestPath), err)
	}

	l.logger.Info("loading settings manifest",
		zap.String("path", l.manifestPath),
		zap.String("secrets_dir", l.secretsDir))

	expanded := ExpandVars(string(raw), l.expansionEnv(), l.secretsDir)

	if err := yaml.Unmarshal([]byte(expanded), settings); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return nil, apperrors.NewValidation(
				fmt.Sprintf("manifest %s: %v", l.manifestPath, typeErr))
		}
		return nil, apperrors.NewConfigParse(
			fmt.Sprintf("parsing manifest %s", l.manifestPath), err)
	}
	if settings.Components == nil {
		settings.Components = ComponentsTree{}
	}
	if settings.Agents == nil {
		settings.Agents = AgentsTree{}
	}
	if settings.UseCases == nil {
		settings.UseCases = UseCasesTree{}
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// expansionEnv builds the variable lookup map for manifest expansion:
// .env values overlaid by the OS environment, OS winning on collision.
// The process environment is read but never written.
func (l *Loader) expansionEnv() map[string]string {
	env := map[string]string{}

	if l.dotenvPath != "" {
		dotenv, err := gotenv.Read(l.dotenvPath)
		if err == nil {
			for k, v := range dotenv {
				env[k] = v
			}
		} else if !os.IsNotExist(err) {
			l.logger.Warn("failed to read .env file",
				zap.String("path", l.dotenvPath), zap.Error(err))
		}
	}

	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				env[kv[:i]] = kv[i+1:]
				break
			}
		}
	}

	return env
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
