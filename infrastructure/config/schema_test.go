package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDependencyJSONMirrorsYAMLShape(t *testing.T) {
	t.Run("single reference", func(t *testing.T) {
		out, err := json.Marshal(Dependency{Ref: "llms.native.groq.main"})
		require.NoError(t, err)
		assert.JSONEq(t, `"llms.native.groq.main"`, string(out))
	})

	t.Run("alias map", func(t *testing.T) {
		out, err := json.Marshal(Dependency{Refs: map[string]string{"agent": "agents.native.basic"}})
		require.NoError(t, err)
		assert.JSONEq(t, `{"agent":"agents.native.basic"}`, string(out))
	})

	t.Run("yaml round trip", func(t *testing.T) {
		var dep Dependency
		require.NoError(t, yaml.Unmarshal([]byte(`main: llms.native.groq.main`), &dep))
		out, err := json.Marshal(dep)
		require.NoError(t, err)
		assert.JSONEq(t, `{"main":"llms.native.groq.main"}`, string(out))
	})
}
