package secret

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSecretNeverPrintsItsValue(t *testing.T) {
	s := New("super-secret")

	assert.Equal(t, Redacted, s.String())
	assert.Equal(t, Redacted, fmt.Sprintf("%v", s))
	assert.NotContains(t, fmt.Sprintf("%#v", s), "super-secret")
	assert.NotContains(t, fmt.Sprintf("%+v", s), "super-secret")

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "super-secret")

	yml, err := yaml.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(yml), "super-secret")
}

func TestSecretReveal(t *testing.T) {
	assert.Equal(t, "raw", New("raw").Reveal())
	assert.True(t, Secret{}.IsZero())
	assert.False(t, New("x").IsZero())
}

func TestSecretUnmarshalYAML(t *testing.T) {
	var s Secret
	require.NoError(t, yaml.Unmarshal([]byte(`"from-yaml"`), &s))
	assert.Equal(t, "from-yaml", s.Reveal())
	assert.Equal(t, Redacted, s.String())
}
