package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "agents-backend/pkg/errors"
)

func noopFactory(_ context.Context, _ map[string]any) (any, error) {
	return struct{}{}, nil
}

func TestTypeRegistryDuplicateRegistration(t *testing.T) {
	types := NewTypeRegistry()

	require.NoError(t, types.RegisterComponent("llm.fake.ChatModel", Constructors{New: noopFactory}))
	err := types.RegisterComponent("llm.fake.ChatModel", Constructors{New: noopFactory})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestTypeRegistryRejectsEmptyConstructors(t *testing.T) {
	types := NewTypeRegistry()

	err := types.RegisterComponent("llm.fake.ChatModel", Constructors{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestTypeRegistryKindsAreSeparate(t *testing.T) {
	types := NewTypeRegistry()

	// The same identifier can exist per kind without shadowing.
	require.NoError(t, types.RegisterComponent("shared.Name", Constructors{New: noopFactory}))
	require.NoError(t, types.RegisterAgent("shared.Name", noopFactory))
	require.NoError(t, types.RegisterUseCase("shared.Name", noopFactory))

	_, err := types.Component("shared.Name")
	assert.NoError(t, err)
	_, err = types.Agent("shared.Name")
	assert.NoError(t, err)
	_, err = types.UseCase("shared.Name")
	assert.NoError(t, err)
}

func TestTypeRegistryUnknownLookup(t *testing.T) {
	types := NewTypeRegistry()

	_, err := types.Component("llm.unknown.ChatModel")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDecodeParams(t *testing.T) {
	type options struct {
		Model       string  `mapstructure:"model"`
		Temperature float64 `mapstructure:"temperature"`
	}

	t.Run("known keys decode", func(t *testing.T) {
		var opts options
		err := DecodeParams(map[string]any{"model": "m", "temperature": 0.1}, &opts)
		require.NoError(t, err)
		assert.Equal(t, "m", opts.Model)
		assert.Equal(t, 0.1, opts.Temperature)
	})

	t.Run("unknown key yields ErrUnexpectedParam", func(t *testing.T) {
		var opts options
		err := DecodeParams(map[string]any{"model": "m", "bogus": true}, &opts)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnexpectedParam)
	})

	t.Run("weak typing accepted", func(t *testing.T) {
		var opts options
		err := DecodeParams(map[string]any{"temperature": "0.5"}, &opts)
		require.NoError(t, err)
		assert.Equal(t, 0.5, opts.Temperature)
	})
}
