package di

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agents-backend/infrastructure/config"
	apperrors "agents-backend/pkg/errors"
	"agents-backend/pkg/secret"
)

type fakeModel struct {
	params map[string]any
}

type closableComponent struct {
	closed atomic.Bool
	fail   bool
}

func (c *closableComponent) Close() error {
	c.closed.Store(true)
	if c.fail {
		return errors.New("close failed")
	}
	return nil
}

type ctxClosableComponent struct {
	shutdownCalls atomic.Int32
}

func (c *ctxClosableComponent) Shutdown(_ context.Context) error {
	c.shutdownCalls.Add(1)
	return nil
}

func familyWithKey(moduleClass, key string, instances map[string]config.ComponentInstance) config.ProviderFamily {
	family := config.ProviderFamily{
		Constructor: config.ComponentConstructor{ModuleClass: moduleClass},
		Instances:   instances,
	}
	if key != "" {
		apiKey := secret.New(key)
		family.Constructor.APIKey = &apiKey
	}
	return family
}

func llmSettings(key string, params map[string]any) *config.Settings {
	return &config.Settings{
		Components: config.ComponentsTree{
			"llms": {
				"native": {
					"fake": familyWithKey("llm.fake.ChatModel", key, map[string]config.ComponentInstance{
						"main": {Params: params},
					}),
				},
			},
		},
	}
}

func newTestRegistry(t *testing.T, settings *config.Settings, register func(*TypeRegistry)) *ComponentRegistry {
	t.Helper()
	types := NewTypeRegistry()
	register(types)
	return NewComponentRegistry(settings, types, zap.NewNop(), nil)
}

func TestComponentRegistrySingletonIdentity(t *testing.T) {
	var built atomic.Int32
	registry := newTestRegistry(t, llmSettings("", nil), func(types *TypeRegistry) {
		types.MustRegisterComponent("llm.fake.ChatModel", Constructors{
			New: func(_ context.Context, params map[string]any) (any, error) {
				built.Add(1)
				return &fakeModel{params: params}, nil
			},
		})
	})

	first, err := registry.Get(context.Background(), "llms.native.fake.main")
	require.NoError(t, err)
	second, err := registry.Get(context.Background(), "llms.native.fake.main")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), built.Load())
}

func TestComponentRegistrySeparatorSpellingsShareOneEntry(t *testing.T) {
	var built atomic.Int32
	registry := newTestRegistry(t, llmSettings("", nil), func(types *TypeRegistry) {
		types.MustRegisterComponent("llm.fake.ChatModel", Constructors{
			New: func(_ context.Context, params map[string]any) (any, error) {
				built.Add(1)
				return &fakeModel{params: params}, nil
			},
		})
	})

	dotted, err := registry.Get(context.Background(), "llms.native.fake.main")
	require.NoError(t, err)
	slashed, err := registry.Get(context.Background(), "llms/native/fake/main")
	require.NoError(t, err)
	dashed, err := registry.Get(context.Background(), "llms-native-fake-main")
	require.NoError(t, err)

	assert.Same(t, dotted, slashed)
	assert.Same(t, dotted, dashed)
	assert.Equal(t, int32(1), built.Load())
}

func TestComponentRegistryConcurrentGetBuildsOnce(t *testing.T) {
	var built atomic.Int32
	registry := newTestRegistry(t, llmSettings("", nil), func(types *TypeRegistry) {
		types.MustRegisterComponent("llm.fake.ChatModel", Constructors{
			New: func(_ context.Context, params map[string]any) (any, error) {
				built.Add(1)
				return &fakeModel{params: params}, nil
			},
		})
	})

	const goroutines = 32
	instances := make([]any, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			instance, err := registry.Get(context.Background(), "llms.native.fake.main")
			assert.NoError(t, err)
			instances[i] = instance
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), built.Load(), "concurrent callers must share one build")
	for i := 1; i < goroutines; i++ {
		assert.Same(t, instances[0], instances[i])
	}
}

func TestComponentRegistryStrictNewFallsBackOnUnexpectedParam(t *testing.T) {
	type options struct {
		Model string `mapstructure:"model"`
	}

	var newCalls, configCalls atomic.Int32
	settings := llmSettings("", map[string]any{"model": "m", "extra_knob": 42})

	registry := newTestRegistry(t, settings, func(types *TypeRegistry) {
		types.MustRegisterComponent("llm.fake.ChatModel", Constructors{
			New: func(_ context.Context, params map[string]any) (any, error) {
				newCalls.Add(1)
				var opts options
				if err := DecodeParams(params, &opts); err != nil {
					return nil, err
				}
				return &fakeModel{}, nil
			},
			NewFromConfig: func(_ context.Context, params map[string]any) (any, error) {
				configCalls.Add(1)
				return &fakeModel{params: params}, nil
			},
		})
	})

	instance, err := registry.Get(context.Background(), "llms.native.fake.main")
	require.NoError(t, err)
	assert.Equal(t, int32(1), newCalls.Load())
	assert.Equal(t, int32(1), configCalls.Load())

	model := instance.(*fakeModel)
	assert.Equal(t, 42, model.params["extra_knob"])
}

func TestComponentRegistryOtherNewErrorDoesNotFallBack(t *testing.T) {
	var configCalls atomic.Int32
	registry := newTestRegistry(t, llmSettings("", nil), func(types *TypeRegistry) {
		types.MustRegisterComponent("llm.fake.ChatModel", Constructors{
			New: func(_ context.Context, _ map[string]any) (any, error) {
				return nil, errors.New("provider unreachable")
			},
			NewFromConfig: func(_ context.Context, params map[string]any) (any, error) {
				configCalls.Add(1)
				return &fakeModel{}, nil
			},
		})
	})

	_, err := registry.Get(context.Background(), "llms.native.fake.main")
	require.Error(t, err)
	assert.True(t, apperrors.IsInstantiation(err))
	assert.Contains(t, err.Error(), "provider unreachable")
	assert.Equal(t, int32(0), configCalls.Load())
}

func TestComponentRegistryBuildStrategyTakesPrecedence(t *testing.T) {
	var buildCalls, newCalls atomic.Int32
	registry := newTestRegistry(t, llmSettings("", nil), func(types *TypeRegistry) {
		types.MustRegisterComponent("llm.fake.ChatModel", Constructors{
			Build: func(_ context.Context, _ map[string]any) (any, error) {
				buildCalls.Add(1)
				return &fakeModel{}, nil
			},
			New: func(_ context.Context, _ map[string]any) (any, error) {
				newCalls.Add(1)
				return &fakeModel{}, nil
			},
		})
	})

	_, err := registry.Get(context.Background(), "llms.native.fake.main")
	require.NoError(t, err)
	assert.Equal(t, int32(1), buildCalls.Load())
	assert.Equal(t, int32(0), newCalls.Load())
}

func TestComponentRegistryFailedBuildIsRetried(t *testing.T) {
	var attempts atomic.Int32
	registry := newTestRegistry(t, llmSettings("", nil), func(types *TypeRegistry) {
		types.MustRegisterComponent("llm.fake.ChatModel", Constructors{
			New: func(_ context.Context, _ map[string]any) (any, error) {
				if attempts.Add(1) == 1 {
					return nil, errors.New("transient failure")
				}
				return &fakeModel{}, nil
			},
		})
	})

	_, err := registry.Get(context.Background(), "llms.native.fake.main")
	require.Error(t, err)
	assert.False(t, registry.Cached("llms.native.fake.main"), "failed build must not be cached")

	instance, err := registry.Get(context.Background(), "llms.native.fake.main")
	require.NoError(t, err)
	assert.NotNil(t, instance)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestComponentRegistryRevealsSecretsAtBuildTime(t *testing.T) {
	registry := newTestRegistry(t, llmSettings("abc123", map[string]any{"temperature": 0.1}), func(types *TypeRegistry) {
		types.MustRegisterComponent("llm.fake.ChatModel", Constructors{
			New: func(_ context.Context, params map[string]any) (any, error) {
				return &fakeModel{params: params}, nil
			},
		})
	})

	instance, err := registry.Get(context.Background(), "llms.native.fake.main")
	require.NoError(t, err)

	model := instance.(*fakeModel)
	assert.Equal(t, "abc123", model.params["api_key"], "factory receives the raw value")
	assert.Equal(t, 0.1, model.params["temperature"])
}

func refSettings() *config.Settings {
	return &config.Settings{
		Components: config.ComponentsTree{
			"databases": {
				"native": {
					"fake": familyWithKey("persistence.fake.Client", "", map[string]config.ComponentInstance{
						"main": {Params: map[string]any{"uri": "fake://"}},
					}),
				},
			},
			"checkpointers": {
				"native": {
					"fake": familyWithKey("persistence.fake.Checkpointer", "", map[string]config.ComponentInstance{
						"default": {Params: map[string]any{
							"client_ref": "databases.native.fake.main",
							"collection": "checkpoints",
						}},
					}),
				},
			},
		},
	}
}

func TestComponentRegistryResolvesNestedRefs(t *testing.T) {
	var clientBuilds atomic.Int32
	registry := newTestRegistry(t, refSettings(), func(types *TypeRegistry) {
		types.MustRegisterComponent("persistence.fake.Client", Constructors{
			New: func(_ context.Context, params map[string]any) (any, error) {
				clientBuilds.Add(1)
				return &fakeModel{params: params}, nil
			},
		})
		types.MustRegisterComponent("persistence.fake.Checkpointer", Constructors{
			New: func(_ context.Context, params map[string]any) (any, error) {
				return &fakeModel{params: params}, nil
			},
		})
	})

	instance, err := registry.Get(context.Background(), "checkpointers.native.fake.default")
	require.NoError(t, err)

	checkpointer := instance.(*fakeModel)
	client, ok := checkpointer.params["client"].(*fakeModel)
	require.True(t, ok, "client_ref must resolve to the live client under 'client'")
	assert.Equal(t, "fake://", client.params["uri"])
	_, hasRawRef := checkpointer.params["client_ref"]
	assert.False(t, hasRawRef, "suffixed key must be stripped")

	// the nested dependency shares the cache
	direct, err := registry.Get(context.Background(), "databases.native.fake.main")
	require.NoError(t, err)
	assert.Same(t, client, direct)
	assert.Equal(t, int32(1), clientBuilds.Load())
}

func TestComponentRegistryDetectsRefCycles(t *testing.T) {
	settings := &config.Settings{
		Components: config.ComponentsTree{
			"widgets": {
				"native": {
					"a": familyWithKey("widget.A", "", map[string]config.ComponentInstance{
						"main": {Params: map[string]any{"peer_ref": "widgets.native.b.main"}},
					}),
					"b": familyWithKey("widget.B", "", map[string]config.ComponentInstance{
						"main": {Params: map[string]any{"peer_ref": "widgets.native.a.main"}},
					}),
				},
			},
		},
	}

	passthrough := Constructors{
		New: func(_ context.Context, params map[string]any) (any, error) {
			return &fakeModel{params: params}, nil
		},
	}
	registry := newTestRegistry(t, settings, func(types *TypeRegistry) {
		types.MustRegisterComponent("widget.A", passthrough)
		types.MustRegisterComponent("widget.B", passthrough)
	})

	_, err := registry.Get(context.Background(), "widgets.native.a.main")
	require.Error(t, err)
	assert.True(t, apperrors.IsInstantiation(err))
	assert.Contains(t, err.Error(), "cycle")
}

// A cyclic config entered concurrently from both ends parks each builder
// on the other's entry lock. Both callers must fail within their context
// deadline (either the visited-set cycle error or the context error)
// instead of blocking forever.
func TestComponentRegistryConcurrentCycleFailsWithinDeadline(t *testing.T) {
	settings := &config.Settings{
		Components: config.ComponentsTree{
			"widgets": {
				"native": {
					"a": familyWithKey("widget.A", "", map[string]config.ComponentInstance{
						"main": {Params: map[string]any{"peer_ref": "widgets.native.b.main"}},
					}),
					"b": familyWithKey("widget.B", "", map[string]config.ComponentInstance{
						"main": {Params: map[string]any{"peer_ref": "widgets.native.a.main"}},
					}),
				},
			},
		},
	}

	passthrough := Constructors{
		New: func(_ context.Context, params map[string]any) (any, error) {
			return &fakeModel{params: params}, nil
		},
	}
	registry := newTestRegistry(t, settings, func(types *TypeRegistry) {
		types.MustRegisterComponent("widget.A", passthrough)
		types.MustRegisterComponent("widget.B", passthrough)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	errs := make(chan error, 2)
	for _, ref := range []string{"widgets.native.a.main", "widgets.native.b.main"} {
		go func(ref string) {
			_, err := registry.Get(ctx, ref)
			errs <- err
		}(ref)
	}

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			require.Error(t, err)
			assert.True(t, apperrors.IsInstantiation(err))
		case <-time.After(2 * time.Second):
			t.Fatal("cyclic build did not fail within the context deadline")
		}
	}
}

func TestComponentRegistryShutdown(t *testing.T) {
	failing := &closableComponent{fail: true}
	healthy := &closableComponent{}
	ctxAware := &ctxClosableComponent{}

	settings := &config.Settings{
		Components: config.ComponentsTree{
			"stores": {
				"native": {
					"failing": familyWithKey("store.Failing", "", map[string]config.ComponentInstance{"main": {}}),
					"healthy": familyWithKey("store.Healthy", "", map[string]config.ComponentInstance{"main": {}}),
					"ctx":     familyWithKey("store.Ctx", "", map[string]config.ComponentInstance{"main": {}}),
				},
			},
		},
	}

	registry := newTestRegistry(t, settings, func(types *TypeRegistry) {
		types.MustRegisterComponent("store.Failing", Constructors{
			New: func(_ context.Context, _ map[string]any) (any, error) { return failing, nil },
		})
		types.MustRegisterComponent("store.Healthy", Constructors{
			New: func(_ context.Context, _ map[string]any) (any, error) { return healthy, nil },
		})
		types.MustRegisterComponent("store.Ctx", Constructors{
			New: func(_ context.Context, _ map[string]any) (any, error) { return ctxAware, nil },
		})
	})

	for _, ref := range []string{"stores.native.failing.main", "stores.native.healthy.main", "stores.native.ctx.main"} {
		_, err := registry.Get(context.Background(), ref)
		require.NoError(t, err)
	}

	registry.Shutdown(context.Background())

	assert.True(t, failing.closed.Load())
	assert.True(t, healthy.closed.Load(), "one failing hook must not stop the rest")
	assert.Equal(t, int32(1), ctxAware.shutdownCalls.Load())
	assert.False(t, registry.Cached("stores.native.healthy.main"), "cache cleared after shutdown")

	// idempotent
	registry.Shutdown(context.Background())
	assert.Equal(t, int32(1), ctxAware.shutdownCalls.Load())
}
