package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"agents-backend/application/ports"
	"agents-backend/infrastructure/config"
	apperrors "agents-backend/pkg/errors"
	"agents-backend/pkg/observability"
	"agents-backend/pkg/secret"
)

// componentEntry serializes construction per normalized reference. The
// lock is held only while building or reading that one component, so
// unrelated components never contend with each other. It is a channel
// semaphore rather than a mutex so waiters can honor ctx: a _ref cycle
// entered concurrently from both ends parks each builder on the other's
// entry, and cancellation is the only way such a wait can end.
type componentEntry struct {
	sem      chan struct{}
	built    bool
	instance any
}

func newComponentEntry() *componentEntry {
	return &componentEntry{sem: make(chan struct{}, 1)}
}

func (e *componentEntry) acquire(ctx context.Context) error {
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *componentEntry) release() { <-e.sem }

// ComponentRegistry lazily instantiates and caches component singletons
// keyed by normalized reference. A reference is built at most once even
// under concurrent callers; a failed build is not cached and the next
// caller retries.
type ComponentRegistry struct {
	settings *config.Settings
	types    *TypeRegistry
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu      sync.Mutex
	entries map[string]*componentEntry
}

// NewComponentRegistry creates an empty registry. Construction is cheap;
// components instantiate lazily on first Get.
func NewComponentRegistry(
	settings *config.Settings,
	types *TypeRegistry,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *ComponentRegistry {
	return &ComponentRegistry{
		settings: settings,
		types:    types,
		logger:   logger,
		metrics:  metrics,
		entries:  map[string]*componentEntry{},
	}
}

// Get returns the component for ref, instantiating and caching it on first
// use. All separator spellings of a reference share one cache entry.
// Waiting on another caller's in-flight build honors ctx, so a cross-entry
// wait that can never finish fails with the context's error once the
// caller cancels or times out.
func (r *ComponentRegistry) Get(ctx context.Context, ref string) (any, error) {
	return r.get(ctx, ref, nil)
}

func (r *ComponentRegistry) get(ctx context.Context, ref string, visited map[string]bool) (any, error) {
	key := config.Normalize(ref)

	if visited[key] {
		return nil, apperrors.NewInstantiation(fmt.Sprintf(
			"component %q: dependency cycle through _ref parameters", key), nil)
	}

	r.mu.Lock()
	entry, ok := r.entries[key]
	if !ok {
		entry = newComponentEntry()
		r.entries[key] = entry
	}
	r.mu.Unlock()

	if err := entry.acquire(ctx); err != nil {
		return nil, apperrors.NewInstantiation(fmt.Sprintf(
			"component %q: canceled while waiting for a concurrent build", key), err)
	}
	defer entry.release()

	if entry.built {
		r.logger.Debug("retrieved cached component", zap.String("ref", key))
		r.metrics.RecordComponentCacheHit(key)
		return entry.instance, nil
	}

	r.logger.Info("creating component", zap.String("ref", key))

	resolved, err := r.settings.ResolveComponent(key)
	if err != nil {
		return nil, err
	}

	branch := map[string]bool{key: true}
	for k := range visited {
		branch[k] = true
	}

	started := time.Now()
	instance, err := r.instantiate(ctx, key, resolved, branch)
	r.metrics.RecordComponentCreation(key, time.Since(started), err)
	if err != nil {
		return nil, err
	}

	entry.instance = instance
	entry.built = true
	r.logger.Debug("component created and cached", zap.String("ref", key))
	return instance, nil
}

// instantiate applies the generic construction algorithm: resolve nested
// _ref dependencies, reveal secrets last, look up the registered type and
// run its first supported constructor strategy.
func (r *ComponentRegistry) instantiate(
	ctx context.Context,
	key string,
	resolved *config.ResolvedComponent,
	visited map[string]bool,
) (any, error) {
	params := make(map[string]any, len(resolved.Params))
	for name, value := range resolved.Params {
		if ref, ok := value.(string); ok && strings.HasSuffix(name, "_ref") {
			dep, err := r.get(ctx, ref, visited)
			if err != nil {
				return nil, err
			}
			params[strings.TrimSuffix(name, "_ref")] = dep
			r.logger.Debug("resolved nested component reference",
				zap.String("param", name), zap.String("dependency", ref))
			continue
		}
		if s, ok := value.(secret.Secret); ok {
			params[name] = s.Reveal()
			continue
		}
		params[name] = value
	}

	paramKeys := make([]string, 0, len(params))
	for name := range params {
		paramKeys = append(paramKeys, name)
	}
	r.logger.Debug("instantiating component",
		zap.String("module_class", resolved.ModuleClass),
		zap.Strings("params", paramKeys))

	ctors, err := r.types.Component(resolved.ModuleClass)
	if err != nil {
		return nil, err
	}

	instance, err := construct(ctx, ctors, params)
	if err != nil {
		return nil, apperrors.NewInstantiation(fmt.Sprintf(
			"component %q (%s)", key, resolved.ModuleClass), err)
	}
	return instance, nil
}

// construct runs the first declared strategy in order Build, Create, New,
// NewFromConfig. A strict New failing with ErrUnexpectedParam falls back
// to NewFromConfig when declared; any other error propagates immediately.
func construct(ctx context.Context, ctors Constructors, params map[string]any) (any, error) {
	switch {
	case ctors.Build != nil:
		return ctors.Build(ctx, params)
	case ctors.Create != nil:
		return ctors.Create(ctx, params)
	case ctors.New != nil:
		instance, err := ctors.New(ctx, params)
		if err != nil && errors.Is(err, ErrUnexpectedParam) && ctors.NewFromConfig != nil {
			return ctors.NewFromConfig(ctx, params)
		}
		return instance, err
	case ctors.NewFromConfig != nil:
		return ctors.NewFromConfig(ctx, params)
	default:
		return nil, errors.New("no constructor strategy declared")
	}
}

// Shutdown disposes every cached component and clears the cache. Cleanup
// order across components is unspecified. A failing hook is logged and
// does not stop the rest; calling Shutdown again is a no-op.
func (r *ComponentRegistry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	entries := r.entries
	r.entries = map[string]*componentEntry{}
	r.mu.Unlock()

	for key, entry := range entries {
		if err := entry.acquire(ctx); err != nil {
			r.logger.Warn("component still building at shutdown, skipping",
				zap.String("ref", key), zap.Error(err))
			continue
		}
		if !entry.built {
			entry.release()
			continue
		}
		instance := entry.instance
		entry.release()

		var err error
		switch component := instance.(type) {
		case ports.ContextDisposable:
			r.logger.Debug("shutting down component", zap.String("ref", key))
			err = component.Shutdown(ctx)
		case ports.Disposable:
			r.logger.Debug("closing component", zap.String("ref", key))
			err = component.Close()
		default:
			continue
		}

		if err != nil {
			r.metrics.RecordShutdownError()
			shutdownErr := apperrors.NewShutdown(fmt.Sprintf("component %q", key), err)
			r.logger.Error("component cleanup failed",
				zap.String("ref", key), zap.Error(shutdownErr))
		}
	}
}

// Cached reports whether ref is already instantiated, without building it.
func (r *ComponentRegistry) Cached(ref string) bool {
	key := config.Normalize(ref)
	r.mu.Lock()
	entry, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return false
	}
	entry.sem <- struct{}{}
	defer entry.release()
	return entry.built
}
