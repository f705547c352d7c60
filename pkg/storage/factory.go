package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// BackendConstructor is a function that creates a backend instance
type BackendConstructor func(ctx context.Context, cfg Config) (Backend, error)

var (
	registryMu      sync.RWMutex
	backendRegistry = make(map[string]BackendConstructor)
)

// RegisterBackend registers a backend constructor; backends call it from init
func RegisterBackend(backendType string, constructor BackendConstructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backendRegistry[backendType] = constructor
}

// RegisteredTypes lists the known backend types
func RegisteredTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]string, 0, len(backendRegistry))
	for t := range backendRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Factory creates storage backends from configuration
type Factory struct{}

// NewFactory creates a new factory instance
func NewFactory() *Factory {
	return &Factory{}
}

// Create instantiates a backend from config
func (f *Factory) Create(ctx context.Context, cfg Config) (Backend, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("backend %s is disabled", cfg.Name)
	}

	registryMu.RLock()
	constructor, ok := backendRegistry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend type %q (known: %s)",
			ErrInvalidConfig, cfg.Type, strings.Join(RegisteredTypes(), ", "))
	}

	return constructor(ctx, cfg)
}

// CreateEach creates every enabled backend. Unlike an all-or-nothing
// constructor it keeps going when one destination is unreachable and
// reports the failure in its Result.
func (f *Factory) CreateEach(ctx context.Context, configs []Config) ([]Backend, []Result) {
	var (
		backends []Backend
		failures []Result
	)

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		backend, err := f.Create(ctx, cfg)
		if err != nil {
			failures = append(failures, Result{
				BackendName: cfg.Name,
				BackendType: cfg.Type,
				Error:       fmt.Errorf("failed to create backend %s: %w", cfg.Name, err),
			})
			continue
		}

		backends = append(backends, backend)
	}

	return backends, failures
}

// CloseAll closes every backend, ignoring errors
func CloseAll(backends []Backend) {
	for _, b := range backends {
		b.Close()
	}
}
