// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"sync"

	"translatorhub/internal/backend"
	"translatorhub/internal/cache"
	"translatorhub/internal/config"
	"translatorhub/internal/controller"
	"translatorhub/internal/languages"
	"translatorhub/internal/models"
	"translatorhub/internal/observability"
	"translatorhub/internal/reveal"
	contextutils "translatorhub/internal/utils"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetBackend() (backend.Client, error)
	GetLanguages() (*languages.Table, error)
	GetCache() (*cache.Store, error)
	NewController() (*controller.Controller, error)
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	GetInstruments() *observability.Instruments
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	instruments   *observability.Instruments
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container. instruments may be nil.
func NewServiceContainer(cfg *config.Config, logger *observability.Logger, instruments *observability.Instruments) *ServiceContainer {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &ServiceContainer{
		cfg:         cfg,
		logger:      logger,
		instruments: instruments,
		services:    make(map[string]interface{}),
	}
}

// Initialize sets up all services and their dependencies
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if err := sc.initializeServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to initialize services")
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(ctx context.Context) error {
	sc.services["languages"] = languages.Default()

	// The cache is optional; a nil store keeps the backend uncached
	var store backend.Store
	if sc.cfg.Cache.Enabled {
		cacheStore, err := cache.Open(ctx, sc.cfg.Cache, sc.logger)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to open translation cache")
		}
		sc.services["cache"] = cacheStore
		sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
			return cacheStore.Close()
		})
		store = cacheStore
	}

	client, err := backend.New(ctx, sc.cfg.Backend, store, sc.cfg.Cache.TTL, sc.logger, sc.instruments)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to create backend client")
	}
	sc.services["backend"] = client

	sc.logger.Info(ctx, "Services initialized", map[string]interface{}{
		"backend_transport": sc.cfg.Backend.Transport,
		"cache_enabled":     sc.cfg.Cache.Enabled,
	})
	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetBackend returns the translation backend client, cached when the cache is enabled
func (sc *ServiceContainer) GetBackend() (backend.Client, error) {
	return GetServiceAs[backend.Client](sc, "backend")
}

// GetLanguages returns the supported language table
func (sc *ServiceContainer) GetLanguages() (*languages.Table, error) {
	return GetServiceAs[*languages.Table](sc, "languages")
}

// GetCache returns the translation cache store. It fails when the cache is disabled.
func (sc *ServiceContainer) GetCache() (*cache.Store, error) {
	return GetServiceAs[*cache.Store](sc, "cache")
}

// NewController builds a controller for one view or session. The caller must Close it.
func (sc *ServiceContainer) NewController() (*controller.Controller, error) {
	client, err := sc.GetBackend()
	if err != nil {
		return nil, err
	}
	table, err := sc.GetLanguages()
	if err != nil {
		return nil, err
	}

	return controller.New(controller.Options{
		Client:      client,
		Animator:    reveal.New(sc.cfg.Reveal.Interval),
		Languages:   table,
		Uploads:     sc.cfg.Uploads,
		Source:      models.LanguageCode(sc.cfg.Defaults.SourceLanguage),
		Target:      models.LanguageCode(sc.cfg.Defaults.TargetLanguage),
		Logger:      sc.logger,
		Instruments: sc.instruments,
	}), nil
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// GetInstruments returns the metric instruments, which may be nil
func (sc *ServiceContainer) GetInstruments() *observability.Instruments {
	return sc.instruments
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// cleanup runs shutdown functions in reverse order of registration
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errors []error
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err)
			errors = append(errors, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errors) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errors)
	}
	return nil
}
