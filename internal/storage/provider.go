package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/yndnr/dsh-go/internal/core/domain"
	"github.com/yndnr/dsh-go/internal/infra/confloader"
	"github.com/yndnr/dsh-go/internal/telemetry/logger"
)

// Provider is a read-through cache over a Backend. All methods are safe for
// concurrent use.
type Provider struct {
	backend Backend
	log     logger.Logger

	mu     sync.Mutex
	cached *Config
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets the provider's logger.
func WithProviderLogger(l logger.Logger) ProviderOption {
	return func(p *Provider) {
		p.log = l
	}
}

// NewProvider creates a provider over backend.
func NewProvider(backend Backend, opts ...ProviderOption) *Provider {
	p := &Provider{
		backend: backend,
		log:     logger.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the backend name.
func (p *Provider) Name() string {
	return p.backend.Name()
}

// Get returns the current configuration, loading it from the backend on
// first use. DefaultConfig is returned when nothing is stored.
func (p *Provider) Get(ctx context.Context) (Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked(ctx)
}

// Set stores a single field. The cache is dropped afterwards.
func (p *Provider) Set(ctx context.Context, field, value string) error {
	return p.Update(ctx, func(c Config) (Config, error) {
		return c.With(field, value)
	})
}

// Update applies fn to the stored configuration and saves the result.
func (p *Provider) Update(ctx context.Context, fn func(Config) (Config, error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, err := p.loadLocked(ctx)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}

	p.cached = nil
	if err := p.backend.Save(ctx, next); err != nil {
		return domain.ErrStore.WithDetails("save to " + p.backend.Name()).WithCause(err)
	}
	p.log.Debug("configuration saved", "backend", p.backend.Name())
	return nil
}

// Clean removes the stored configuration.
func (p *Provider) Clean(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cached = nil
	if err := p.backend.Clear(ctx); err != nil {
		return domain.ErrStore.WithDetails("clear " + p.backend.Name()).WithCause(err)
	}
	p.log.Info("secret store cleared", "backend", p.backend.Name())
	return nil
}

// Invalidate drops the cached configuration.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

// WatchFile invalidates the cache whenever the file backend's files change.
// It is a no-op for other backends.
func (p *Provider) WatchFile(w *confloader.Watcher) error {
	fb, ok := p.backend.(*FileBackend)
	if !ok {
		return nil
	}
	if err := w.Watch(fb.Path()); err != nil {
		return err
	}
	target := filepath.Clean(fb.Path())
	w.OnChange(func(path string) {
		if filepath.Clean(path) == target {
			p.log.Debug("configuration file changed, dropping cache", "path", path)
			p.Invalidate()
		}
	})
	return nil
}

func (p *Provider) loadLocked(ctx context.Context) (Config, error) {
	if p.cached != nil {
		return *p.cached, nil
	}

	cfg, err := p.backend.Load(ctx)
	switch {
	case errors.Is(err, ErrNotStored):
		cfg = DefaultConfig()
	case err != nil:
		return Config{}, domain.ErrStore.WithDetails("load from " + p.backend.Name()).WithCause(err)
	}

	p.cached = &cfg
	return cfg, nil
}
