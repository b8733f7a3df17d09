package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/promptforge/optimizer-api/internal/config"
	"github.com/promptforge/optimizer-api/internal/llm"
	"github.com/promptforge/optimizer-api/pkg/api"
)

// UnavailableError is the fail-closed resolution failure: the selection names
// a provider that is unknown, disabled, missing credentials, or does not
// offer the requested model.
type UnavailableError struct {
	Provider string
	Reason   string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %s", e.Provider, e.Reason)
}

// adapter types that cannot invoke without a credential
var requiresKey = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"google":    true,
}

// Registry holds the static ProviderConfig set and the instantiated clients.
// Configs are immutable once loaded; a dispatch call never observes a
// half-updated provider. Thread-safe.
type Registry struct {
	mu        sync.RWMutex
	logger    *zap.Logger
	configs   map[string]config.ProviderConfig
	providers map[string]llm.Provider
	factory   *llm.ProviderFactory
}

func New(logger *zap.Logger) *Registry {
	return &Registry{
		logger:    logger,
		configs:   make(map[string]config.ProviderConfig),
		providers: make(map[string]llm.Provider),
		factory:   llm.NewProviderFactory(),
	}
}

// Register adds one provider configuration and, when it is enabled and
// credentialed, builds its client through the adapter factory.
func (r *Registry) Register(cfg config.ProviderConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[cfg.Name]; exists {
		return fmt.Errorf("provider %q already registered", cfg.Name)
	}
	r.configs[cfg.Name] = cfg

	if !cfg.Enabled {
		r.logger.Info("Provider registered disabled", zap.String("provider", cfg.Name))
		return nil
	}
	if requiresKey[cfg.Type] && cfg.APIKey == "" {
		r.logger.Warn("Provider registered without credentials, resolution will fail closed",
			zap.String("provider", cfg.Name))
		return nil
	}

	p, err := r.factory.CreateProvider(cfg)
	if err != nil {
		return fmt.Errorf("building provider %q: %w", cfg.Name, err)
	}
	r.providers[cfg.Name] = p

	r.logger.Info("Provider registered",
		zap.String("provider", cfg.Name),
		zap.String("type", cfg.Type),
		zap.Int("models", len(cfg.Models)),
	)
	return nil
}

// Resolve maps a model selection to a callable client. Every failure mode is
// an *UnavailableError so dispatch fails closed with a uniform shape.
func (r *Registry) Resolve(sel api.ModelSelection) (llm.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[sel.Provider]
	if !ok {
		return nil, &UnavailableError{Provider: sel.Provider, Reason: "unknown provider"}
	}
	if !cfg.Enabled {
		return nil, &UnavailableError{Provider: sel.Provider, Reason: "provider disabled"}
	}
	if requiresKey[cfg.Type] && cfg.APIKey == "" {
		return nil, &UnavailableError{Provider: sel.Provider, Reason: "missing credentials"}
	}
	if len(cfg.Models) > 0 && !contains(cfg.Models, sel.Model) {
		return nil, &UnavailableError{Provider: sel.Provider, Reason: fmt.Sprintf("model %q not offered", sel.Model)}
	}

	p, ok := r.providers[sel.Provider]
	if !ok {
		return nil, &UnavailableError{Provider: sel.Provider, Reason: "provider not active"}
	}
	return p, nil
}

// List returns the read-only registry view, highest priority first.
func (r *Registry) List() []api.ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]api.ProviderInfo, 0, len(r.configs))
	for _, cfg := range r.configs {
		infos = append(infos, api.ProviderInfo{
			Name:      cfg.Name,
			Type:      cfg.Type,
			IsEnabled: cfg.Enabled,
			Priority:  cfg.Priority,
			Models:    cfg.Models,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Priority != infos[j].Priority {
			return infos[i].Priority > infos[j].Priority
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
