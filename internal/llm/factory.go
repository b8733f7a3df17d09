package llm

import (
	"fmt"
	"sync"

	"github.com/promptforge/optimizer-api/internal/config"
)

// Factory builds a Provider from its static configuration.
type Factory func(cfg config.ProviderConfig) (Provider, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a provider factory available to the system.
// 'type' is the key (e.g., "openai", "ollama").
func Register(providerType string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[providerType]; exists {
		panic(fmt.Sprintf("provider factory %s already registered", providerType))
	}
	factories[providerType] = f
}

// Get retrieves a factory to create a provider of a specific type.
func Get(providerType string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[providerType]
	if !ok {
		return nil, fmt.Errorf("provider factory not found for type: %s", providerType)
	}
	return f, nil
}

type ProviderFactory struct{}

func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{}
}

func (f *ProviderFactory) CreateProvider(cfg config.ProviderConfig) (Provider, error) {
	factoryFunc, err := Get(cfg.Type)
	if err != nil {
		return nil, fmt.Errorf("factory lookup failed for type %s: %w", cfg.Type, err)
	}

	return factoryFunc(cfg)
}
