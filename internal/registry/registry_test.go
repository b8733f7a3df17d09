package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promptforge/optimizer-api/internal/config"
	"github.com/promptforge/optimizer-api/internal/llm"
	"github.com/promptforge/optimizer-api/internal/registry"
	"github.com/promptforge/optimizer-api/pkg/api"
)

type stubProvider struct {
	name string
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Type() string { return "stub" }
func (s *stubProvider) Invoke(_ context.Context, _ *llm.InvokeRequest) (*llm.InvokeResult, error) {
	return &llm.InvokeResult{Text: "ok", TokensUsed: 1}, nil
}

func init() {
	llm.Register("stub", func(cfg config.ProviderConfig) (llm.Provider, error) {
		return &stubProvider{name: cfg.Name}, nil
	})
}

func TestResolve_HappyPath(t *testing.T) {
	reg := registry.New(zap.NewNop())
	require.NoError(t, reg.Register(config.ProviderConfig{
		Name:    "primary",
		Type:    "stub",
		Enabled: true,
		Models:  []string{"model-a", "model-b"},
	}))

	p, err := reg.Resolve(api.ModelSelection{Provider: "primary", Model: "model-a"})
	require.NoError(t, err)
	assert.Equal(t, "primary", p.Name())
}

func TestResolve_UnknownProvider(t *testing.T) {
	reg := registry.New(zap.NewNop())

	_, err := reg.Resolve(api.ModelSelection{Provider: "ghost", Model: "model-a"})
	var unavailable *registry.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "ghost", unavailable.Provider)
}

func TestResolve_DisabledProviderFailsClosed(t *testing.T) {
	reg := registry.New(zap.NewNop())
	require.NoError(t, reg.Register(config.ProviderConfig{
		Name:    "paused",
		Type:    "stub",
		Enabled: false,
		Models:  []string{"model-a"},
	}))

	_, err := reg.Resolve(api.ModelSelection{Provider: "paused", Model: "model-a"})
	var unavailable *registry.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "provider disabled", unavailable.Reason)
}

func TestResolve_MissingCredentialsFailsClosed(t *testing.T) {
	reg := registry.New(zap.NewNop())
	// openai-type adapters cannot run keyless; registration succeeds but
	// resolution must refuse.
	require.NoError(t, reg.Register(config.ProviderConfig{
		Name:    "keyless",
		Type:    "openai",
		Enabled: true,
		Models:  []string{"gpt-4o-mini"},
	}))

	_, err := reg.Resolve(api.ModelSelection{Provider: "keyless", Model: "gpt-4o-mini"})
	var unavailable *registry.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "missing credentials", unavailable.Reason)
}

func TestResolve_ModelNotOffered(t *testing.T) {
	reg := registry.New(zap.NewNop())
	require.NoError(t, reg.Register(config.ProviderConfig{
		Name:    "primary",
		Type:    "stub",
		Enabled: true,
		Models:  []string{"model-a"},
	}))

	_, err := reg.Resolve(api.ModelSelection{Provider: "primary", Model: "model-z"})
	var unavailable *registry.UnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestRegister_DuplicateName(t *testing.T) {
	reg := registry.New(zap.NewNop())
	cfg := config.ProviderConfig{Name: "primary", Type: "stub", Enabled: true}
	require.NoError(t, reg.Register(cfg))
	assert.Error(t, reg.Register(cfg))
}

func TestList_PriorityOrder(t *testing.T) {
	reg := registry.New(zap.NewNop())
	require.NoError(t, reg.Register(config.ProviderConfig{Name: "b-low", Type: "stub", Enabled: true, Priority: 1}))
	require.NoError(t, reg.Register(config.ProviderConfig{Name: "a-low", Type: "stub", Enabled: false, Priority: 1}))
	require.NoError(t, reg.Register(config.ProviderConfig{Name: "high", Type: "stub", Enabled: true, Priority: 10}))

	infos := reg.List()
	require.Len(t, infos, 3)
	assert.Equal(t, "high", infos[0].Name)
	assert.Equal(t, "a-low", infos[1].Name)
	assert.Equal(t, "b-low", infos[2].Name)
	assert.False(t, infos[1].IsEnabled)
}
