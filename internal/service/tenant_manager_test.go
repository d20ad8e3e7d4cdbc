package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solperp/permitgate/internal/config"
)

func TestTenantManagerConfiguredTenants(t *testing.T) {
	cfg := &config.Config{}
	cfg.RateLimit.RPS = 5
	cfg.RateLimit.Burst = 10
	cfg.Tenants = []config.TenantConfig{
		{ID: "alpha", Name: "Alpha Desk", APIKey: "sk-alpha", RPS: 50},
		{ID: "beta", Name: "Beta Desk", APIKey: "sk-beta"},
	}

	tm := NewTenantManager(cfg)

	alpha, ok := tm.GetTenantByAPIKey("sk-alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", alpha.ID)
	assert.Equal(t, float64(50), alpha.RPS)

	// Tenant without its own RPS inherits the global default.
	beta, ok := tm.GetTenantByAPIKey("sk-beta")
	require.True(t, ok)
	assert.Equal(t, float64(5), beta.RPS)

	_, ok = tm.GetTenantByAPIKey("sk-unknown")
	assert.False(t, ok)

	// Multi-tenant mode has no implicit default.
	assert.Nil(t, tm.DefaultTenant())
}

func TestTenantManagerSingleTenantFallback(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.APIKey = "sk-solo"
	cfg.RateLimit.RPS = 10

	tm := NewTenantManager(cfg)

	def := tm.DefaultTenant()
	require.NotNil(t, def)
	assert.Equal(t, "default-tenant", def.ID)

	byKey, ok := tm.GetTenantByAPIKey("sk-solo")
	require.True(t, ok)
	assert.Equal(t, def, byKey)
}

func TestTenantManagerLimiter(t *testing.T) {
	cfg := &config.Config{}
	cfg.RateLimit.Burst = 2
	cfg.Tenants = []config.TenantConfig{
		{ID: "alpha", APIKey: "sk-alpha", RPS: 1},
	}

	tm := NewTenantManager(cfg)

	limiter := tm.GetLimiterForTenant("alpha")
	require.NotNil(t, limiter)
	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())

	assert.Nil(t, tm.GetLimiterForTenant("missing"))
}
