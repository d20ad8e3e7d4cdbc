package service

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/solperp/permitgate/internal/config"
	"github.com/solperp/permitgate/internal/model"
)

// TenantManager holds the tenant table and per-tenant rate limiters.
// Tenants come from config; there is no runtime registration endpoint.
type TenantManager struct {
	mu            sync.RWMutex
	tenants       map[string]*model.Tenant // key: gateway API key
	limiters      map[string]*rate.Limiter // key: tenant ID
	config        *config.Config
	defaultTenant *model.Tenant
}

func NewTenantManager(cfg *config.Config) *TenantManager {
	tm := &TenantManager{
		tenants:  make(map[string]*model.Tenant),
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
	}

	if len(cfg.Tenants) > 0 {
		for _, tc := range cfg.Tenants {
			tenant := &model.Tenant{
				ID:         tc.ID,
				Name:       tc.Name,
				APIKey:     tc.APIKey,
				SessionKey: tc.SessionKey,
				RPS:        tc.RPS,
			}
			if tenant.RPS == 0 {
				tenant.RPS = cfg.RateLimit.RPS
			}
			tm.RegisterTenant(tenant)
		}
		return tm
	}

	// Single-tenant mode: everything maps to one implicit tenant.
	defaultTenant := &model.Tenant{
		ID:         "default-tenant",
		Name:       "Default",
		APIKey:     cfg.Auth.APIKey,
		SessionKey: cfg.Permit.SessionKey,
		RPS:        cfg.RateLimit.RPS,
	}
	tm.RegisterTenant(defaultTenant)
	tm.defaultTenant = defaultTenant

	return tm
}

func (tm *TenantManager) RegisterTenant(t *model.Tenant) {
	if t == nil {
		return
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.tenants[t.APIKey] = t

	limit := rate.Limit(t.RPS)
	if limit == 0 {
		limit = rate.Inf
	}
	burst := tm.config.RateLimit.Burst
	if burst <= 0 {
		burst = int(t.RPS)
		if burst <= 0 {
			burst = 1
		}
	}
	tm.limiters[t.ID] = rate.NewLimiter(limit, burst)
}

func (tm *TenantManager) GetTenantByAPIKey(apiKey string) (*model.Tenant, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	t, ok := tm.tenants[apiKey]
	return t, ok
}

func (tm *TenantManager) DefaultTenant() *model.Tenant {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.defaultTenant
}

func (tm *TenantManager) GetLimiterForTenant(tenantID string) *rate.Limiter {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.limiters[tenantID]
}
