package market

import (
	"fmt"
	"strings"
	"sync"

	"github.com/solperp/permitgate/internal/pkg/apperrors"
)

// Market describes one listed perp market: the numeric index the permit
// action format uses, and the fixed-point decimal counts the adapter
// converts decimal strings at.
type Market struct {
	Index         uint64 `json:"index"`
	Symbol        string `json:"symbol"`
	SzDecimals    int32  `json:"sz_decimals"`
	PriceDecimals int32  `json:"price_decimals"`
	MaxLeverage   uint32 `json:"max_leverage"`
}

// Registry is a read-mostly lookup of listed markets by symbol or
// index. Safe for concurrent use; lookups never mutate.
type Registry struct {
	mu       sync.RWMutex
	bySymbol map[string]Market
	byIndex  map[uint64]Market
}

func NewRegistry(markets []Market) *Registry {
	r := &Registry{
		bySymbol: make(map[string]Market, len(markets)),
		byIndex:  make(map[uint64]Market, len(markets)),
	}
	for _, m := range markets {
		r.put(m)
	}
	return r
}

func (r *Registry) put(m Market) {
	r.bySymbol[strings.ToUpper(m.Symbol)] = m
	r.byIndex[m.Index] = m
}

// Upsert replaces or adds a market definition.
func (r *Registry) Upsert(m Market) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(m)
}

// BySymbol looks a market up case-insensitively.
func (r *Registry) BySymbol(symbol string) (Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.bySymbol[strings.ToUpper(symbol)]
	if !ok {
		return Market{}, apperrors.New(apperrors.ErrUnknownMarket,
			fmt.Sprintf("unknown market %q", symbol), nil)
	}
	return m, nil
}

func (r *Registry) ByIndex(index uint64) (Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byIndex[index]
	if !ok {
		return Market{}, apperrors.New(apperrors.ErrUnknownMarket,
			fmt.Sprintf("unknown market index %d", index), nil)
	}
	return m, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIndex)
}

// All returns a snapshot sorted by nothing in particular; callers that
// need order sort themselves.
func (r *Registry) All() []Market {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Market, 0, len(r.byIndex))
	for _, m := range r.byIndex {
		out = append(out, m)
	}
	return out
}
