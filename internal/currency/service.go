package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budgetfy/internal/cache"
	"budgetfy/internal/core"
)

// Provider fetches the full rate table for a base currency in one round trip.
type Provider interface {
	FetchRates(ctx context.Context, baseCode string) (map[string]float64, error)
}

// ErrUnknownCurrency reports a target code the provider has no rate for.
var ErrUnknownCurrency = errors.New("unknown currency code")

// Service owns the selected target currency and a process-lifetime rate
// cache. Rates are fetched once and only refreshed explicitly; a fetch
// failure leaves the previously selected target (or the base at rate 1) in
// place.
type Service struct {
	provider Provider
	rates    *cache.LRUCache[map[string]float64]

	mu     sync.RWMutex
	target Currency
}

func NewService(p Provider) *Service {
	return &Service{
		provider: p,
		rates:    cache.NewLRUCache[map[string]float64](4, 24*time.Hour),
		target:   baseCurrency(),
	}
}

func baseCurrency() Currency {
	return Currency{ID: core.BaseCurrency, Symbol: SymbolFor(core.BaseCurrency), Rate: 1}
}

// Base returns the fixed base currency (always rate 1).
func (s *Service) Base() Currency {
	return baseCurrency()
}

// Target returns the currently selected display currency.
func (s *Service) Target() Currency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

// SetTarget restores a previously persisted selection without a fetch.
func (s *Service) SetTarget(c Currency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = c
}

// Rates returns the rate table for the base currency, from cache when
// available.
func (s *Service) Rates(ctx context.Context) (map[string]float64, error) {
	if table, ok := s.rates.Get(core.BaseCurrency); ok {
		return table, nil
	}

	table, err := s.provider.FetchRates(ctx, core.BaseCurrency)
	if err != nil {
		return nil, fmt.Errorf("fetch rates for %s: %w", core.BaseCurrency, err)
	}
	s.rates.Set(core.BaseCurrency, table)

	slog.InfoContext(ctx, "Exchange rates loaded",
		"base", core.BaseCurrency, "currencies", len(table))
	return table, nil
}

// Refresh drops the cached table and fetches a fresh one.
func (s *Service) Refresh(ctx context.Context) (map[string]float64, error) {
	s.rates.Delete(core.BaseCurrency)
	return s.Rates(ctx)
}

// SelectTarget switches the display currency. Selecting the base never needs
// a rate fetch; any failure keeps the prior selection.
func (s *Service) SelectTarget(ctx context.Context, code string) (Currency, error) {
	if code == core.BaseCurrency {
		c := baseCurrency()
		s.SetTarget(c)
		return c, nil
	}

	table, err := s.Rates(ctx)
	if err != nil {
		return s.Target(), err
	}
	rate, ok := table[code]
	if !ok {
		return s.Target(), fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
	}

	c := Currency{ID: code, Symbol: SymbolFor(code), Rate: rate}
	s.SetTarget(c)

	slog.InfoContext(ctx, "Target currency selected", "code", code, "rate", rate)
	return c, nil
}

// RatesCache exposes the cache for cleanup registration.
func (s *Service) RatesCache() cache.Cleaner {
	return s.rates
}
