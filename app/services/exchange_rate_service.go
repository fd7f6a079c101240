// Package services provides external service integrations and technical concerns like tokens and exchange rates
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jobradar/jobradar/config"
	"github.com/jobradar/jobradar/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// rateFetchFailures counts provider fetches that fell back to identity rates
var rateFetchFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "exchange_rate_fetch_failures_total",
		Help: "Total number of exchange rate fetches that fell back to identity",
	},
)

// ExchangeRateService resolves conversion rates from source currencies to a target currency.
// Rates are cached so salary comparisons stay cheap; a rate that cannot be resolved
// falls back to 1.0 rather than failing the search.
type ExchangeRateService interface {
	RatesFor(ctx context.Context, target string, sources []string) (map[string]float64, error)
}

// ExchangeRateServiceImpl implements ExchangeRateService
type ExchangeRateServiceImpl struct {
	config *config.ExchangeRateConfig
	client *http.Client
	rc     *redis.Client
	prefix string
}

// rateResponse represents the provider's latest-rates payload
type rateResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// NewExchangeRateService creates a new exchange rate service instance
func NewExchangeRateService(cfg *config.ExchangeRateConfig, rc *redis.Client, cachePrefix string) ExchangeRateService {
	return &ExchangeRateServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rc:     rc,
		prefix: cachePrefix,
	}
}

// RatesFor returns a map of source currency -> multiplier into the target currency.
// The target itself and every requested source currency are present in the
// result; unresolvable rates are 1.0.
func (s *ExchangeRateServiceImpl) RatesFor(ctx context.Context, target string, sources []string) (map[string]float64, error) {
	target = strings.ToUpper(strings.TrimSpace(target))
	rates := make(map[string]float64, len(sources)+1)
	if target != "" {
		rates[target] = 1.0
	}

	var missing []string
	for _, src := range sources {
		src = strings.ToUpper(strings.TrimSpace(src))
		if src == "" {
			continue
		}
		if src == target {
			rates[src] = 1.0
			continue
		}
		if cached, ok := s.cachedRate(ctx, src, target); ok {
			rates[src] = cached
			continue
		}
		rates[src] = 1.0 // fallback until fetched
		missing = append(missing, src)
	}

	if len(missing) == 0 {
		return rates, nil
	}

	fetched, err := s.fetchRates(ctx, target, missing)
	if err != nil {
		// Provider unreachable: the fallback of 1.0 is already in place for every
		// missing currency, so the search proceeds with unconverted amounts.
		rateFetchFailures.Inc()
		return rates, nil
	}

	for src, rate := range fetched {
		rates[src] = rate
		s.cacheRate(ctx, src, target, rate)
	}

	return rates, nil
}

// fetchRates asks the provider for the latest rates from each source into the target
func (s *ExchangeRateServiceImpl) fetchRates(ctx context.Context, target string, sources []string) (map[string]float64, error) {
	// The provider quotes rates FROM a base currency, so ask for target-based
	// quotes and invert them.
	endpoint := fmt.Sprintf("%s/latest?base=%s&symbols=%s",
		strings.TrimRight(s.config.BaseURL, "/"),
		url.QueryEscape(target),
		url.QueryEscape(strings.Join(sources, ",")))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange rate provider returned status %d", resp.StatusCode)
	}

	var payload rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode exchange rate response: %w", err)
	}

	result := make(map[string]float64, len(sources))
	for _, src := range sources {
		quoted, ok := payload.Rates[src]
		if !ok || quoted == 0 {
			result[src] = 1.0
			continue
		}
		result[src] = 1.0 / quoted
	}
	return result, nil
}

func (s *ExchangeRateServiceImpl) rateKey(src, target string) string {
	return fmt.Sprintf("%s:%s:%s:%s", s.prefix, utils.ExchangeRateCacheKey, src, target)
}

func (s *ExchangeRateServiceImpl) cachedRate(ctx context.Context, src, target string) (float64, bool) {
	if s.rc == nil {
		return 0, false
	}
	val, err := s.rc.Get(ctx, s.rateKey(src, target)).Float64()
	if err != nil {
		return 0, false
	}
	return val, true
}

func (s *ExchangeRateServiceImpl) cacheRate(ctx context.Context, src, target string, rate float64) {
	if s.rc == nil {
		return
	}
	ttl := s.config.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	_ = s.rc.Set(ctx, s.rateKey(src, target), rate, ttl).Err()
}

// MockExchangeRateService implements ExchangeRateService for testing
type MockExchangeRateService struct {
	Rates map[string]float64 // source -> rate; missing entries resolve to 1.0
	Calls []MockRateLookup
	Err   error
}

// MockRateLookup records one RatesFor invocation
type MockRateLookup struct {
	Target  string
	Sources []string
}

// NewMockExchangeRateService creates a new mock exchange rate service
func NewMockExchangeRateService(rates map[string]float64) *MockExchangeRateService {
	if rates == nil {
		rates = make(map[string]float64)
	}
	return &MockExchangeRateService{Rates: rates}
}

func (m *MockExchangeRateService) RatesFor(ctx context.Context, target string, sources []string) (map[string]float64, error) {
	m.Calls = append(m.Calls, MockRateLookup{Target: target, Sources: sources})
	if m.Err != nil {
		return nil, m.Err
	}
	result := make(map[string]float64, len(sources)+1)
	if t := strings.ToUpper(strings.TrimSpace(target)); t != "" {
		result[t] = 1.0
	}
	for _, src := range sources {
		src = strings.ToUpper(strings.TrimSpace(src))
		if src == "" {
			continue
		}
		if src == strings.ToUpper(target) {
			result[src] = 1.0
			continue
		}
		if rate, ok := m.Rates[src]; ok {
			result[src] = rate
		} else {
			result[src] = 1.0
		}
	}
	return result, nil
}
