// Package gateway owns the provider adapters and implements the
// request-level operations: provider selection, fallback, HVAC analysis
// and status reporting.
package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
	"github.com/tjfontaine/hvac-ai-gateway/internal/provider"
	"github.com/tjfontaine/hvac-ai-gateway/internal/telemetry"
)

// Manager is the provider registry. It is built once at startup and shared
// by all request handlers; after InitializeAll only availability flags change.
type Manager struct {
	order    []domain.ProviderName
	adapters map[domain.ProviderName]provider.Adapter

	mu              sync.RWMutex
	primary         domain.ProviderName
	primaryOverride domain.ProviderName

	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics records availability and adapter calls on metrics.
func WithMetrics(metrics *telemetry.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithPrimaryOverride makes name the primary provider when it initializes
// successfully. Otherwise the first available provider in construction
// order is used.
func WithPrimaryOverride(name domain.ProviderName) ManagerOption {
	return func(m *Manager) {
		m.primaryOverride = name
	}
}

// NewManager registers adapters in the given order, which becomes the
// construction order. A later adapter with a duplicate name is ignored.
func NewManager(adapters []provider.Adapter, opts ...ManagerOption) *Manager {
	m := &Manager{
		adapters: make(map[domain.ProviderName]provider.Adapter, len(adapters)),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, a := range adapters {
		if _, dup := m.adapters[a.Name()]; dup {
			m.logger.Warn("duplicate provider ignored", slog.String("provider", string(a.Name())))
			continue
		}
		m.order = append(m.order, a.Name())
		m.adapters[a.Name()] = a
	}
	return m
}

// InitializeAll probes every adapter concurrently and picks the primary.
// Failures are logged and reported as false; it never returns an error.
func (m *Manager) InitializeAll(ctx context.Context) map[domain.ProviderName]bool {
	results := make(map[domain.ProviderName]bool, len(m.order))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, name := range m.order {
		a := m.adapters[name]
		wg.Add(1)
		go func() {
			defer wg.Done()

			ok, err := a.Initialize(ctx)
			if err != nil {
				m.logger.Warn("provider initialization failed",
					slog.String("provider", string(name)),
					slog.String("error", err.Error()))
			} else {
				m.logger.Info("provider initialized",
					slog.String("provider", string(name)),
					slog.String("model", a.Model()))
			}
			m.metrics.SetAvailable(string(name), ok)

			mu.Lock()
			results[name] = ok
			mu.Unlock()
		}()
	}
	wg.Wait()

	m.mu.Lock()
	m.primary = ""
	if m.primaryOverride != "" {
		if results[m.primaryOverride] {
			m.primary = m.primaryOverride
		} else {
			m.logger.Warn("primary provider override is not available, using construction order",
				slog.String("provider", string(m.primaryOverride)))
		}
	}
	if m.primary == "" {
		for _, name := range m.order {
			if results[name] {
				m.primary = name
				break
			}
		}
	}
	primary := m.primary
	m.mu.Unlock()

	m.logger.Info("providers initialized",
		slog.Int("total", len(m.order)),
		slog.Int("available", len(m.AvailableProviders())),
		slog.String("primary", string(primary)))

	return results
}

// Primary returns the primary provider, or "" when none initialized.
func (m *Manager) Primary() domain.ProviderName {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.primary
}

// Adapters returns the registered adapters in construction order.
func (m *Manager) Adapters() []provider.Adapter {
	out := make([]provider.Adapter, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.adapters[name])
	}
	return out
}

// Adapter returns the named adapter.
func (m *Manager) Adapter(name domain.ProviderName) (provider.Adapter, bool) {
	a, ok := m.adapters[name]
	return a, ok
}

// AvailableProviders returns the names of available adapters in construction order.
func (m *Manager) AvailableProviders() []domain.ProviderName {
	var out []domain.ProviderName
	for _, name := range m.order {
		if m.adapters[name].Available() {
			out = append(out, name)
		}
	}
	return out
}

// FirstAvailable returns the primary if it is available, else the first
// available provider in construction order.
func (m *Manager) FirstAvailable() (domain.ProviderName, bool) {
	for _, name := range m.FallbackOrder("") {
		if m.adapters[name].Available() {
			return name, true
		}
	}
	return "", false
}

// FallbackOrder returns the candidate order for GenerateWithFallback:
// preferred (if registered), then the primary, then every other registered
// provider in construction order. It depends only on preferred, the primary
// and the construction order; availability is checked at call time.
func (m *Manager) FallbackOrder(preferred domain.ProviderName) []domain.ProviderName {
	order := make([]domain.ProviderName, 0, len(m.order))
	seen := make(map[domain.ProviderName]bool, len(m.order))
	add := func(name domain.ProviderName) {
		if name == "" || seen[name] {
			return
		}
		if _, ok := m.adapters[name]; !ok {
			return
		}
		seen[name] = true
		order = append(order, name)
	}

	add(preferred)
	add(m.Primary())
	for _, name := range m.order {
		add(name)
	}
	return order
}

// GenerateWithProvider calls the named adapter. It never falls back.
func (m *Manager) GenerateWithProvider(ctx context.Context, name domain.ProviderName, prompt string, rc domain.RequestContext) (string, error) {
	a, err := m.ready(name)
	if err != nil {
		return "", err
	}
	return observe(m, name, func() (string, error) {
		return a.Generate(ctx, prompt, rc)
	})
}

// AnalyzeHVACWithProvider runs the HVAC analysis on the named adapter.
func (m *Manager) AnalyzeHVACWithProvider(ctx context.Context, name domain.ProviderName, input domain.HVACInput) (domain.Analysis, error) {
	a, err := m.ready(name)
	if err != nil {
		return nil, err
	}
	return observe(m, name, func() (domain.Analysis, error) {
		return a.AnalyzeHVAC(ctx, input)
	})
}

// GenerateWithFallback tries the candidates of FallbackOrder(preferred) one
// at a time until one succeeds. Unavailable candidates are skipped and not
// reported as tried. Errors never escape: a failed call returns a negative
// result carrying the last error and the providers tried, in order.
func (m *Manager) GenerateWithFallback(ctx context.Context, prompt string, rc domain.RequestContext, preferred domain.ProviderName) domain.GatewayResult {
	var (
		tried   []domain.ProviderName
		lastErr error
	)

	for _, name := range m.FallbackOrder(preferred) {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		a := m.adapters[name]
		if !a.Available() {
			continue
		}

		tried = append(tried, name)
		text, err := observe(m, name, func() (string, error) {
			return a.Generate(ctx, prompt, rc)
		})
		if err == nil {
			m.metrics.ObserveFallback(len(tried))
			return domain.GatewayResult{
				Success:        true,
				Response:       text,
				ProviderUsed:   name,
				ProvidersTried: tried,
			}
		}

		lastErr = err
		m.logger.Warn("provider failed, trying next",
			slog.String("provider", string(name)),
			slog.String("error", err.Error()))
	}

	m.metrics.ObserveFallback(len(tried))
	if lastErr == nil {
		lastErr = domain.ErrNoProviders
	}
	result := domain.Failure(lastErr)
	result.ProvidersTried = tried
	return result
}

func (m *Manager) ready(name domain.ProviderName) (provider.Adapter, error) {
	a, ok := m.adapters[name]
	if !ok {
		return nil, domain.ErrUnknownProvider(name)
	}
	if !a.Available() {
		m.metrics.ObserveProviderCall(string(name), telemetry.OutcomeNotReady, 0)
		return nil, domain.ErrProviderNotReady(name)
	}
	return a, nil
}

// observe runs one adapter call and records its outcome.
func observe[T any](m *Manager, name domain.ProviderName, call func() (T, error)) (T, error) {
	start := time.Now()
	out, err := call()

	outcome := telemetry.OutcomeSuccess
	switch {
	case domain.KindOf(err) == domain.KindProviderNotReady:
		outcome = telemetry.OutcomeNotReady
	case err != nil:
		outcome = telemetry.OutcomeError
	}
	m.metrics.ObserveProviderCall(string(name), outcome, time.Since(start))
	return out, err
}
