package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
	"github.com/tjfontaine/hvac-ai-gateway/internal/telemetry"
)

// DefaultFailureThreshold is the number of consecutive failed probes before
// an available provider is marked unavailable.
const DefaultFailureThreshold = 2

// HealthChecker re-probes adapters on a schedule and revises their
// availability flags. An unavailable adapter is restored after one good
// probe; an available one is only dropped after FailureThreshold
// consecutive failures. The primary provider is never recomputed.
type HealthChecker struct {
	manager   *Manager
	interval  time.Duration
	threshold int
	timeout   time.Duration
	metrics   *telemetry.Metrics
	logger    *slog.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	running bool

	failMu   sync.Mutex
	failures map[domain.ProviderName]int
}

// HealthOption configures a HealthChecker.
type HealthOption func(*HealthChecker)

// WithFailureThreshold sets the consecutive failures needed to drop a provider.
func WithFailureThreshold(n int) HealthOption {
	return func(h *HealthChecker) {
		if n > 0 {
			h.threshold = n
		}
	}
}

// WithProbeTimeout bounds each probe. Zero leaves probes to the adapter's
// own client timeout.
func WithProbeTimeout(d time.Duration) HealthOption {
	return func(h *HealthChecker) {
		h.timeout = d
	}
}

// WithHealthMetrics records availability changes on metrics.
func WithHealthMetrics(metrics *telemetry.Metrics) HealthOption {
	return func(h *HealthChecker) {
		h.metrics = metrics
	}
}

// WithHealthLogger sets the health checker logger.
func WithHealthLogger(logger *slog.Logger) HealthOption {
	return func(h *HealthChecker) {
		h.logger = logger
	}
}

// NewHealthChecker creates a checker that probes manager's adapters every interval.
func NewHealthChecker(manager *Manager, interval time.Duration, opts ...HealthOption) *HealthChecker {
	h := &HealthChecker{
		manager:   manager,
		interval:  interval,
		threshold: DefaultFailureThreshold,
		logger:    slog.Default(),
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		failures:  make(map[domain.ProviderName]int),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "gateway.healthcheck")
	return h
}

// Start schedules the probes. Overlapping runs are skipped.
func (h *HealthChecker) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return nil
	}
	if h.interval < time.Second {
		return fmt.Errorf("health check interval %s is below one second", h.interval)
	}

	h.cron.Schedule(cron.Every(h.interval), cron.FuncJob(func() {
		h.CheckAll(context.Background())
	}))
	h.cron.Start()
	h.running = true

	h.logger.Info("health checker started", slog.Duration("interval", h.interval))
	return nil
}

// Stop stops the schedule and waits for a running check to finish.
func (h *HealthChecker) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return
	}
	<-h.cron.Stop().Done()
	h.running = false
	h.logger.Info("health checker stopped")
}

// CheckAll probes every adapter concurrently and applies the debounce rules.
func (h *HealthChecker) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, a := range h.manager.Adapters() {
		wg.Add(1)
		go func() {
			defer wg.Done()

			probeCtx := ctx
			if h.timeout > 0 {
				var cancel context.CancelFunc
				probeCtx, cancel = context.WithTimeout(ctx, h.timeout)
				defer cancel()
			}
			h.apply(a.Name(), a.Available(), a.Probe(probeCtx), a.SetAvailable)
		}()
	}
	wg.Wait()
}

func (h *HealthChecker) apply(name domain.ProviderName, available bool, probeErr error, set func(bool) bool) {
	h.failMu.Lock()
	if probeErr == nil {
		h.failures[name] = 0
	} else {
		h.failures[name]++
	}
	failures := h.failures[name]
	h.failMu.Unlock()

	switch {
	case probeErr == nil && !available:
		set(true)
		h.metrics.SetAvailable(string(name), true)
		h.logger.Info("provider recovered", slog.String("provider", string(name)))
	case probeErr != nil && available && failures >= h.threshold:
		set(false)
		h.metrics.SetAvailable(string(name), false)
		h.logger.Warn("provider marked unavailable",
			slog.String("provider", string(name)),
			slog.Int("consecutive_failures", failures),
			slog.String("error", probeErr.Error()))
	case probeErr != nil && available:
		h.logger.Debug("provider probe failed",
			slog.String("provider", string(name)),
			slog.Int("consecutive_failures", failures),
			slog.String("error", probeErr.Error()))
	}
}
