package manager

import (
	"context"
	"sync"
	"time"

	"github.com/samurmaykrr/zqlz/pkg/logger"
)

// HealthStatus classifies a connection's last health check.
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// HealthConfig tunes the periodic checker.
type HealthConfig struct {
	// Interval between sweeps.
	Interval time.Duration
	// PingTimeout bounds each ping.
	PingTimeout time.Duration
	// FailureThreshold consecutive failures before eviction.
	FailureThreshold int
	// Latency bounds for classification.
	HealthyLatency  time.Duration
	DegradedLatency time.Duration
}

// DefaultHealthConfig returns the standard policy: 30s sweeps, 5s ping
// timeout, eviction after 3 consecutive failures, 100ms/500ms latency
// bounds.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		Interval:         30 * time.Second,
		PingTimeout:      5 * time.Second,
		FailureThreshold: 3,
		HealthyLatency:   100 * time.Millisecond,
		DegradedLatency:  500 * time.Millisecond,
	}
}

// HealthState is the checker's view of one connection.
type HealthState struct {
	Status              HealthStatus
	Latency             time.Duration
	ConsecutiveFailures int
	LastChecked         time.Time
	LastError           string
}

// HealthChecker pings every managed connection on its own goroutine,
// independent of query traffic. A connection that fails FailureThreshold
// sweeps in a row is evicted from the manager; eviction comes first, any
// reconnection is the next Connect's business. Leases already handed out
// are never swapped underneath their holders.
type HealthChecker struct {
	mgr *Manager
	cfg HealthConfig
	log *logger.Logger

	mu     sync.RWMutex
	states map[string]*HealthState

	cancel context.CancelFunc
	done   chan struct{}
}

// NewHealthChecker creates a checker over the manager's connections.
func NewHealthChecker(mgr *Manager, cfg HealthConfig, log *logger.Logger) *HealthChecker {
	if cfg.Interval <= 0 {
		cfg = DefaultHealthConfig()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &HealthChecker{
		mgr:    mgr,
		cfg:    cfg,
		log:    log,
		states: make(map[string]*HealthState),
	}
}

// Start launches the sweep loop. Stop or ctx cancellation ends it.
func (h *HealthChecker) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(h.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				h.Sweep(runCtx)
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it to exit.
func (h *HealthChecker) Stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
}

// Sweep checks every managed connection once. Exported so tests and the CLI
// can force a check without waiting for the ticker.
func (h *HealthChecker) Sweep(ctx context.Context) {
	for _, mc := range h.mgr.List() {
		h.checkOne(ctx, mc)
	}
}

func (h *HealthChecker) checkOne(ctx context.Context, mc *ManagedConnection) {
	pingCtx, cancel := context.WithTimeout(ctx, h.cfg.PingTimeout)
	start := time.Now()
	err := mc.Conn.Ping(pingCtx)
	latency := time.Since(start)
	cancel()

	h.mu.Lock()
	state, ok := h.states[mc.ID]
	if !ok {
		state = &HealthState{Status: HealthUnknown}
		h.states[mc.ID] = state
	}
	state.LastChecked = time.Now()
	state.Latency = latency

	if err != nil {
		state.ConsecutiveFailures++
		state.Status = HealthUnhealthy
		state.LastError = err.Error()
		failures := state.ConsecutiveFailures
		h.mu.Unlock()

		h.log.Warn("health check failed",
			logger.F("connection_id", mc.ID),
			logger.F("consecutive_failures", failures),
			logger.F("error", err.Error()))

		if failures >= h.cfg.FailureThreshold {
			h.log.Warn("failure threshold reached, evicting connection",
				logger.F("connection_id", mc.ID))
			_ = h.mgr.Remove(mc.ID)
			h.forget(mc.ID)
		}
		return
	}

	state.ConsecutiveFailures = 0
	state.LastError = ""
	switch {
	case latency <= h.cfg.HealthyLatency:
		state.Status = HealthHealthy
	case latency <= h.cfg.DegradedLatency:
		state.Status = HealthDegraded
	default:
		state.Status = HealthUnhealthy
	}
	status := state.Status
	h.mu.Unlock()

	h.log.Debug("health check ok",
		logger.F("connection_id", mc.ID),
		logger.F("status", string(status)),
		logger.F("latency", latency.String()))
}

// Status returns the checker's view of one connection.
func (h *HealthChecker) Status(connID string) (HealthState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	state, ok := h.states[connID]
	if !ok {
		return HealthState{Status: HealthUnknown}, false
	}
	return *state, true
}

func (h *HealthChecker) forget(connID string) {
	h.mu.Lock()
	delete(h.states, connID)
	h.mu.Unlock()
}
