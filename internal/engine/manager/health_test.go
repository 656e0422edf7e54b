package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthConfig() HealthConfig {
	return HealthConfig{
		Interval:         10 * time.Millisecond,
		PingTimeout:      100 * time.Millisecond,
		FailureThreshold: 3,
		HealthyLatency:   100 * time.Millisecond,
		DegradedLatency:  500 * time.Millisecond,
	}
}

func TestHealthCheckerClassifiesLatency(t *testing.T) {
	m, drv := newTestManager(t)
	defer m.Shutdown(context.Background())

	id, err := m.Connect(context.Background(), testConfig())
	require.NoError(t, err)

	h := NewHealthChecker(m, healthConfig(), nil)
	h.Sweep(context.Background())

	state, ok := h.Status(id)
	require.True(t, ok)
	assert.Equal(t, HealthHealthy, state.Status)
	assert.Zero(t, state.ConsecutiveFailures)

	// Slow pings classify as degraded without counting as failures.
	drv.Connections()[0].PingFunc = func(ctx context.Context) error {
		time.Sleep(150 * time.Millisecond)
		return nil
	}
	h.cfg.PingTimeout = time.Second
	h.Sweep(context.Background())

	state, _ = h.Status(id)
	assert.Equal(t, HealthDegraded, state.Status)
	assert.Zero(t, state.ConsecutiveFailures)
}

func TestHealthCheckerEvictsAfterThreshold(t *testing.T) {
	m, drv := newTestManager(t)
	defer m.Shutdown(context.Background())

	id, err := m.Connect(context.Background(), testConfig())
	require.NoError(t, err)

	drv.Connections()[0].PingFunc = func(ctx context.Context) error {
		return errors.New("ping: connection reset")
	}

	h := NewHealthChecker(m, healthConfig(), nil)

	h.Sweep(context.Background())
	h.Sweep(context.Background())
	state, _ := h.Status(id)
	assert.Equal(t, HealthUnhealthy, state.Status)
	assert.Equal(t, 2, state.ConsecutiveFailures)
	_, stillThere := m.Get(id)
	assert.True(t, stillThere, "below threshold the connection stays")

	h.Sweep(context.Background())
	_, stillThere = m.Get(id)
	assert.False(t, stillThere, "threshold reached, connection evicted")
}

func TestHealthCheckerRecoveryResetsFailures(t *testing.T) {
	m, drv := newTestManager(t)
	defer m.Shutdown(context.Background())

	id, err := m.Connect(context.Background(), testConfig())
	require.NoError(t, err)

	failing := true
	drv.Connections()[0].PingFunc = func(ctx context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	}

	h := NewHealthChecker(m, healthConfig(), nil)
	h.Sweep(context.Background())
	h.Sweep(context.Background())

	failing = false
	h.Sweep(context.Background())

	state, _ := h.Status(id)
	assert.Equal(t, HealthHealthy, state.Status)
	assert.Zero(t, state.ConsecutiveFailures)

	_, stillThere := m.Get(id)
	assert.True(t, stillThere)
}

func TestHealthCheckerStartStop(t *testing.T) {
	m, drv := newTestManager(t)
	defer m.Shutdown(context.Background())

	id, err := m.Connect(context.Background(), testConfig())
	require.NoError(t, err)
	_ = drv

	h := NewHealthChecker(m, healthConfig(), nil)
	h.Start(context.Background())

	assert.Eventually(t, func() bool {
		state, ok := h.Status(id)
		return ok && state.Status == HealthHealthy
	}, time.Second, 5*time.Millisecond)

	h.Stop()
}
