package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samurmaykrr/zqlz/internal/engine/enginetest"
	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
)

func poolConfig(maxSize int, acquireTimeout time.Duration) driver.Config {
	return driver.Config{
		ID:       "test-conn",
		Database: dbcapabilities.PostgreSQL,
		Host:     "localhost",
		Pool: driver.PoolConfig{
			MaxSize:        maxSize,
			AcquireTimeout: acquireTimeout,
		},
	}
}

func TestPoolAcquireRelease(t *testing.T) {
	drv := &enginetest.FakeDriver{}
	p := NewPool(drv, poolConfig(2, time.Second), nil)
	defer p.Close()

	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats().InUse)

	id := lease.Conn().ID()
	lease.Release()
	assert.Equal(t, 0, p.Stats().InUse)
	assert.Equal(t, 1, p.Stats().Idle)

	// The released connection is reused, not redialed.
	lease2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, lease2.Conn().ID())
	assert.Equal(t, 1, drv.ConnectCount())
	lease2.Release()
}

func TestPoolExhaustionTimesOut(t *testing.T) {
	drv := &enginetest.FakeDriver{}
	p := NewPool(drv, poolConfig(2, 300*time.Millisecond), nil)
	defer p.Close()

	l1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	l2, err := p.Acquire(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Acquire(context.Background())
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, driver.ErrPoolExhausted)
	assert.GreaterOrEqual(t, elapsed, 250*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)

	// A released lease unblocks the next acquire.
	l1.Release()
	l3, err := p.Acquire(context.Background())
	require.NoError(t, err)
	l3.Release()
	l2.Release()
}

func TestPoolAcquireHonorsCallerCancellation(t *testing.T) {
	drv := &enginetest.FakeDriver{}
	p := NewPool(drv, poolConfig(1, 10*time.Second), nil)
	defer p.Close()

	l1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer l1.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, driver.ErrCancelled)
}

func TestPoolValidatesIdleConnections(t *testing.T) {
	drv := &enginetest.FakeDriver{}
	p := NewPool(drv, poolConfig(2, time.Second), nil)
	defer p.Close()

	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	conn := lease.Conn().(*enginetest.FakeConn)
	lease.Release()

	// Kill the idle connection; the next acquire must destroy it and
	// dial a replacement instead of leasing a dead session.
	conn.PingFunc = func(ctx context.Context) error { return driver.ErrClosed }

	lease2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, conn.ID(), lease2.Conn().ID())
	assert.Equal(t, 2, drv.ConnectCount())
	assert.EqualValues(t, 1, p.Stats().Destroyed)
	lease2.Release()
}

func TestPoolDiscardDestroys(t *testing.T) {
	drv := &enginetest.FakeDriver{}
	p := NewPool(drv, poolConfig(2, time.Second), nil)
	defer p.Close()

	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	conn := lease.Conn().(*enginetest.FakeConn)
	lease.Discard()

	assert.Equal(t, 1, conn.CloseCalls())
	assert.Equal(t, 0, p.Stats().Idle)
	assert.EqualValues(t, 1, p.Stats().Destroyed)

	// Discard released the slot.
	lease2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	lease2.Release()
}

func TestPoolIdleTimeoutRetiresConnections(t *testing.T) {
	drv := &enginetest.FakeDriver{}
	cfg := poolConfig(2, time.Second)
	cfg.Pool.IdleTimeout = 30 * time.Millisecond
	p := NewPool(drv, cfg, nil)
	defer p.Close()

	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	first := lease.Conn().ID()
	lease.Release()

	time.Sleep(60 * time.Millisecond)

	lease2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, lease2.Conn().ID())
	lease2.Release()
}

func TestPoolPrewarm(t *testing.T) {
	drv := &enginetest.FakeDriver{}
	cfg := poolConfig(4, time.Second)
	cfg.Pool.MinSize = 2
	p := NewPool(drv, cfg, nil)
	defer p.Close()

	require.NoError(t, p.Prewarm(context.Background()))
	assert.Equal(t, 2, p.Stats().Idle)
	assert.Equal(t, 2, drv.ConnectCount())
}

func TestPoolCloseDrainsIdle(t *testing.T) {
	drv := &enginetest.FakeDriver{}
	p := NewPool(drv, poolConfig(2, time.Second), nil)

	lease, err := p.Acquire(context.Background())
	require.NoError(t, err)
	lease.Release()

	require.NoError(t, p.Close())
	assert.Equal(t, 0, p.Stats().Idle)

	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, driver.ErrClosed)
}
