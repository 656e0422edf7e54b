package manager

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samurmaykrr/zqlz/internal/engine/enginetest"
	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
)

func newTestManager(t *testing.T) (*Manager, *enginetest.FakeDriver) {
	t.Helper()
	drv := &enginetest.FakeDriver{}
	registry := driver.NewRegistry()
	registry.Register(drv)
	return New(Options{Registry: registry, Reconnect: fastReconnect()}), drv
}

func testConfig() driver.Config {
	return driver.Config{
		Name:     "local pg",
		Database: dbcapabilities.PostgreSQL,
		Host:     "localhost",
	}
}

func TestManagerConnectAssignsID(t *testing.T) {
	m, _ := newTestManager(t)
	defer m.Shutdown(context.Background())

	id, err := m.Connect(context.Background(), testConfig())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	mc, ok := m.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, mc.ID)
	assert.Equal(t, "local pg", mc.Config.Name)
	assert.True(t, mc.Conn.IsConnected())
}

func TestManagerConnectFailureLeavesNothingBehind(t *testing.T) {
	m, drv := newTestManager(t)
	drv.ConnectFunc = func(ctx context.Context, cfg driver.Config) (driver.Connection, error) {
		return nil, driver.NewConnectionError(cfg.Database, cfg.Host, cfg.Port, errors.New("refused"))
	}

	_, err := m.Connect(context.Background(), testConfig())
	assert.ErrorIs(t, err, driver.ErrConnectFailed)
	assert.Empty(t, m.List())
}

func TestManagerConnectUnknownDriver(t *testing.T) {
	m := New(Options{Registry: driver.NewRegistry()})
	_, err := m.Connect(context.Background(), testConfig())
	assert.ErrorIs(t, err, driver.ErrDriverNotFound)
}

func TestManagerConnectValidatesConfig(t *testing.T) {
	m, _ := newTestManager(t)
	cfg := testConfig()
	cfg.Host = ""
	_, err := m.Connect(context.Background(), cfg)
	assert.ErrorIs(t, err, driver.ErrInvalidConfig)
}

func TestManagerRemoveClosesExactlyOnce(t *testing.T) {
	m, drv := newTestManager(t)

	id, err := m.Connect(context.Background(), testConfig())
	require.NoError(t, err)

	require.NoError(t, m.Remove(id))
	_, ok := m.Get(id)
	assert.False(t, ok)

	conns := drv.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, 1, conns[0].CloseCalls())

	assert.ErrorIs(t, m.Remove(id), ErrConnectionNotFound)
	assert.Equal(t, 1, conns[0].CloseCalls(), "second remove must not close again")
}

func TestManagerListSorted(t *testing.T) {
	m, _ := newTestManager(t)
	defer m.Shutdown(context.Background())

	for i := 0; i < 3; i++ {
		_, err := m.Connect(context.Background(), testConfig())
		require.NoError(t, err)
	}

	list := m.List()
	require.Len(t, list, 3)
	assert.Less(t, list[0].ID, list[1].ID)
	assert.Less(t, list[1].ID, list[2].ID)
}

func TestManagerShutdownClosesAll(t *testing.T) {
	m, drv := newTestManager(t)

	_, err := m.Connect(context.Background(), testConfig())
	require.NoError(t, err)
	_, err = m.Connect(context.Background(), testConfig())
	require.NoError(t, err)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Empty(t, m.List())
	for _, conn := range drv.Connections() {
		assert.False(t, conn.IsConnected())
	}
}

func TestManagerAcquireLeasesFromPool(t *testing.T) {
	m, _ := newTestManager(t)
	defer m.Shutdown(context.Background())

	id, err := m.Connect(context.Background(), testConfig())
	require.NoError(t, err)

	lease, err := m.Acquire(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, lease.Conn())
	lease.Release()

	_, err = m.Acquire(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestManagerTestConnection(t *testing.T) {
	m, drv := newTestManager(t)

	require.NoError(t, m.TestConnection(context.Background(), testConfig()))
	assert.Empty(t, m.List(), "test connections are never registered")

	// The handshake connection is closed again.
	conns := drv.Connections()
	require.Len(t, conns, 1)
	assert.False(t, conns[0].IsConnected())
}
