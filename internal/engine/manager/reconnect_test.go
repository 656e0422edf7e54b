package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samurmaykrr/zqlz/internal/engine/enginetest"
	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

func fastReconnect() ReconnectConfig {
	return ReconnectConfig{
		MaxAttempts: 3,
		Backoff:     Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2.0},
	}
}

func reconnectFixture(t *testing.T) (*enginetest.FakeDriver, *enginetest.FakeConn) {
	t.Helper()
	drv := &enginetest.FakeDriver{}
	cfg := driver.Config{ID: "rc", Database: dbcapabilities.PostgreSQL, Host: "localhost"}
	raw, err := drv.Connect(context.Background(), cfg)
	require.NoError(t, err)
	return drv, raw.(*enginetest.FakeConn)
}

func TestReconnectorRetriesRetryableQueryFailures(t *testing.T) {
	drv, conn := reconnectFixture(t)

	// First connection always fails with a connection-kind error; the
	// redialed replacement succeeds.
	conn.QueryFunc = func(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
		return nil, driver.NewConnectionError(dbcapabilities.PostgreSQL, "localhost", 5432, errors.New("broken pipe"))
	}

	r := NewReconnector(conn, fastReconnect(), nil)
	res, err := r.Query(context.Background(), "SELECT 1", nil)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.EqualValues(t, 1, r.Retries())
	assert.EqualValues(t, 1, r.Reconnects())
	assert.Equal(t, 2, drv.ConnectCount())
	assert.Equal(t, 1, conn.CloseCalls(), "stale connection is closed after redial")
}

func TestReconnectorDoesNotRetryStatementErrors(t *testing.T) {
	drv, conn := reconnectFixture(t)
	queryErr := driver.NewQueryError(dbcapabilities.PostgreSQL, driver.ErrQueryFailed, "42601", errors.New("syntax error"))
	conn.QueryFunc = func(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
		return nil, queryErr
	}

	r := NewReconnector(conn, fastReconnect(), nil)
	_, err := r.Query(context.Background(), "SELEC 1", nil)
	assert.ErrorIs(t, err, driver.ErrQueryFailed)
	assert.EqualValues(t, 0, r.Retries())
	assert.Equal(t, 1, drv.ConnectCount(), "no redial for statement errors")
}

func TestReconnectorGivesUpAfterMaxAttempts(t *testing.T) {
	drv := &enginetest.FakeDriver{}
	cfg := driver.Config{ID: "rc", Database: dbcapabilities.PostgreSQL, Host: "localhost"}
	raw, err := drv.Connect(context.Background(), cfg)
	require.NoError(t, err)

	// Every connection this driver ever produces fails.
	failing := func(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
		return nil, driver.NewConnectionError(dbcapabilities.PostgreSQL, "localhost", 5432, errors.New("down"))
	}
	raw.(*enginetest.FakeConn).QueryFunc = failing
	drv.ConnectFunc = func(ctx context.Context, cfg driver.Config) (driver.Connection, error) {
		c := enginetest.NewFakeConn("retry", drv, cfg)
		c.QueryFunc = failing
		return c, nil
	}

	r := NewReconnector(raw, fastReconnect(), nil)
	_, err = r.Query(context.Background(), "SELECT 1", nil)
	assert.ErrorIs(t, err, driver.ErrConnectFailed)
	assert.EqualValues(t, 3, r.Retries())
}

func TestReconnectorBeginIsNeverRetried(t *testing.T) {
	drv, conn := reconnectFixture(t)
	conn.BeginFunc = func(ctx context.Context) (driver.Transaction, error) {
		return nil, driver.NewConnectionError(dbcapabilities.PostgreSQL, "localhost", 5432, errors.New("broken pipe"))
	}

	r := NewReconnector(conn, fastReconnect(), nil)
	_, err := r.Begin(context.Background())
	assert.ErrorIs(t, err, driver.ErrConnectFailed)
	assert.EqualValues(t, 0, r.Retries())
	assert.Equal(t, 1, drv.ConnectCount())
}

func TestReconnectorCloseIsPermanent(t *testing.T) {
	drv, conn := reconnectFixture(t)
	r := NewReconnector(conn, fastReconnect(), nil)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close(), "close is idempotent")

	_, err := r.Query(context.Background(), "SELECT 1", nil)
	assert.ErrorIs(t, err, driver.ErrClosed)
	assert.False(t, r.IsConnected())
	assert.Equal(t, 1, drv.ConnectCount(), "closed reconnector never redials")
}

func TestReconnectorHonorsContextDuringBackoff(t *testing.T) {
	_, conn := reconnectFixture(t)
	conn.QueryFunc = func(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
		return nil, driver.NewConnectionError(dbcapabilities.PostgreSQL, "localhost", 5432, errors.New("down"))
	}

	rc := ReconnectConfig{
		MaxAttempts: 3,
		Backoff:     Backoff{Initial: time.Hour, Max: time.Hour, Multiplier: 2.0},
	}
	r := NewReconnector(conn, rc, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Query(ctx, "SELECT 1", nil)
	assert.ErrorIs(t, err, driver.ErrCancelled)
	assert.Less(t, time.Since(start), time.Second, "cancellation must interrupt the backoff sleep")
}
