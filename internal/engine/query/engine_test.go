package query

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

func newEngineConn(t *testing.T, cfg driver.Config) (*Engine, *enginetest.FakeConn) {
	t.Helper()
	drv := &enginetest.FakeDriver{}
	if cfg.Database == "" {
		cfg = driver.Config{ID: "c1", Database: dbcapabilities.PostgreSQL, Host: "h"}
	}
	conn := enginetest.NewFakeConn("c1", drv, cfg)
	return New(Options{}), conn
}

func TestEngineRoutesQueriesAndStatements(t *testing.T) {
	e, conn := newEngineConn(t, driver.Config{})
	conn.QueryFunc = func(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
		return &value.QueryResult{
			Columns:  []value.ColumnMeta{{Name: "n"}},
			Rows:     []value.Row{{Values: []value.Value{value.NewInt64(1)}}},
			RowCount: 1,
		}, nil
	}
	conn.ExecFunc = func(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error) {
		return &value.StatementResult{RowsAffected: 3}, nil
	}

	res, err := e.Execute(context.Background(), conn, "SELECT n FROM t", nil)
	require.NoError(t, err)
	assert.True(t, res.Classification.IsQuery)
	require.NotNil(t, res.Query)
	assert.Nil(t, res.Statement)
	assert.EqualValues(t, 1, res.RowCount())

	res, err = e.Execute(context.Background(), conn, "UPDATE t SET a=1 WHERE id=2", nil)
	require.NoError(t, err)
	assert.False(t, res.Classification.IsQuery)
	require.NotNil(t, res.Statement)
	assert.EqualValues(t, 3, res.RowCount())
}

func TestEngineRecordsHistoryForSuccessAndFailure(t *testing.T) {
	e, conn := newEngineConn(t, driver.Config{})
	boom := driver.NewQueryError(dbcapabilities.PostgreSQL, driver.ErrQueryFailed, "42P01", errors.New(`relation "nope" does not exist`))
	conn.QueryFunc = func(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
		if statement == "SELECT bad" {
			return nil, boom
		}
		return &value.QueryResult{RowCount: 2}, nil
	}

	_, err := e.Execute(context.Background(), conn, "SELECT good", nil)
	require.NoError(t, err)
	_, err = e.Execute(context.Background(), conn, "SELECT bad", nil)
	require.Error(t, err)

	entries := e.History().List(0)
	require.Len(t, entries, 2)
	assert.Equal(t, "SELECT bad", entries[0].SQL)
	assert.False(t, entries[0].Success)
	assert.Contains(t, entries[0].Error, "nope")
	assert.True(t, entries[1].Success)
	assert.EqualValues(t, 2, entries[1].RowCount)
}

func TestEngineEmptyStatement(t *testing.T) {
	e, conn := newEngineConn(t, driver.Config{})
	_, err := e.Execute(context.Background(), conn, "   \n", nil)
	assert.ErrorIs(t, err, ErrEmptyStatement)
	assert.Zero(t, e.History().Len())
}

func TestEngineStatementTimeout(t *testing.T) {
	cfg := driver.Config{
		ID:       "c1",
		Database: dbcapabilities.PostgreSQL,
		Host:     "h",
		Timeouts: driver.TimeoutConfig{Statement: 30 * time.Millisecond},
	}
	e, conn := newEngineConn(t, cfg)
	conn.QueryFunc = func(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	start := time.Now()
	_, err := e.Execute(context.Background(), conn, "SELECT pg_sleep(10)", nil)
	assert.ErrorIs(t, err, driver.ErrStatementTimeout)
	assert.Less(t, time.Since(start), time.Second, "timeout must fire, not hang")
}

func TestEngineCancellationNeverHangs(t *testing.T) {
	e, conn := newEngineConn(t, driver.Config{})
	conn.QueryFunc = func(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		_, err := e.Execute(ctx, conn, "SELECT long_running()", nil)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, driver.ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled execution did not return")
	}

	entries := e.History().List(1)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
}

func TestEngineCancelUsesHandle(t *testing.T) {
	e, conn := newEngineConn(t, driver.Config{})
	require.NoError(t, e.Cancel(context.Background(), conn))
	assert.EqualValues(t, 1, conn.Cancels.Load())
}

func TestEngineBackendErrorsPassThrough(t *testing.T) {
	e, conn := newEngineConn(t, driver.Config{})
	backend := driver.NewQueryError(dbcapabilities.MySQL, driver.ErrIntegrityViolation, "1062", errors.New("Duplicate entry 'x'"))
	conn.ExecFunc = func(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error) {
		return nil, backend
	}

	_, err := e.Execute(context.Background(), conn, "INSERT INTO t VALUES (1)", nil)
	assert.ErrorIs(t, err, driver.ErrIntegrityViolation)

	var qErr *driver.QueryError
	require.True(t, errors.As(err, &qErr))
	assert.Contains(t, qErr.Message, "Duplicate entry", "backend message stays verbatim")
}
