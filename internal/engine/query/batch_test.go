package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

func TestExecuteScriptFailFast(t *testing.T) {
	e, conn := newEngineConn(t, driver.Config{})
	failB := driver.NewQueryError(dbcapabilities.PostgreSQL, driver.ErrQueryFailed, "", errors.New("b failed"))
	conn.ExecFunc = func(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error) {
		if statement == "INSERT INTO t VALUES ('B')" {
			return nil, failB
		}
		return &value.StatementResult{RowsAffected: 1}, nil
	}

	script := "INSERT INTO t VALUES ('A'); INSERT INTO t VALUES ('B'); INSERT INTO t VALUES ('C')"
	batch, err := e.ExecuteScript(context.Background(), conn, script, BatchOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrQueryFailed)

	// A executed, B failed, C never ran.
	require.Len(t, batch.Outcomes, 2)
	assert.NoError(t, batch.Outcomes[0].Err)
	assert.Error(t, batch.Outcomes[1].Err)
	assert.Equal(t, 1, batch.Failed)

	statements := conn.Statements()
	assert.Len(t, statements, 2)
	assert.NotContains(t, statements, "INSERT INTO t VALUES ('C')")
}

func TestExecuteScriptContinueOnError(t *testing.T) {
	e, conn := newEngineConn(t, driver.Config{})
	conn.ExecFunc = func(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error) {
		if statement == "INSERT INTO t VALUES ('B')" {
			return nil, driver.NewQueryError(dbcapabilities.PostgreSQL, driver.ErrQueryFailed, "", errors.New("b failed"))
		}
		return &value.StatementResult{RowsAffected: 1}, nil
	}

	script := "INSERT INTO t VALUES ('A'); INSERT INTO t VALUES ('B'); INSERT INTO t VALUES ('C')"
	batch, err := e.ExecuteScript(context.Background(), conn, script, BatchOptions{ContinueOnError: true})

	require.NoError(t, err)
	require.Len(t, batch.Outcomes, 3)
	assert.NoError(t, batch.Outcomes[0].Err)
	assert.Error(t, batch.Outcomes[1].Err)
	assert.NoError(t, batch.Outcomes[2].Err)
	assert.Equal(t, 1, batch.Failed)
	assert.False(t, batch.Succeeded())

	assert.Len(t, conn.Statements(), 3)
}

func TestExecuteScriptAllSucceed(t *testing.T) {
	e, conn := newEngineConn(t, driver.Config{})

	batch, err := e.ExecuteScript(context.Background(), conn, "SELECT 1; SELECT 2", BatchOptions{})
	require.NoError(t, err)
	assert.Len(t, batch.Outcomes, 2)
	assert.True(t, batch.Succeeded())
}

func TestExecuteScriptEmpty(t *testing.T) {
	e, conn := newEngineConn(t, driver.Config{})
	_, err := e.ExecuteScript(context.Background(), conn, " ;; ", BatchOptions{})
	assert.ErrorIs(t, err, ErrEmptyStatement)
}

func TestExecuteScriptRecordsEachStatementInHistory(t *testing.T) {
	e, conn := newEngineConn(t, driver.Config{})
	_, err := e.ExecuteScript(context.Background(), conn, "SELECT 1; SELECT 2; SELECT 3", BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, e.History().Len())
}
