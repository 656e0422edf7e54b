package sqlcommon

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

// Tx adapts *sql.Tx to driver.Transaction. Commit and Rollback end the
// transaction; any use afterwards returns ErrClosed.
type Tx struct {
	tx     *sql.Tx
	dbType dbcapabilities.DatabaseID
	mapErr ErrorMapper
	done   atomic.Bool
}

// Query runs a row-returning statement inside the transaction.
func (t *Tx) Query(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
	if t.done.Load() {
		return nil, driver.ErrClosed
	}
	return queryInto(ctx, t.tx.QueryContext, t.dbType, t.mapErr, statement, args)
}

// Execute runs a non-row-returning statement inside the transaction.
func (t *Tx) Execute(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error) {
	if t.done.Load() {
		return nil, driver.ErrClosed
	}
	return execInto(ctx, t.tx.ExecContext, t.dbType, t.mapErr, statement, args)
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if !t.done.CompareAndSwap(false, true) {
		return driver.ErrClosed
	}
	if err := t.tx.Commit(); err != nil {
		return wrapWith(t.dbType, t.mapErr, err)
	}
	return nil
}

// Rollback aborts the transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	if !t.done.CompareAndSwap(false, true) {
		return driver.ErrClosed
	}
	if err := t.tx.Rollback(); err != nil {
		return wrapWith(t.dbType, t.mapErr, err)
	}
	return nil
}
