package query

import (
	"context"

	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/logger"
)

// BatchOptions tunes script execution.
type BatchOptions struct {
	// ContinueOnError runs every statement and reports per-statement
	// outcomes instead of stopping at the first failure.
	ContinueOnError bool
}

// StatementOutcome is the per-statement record of a script run. Statements
// after a fail-fast stop never appear; their absence is the signal that
// they did not run.
type StatementOutcome struct {
	Index  int
	SQL    string
	Result *Result
	Err    error
}

// BatchResult summarizes one script run in statement order.
type BatchResult struct {
	Outcomes []StatementOutcome
	Failed   int
}

// Succeeded reports whether every executed statement succeeded.
func (b *BatchResult) Succeeded() bool {
	return b.Failed == 0
}

// ExecuteScript splits script into statements and runs them sequentially
// on conn. The default mode is fail-fast: the first error stops the run,
// the failed statement is the last outcome, and the error is returned.
// With ContinueOnError every statement runs and errors live only in the
// outcomes.
func (e *Engine) ExecuteScript(ctx context.Context, conn driver.Connection, script string, opts BatchOptions) (*BatchResult, error) {
	statements := SplitStatements(script)
	if len(statements) == 0 {
		return nil, ErrEmptyStatement
	}

	batch := &BatchResult{}
	for i, stmt := range statements {
		res, err := e.Execute(ctx, conn, stmt, nil)
		batch.Outcomes = append(batch.Outcomes, StatementOutcome{
			Index:  i,
			SQL:    stmt,
			Result: res,
			Err:    err,
		})
		if err == nil {
			continue
		}
		batch.Failed++
		if !opts.ContinueOnError {
			e.log.Warn("script stopped at failing statement",
				logger.F("connection_id", conn.ID()),
				logger.F("statement_index", i),
				logger.F("error", err.Error()))
			return batch, err
		}
		if driver.IsCancelled(err) {
			// Cancellation stops the run in either mode.
			return batch, err
		}
	}
	return batch, nil
}
