// Package query executes statements against driver connections: single
// statement execution with timeout and cancellation mapping, script
// execution with fail-fast or continue-on-error semantics, statement
// classification and a bounded execution history.
package query

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/logger"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

// ErrEmptyStatement is returned when the statement is blank after trimming.
var ErrEmptyStatement = errors.New("empty statement")

// Result is the outcome of one executed statement. Exactly one of Query or
// Statement is set, matching Classification.IsQuery.
type Result struct {
	SQL            string
	Classification Classification
	Query          *value.QueryResult
	Statement      *value.StatementResult
	Duration       time.Duration
}

// RowCount returns rows returned or affected.
func (r *Result) RowCount() int64 {
	if r.Query != nil {
		return int64(r.Query.RowCount)
	}
	if r.Statement != nil {
		return r.Statement.RowsAffected
	}
	return 0
}

// Options tunes an Engine.
type Options struct {
	Logger  *logger.Logger
	History *History
}

// Engine runs statements. It is stateless apart from the shared history and
// safe for concurrent use.
type Engine struct {
	log     *logger.Logger
	history *History
}

// New creates an Engine. A nil history gets a default-capacity one.
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	history := opts.History
	if history == nil {
		history = NewHistory(DefaultHistoryCapacity)
	}
	return &Engine{log: log, history: history}
}

// History returns the engine's history ring.
func (e *Engine) History() *History {
	return e.history
}

// Execute runs one statement on conn. The connection's statement timeout
// bounds execution; caller cancellation surfaces as ErrCancelled, the
// timeout as ErrStatementTimeout. Every run, successful or not, lands in
// history.
func (e *Engine) Execute(ctx context.Context, conn driver.Connection, statement string, args []value.Value) (*Result, error) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return nil, ErrEmptyStatement
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout := conn.Config().Timeouts.Statement; timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res := &Result{
		SQL:            statement,
		Classification: Classify(statement),
	}

	start := time.Now()
	var err error
	if res.Classification.IsQuery {
		res.Query, err = conn.Query(runCtx, statement, args)
	} else {
		res.Statement, err = conn.Execute(runCtx, statement, args)
	}
	res.Duration = time.Since(start)

	if err != nil {
		err = e.mapError(ctx, runCtx, err)
	}

	entry := HistoryEntry{
		ConnectionID: conn.ID(),
		SQL:          statement,
		StartedAt:    start,
		Duration:     res.Duration,
		Success:      err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.RowCount = res.RowCount()
	}
	e.history.Record(entry)

	if err != nil {
		e.log.Warn("statement failed",
			logger.F("connection_id", conn.ID()),
			logger.F("duration", res.Duration.String()),
			logger.F("error", err.Error()))
		return nil, err
	}

	e.log.Debug("statement executed",
		logger.F("connection_id", conn.ID()),
		logger.F("duration", res.Duration.String()),
		logger.F("rows", res.RowCount()))
	return res, nil
}

// Cancel asks the backend to abort the statement currently running on
// conn. Backends without server-side cancellation return an
// UnsupportedError.
func (e *Engine) Cancel(ctx context.Context, conn driver.Connection) error {
	handle := conn.CancelHandle()
	if handle == nil {
		return driver.NewUnsupportedError(conn.Type(), "cancellation", "")
	}
	return handle.Cancel(ctx)
}

// mapError translates context termination into the engine taxonomy. The
// caller's context cancels, the statement timeout times out; backend
// errors pass through untouched.
func (e *Engine) mapError(callerCtx, runCtx context.Context, err error) error {
	switch {
	case callerCtx.Err() != nil &&
		(errors.Is(err, context.Canceled) || errors.Is(err, callerCtx.Err())):
		return driver.ErrCancelled
	case runCtx.Err() != nil &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(err, runCtx.Err())):
		return driver.ErrStatementTimeout
	default:
		return err
	}
}
