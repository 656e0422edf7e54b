package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/logger"
	"github.com/samurmaykrr/zqlz/pkg/schema"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

// ReconnectConfig bounds automatic reconnection.
type ReconnectConfig struct {
	// MaxAttempts per failed operation. Zero falls back to 3.
	MaxAttempts int
	Backoff     Backoff
}

// DefaultReconnectConfig returns the standard policy: 3 attempts with the
// default backoff.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{MaxAttempts: 3, Backoff: DefaultBackoff()}
}

func (rc ReconnectConfig) maxAttempts() int {
	if rc.MaxAttempts <= 0 {
		return 3
	}
	return rc.MaxAttempts
}

// Reconnector wraps a Connection with bounded retry. When an operation
// fails with a retryable error (connection, IO, timeout kinds) it redials
// through the originating driver with backoff and retries the operation
// once per successful redial. Statement-level failures pass through
// untouched, Begin is never retried, and a closed Reconnector stays closed.
//
// Every retry is counted and logged so reconnection is observable rather
// than silent.
type Reconnector struct {
	drv driver.Driver
	cfg driver.Config
	rc  ReconnectConfig
	log *logger.Logger

	mu     sync.RWMutex
	conn   driver.Connection
	closed bool

	retries    atomic.Int64
	reconnects atomic.Int64
}

// NewReconnector wraps conn. The driver and config for redials come from
// the connection itself.
func NewReconnector(conn driver.Connection, rc ReconnectConfig, log *logger.Logger) *Reconnector {
	if log == nil {
		log = logger.Nop()
	}
	return &Reconnector{
		drv:  conn.Driver(),
		cfg:  conn.Config(),
		rc:   rc,
		log:  log.WithConnection(conn.ID()),
		conn: conn,
	}
}

// Retries returns how many operation retries have been performed.
func (r *Reconnector) Retries() int64 { return r.retries.Load() }

// Reconnects returns how many successful redials have been performed.
func (r *Reconnector) Reconnects() int64 { return r.reconnects.Load() }

func (r *Reconnector) current() (driver.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, driver.ErrClosed
	}
	return r.conn, nil
}

// redial replaces the wrapped connection. Only one goroutine redials at a
// time; losers of the race reuse the winner's fresh connection.
func (r *Reconnector) redial(ctx context.Context, stale driver.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return driver.ErrClosed
	}
	if r.conn != stale {
		// Another goroutine already replaced it.
		return nil
	}

	fresh, err := r.drv.Connect(ctx, r.cfg)
	if err != nil {
		return err
	}
	_ = stale.Close()
	r.conn = fresh
	r.reconnects.Add(1)
	r.log.Info("reconnected", logger.F("attempts_used", 1))
	return nil
}

// do runs op with retry-on-retryable semantics.
func (r *Reconnector) do(ctx context.Context, name string, op func(conn driver.Connection) error) error {
	conn, err := r.current()
	if err != nil {
		return err
	}

	opErr := op(conn)
	if opErr == nil || !driver.IsRetryable(opErr) {
		return opErr
	}

	for attempt := 0; attempt < r.rc.maxAttempts(); attempt++ {
		delay := r.rc.Backoff.Delay(attempt)
		r.log.Warn("operation failed, retrying",
			logger.F("operation", name),
			logger.F("attempt", attempt+1),
			logger.F("delay", delay.String()),
			logger.F("error", opErr.Error()))

		select {
		case <-ctx.Done():
			return driver.ErrCancelled
		case <-time.After(delay):
		}

		if err := r.redial(ctx, conn); err != nil {
			opErr = err
			continue
		}

		conn, err = r.current()
		if err != nil {
			return err
		}
		r.retries.Add(1)
		opErr = op(conn)
		if opErr == nil || !driver.IsRetryable(opErr) {
			return opErr
		}
	}
	return opErr
}

// driver.Connection implementation

func (r *Reconnector) ID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conn.ID()
}

func (r *Reconnector) Type() dbcapabilities.DatabaseID { return r.cfg.Database }

func (r *Reconnector) IsConnected() bool {
	conn, err := r.current()
	if err != nil {
		return false
	}
	return conn.IsConnected()
}

func (r *Reconnector) Ping(ctx context.Context) error {
	return r.do(ctx, "ping", func(conn driver.Connection) error {
		return conn.Ping(ctx)
	})
}

func (r *Reconnector) Query(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
	var res *value.QueryResult
	err := r.do(ctx, "query", func(conn driver.Connection) error {
		var opErr error
		res, opErr = conn.Query(ctx, statement, args)
		return opErr
	})
	return res, err
}

func (r *Reconnector) Execute(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error) {
	var res *value.StatementResult
	err := r.do(ctx, "execute", func(conn driver.Connection) error {
		var opErr error
		res, opErr = conn.Execute(ctx, statement, args)
		return opErr
	})
	return res, err
}

// Begin is never retried: a transaction silently restarted on a new
// connection would lose its session state.
func (r *Reconnector) Begin(ctx context.Context) (driver.Transaction, error) {
	conn, err := r.current()
	if err != nil {
		return nil, err
	}
	return conn.Begin(ctx)
}

func (r *Reconnector) Introspector() schema.Introspector {
	conn, err := r.current()
	if err != nil {
		return nil
	}
	return conn.Introspector()
}

// KeyBrowser exposes the wrapped connection's key enumeration surface when
// the backend has one, nil otherwise.
func (r *Reconnector) KeyBrowser() schema.KeyBrowser {
	conn, err := r.current()
	if err != nil {
		return nil
	}
	if kb, ok := conn.(interface{ KeyBrowser() schema.KeyBrowser }); ok {
		return kb.KeyBrowser()
	}
	return nil
}

func (r *Reconnector) CancelHandle() driver.CancelHandle {
	conn, err := r.current()
	if err != nil {
		return nil
	}
	return conn.CancelHandle()
}

func (r *Reconnector) Config() driver.Config { return r.cfg }
func (r *Reconnector) Driver() driver.Driver { return r.drv }

// Close shuts the wrapped connection down permanently; no further redials
// happen.
func (r *Reconnector) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.conn.Close()
}
