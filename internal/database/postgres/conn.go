package postgres

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/schema"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

// Conn is one PostgreSQL session. pgx connections are single-threaded, so a
// mutex serializes statements; the engine's pool provides parallelism across
// sessions.
type Conn struct {
	id  string
	cfg driver.Config
	drv *Driver

	mu        sync.Mutex
	pg        *pgx.Conn
	connected atomic.Bool
	closed    atomic.Bool
}

func newConn(id string, pg *pgx.Conn, cfg driver.Config, drv *Driver) *Conn {
	c := &Conn{id: id, cfg: cfg, drv: drv, pg: pg}
	c.connected.Store(true)
	return c
}

// ID returns the engine-assigned connection ID.
func (c *Conn) ID() string { return c.id }

// Type returns the database type of this connection.
func (c *Conn) Type() dbcapabilities.DatabaseID { return dbcapabilities.PostgreSQL }

// Config returns the configuration this connection was opened with.
func (c *Conn) Config() driver.Config { return c.cfg }

// Driver returns the driver that produced this connection.
func (c *Conn) Driver() driver.Driver { return c.drv }

// IsConnected reports the last known liveness without touching the network.
func (c *Conn) IsConnected() bool { return c.connected.Load() && !c.closed.Load() }

// Ping verifies the server is reachable.
func (c *Conn) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return driver.ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.pg.Ping(ctx); err != nil {
		c.connected.Store(false)
		return driver.NewConnectionError(dbcapabilities.PostgreSQL, c.cfg.Host, c.cfg.EffectivePort(), err)
	}
	c.connected.Store(true)
	return nil
}

// Query runs a row-returning statement.
func (c *Conn) Query(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
	if c.closed.Load() {
		return nil, driver.ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	rows, err := c.pg.Query(ctx, statement, value.ManyToAny(args)...)
	if err != nil {
		return nil, mapError(err)
	}
	result, err := collectRows(c.pg, rows)
	if err != nil {
		return nil, mapError(err)
	}
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// Execute runs a non-row-returning statement.
func (c *Conn) Execute(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error) {
	if c.closed.Load() {
		return nil, driver.ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	tag, err := c.pg.Exec(ctx, statement, value.ManyToAny(args)...)
	if err != nil {
		return nil, mapError(err)
	}
	return &value.StatementResult{
		RowsAffected:  tag.RowsAffected(),
		ExecutionTime: time.Since(start),
	}, nil
}

// Begin starts a transaction.
func (c *Conn) Begin(ctx context.Context) (driver.Transaction, error) {
	if c.closed.Load() {
		return nil, driver.ErrClosed
	}
	c.mu.Lock()
	tx, err := c.pg.Begin(ctx)
	if err != nil {
		c.mu.Unlock()
		return nil, mapError(err)
	}
	// The session stays locked for the lifetime of the transaction; pgx
	// runs transaction statements on the same wire connection.
	return &pgTx{conn: c, tx: tx}, nil
}

// Introspector returns the catalog surface.
func (c *Conn) Introspector() schema.Introspector { return &introspector{conn: c} }

// CancelHandle returns the out-of-band cancel handle. PostgreSQL cancels via
// a separate wire connection carrying the session's backend key.
func (c *Conn) CancelHandle() driver.CancelHandle { return &cancelHandle{conn: c} }

// Close releases the connection. Safe to call more than once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.connected.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.pg.Close(ctx)
}

type cancelHandle struct {
	conn *Conn
}

// Cancel sends a cancel request for whatever is running on the session.
// Cancelling an idle session is a server-side no-op.
func (h *cancelHandle) Cancel(ctx context.Context) error {
	if h.conn.closed.Load() {
		return driver.ErrClosed
	}
	// Deliberately not holding c.mu: the point is to interrupt a statement
	// that currently holds it.
	if err := h.conn.pg.PgConn().CancelRequest(ctx); err != nil {
		return driver.WrapQuery(dbcapabilities.PostgreSQL, err)
	}
	return nil
}

type pgTx struct {
	conn *Conn
	tx   pgx.Tx
	done atomic.Bool
}

func (t *pgTx) Query(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
	if t.done.Load() {
		return nil, driver.ErrClosed
	}
	start := time.Now()
	rows, err := t.tx.Query(ctx, statement, value.ManyToAny(args)...)
	if err != nil {
		return nil, mapError(err)
	}
	result, err := collectRows(t.conn.pg, rows)
	if err != nil {
		return nil, mapError(err)
	}
	result.ExecutionTime = time.Since(start)
	return result, nil
}

func (t *pgTx) Execute(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error) {
	if t.done.Load() {
		return nil, driver.ErrClosed
	}
	start := time.Now()
	tag, err := t.tx.Exec(ctx, statement, value.ManyToAny(args)...)
	if err != nil {
		return nil, mapError(err)
	}
	return &value.StatementResult{
		RowsAffected:  tag.RowsAffected(),
		ExecutionTime: time.Since(start),
	}, nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	if !t.done.CompareAndSwap(false, true) {
		return driver.ErrClosed
	}
	defer t.conn.mu.Unlock()
	if err := t.tx.Commit(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) error {
	if !t.done.CompareAndSwap(false, true) {
		return driver.ErrClosed
	}
	defer t.conn.mu.Unlock()
	if err := t.tx.Rollback(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

// collectRows drains a pgx result set into the backend-neutral form. Type
// names resolve through the connection's type map; unknown OIDs keep an
// empty type name rather than failing the row.
func collectRows(pg *pgx.Conn, rows pgx.Rows) (*value.QueryResult, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]value.ColumnMeta, len(fields))
	for i, fd := range fields {
		meta := value.ColumnMeta{Name: fd.Name, Nullable: true}
		if dt, ok := pg.TypeMap().TypeForOID(fd.DataTypeOID); ok {
			meta.DatabaseType = dt.Name
		}
		columns[i] = meta
	}

	result := &value.QueryResult{Columns: columns}
	for rows.Next() {
		cells, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := value.Row{Values: make([]value.Value, len(cells))}
		for i, cell := range cells {
			row.Values[i] = value.FromAny(cell)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Rows)
	return result, nil
}
