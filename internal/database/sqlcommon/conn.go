// Package sqlcommon holds the plumbing shared by every adapter that speaks
// through database/sql: result collection, transaction wrapping and the
// connection skeleton with its liveness flag. Backend adapters embed Conn and
// supply a DSN, an error mapper and their catalog surface.
package sqlcommon

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

// ErrorMapper translates a backend-native error into the engine taxonomy,
// normally by wrapping it in a *driver.QueryError. It must return the input
// unchanged when it does not recognize the error.
type ErrorMapper func(err error) error

// Conn is the database/sql half of a driver.Connection. Adapters embed it and
// add Introspector and CancelHandle on top.
type Conn struct {
	id        string
	db        *sql.DB
	dbType    dbcapabilities.DatabaseID
	cfg       driver.Config
	drv       driver.Driver
	mapErr    ErrorMapper
	connected atomic.Bool
	closed    atomic.Bool
}

// NewConn wraps an opened *sql.DB. The caller has already pinged it.
func NewConn(id string, db *sql.DB, dbType dbcapabilities.DatabaseID, cfg driver.Config, drv driver.Driver, mapErr ErrorMapper) *Conn {
	c := &Conn{
		id:     id,
		db:     db,
		dbType: dbType,
		cfg:    cfg,
		drv:    drv,
		mapErr: mapErr,
	}
	c.connected.Store(true)
	return c
}

// DB exposes the underlying handle for adapter-specific statements.
func (c *Conn) DB() *sql.DB { return c.db }

// ID returns the engine-assigned connection ID.
func (c *Conn) ID() string { return c.id }

// Type returns the database type of this connection.
func (c *Conn) Type() dbcapabilities.DatabaseID { return c.dbType }

// Config returns the configuration this connection was opened with.
func (c *Conn) Config() driver.Config { return c.cfg }

// Driver returns the driver that produced this connection.
func (c *Conn) Driver() driver.Driver { return c.drv }

// IsConnected reports the last known liveness without touching the network.
func (c *Conn) IsConnected() bool { return c.connected.Load() }

// Ping verifies the server is reachable and updates the liveness flag.
func (c *Conn) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return driver.ErrClosed
	}
	if err := c.db.PingContext(ctx); err != nil {
		c.connected.Store(false)
		return driver.NewConnectionError(c.dbType, c.cfg.Host, c.cfg.EffectivePort(), err)
	}
	c.connected.Store(true)
	return nil
}

// Query runs a row-returning statement.
func (c *Conn) Query(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
	if c.closed.Load() {
		return nil, driver.ErrClosed
	}
	return queryInto(ctx, c.db.QueryContext, c.dbType, c.mapErr, statement, args)
}

// Execute runs a non-row-returning statement.
func (c *Conn) Execute(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error) {
	if c.closed.Load() {
		return nil, driver.ErrClosed
	}
	return execInto(ctx, c.db.ExecContext, c.dbType, c.mapErr, statement, args)
}

// Begin starts a transaction.
func (c *Conn) Begin(ctx context.Context) (driver.Transaction, error) {
	if c.closed.Load() {
		return nil, driver.ErrClosed
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, c.wrap(err)
	}
	return &Tx{tx: tx, dbType: c.dbType, mapErr: c.mapErr}, nil
}

// Close releases the connection. Safe to call more than once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.connected.Store(false)
	return c.db.Close()
}

func (c *Conn) wrap(err error) error {
	if c.mapErr != nil {
		err = c.mapErr(err)
	}
	return driver.WrapQuery(c.dbType, err)
}
