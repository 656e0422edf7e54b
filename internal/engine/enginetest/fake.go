// Package enginetest provides an in-memory fake driver used by engine
// tests. The fake is scriptable: tests swap in hook functions to inject
// failures, delays and canned results without a live database.
package enginetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/schema"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

// FakeDriver implements driver.Driver. The zero value is usable; it reports
// itself as PostgreSQL so capability lookups succeed.
type FakeDriver struct {
	// DB overrides the reported database type.
	DB dbcapabilities.DatabaseID

	// ConnectFunc replaces the default connection factory when set.
	ConnectFunc func(ctx context.Context, cfg driver.Config) (driver.Connection, error)

	mu       sync.Mutex
	connects int
	conns    []*FakeConn
}

func (d *FakeDriver) ID() dbcapabilities.DatabaseID {
	if d.DB != "" {
		return d.DB
	}
	return dbcapabilities.PostgreSQL
}

func (d *FakeDriver) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(d.ID())
}

func (d *FakeDriver) Connect(ctx context.Context, cfg driver.Config) (driver.Connection, error) {
	d.mu.Lock()
	d.connects++
	n := d.connects
	d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, driver.NewConnectionError(d.ID(), cfg.Host, cfg.Port, err)
	}
	if d.ConnectFunc != nil {
		return d.ConnectFunc(ctx, cfg)
	}

	conn := NewFakeConn(fmt.Sprintf("%s-conn-%d", cfg.ID, n), d, cfg)
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *FakeDriver) TestConnection(ctx context.Context, cfg driver.Config) error {
	conn, err := d.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (d *FakeDriver) ConnectionFields() []driver.ConnectionField {
	return driver.StandardNetworkFields(d.Capabilities().DefaultPort)
}

// ConnectCount returns how many times Connect was called.
func (d *FakeDriver) ConnectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connects
}

// Connections returns every connection the default factory produced.
func (d *FakeDriver) Connections() []*FakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*FakeConn, len(d.conns))
	copy(out, d.conns)
	return out
}

// FakeConn implements driver.Connection.
type FakeConn struct {
	id  string
	drv *FakeDriver
	cfg driver.Config

	// Hooks; when nil the default succeeds with an empty result.
	PingFunc  func(ctx context.Context) error
	QueryFunc func(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error)
	ExecFunc  func(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error)
	BeginFunc func(ctx context.Context) (driver.Transaction, error)

	// Intro backs Introspector(); nil means no catalog.
	Intro *FakeIntrospector

	Cancels atomic.Int64

	mu         sync.Mutex
	closed     bool
	closeCalls int
	statements []string
}

// NewFakeConn builds a connection with a working introspector.
func NewFakeConn(id string, drv *FakeDriver, cfg driver.Config) *FakeConn {
	return &FakeConn{id: id, drv: drv, cfg: cfg, Intro: NewFakeIntrospector()}
}

func (c *FakeConn) ID() string { return c.id }

func (c *FakeConn) Type() dbcapabilities.DatabaseID {
	if c.drv != nil {
		return c.drv.ID()
	}
	return dbcapabilities.PostgreSQL
}

func (c *FakeConn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *FakeConn) Ping(ctx context.Context) error {
	if err := c.guard(ctx); err != nil {
		return err
	}
	if c.PingFunc != nil {
		return c.PingFunc(ctx)
	}
	return nil
}

func (c *FakeConn) Query(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	c.record(statement)
	if c.QueryFunc != nil {
		return c.QueryFunc(ctx, statement, args)
	}
	return &value.QueryResult{}, nil
}

func (c *FakeConn) Execute(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	c.record(statement)
	if c.ExecFunc != nil {
		return c.ExecFunc(ctx, statement, args)
	}
	return &value.StatementResult{}, nil
}

func (c *FakeConn) Begin(ctx context.Context) (driver.Transaction, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	if c.BeginFunc != nil {
		return c.BeginFunc(ctx)
	}
	return &fakeTx{conn: c}, nil
}

func (c *FakeConn) Introspector() schema.Introspector {
	if c.Intro == nil {
		return nil
	}
	return c.Intro
}

func (c *FakeConn) CancelHandle() driver.CancelHandle {
	return fakeCancel{conn: c}
}

func (c *FakeConn) Config() driver.Config { return c.cfg }
func (c *FakeConn) Driver() driver.Driver { return c.drv }

func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls++
	c.closed = true
	return nil
}

// CloseCalls returns how many times Close was called.
func (c *FakeConn) CloseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls
}

// Statements returns every statement run on this connection in order.
func (c *FakeConn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.statements))
	copy(out, c.statements)
	return out
}

func (c *FakeConn) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return driver.ErrClosed
	}
	return nil
}

func (c *FakeConn) record(statement string) {
	c.mu.Lock()
	c.statements = append(c.statements, statement)
	c.mu.Unlock()
}

type fakeCancel struct {
	conn *FakeConn
}

func (f fakeCancel) Cancel(ctx context.Context) error {
	f.conn.Cancels.Add(1)
	return nil
}

type fakeTx struct {
	conn *FakeConn
	done atomic.Bool
}

func (tx *fakeTx) Query(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
	if tx.done.Load() {
		return nil, driver.ErrClosed
	}
	return tx.conn.Query(ctx, statement, args)
}

func (tx *fakeTx) Execute(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error) {
	if tx.done.Load() {
		return nil, driver.ErrClosed
	}
	return tx.conn.Execute(ctx, statement, args)
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	if tx.done.Swap(true) {
		return driver.ErrClosed
	}
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if tx.done.Swap(true) {
		return driver.ErrClosed
	}
	return nil
}

// FakeIntrospector implements schema.Introspector over in-memory maps and
// counts loads so cache tests can assert hit behavior.
type FakeIntrospector struct {
	mu     sync.Mutex
	tables map[string][]schema.TableInfo
	views  map[string][]schema.ViewInfo
	loads  int
	err    error
}

// NewFakeIntrospector builds an introspector with one schema ("public")
// holding two tables.
func NewFakeIntrospector() *FakeIntrospector {
	return &FakeIntrospector{
		tables: map[string][]schema.TableInfo{
			"public": {
				{Schema: "public", Name: "users", Type: schema.TableTypeTable, EstimatedRows: 3},
				{Schema: "public", Name: "orders", Type: schema.TableTypeTable, EstimatedRows: 7},
			},
		},
		views: map[string][]schema.ViewInfo{},
	}
}

// SetTables replaces the table listing for a schema.
func (f *FakeIntrospector) SetTables(schemaName string, tables []schema.TableInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[schemaName] = tables
}

// SetError makes every call fail with err.
func (f *FakeIntrospector) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Loads returns how many catalog reads were served.
func (f *FakeIntrospector) Loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func (f *FakeIntrospector) ListSchemas(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	names := make([]string, 0, len(f.tables))
	for name := range f.tables {
		names = append(names, name)
	}
	return names, nil
}

func (f *FakeIntrospector) ListTables(ctx context.Context, schemaName string) ([]schema.TableInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return f.tables[schemaName], nil
}

func (f *FakeIntrospector) ListViews(ctx context.Context, schemaName string) ([]schema.ViewInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return f.views[schemaName], nil
}

func (f *FakeIntrospector) GetTableDetails(ctx context.Context, schemaName, tableName string) (*schema.TableDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	for _, tbl := range f.tables[schemaName] {
		if tbl.Name == tableName {
			return &schema.TableDetails{
				Table: tbl,
				Columns: []schema.ColumnInfo{
					{Name: "id", Position: 1, DataType: "bigint", IsPrimaryKey: true},
				},
				PrimaryKey: &schema.PrimaryKeyInfo{Columns: []string{"id"}},
			}, nil
		}
	}
	return nil, driver.ErrSchemaUnavailable
}
