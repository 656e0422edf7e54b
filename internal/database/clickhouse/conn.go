package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"sync"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"

	"github.com/samurmaykrr/zqlz/internal/database/sqlcommon"
	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/schema"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

// Error codes the adapter classifies specially.
const chCodeQueryCancelled = 394

// Conn is one ClickHouse session. Every statement runs under a fresh query
// ID so the cancel handle can KILL it server-side.
type Conn struct {
	*sqlcommon.Conn

	mu             sync.Mutex
	currentQueryID string
}

// Query runs a row-returning statement tagged with a cancellable query ID.
func (c *Conn) Query(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
	ctx, done := c.tagQuery(ctx)
	defer done()
	return c.Conn.Query(ctx, statement, args)
}

// Execute runs a non-row-returning statement tagged with a cancellable
// query ID.
func (c *Conn) Execute(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error) {
	ctx, done := c.tagQuery(ctx)
	defer done()
	return c.Conn.Execute(ctx, statement, args)
}

func (c *Conn) tagQuery(ctx context.Context) (context.Context, func()) {
	id := uuid.NewString()
	c.mu.Lock()
	c.currentQueryID = id
	c.mu.Unlock()

	ctx = ch.Context(ctx, ch.WithQueryID(id))
	return ctx, func() {
		c.mu.Lock()
		if c.currentQueryID == id {
			c.currentQueryID = ""
		}
		c.mu.Unlock()
	}
}

// Begin reports unsupported; ClickHouse has no transactional DML.
func (c *Conn) Begin(ctx context.Context) (driver.Transaction, error) {
	return nil, driver.NewUnsupportedError(dbcapabilities.ClickHouse, "transactions", "clickhouse has no transactional DML")
}

// Introspector returns the catalog surface.
func (c *Conn) Introspector() schema.Introspector { return &introspector{conn: c} }

// CancelHandle returns the KILL QUERY handle.
func (c *Conn) CancelHandle() driver.CancelHandle { return &cancelHandle{conn: c} }

// cancelHandle kills the tagged in-flight query through a second session.
type cancelHandle struct {
	conn *Conn
}

func (h *cancelHandle) Cancel(ctx context.Context) error {
	h.conn.mu.Lock()
	id := h.conn.currentQueryID
	h.conn.mu.Unlock()
	if id == "" {
		return nil
	}

	db := ch.OpenDB(Options(h.conn.Config()))
	defer db.Close()

	if _, err := db.ExecContext(ctx, "KILL QUERY WHERE query_id = ?", id); err != nil {
		return driver.WrapQuery(dbcapabilities.ClickHouse, err)
	}
	return nil
}

// mapError classifies a clickhouse-go error into the engine taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var exc *ch.Exception
	if errors.As(err, &exc) {
		kind := driver.ErrQueryFailed
		if exc.Code == chCodeQueryCancelled {
			kind = driver.ErrCancelled
		}
		return driver.NewQueryError(dbcapabilities.ClickHouse, kind, strconv.Itoa(int(exc.Code)), err)
	}
	return err
}

// introspector reads the system tables. An empty schema name resolves to the
// connection's database, falling back to "default".
type introspector struct {
	conn *Conn
}

func (in *introspector) resolveSchema(schemaName string) string {
	if schemaName != "" {
		return schemaName
	}
	if db := in.conn.Config().DatabaseName; db != "" {
		return db
	}
	return "default"
}

func (in *introspector) ListSchemas(ctx context.Context) ([]string, error) {
	const q = `
SELECT name FROM system.databases
WHERE name NOT IN ('system', 'information_schema', 'INFORMATION_SCHEMA')
ORDER BY name`
	rows, err := in.conn.DB().QueryContext(ctx, q)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		schemas = append(schemas, name)
	}
	return schemas, rows.Err()
}

func (in *introspector) ListTables(ctx context.Context, schemaName string) ([]schema.TableInfo, error) {
	const q = `
SELECT name, engine, total_rows, comment
FROM system.tables
WHERE database = ? AND NOT is_temporary AND engine NOT IN ('View', 'MaterializedView')
ORDER BY name`
	schemaName = in.resolveSchema(schemaName)
	rows, err := in.conn.DB().QueryContext(ctx, q, schemaName)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var tables []schema.TableInfo
	for rows.Next() {
		var name, engine, comment string
		var totalRows sql.NullInt64
		if err := rows.Scan(&name, &engine, &totalRows, &comment); err != nil {
			return nil, err
		}
		estimated := int64(-1)
		if totalRows.Valid {
			estimated = totalRows.Int64
		}
		tables = append(tables, schema.TableInfo{
			Schema:        schemaName,
			Name:          name,
			Type:          schema.TableTypeTable,
			EstimatedRows: estimated,
			Comment:       comment,
		})
	}
	return tables, rows.Err()
}

func (in *introspector) ListViews(ctx context.Context, schemaName string) ([]schema.ViewInfo, error) {
	const q = `
SELECT name, create_table_query
FROM system.tables
WHERE database = ? AND engine IN ('View', 'MaterializedView')
ORDER BY name`
	schemaName = in.resolveSchema(schemaName)
	rows, err := in.conn.DB().QueryContext(ctx, q, schemaName)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var views []schema.ViewInfo
	for rows.Next() {
		var view schema.ViewInfo
		if err := rows.Scan(&view.Name, &view.Definition); err != nil {
			return nil, err
		}
		view.Schema = schemaName
		views = append(views, view)
	}
	return views, rows.Err()
}

func (in *introspector) GetTableDetails(ctx context.Context, schemaName, tableName string) (*schema.TableDetails, error) {
	schemaName = in.resolveSchema(schemaName)

	const q = `
SELECT name, position, type, default_expression, is_in_primary_key, comment
FROM system.columns
WHERE database = ? AND table = ?
ORDER BY position`
	rows, err := in.conn.DB().QueryContext(ctx, q, schemaName, tableName)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	details := &schema.TableDetails{
		Table: schema.TableInfo{
			Schema:        schemaName,
			Name:          tableName,
			Type:          schema.TableTypeTable,
			EstimatedRows: -1,
		},
	}

	var pkColumns []string
	for rows.Next() {
		var col schema.ColumnInfo
		var position uint64
		var isPK bool
		if err := rows.Scan(&col.Name, &position, &col.DataType, &col.DefaultValue, &isPK, &col.Comment); err != nil {
			return nil, err
		}
		col.Position = int(position)
		// Nullable(T) is spelled in the type itself.
		col.Nullable = len(col.DataType) > 9 && col.DataType[:9] == "Nullable("
		col.IsPrimaryKey = isPK
		if isPK {
			pkColumns = append(pkColumns, col.Name)
		}
		details.Columns = append(details.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details.Columns) == 0 {
		return nil, driver.NewQueryError(dbcapabilities.ClickHouse, driver.ErrSchemaUnavailable, "",
			errors.New("table "+schemaName+"."+tableName+" not found"))
	}
	if len(pkColumns) > 0 {
		details.PrimaryKey = &schema.PrimaryKeyInfo{Columns: pkColumns}
	}
	return details, nil
}
