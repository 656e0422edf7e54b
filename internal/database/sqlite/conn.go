package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/samurmaykrr/zqlz/internal/database/sqlcommon"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/schema"
)

// Conn is one SQLite session.
type Conn struct {
	*sqlcommon.Conn
}

// Introspector returns the catalog surface.
func (c *Conn) Introspector() schema.Introspector { return &introspector{conn: c} }

// CancelHandle returns nil. SQLite statements cancel through the caller's
// context; there is no out-of-band cancel channel to a file.
func (c *Conn) CancelHandle() driver.CancelHandle { return nil }

// introspector reads sqlite_master and the table PRAGMAs.
type introspector struct {
	conn *Conn
}

func (in *introspector) ListSchemas(ctx context.Context) ([]string, error) {
	rows, err := in.conn.DB().QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var seq int
		var name, file sql.NullString
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, err
		}
		schemas = append(schemas, name.String)
	}
	return schemas, rows.Err()
}

func (in *introspector) ListTables(ctx context.Context, schemaName string) ([]schema.TableInfo, error) {
	const q = `
SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`
	rows, err := in.conn.DB().QueryContext(ctx, q)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var tables []schema.TableInfo
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, schema.TableInfo{
			Name:          name,
			Type:          schema.TableTypeTable,
			EstimatedRows: -1,
		})
	}
	return tables, rows.Err()
}

func (in *introspector) ListViews(ctx context.Context, schemaName string) ([]schema.ViewInfo, error) {
	const q = `
SELECT name, COALESCE(sql, '') FROM sqlite_master
WHERE type = 'view'
ORDER BY name`
	rows, err := in.conn.DB().QueryContext(ctx, q)
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
		views = append(views, view)
	}
	return views, rows.Err()
}

func (in *introspector) GetTableDetails(ctx context.Context, schemaName, tableName string) (*schema.TableDetails, error) {
	details := &schema.TableDetails{
		Table: schema.TableInfo{
			Name:          tableName,
			Type:          schema.TableTypeTable,
			EstimatedRows: -1,
		},
	}

	if err := in.loadColumns(ctx, tableName, details); err != nil {
		return nil, err
	}
	if len(details.Columns) == 0 {
		return nil, fmt.Errorf("table %s not found", tableName)
	}
	if err := in.loadIndexes(ctx, tableName, details); err != nil {
		return nil, err
	}
	if err := in.loadForeignKeys(ctx, tableName, details); err != nil {
		return nil, err
	}
	return details, nil
}

func (in *introspector) loadColumns(ctx context.Context, tableName string, details *schema.TableDetails) error {
	// PRAGMA arguments cannot be bound, hence the quoting helper.
	rows, err := in.conn.DB().QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(tableName)))
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	var pkColumns []string
	for rows.Next() {
		var cid, notNull, pk int
		var name, dataType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dflt, &pk); err != nil {
			return err
		}
		col := schema.ColumnInfo{
			Name:         name,
			Position:     cid + 1,
			DataType:     dataType,
			Nullable:     notNull == 0,
			DefaultValue: dflt.String,
			IsPrimaryKey: pk > 0,
		}
		if col.IsPrimaryKey {
			pkColumns = append(pkColumns, col.Name)
		}
		details.Columns = append(details.Columns, col)
	}
	if len(pkColumns) > 0 {
		details.PrimaryKey = &schema.PrimaryKeyInfo{Columns: pkColumns}
	}
	return rows.Err()
}

func (in *introspector) loadIndexes(ctx context.Context, tableName string, details *schema.TableDetails) error {
	rows, err := in.conn.DB().QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(tableName)))
	if err != nil {
		return mapError(err)
	}

	type indexHead struct {
		name   string
		unique bool
	}
	var heads []indexHead
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return err
		}
		// "pk" origin rows duplicate the primary key.
		if origin == "pk" {
			continue
		}
		heads = append(heads, indexHead{name: name, unique: unique == 1})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, head := range heads {
		columns, err := in.indexColumns(ctx, head.name)
		if err != nil {
			return err
		}
		details.Indexes = append(details.Indexes, schema.IndexInfo{
			Name:     head.name,
			Columns:  columns,
			IsUnique: head.unique,
		})
	}
	return nil
}

func (in *introspector) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := in.conn.DB().QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(indexName)))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var name sql.NullString
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		columns = append(columns, name.String)
	}
	return columns, rows.Err()
}

func (in *introspector) loadForeignKeys(ctx context.Context, tableName string, details *schema.TableDetails) error {
	rows, err := in.conn.DB().QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(tableName)))
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	byID := map[int]int{}
	for rows.Next() {
		var id, seq int
		var refTable, from, to, onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return err
		}
		if i, ok := byID[id]; ok {
			details.ForeignKeys[i].Columns = append(details.ForeignKeys[i].Columns, from)
			details.ForeignKeys[i].ReferencedColumns = append(details.ForeignKeys[i].ReferencedColumns, to)
			continue
		}
		byID[id] = len(details.ForeignKeys)
		details.ForeignKeys = append(details.ForeignKeys, schema.ForeignKeyInfo{
			Name:              fmt.Sprintf("fk_%s_%d", tableName, id),
			Columns:           []string{from},
			ReferencedTable:   refTable,
			ReferencedColumns: []string{to},
			OnDelete:          schema.ReferentialAction(onDelete),
			OnUpdate:          schema.ReferentialAction(onUpdate),
		})
	}
	return rows.Err()
}
