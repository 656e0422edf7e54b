package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/samurmaykrr/zqlz/internal/database/sqlcommon"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/schema"
)

// Conn is one SQL Server session.
type Conn struct {
	*sqlcommon.Conn
}

// Introspector returns the catalog surface.
func (c *Conn) Introspector() schema.Introspector { return &introspector{conn: c} }

// CancelHandle returns nil. T-SQL's KILL terminates the whole session, not
// the running statement, so cancellation goes through the statement context
// instead.
func (c *Conn) CancelHandle() driver.CancelHandle { return nil }

// introspector reads information_schema and the sys catalog. An empty schema
// name resolves to dbo.
type introspector struct {
	conn *Conn
}

func (in *introspector) resolveSchema(schemaName string) string {
	if schemaName == "" {
		return "dbo"
	}
	return schemaName
}

func (in *introspector) ListSchemas(ctx context.Context) ([]string, error) {
	const q = `
SELECT name FROM sys.schemas
WHERE name NOT IN ('sys', 'INFORMATION_SCHEMA', 'guest')
  AND name NOT LIKE 'db[_]%'
ORDER BY name`
	rows, err := in.conn.DB().QueryContext(ctx, q)
	if err != nil {
		return nil, wrap(err)
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
SELECT t.name, COALESCE(SUM(p.rows), -1)
FROM sys.tables t
JOIN sys.schemas s ON s.schema_id = t.schema_id
LEFT JOIN sys.partitions p ON p.object_id = t.object_id AND p.index_id IN (0, 1)
WHERE s.name = @p1
GROUP BY t.name
ORDER BY t.name`
	schemaName = in.resolveSchema(schemaName)
	rows, err := in.conn.DB().QueryContext(ctx, q, schemaName)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	var tables []schema.TableInfo
	for rows.Next() {
		var name string
		var estimated int64
		if err := rows.Scan(&name, &estimated); err != nil {
			return nil, err
		}
		tables = append(tables, schema.TableInfo{
			Schema:        schemaName,
			Name:          name,
			Type:          schema.TableTypeTable,
			EstimatedRows: estimated,
		})
	}
	return tables, rows.Err()
}

func (in *introspector) ListViews(ctx context.Context, schemaName string) ([]schema.ViewInfo, error) {
	const q = `
SELECT table_name, COALESCE(view_definition, '')
FROM information_schema.views
WHERE table_schema = @p1
ORDER BY table_name`
	schemaName = in.resolveSchema(schemaName)
	rows, err := in.conn.DB().QueryContext(ctx, q, schemaName)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	var views []schema.ViewInfo
	for rows.Next() {
		var name, definition string
		if err := rows.Scan(&name, &definition); err != nil {
			return nil, err
		}
		views = append(views, schema.ViewInfo{Schema: schemaName, Name: name, Definition: definition})
	}
	return views, rows.Err()
}

func (in *introspector) GetTableDetails(ctx context.Context, schemaName, tableName string) (*schema.TableDetails, error) {
	schemaName = in.resolveSchema(schemaName)

	details := &schema.TableDetails{
		Table: schema.TableInfo{
			Schema:        schemaName,
			Name:          tableName,
			Type:          schema.TableTypeTable,
			EstimatedRows: -1,
		},
	}

	if err := in.loadColumns(ctx, schemaName, tableName, details); err != nil {
		return nil, err
	}
	if len(details.Columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found", schemaName, tableName)
	}
	if err := in.loadIndexes(ctx, schemaName, tableName, details); err != nil {
		return nil, err
	}
	if err := in.loadForeignKeys(ctx, schemaName, tableName, details); err != nil {
		return nil, err
	}
	return details, nil
}

func (in *introspector) loadColumns(ctx context.Context, schemaName, tableName string, details *schema.TableDetails) error {
	const q = `
SELECT c.name,
       c.column_id,
       ty.name,
       c.is_nullable,
       COALESCE(dc.definition, ''),
       COALESCE(c.max_length, 0),
       c.is_identity,
       CASE WHEN pk.column_id IS NULL THEN 0 ELSE 1 END
FROM sys.columns c
JOIN sys.tables t ON t.object_id = c.object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
JOIN sys.types ty ON ty.user_type_id = c.user_type_id
LEFT JOIN sys.default_constraints dc ON dc.object_id = c.default_object_id
LEFT JOIN (
    SELECT ic.object_id, ic.column_id
    FROM sys.index_columns ic
    JOIN sys.indexes i ON i.object_id = ic.object_id AND i.index_id = ic.index_id
    WHERE i.is_primary_key = 1
) pk ON pk.object_id = c.object_id AND pk.column_id = c.column_id
WHERE s.name = @p1 AND t.name = @p2
ORDER BY c.column_id`
	rows, err := in.conn.DB().QueryContext(ctx, q, schemaName, tableName)
	if err != nil {
		return wrap(err)
	}
	defer rows.Close()

	var pkColumns []string
	for rows.Next() {
		var col schema.ColumnInfo
		var maxLength sql.NullInt64
		var isPK int
		if err := rows.Scan(&col.Name, &col.Position, &col.DataType, &col.Nullable,
			&col.DefaultValue, &maxLength, &col.IsAutoIncrement, &isPK); err != nil {
			return err
		}
		col.MaxLength = int(maxLength.Int64)
		col.IsPrimaryKey = isPK == 1
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

func (in *introspector) loadIndexes(ctx context.Context, schemaName, tableName string, details *schema.TableDetails) error {
	const q = `
SELECT i.name, col.name, i.is_unique, i.type_desc
FROM sys.indexes i
JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
JOIN sys.tables t ON t.object_id = i.object_id
JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE s.name = @p1 AND t.name = @p2 AND i.is_primary_key = 0 AND i.name IS NOT NULL
ORDER BY i.name, ic.key_ordinal`
	rows, err := in.conn.DB().QueryContext(ctx, q, schemaName, tableName)
	if err != nil {
		return wrap(err)
	}
	defer rows.Close()

	byName := map[string]int{}
	for rows.Next() {
		var name, column, method string
		var unique bool
		if err := rows.Scan(&name, &column, &unique, &method); err != nil {
			return err
		}
		if i, ok := byName[name]; ok {
			details.Indexes[i].Columns = append(details.Indexes[i].Columns, column)
			continue
		}
		byName[name] = len(details.Indexes)
		details.Indexes = append(details.Indexes, schema.IndexInfo{
			Name:     name,
			Columns:  []string{column},
			IsUnique: unique,
			Method:   method,
		})
	}
	return rows.Err()
}

func (in *introspector) loadForeignKeys(ctx context.Context, schemaName, tableName string, details *schema.TableDetails) error {
	const q = `
SELECT fk.name,
       pc.name,
       rs.name,
       rt.name,
       rc.name,
       fk.delete_referential_action_desc,
       fk.update_referential_action_desc
FROM sys.foreign_keys fk
JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
JOIN sys.tables rt ON rt.object_id = fk.referenced_object_id
JOIN sys.schemas rs ON rs.schema_id = rt.schema_id
JOIN sys.tables pt ON pt.object_id = fk.parent_object_id
JOIN sys.schemas ps ON ps.schema_id = pt.schema_id
WHERE ps.name = @p1 AND pt.name = @p2
ORDER BY fk.name, fkc.constraint_column_id`
	rows, err := in.conn.DB().QueryContext(ctx, q, schemaName, tableName)
	if err != nil {
		return wrap(err)
	}
	defer rows.Close()

	byName := map[string]int{}
	for rows.Next() {
		var name, column, refSchema, refTable, refColumn, onDelete, onUpdate string
		if err := rows.Scan(&name, &column, &refSchema, &refTable, &refColumn, &onDelete, &onUpdate); err != nil {
			return err
		}
		if i, ok := byName[name]; ok {
			details.ForeignKeys[i].Columns = append(details.ForeignKeys[i].Columns, column)
			details.ForeignKeys[i].ReferencedColumns = append(details.ForeignKeys[i].ReferencedColumns, refColumn)
			continue
		}
		byName[name] = len(details.ForeignKeys)
		details.ForeignKeys = append(details.ForeignKeys, schema.ForeignKeyInfo{
			Name:              name,
			Columns:           []string{column},
			ReferencedSchema:  refSchema,
			ReferencedTable:   refTable,
			ReferencedColumns: []string{refColumn},
			OnDelete:          referentialAction(onDelete),
			OnUpdate:          referentialAction(onUpdate),
		})
	}
	return rows.Err()
}

// referentialAction converts sys catalog action descriptions like
// "SET_NULL" to the backend-neutral form.
func referentialAction(desc string) schema.ReferentialAction {
	switch desc {
	case "CASCADE":
		return schema.ActionCascade
	case "SET_NULL":
		return schema.ActionSetNull
	case "SET_DEFAULT":
		return schema.ActionSetDefault
	default:
		return schema.ActionNoAction
	}
}

func wrap(err error) error { return mapError(err) }
