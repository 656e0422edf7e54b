package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/samurmaykrr/zqlz/pkg/schema"
)

// introspector reads information_schema. An empty schema name resolves to
// the connection's default database.
type introspector struct {
	conn *Conn
}

func (in *introspector) resolveSchema(schemaName string) string {
	if schemaName == "" {
		return in.conn.Config().DatabaseName
	}
	return schemaName
}

func (in *introspector) ListSchemas(ctx context.Context) ([]string, error) {
	const q = `
SELECT schema_name FROM information_schema.schemata
WHERE schema_name NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
ORDER BY schema_name`
	rows, err := in.conn.DB().QueryContext(ctx, q)
	if err != nil {
		return nil, mapError(in.conn.Type(), err)
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
SELECT table_name, table_type, COALESCE(table_rows, -1), COALESCE(table_comment, '')
FROM information_schema.tables
WHERE table_schema = ? AND table_type IN ('BASE TABLE', 'SYSTEM VIEW')
ORDER BY table_name`
	schemaName = in.resolveSchema(schemaName)
	rows, err := in.conn.DB().QueryContext(ctx, q, schemaName)
	if err != nil {
		return nil, mapError(in.conn.Type(), err)
	}
	defer rows.Close()

	var tables []schema.TableInfo
	for rows.Next() {
		var name, tableType, comment string
		var estimated int64
		if err := rows.Scan(&name, &tableType, &estimated, &comment); err != nil {
			return nil, err
		}
		kind := schema.TableTypeTable
		if tableType == "SYSTEM VIEW" {
			kind = schema.TableTypeSystem
		}
		tables = append(tables, schema.TableInfo{
			Schema:        schemaName,
			Name:          name,
			Type:          kind,
			EstimatedRows: estimated,
			Comment:       comment,
		})
	}
	return tables, rows.Err()
}

func (in *introspector) ListViews(ctx context.Context, schemaName string) ([]schema.ViewInfo, error) {
	const q = `
SELECT table_name, COALESCE(view_definition, '')
FROM information_schema.views
WHERE table_schema = ?
ORDER BY table_name`
	schemaName = in.resolveSchema(schemaName)
	rows, err := in.conn.DB().QueryContext(ctx, q, schemaName)
	if err != nil {
		return nil, mapError(in.conn.Type(), err)
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
SELECT column_name,
       ordinal_position,
       data_type,
       is_nullable = 'YES',
       COALESCE(column_default, ''),
       COALESCE(character_maximum_length, numeric_precision, 0),
       column_key = 'PRI',
       extra LIKE '%auto_increment%',
       COALESCE(column_comment, '')
FROM information_schema.columns
WHERE table_schema = ? AND table_name = ?
ORDER BY ordinal_position`
	rows, err := in.conn.DB().QueryContext(ctx, q, schemaName, tableName)
	if err != nil {
		return mapError(in.conn.Type(), err)
	}
	defer rows.Close()

	var pkColumns []string
	for rows.Next() {
		var col schema.ColumnInfo
		var maxLength sql.NullInt64
		if err := rows.Scan(&col.Name, &col.Position, &col.DataType, &col.Nullable,
			&col.DefaultValue, &maxLength, &col.IsPrimaryKey, &col.IsAutoIncrement, &col.Comment); err != nil {
			return err
		}
		col.MaxLength = int(maxLength.Int64)
		if col.IsPrimaryKey {
			pkColumns = append(pkColumns, col.Name)
		}
		details.Columns = append(details.Columns, col)
	}
	if len(pkColumns) > 0 {
		details.PrimaryKey = &schema.PrimaryKeyInfo{Name: "PRIMARY", Columns: pkColumns}
	}
	return rows.Err()
}

func (in *introspector) loadIndexes(ctx context.Context, schemaName, tableName string, details *schema.TableDetails) error {
	const q = `
SELECT index_name, column_name, non_unique = 0, COALESCE(index_type, '')
FROM information_schema.statistics
WHERE table_schema = ? AND table_name = ? AND index_name != 'PRIMARY'
ORDER BY index_name, seq_in_index`
	rows, err := in.conn.DB().QueryContext(ctx, q, schemaName, tableName)
	if err != nil {
		return mapError(in.conn.Type(), err)
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
SELECT kcu.constraint_name,
       kcu.column_name,
       kcu.referenced_table_schema,
       kcu.referenced_table_name,
       kcu.referenced_column_name,
       rc.delete_rule,
       rc.update_rule
FROM information_schema.key_column_usage kcu
JOIN information_schema.referential_constraints rc
  ON rc.constraint_name = kcu.constraint_name AND rc.constraint_schema = kcu.table_schema
WHERE kcu.table_schema = ? AND kcu.table_name = ? AND kcu.referenced_table_name IS NOT NULL
ORDER BY kcu.constraint_name, kcu.ordinal_position`
	rows, err := in.conn.DB().QueryContext(ctx, q, schemaName, tableName)
	if err != nil {
		return mapError(in.conn.Type(), err)
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
			OnDelete:          schema.ReferentialAction(onDelete),
			OnUpdate:          schema.ReferentialAction(onUpdate),
		})
	}
	return rows.Err()
}
