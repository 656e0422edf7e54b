package postgres

import (
	"context"
	"fmt"

	"github.com/samurmaykrr/zqlz/pkg/schema"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

// introspector reads the PostgreSQL catalog. Estimated row counts come from
// pg_class.reltuples, which the planner keeps fresh enough for display.
type introspector struct {
	conn *Conn
}

func (in *introspector) defaultSchema(schemaName string) string {
	if schemaName == "" {
		return "public"
	}
	return schemaName
}

func (in *introspector) ListSchemas(ctx context.Context) ([]string, error) {
	const q = `
SELECT nspname FROM pg_catalog.pg_namespace
WHERE nspname NOT IN ('pg_catalog', 'information_schema')
  AND nspname NOT LIKE 'pg_toast%'
  AND nspname NOT LIKE 'pg_temp%'
ORDER BY nspname`
	result, err := in.conn.Query(ctx, q, nil)
	if err != nil {
		return nil, err
	}

	schemas := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		schemas = append(schemas, textAt(row, 0))
	}
	return schemas, nil
}

func (in *introspector) ListTables(ctx context.Context, schemaName string) ([]schema.TableInfo, error) {
	const q = `
SELECT c.relname,
       c.relkind::text,
       GREATEST(c.reltuples, -1)::bigint,
       COALESCE(obj_description(c.oid, 'pg_class'), '')
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relkind IN ('r', 'p', 'm')
ORDER BY c.relname`
	result, err := in.conn.Query(ctx, q, []value.Value{value.NewText(in.defaultSchema(schemaName))})
	if err != nil {
		return nil, err
	}

	tables := make([]schema.TableInfo, 0, len(result.Rows))
	for _, row := range result.Rows {
		kind := schema.TableTypeTable
		if textAt(row, 1) == "m" {
			kind = schema.TableTypeMaterialized
		}
		tables = append(tables, schema.TableInfo{
			Schema:        in.defaultSchema(schemaName),
			Name:          textAt(row, 0),
			Type:          kind,
			EstimatedRows: intAt(row, 2),
			Comment:       textAt(row, 3),
		})
	}
	return tables, nil
}

func (in *introspector) ListViews(ctx context.Context, schemaName string) ([]schema.ViewInfo, error) {
	const q = `
SELECT table_name, COALESCE(view_definition, '')
FROM information_schema.views
WHERE table_schema = $1
ORDER BY table_name`
	result, err := in.conn.Query(ctx, q, []value.Value{value.NewText(in.defaultSchema(schemaName))})
	if err != nil {
		return nil, err
	}

	views := make([]schema.ViewInfo, 0, len(result.Rows))
	for _, row := range result.Rows {
		views = append(views, schema.ViewInfo{
			Schema:     in.defaultSchema(schemaName),
			Name:       textAt(row, 0),
			Definition: textAt(row, 1),
		})
	}
	return views, nil
}

func (in *introspector) GetTableDetails(ctx context.Context, schemaName, tableName string) (*schema.TableDetails, error) {
	schemaName = in.defaultSchema(schemaName)

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
SELECT c.column_name,
       c.ordinal_position,
       c.data_type,
       c.is_nullable = 'YES',
       COALESCE(c.column_default, ''),
       COALESCE(c.character_maximum_length, c.numeric_precision, 0),
       c.is_identity = 'YES' OR c.column_default LIKE 'nextval(%',
       EXISTS (
         SELECT 1
         FROM information_schema.key_column_usage kcu
         JOIN information_schema.table_constraints tc
           ON tc.constraint_name = kcu.constraint_name
          AND tc.table_schema = kcu.table_schema
         WHERE tc.constraint_type = 'PRIMARY KEY'
           AND kcu.table_schema = c.table_schema
           AND kcu.table_name = c.table_name
           AND kcu.column_name = c.column_name
       )
FROM information_schema.columns c
WHERE c.table_schema = $1 AND c.table_name = $2
ORDER BY c.ordinal_position`
	result, err := in.conn.Query(ctx, q, []value.Value{value.NewText(schemaName), value.NewText(tableName)})
	if err != nil {
		return err
	}

	var pkColumns []string
	for _, row := range result.Rows {
		col := schema.ColumnInfo{
			Name:            textAt(row, 0),
			Position:        int(intAt(row, 1)),
			DataType:        textAt(row, 2),
			Nullable:        boolAt(row, 3),
			DefaultValue:    textAt(row, 4),
			MaxLength:       int(intAt(row, 5)),
			IsAutoIncrement: boolAt(row, 6),
			IsPrimaryKey:    boolAt(row, 7),
		}
		if col.IsPrimaryKey {
			pkColumns = append(pkColumns, col.Name)
		}
		details.Columns = append(details.Columns, col)
	}
	if len(pkColumns) > 0 {
		details.PrimaryKey = &schema.PrimaryKeyInfo{Columns: pkColumns}
	}
	return nil
}

func (in *introspector) loadIndexes(ctx context.Context, schemaName, tableName string, details *schema.TableDetails) error {
	const q = `
SELECT i.relname,
       array_agg(a.attname ORDER BY k.ord),
       ix.indisunique,
       am.amname
FROM pg_catalog.pg_index ix
JOIN pg_catalog.pg_class i ON i.oid = ix.indexrelid
JOIN pg_catalog.pg_class t ON t.oid = ix.indrelid
JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
JOIN pg_catalog.pg_am am ON am.oid = i.relam
CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
JOIN pg_catalog.pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
WHERE n.nspname = $1 AND t.relname = $2 AND NOT ix.indisprimary
GROUP BY i.relname, ix.indisunique, am.amname
ORDER BY i.relname`
	result, err := in.conn.Query(ctx, q, []value.Value{value.NewText(schemaName), value.NewText(tableName)})
	if err != nil {
		return err
	}

	for _, row := range result.Rows {
		details.Indexes = append(details.Indexes, schema.IndexInfo{
			Name:     textAt(row, 0),
			Columns:  textsAt(row, 1),
			IsUnique: boolAt(row, 2),
			Method:   textAt(row, 3),
		})
	}
	return nil
}

func (in *introspector) loadForeignKeys(ctx context.Context, schemaName, tableName string, details *schema.TableDetails) error {
	const q = `
SELECT tc.constraint_name,
       array_agg(kcu.column_name ORDER BY kcu.ordinal_position),
       ccu.table_schema,
       ccu.table_name,
       array_agg(ccu.column_name ORDER BY kcu.ordinal_position),
       rc.delete_rule,
       rc.update_rule
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = tc.constraint_name AND ccu.constraint_schema = tc.table_schema
JOIN information_schema.referential_constraints rc
  ON rc.constraint_name = tc.constraint_name AND rc.constraint_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND tc.table_schema = $1 AND tc.table_name = $2
GROUP BY tc.constraint_name, ccu.table_schema, ccu.table_name, rc.delete_rule, rc.update_rule
ORDER BY tc.constraint_name`
	result, err := in.conn.Query(ctx, q, []value.Value{value.NewText(schemaName), value.NewText(tableName)})
	if err != nil {
		return err
	}

	for _, row := range result.Rows {
		details.ForeignKeys = append(details.ForeignKeys, schema.ForeignKeyInfo{
			Name:              textAt(row, 0),
			Columns:           textsAt(row, 1),
			ReferencedSchema:  textAt(row, 2),
			ReferencedTable:   textAt(row, 3),
			ReferencedColumns: textsAt(row, 4),
			OnDelete:          schema.ReferentialAction(textAt(row, 5)),
			OnUpdate:          schema.ReferentialAction(textAt(row, 6)),
		})
	}
	return nil
}

// Row accessors tolerant of driver-side representation differences.

func textAt(row value.Row, i int) string {
	if i >= len(row.Values) {
		return ""
	}
	v := row.Values[i]
	if s, ok := v.Text(); ok {
		return s
	}
	if v.Kind() == value.KindNull {
		return ""
	}
	return v.String()
}

func intAt(row value.Row, i int) int64 {
	if i >= len(row.Values) {
		return 0
	}
	if n, ok := row.Values[i].Int64(); ok {
		return n
	}
	if f, ok := row.Values[i].Float64(); ok {
		return int64(f)
	}
	return 0
}

func boolAt(row value.Row, i int) bool {
	if i >= len(row.Values) {
		return false
	}
	b, _ := row.Values[i].Bool()
	return b
}

func textsAt(row value.Row, i int) []string {
	if i >= len(row.Values) {
		return nil
	}
	items, ok := row.Values[i].Array()
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.Text(); ok {
			out = append(out, s)
		} else {
			out = append(out, item.String())
		}
	}
	return out
}
