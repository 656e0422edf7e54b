package sqlcommon

import (
	"context"
	"database/sql"
	"time"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

type queryFunc func(ctx context.Context, statement string, args ...interface{}) (*sql.Rows, error)
type execFunc func(ctx context.Context, statement string, args ...interface{}) (sql.Result, error)

func queryInto(ctx context.Context, run queryFunc, dbType dbcapabilities.DatabaseID, mapErr ErrorMapper, statement string, args []value.Value) (*value.QueryResult, error) {
	start := time.Now()
	rows, err := run(ctx, statement, value.ManyToAny(args)...)
	if err != nil {
		return nil, wrapWith(dbType, mapErr, err)
	}
	defer rows.Close()

	result, err := CollectRows(rows)
	if err != nil {
		return nil, wrapWith(dbType, mapErr, err)
	}
	result.ExecutionTime = time.Since(start)
	return result, nil
}

func execInto(ctx context.Context, run execFunc, dbType dbcapabilities.DatabaseID, mapErr ErrorMapper, statement string, args []value.Value) (*value.StatementResult, error) {
	start := time.Now()
	res, err := run(ctx, statement, value.ManyToAny(args)...)
	if err != nil {
		return nil, wrapWith(dbType, mapErr, err)
	}

	result := &value.StatementResult{ExecutionTime: time.Since(start)}
	if affected, err := res.RowsAffected(); err == nil {
		result.RowsAffected = affected
	}
	if id, err := res.LastInsertId(); err == nil && id != 0 {
		result.LastInsertID = &id
	}
	return result, nil
}

// CollectRows drains a result set into the backend-neutral representation.
// Column metadata comes from ColumnTypes; cell values pass through
// value.FromAny so every adapter normalizes the same way.
func CollectRows(rows *sql.Rows) (*value.QueryResult, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	columns := make([]value.ColumnMeta, len(types))
	for i, ct := range types {
		meta := value.ColumnMeta{Name: ct.Name(), DatabaseType: ct.DatabaseTypeName()}
		if nullable, ok := ct.Nullable(); ok {
			meta.Nullable = nullable
		}
		columns[i] = meta
	}

	result := &value.QueryResult{Columns: columns}
	holders := make([]interface{}, len(columns))
	for rows.Next() {
		cells := make([]interface{}, len(columns))
		for i := range cells {
			holders[i] = &cells[i]
		}
		if err := rows.Scan(holders...); err != nil {
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

func wrapWith(dbType dbcapabilities.DatabaseID, mapErr ErrorMapper, err error) error {
	if mapErr != nil {
		err = mapErr(err)
	}
	return driver.WrapQuery(dbType, err)
}
