package value

import "time"

// ColumnMeta describes one result column as reported by the backend.
type ColumnMeta struct {
	Name string `json:"name"`
	// Backend-reported type name, e.g. "int8" or "VARCHAR". Informational;
	// the Values themselves carry the normalized kind.
	DatabaseType string `json:"database_type,omitempty"`
	Nullable     bool   `json:"nullable"`
}

// Row is one result row. Values are positional and share the column order of
// the enclosing QueryResult.
type Row struct {
	Values []Value `json:"values"`
}

// Get returns the value at the named column, resolving the name through the
// provided column metadata.
func (r Row) Get(columns []ColumnMeta, name string) (Value, bool) {
	for i, col := range columns {
		if col.Name == name && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return Null, false
}

// QueryResult is the outcome of a row-returning operation.
type QueryResult struct {
	Columns []ColumnMeta `json:"columns"`
	Rows    []Row        `json:"rows"`

	// RowCount is len(Rows); kept explicit for persisted history entries
	// where rows may be truncated.
	RowCount int `json:"row_count"`

	// Whether RowCount is an estimate (e.g. sampled counts on columnar
	// backends).
	Estimated bool `json:"estimated,omitempty"`

	ExecutionTime time.Duration `json:"execution_time"`
	Warnings      []string      `json:"warnings,omitempty"`
}

// StatementResult is the outcome of a non-row-returning operation.
type StatementResult struct {
	RowsAffected int64 `json:"rows_affected"`
	// LastInsertID is backend-assigned when available, nil otherwise.
	LastInsertID  *int64        `json:"last_insert_id,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
}
