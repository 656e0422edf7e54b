// Package schema defines backend-neutral descriptors for database structure
// and the Introspector surface adapters expose to the engine. Descriptors
// are plain data; adapters fill them from whatever catalog their backend
// provides (information_schema, system tables, listCollections, SCAN).
package schema

import "context"

// TableType distinguishes the kinds of table-like objects a backend reports.
type TableType string

const (
	TableTypeTable        TableType = "table"
	TableTypeView         TableType = "view"
	TableTypeMaterialized TableType = "materialized_view"
	TableTypeSystem       TableType = "system"
	// Collection is a document-store container surfaced through the same
	// listing API as tables.
	TableTypeCollection TableType = "collection"
)

// TableInfo is one entry in a table listing.
type TableInfo struct {
	Schema string    `json:"schema,omitempty"`
	Name   string    `json:"name"`
	Type   TableType `json:"type"`
	// Estimated row count when the catalog offers one cheaply, -1 unknown.
	EstimatedRows int64  `json:"estimated_rows"`
	Comment       string `json:"comment,omitempty"`
}

// ViewInfo is one entry in a view listing.
type ViewInfo struct {
	Schema     string `json:"schema,omitempty"`
	Name       string `json:"name"`
	Definition string `json:"definition,omitempty"`
}

// ColumnInfo describes a single column.
type ColumnInfo struct {
	Name            string `json:"name"`
	Position        int    `json:"position"`
	DataType        string `json:"data_type"`
	Nullable        bool   `json:"nullable"`
	DefaultValue    string `json:"default_value,omitempty"`
	IsPrimaryKey    bool   `json:"is_primary_key"`
	IsAutoIncrement bool   `json:"is_auto_increment"`
	// Character length or numeric precision when the type carries one,
	// 0 otherwise.
	MaxLength int    `json:"max_length,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

// IndexInfo describes a single index.
type IndexInfo struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	IsUnique bool     `json:"is_unique"`
	// Backend index method, e.g. "btree" or "hash", when reported.
	Method string `json:"method,omitempty"`
}

// ReferentialAction is a foreign key ON DELETE / ON UPDATE action.
type ReferentialAction string

const (
	ActionNoAction   ReferentialAction = "NO ACTION"
	ActionRestrict   ReferentialAction = "RESTRICT"
	ActionCascade    ReferentialAction = "CASCADE"
	ActionSetNull    ReferentialAction = "SET NULL"
	ActionSetDefault ReferentialAction = "SET DEFAULT"
)

// ForeignKeyInfo describes a single foreign key constraint.
type ForeignKeyInfo struct {
	Name              string            `json:"name"`
	Columns           []string          `json:"columns"`
	ReferencedSchema  string            `json:"referenced_schema,omitempty"`
	ReferencedTable   string            `json:"referenced_table"`
	ReferencedColumns []string          `json:"referenced_columns"`
	OnDelete          ReferentialAction `json:"on_delete,omitempty"`
	OnUpdate          ReferentialAction `json:"on_update,omitempty"`
}

// PrimaryKeyInfo describes a table's primary key.
type PrimaryKeyInfo struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
}

// TableDetails is the full structural description of one table.
type TableDetails struct {
	Table       TableInfo        `json:"table"`
	Columns     []ColumnInfo     `json:"columns"`
	PrimaryKey  *PrimaryKeyInfo  `json:"primary_key,omitempty"`
	Indexes     []IndexInfo      `json:"indexes,omitempty"`
	ForeignKeys []ForeignKeyInfo `json:"foreign_keys,omitempty"`
}

// KeyValueInfo is one entry in a key-value store browse, the key-value
// analogue of TableInfo.
type KeyValueInfo struct {
	Key string `json:"key"`
	// Backend value type, e.g. "string", "hash", "list", "set", "zset".
	Type string `json:"type"`
	// TTL in seconds, -1 when the key has no expiry.
	TTLSeconds int64 `json:"ttl_seconds"`
}

// Introspector enumerates database structure. Adapters whose backend has no
// meaningful catalog return nil from Connection.Introspector instead of
// implementing this with errors.
type Introspector interface {
	// ListSchemas returns namespace names, or a single empty-string entry
	// for backends without schema namespaces.
	ListSchemas(ctx context.Context) ([]string, error)

	// ListTables returns table-like objects in the given schema. An empty
	// schema means the connection's default namespace.
	ListTables(ctx context.Context, schemaName string) ([]TableInfo, error)

	// ListViews returns views in the given schema.
	ListViews(ctx context.Context, schemaName string) ([]ViewInfo, error)

	// GetTableDetails returns the full structure of one table.
	GetTableDetails(ctx context.Context, schemaName, tableName string) (*TableDetails, error)
}

// KeyBrowser is the key-value counterpart of Introspector, implemented by
// key-value adapters alongside a nil Introspector.
type KeyBrowser interface {
	// ListKeys returns keys matching the glob pattern, up to limit.
	ListKeys(ctx context.Context, pattern string, limit int64) ([]KeyValueInfo, error)
}
