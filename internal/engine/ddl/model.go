// Package ddl generates DDL text from a dialect-neutral table model. The
// generator is pure: no connection, no execution, deterministic output.
// Statement execution is the query engine's job.
package ddl

import "github.com/samurmaykrr/zqlz/pkg/schema"

// TableDesign is the dialect-neutral description of a table to create.
type TableDesign struct {
	Schema      string
	Name        string
	Columns     []ColumnDesign
	PrimaryKey  []string
	Indexes     []IndexDesign
	ForeignKeys []ForeignKeyDesign
	Options     TableOptions
}

// ColumnDesign describes one column. Type is the dialect's own type name;
// the designer layer picks per-dialect types, the generator only quotes and
// arranges.
type ColumnDesign struct {
	Name          string
	Type          string
	Nullable      bool
	Default       string
	AutoIncrement bool
}

// IndexDesign describes one secondary index.
type IndexDesign struct {
	Name    string
	Columns []string
	Unique  bool
}

// ForeignKeyDesign describes one foreign key constraint.
type ForeignKeyDesign struct {
	Name       string
	Columns    []string
	RefSchema  string
	RefTable   string
	RefColumns []string
	OnDelete   schema.ReferentialAction
	OnUpdate   schema.ReferentialAction
}

// TableOptions carries engine-specific table settings.
type TableOptions struct {
	// Engine is the ClickHouse table engine (default MergeTree) or the
	// MySQL storage engine.
	Engine string
	// OrderBy is the ClickHouse sorting key, required by MergeTree
	// engines.
	OrderBy []string
}

// TableRef names an existing table for ALTER/DROP/TRUNCATE statements.
type TableRef struct {
	Schema string
	Name   string
}
