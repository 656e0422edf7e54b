package ddl

import (
	"fmt"
	"strings"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/schema"
)

// Generator renders DDL statements for one SQL dialect.
type Generator struct {
	dialect dbcapabilities.Dialect
}

// NewGenerator returns a generator for the given dialect. Dialects without a
// DDL surface (document and key-value stores) are rejected.
func NewGenerator(dialect dbcapabilities.Dialect) (*Generator, error) {
	switch dialect {
	case dbcapabilities.DialectPostgres,
		dbcapabilities.DialectMySQL,
		dbcapabilities.DialectSQLite,
		dbcapabilities.DialectSQLServer,
		dbcapabilities.DialectClickHouse:
		return &Generator{dialect: dialect}, nil
	default:
		return nil, fmt.Errorf("ddl: dialect %q has no DDL surface", dialect)
	}
}

// ForDatabase returns a generator for the dialect the given database speaks.
func ForDatabase(db dbcapabilities.DatabaseID) (*Generator, error) {
	cap, ok := dbcapabilities.Get(db)
	if !ok {
		return nil, fmt.Errorf("ddl: unknown database %q", db)
	}
	return NewGenerator(cap.Dialect)
}

// Dialect reports the dialect this generator renders.
func (g *Generator) Dialect() dbcapabilities.Dialect { return g.dialect }

// quote wraps one identifier in the dialect's quoting characters.
func (g *Generator) quote(ident string) string {
	switch g.dialect {
	case dbcapabilities.DialectMySQL, dbcapabilities.DialectClickHouse:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	case dbcapabilities.DialectSQLServer:
		return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
}

// qualify renders schema.name, or just name when the schema is empty. SQLite
// has no schemas, so the schema part is dropped there.
func (g *Generator) qualify(schemaName, name string) string {
	if schemaName == "" || g.dialect == dbcapabilities.DialectSQLite {
		return g.quote(name)
	}
	return g.quote(schemaName) + "." + g.quote(name)
}

func (g *Generator) quoteList(idents []string) string {
	parts := make([]string, len(idents))
	for i, ident := range idents {
		parts[i] = g.quote(ident)
	}
	return strings.Join(parts, ", ")
}

// CreateTable renders a single CREATE TABLE statement. Secondary indexes are
// not part of the table body; see CreateTableScript.
func (g *Generator) CreateTable(design TableDesign) (string, error) {
	if design.Name == "" {
		return "", fmt.Errorf("ddl: table name is required")
	}
	if len(design.Columns) == 0 {
		return "", fmt.Errorf("ddl: table %q has no columns", design.Name)
	}

	var lines []string
	for _, col := range design.Columns {
		line, err := g.columnDef(col, design)
		if err != nil {
			return "", err
		}
		lines = append(lines, "  "+line)
	}

	if len(design.PrimaryKey) > 0 && !g.primaryKeyInline(design) {
		lines = append(lines, fmt.Sprintf("  PRIMARY KEY (%s)", g.quoteList(design.PrimaryKey)))
	}

	for _, fk := range design.ForeignKeys {
		line, err := g.foreignKeyDef(fk)
		if err != nil {
			return "", err
		}
		lines = append(lines, "  "+line)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n%s\n)", g.qualify(design.Schema, design.Name), strings.Join(lines, ",\n"))

	if err := g.tableSuffix(&b, design); err != nil {
		return "", err
	}
	return b.String(), nil
}

// CreateTableScript renders the CREATE TABLE statement followed by one
// CREATE INDEX statement per secondary index, in declaration order.
func (g *Generator) CreateTableScript(design TableDesign) ([]string, error) {
	table, err := g.CreateTable(design)
	if err != nil {
		return nil, err
	}
	stmts := []string{table}
	for _, idx := range design.Indexes {
		stmt, err := g.CreateIndex(TableRef{Schema: design.Schema, Name: design.Name}, idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// primaryKeyInline reports whether the primary key must be written on the
// column itself rather than as a table constraint. Only the SQLite
// AUTOINCREMENT form requires that.
func (g *Generator) primaryKeyInline(design TableDesign) bool {
	if g.dialect != dbcapabilities.DialectSQLite || len(design.PrimaryKey) != 1 {
		return false
	}
	for _, col := range design.Columns {
		if col.Name == design.PrimaryKey[0] && col.AutoIncrement {
			return true
		}
	}
	return false
}

func (g *Generator) columnDef(col ColumnDesign, design TableDesign) (string, error) {
	if col.Name == "" || col.Type == "" {
		return "", fmt.Errorf("ddl: column needs a name and a type")
	}

	var b strings.Builder
	b.WriteString(g.quote(col.Name))
	b.WriteByte(' ')

	if col.AutoIncrement {
		frag, err := g.autoIncrement(col, design)
		if err != nil {
			return "", err
		}
		b.WriteString(frag)
	} else {
		b.WriteString(g.columnType(col))
	}

	if !col.Nullable && !col.AutoIncrement && g.dialect != dbcapabilities.DialectClickHouse {
		b.WriteString(" NOT NULL")
	}
	if col.Default != "" {
		b.WriteString(" DEFAULT " + col.Default)
	}
	return b.String(), nil
}

// columnType renders the column's type. ClickHouse spells nullability as a
// type wrapper instead of a column constraint.
func (g *Generator) columnType(col ColumnDesign) string {
	if g.dialect == dbcapabilities.DialectClickHouse && col.Nullable {
		return "Nullable(" + col.Type + ")"
	}
	return col.Type
}

func (g *Generator) autoIncrement(col ColumnDesign, design TableDesign) (string, error) {
	switch g.dialect {
	case dbcapabilities.DialectPostgres:
		return col.Type + " GENERATED BY DEFAULT AS IDENTITY", nil
	case dbcapabilities.DialectMySQL:
		return col.Type + " AUTO_INCREMENT", nil
	case dbcapabilities.DialectSQLServer:
		return col.Type + " IDENTITY(1,1)", nil
	case dbcapabilities.DialectSQLite:
		if len(design.PrimaryKey) != 1 || design.PrimaryKey[0] != col.Name {
			return "", fmt.Errorf("ddl: sqlite AUTOINCREMENT requires column %q to be the single primary key", col.Name)
		}
		return "INTEGER PRIMARY KEY AUTOINCREMENT", nil
	default:
		return "", fmt.Errorf("ddl: dialect %q does not support auto increment columns", g.dialect)
	}
}

func (g *Generator) foreignKeyDef(fk ForeignKeyDesign) (string, error) {
	if g.dialect == dbcapabilities.DialectClickHouse {
		return "", fmt.Errorf("ddl: clickhouse does not support foreign keys")
	}
	if len(fk.Columns) == 0 || len(fk.RefColumns) == 0 || fk.RefTable == "" {
		return "", fmt.Errorf("ddl: foreign key needs columns and a referenced table")
	}

	var b strings.Builder
	if fk.Name != "" {
		fmt.Fprintf(&b, "CONSTRAINT %s ", g.quote(fk.Name))
	}
	fmt.Fprintf(&b, "FOREIGN KEY (%s) REFERENCES %s (%s)",
		g.quoteList(fk.Columns), g.qualify(fk.RefSchema, fk.RefTable), g.quoteList(fk.RefColumns))
	if fk.OnDelete != "" && fk.OnDelete != schema.ActionNoAction {
		fmt.Fprintf(&b, " ON DELETE %s", fk.OnDelete)
	}
	if fk.OnUpdate != "" && fk.OnUpdate != schema.ActionNoAction {
		fmt.Fprintf(&b, " ON UPDATE %s", fk.OnUpdate)
	}
	return b.String(), nil
}

// tableSuffix appends the engine clause ClickHouse and MySQL place after the
// closing parenthesis.
func (g *Generator) tableSuffix(b *strings.Builder, design TableDesign) error {
	switch g.dialect {
	case dbcapabilities.DialectClickHouse:
		engine := design.Options.Engine
		if engine == "" {
			engine = "MergeTree"
		}
		fmt.Fprintf(b, " ENGINE = %s", engine)
		orderBy := design.Options.OrderBy
		if len(orderBy) == 0 {
			orderBy = design.PrimaryKey
		}
		if len(orderBy) == 0 {
			return fmt.Errorf("ddl: clickhouse table %q needs an ORDER BY key or a primary key", design.Name)
		}
		fmt.Fprintf(b, " ORDER BY (%s)", g.quoteList(orderBy))
	case dbcapabilities.DialectMySQL:
		if design.Options.Engine != "" {
			fmt.Fprintf(b, " ENGINE = %s", design.Options.Engine)
		}
	}
	return nil
}

// CreateIndex renders one CREATE INDEX statement.
func (g *Generator) CreateIndex(table TableRef, idx IndexDesign) (string, error) {
	if g.dialect == dbcapabilities.DialectClickHouse {
		return "", fmt.Errorf("ddl: clickhouse secondary indexes are not supported")
	}
	if idx.Name == "" || len(idx.Columns) == 0 {
		return "", fmt.Errorf("ddl: index needs a name and columns")
	}
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		unique, g.quote(idx.Name), g.qualify(table.Schema, table.Name), g.quoteList(idx.Columns)), nil
}

// DropIndex renders a DROP INDEX statement. MySQL and SQL Server scope the
// index to its table; Postgres and SQLite drop it by name alone.
func (g *Generator) DropIndex(table TableRef, name string) (string, error) {
	switch g.dialect {
	case dbcapabilities.DialectMySQL:
		return fmt.Sprintf("DROP INDEX %s ON %s", g.quote(name), g.qualify(table.Schema, table.Name)), nil
	case dbcapabilities.DialectSQLServer:
		return fmt.Sprintf("DROP INDEX %s ON %s", g.quote(name), g.qualify(table.Schema, table.Name)), nil
	case dbcapabilities.DialectClickHouse:
		return "", fmt.Errorf("ddl: clickhouse secondary indexes are not supported")
	default:
		return fmt.Sprintf("DROP INDEX %s", g.quote(name)), nil
	}
}

// AddColumn renders an ALTER TABLE ... ADD COLUMN statement.
func (g *Generator) AddColumn(table TableRef, col ColumnDesign) (string, error) {
	if col.AutoIncrement && g.dialect == dbcapabilities.DialectSQLite {
		return "", fmt.Errorf("ddl: sqlite cannot add an AUTOINCREMENT column to an existing table")
	}
	def, err := g.columnDef(col, TableDesign{PrimaryKey: []string{col.Name}})
	if err != nil {
		return "", err
	}
	keyword := " COLUMN"
	if g.dialect == dbcapabilities.DialectSQLServer {
		keyword = ""
	}
	return fmt.Sprintf("ALTER TABLE %s ADD%s %s", g.qualify(table.Schema, table.Name), keyword, def), nil
}

// DropColumn renders an ALTER TABLE ... DROP COLUMN statement.
func (g *Generator) DropColumn(table TableRef, column string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", g.qualify(table.Schema, table.Name), g.quote(column)), nil
}

// AlterColumnType renders the dialect's statement for changing a column's
// type. SQLite has no such statement; callers must rebuild the table.
func (g *Generator) AlterColumnType(table TableRef, column, newType string) (string, error) {
	qualified := g.qualify(table.Schema, table.Name)
	switch g.dialect {
	case dbcapabilities.DialectPostgres:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", qualified, g.quote(column), newType), nil
	case dbcapabilities.DialectMySQL:
		return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s %s", qualified, g.quote(column), newType), nil
	case dbcapabilities.DialectSQLServer:
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s", qualified, g.quote(column), newType), nil
	case dbcapabilities.DialectClickHouse:
		return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s %s", qualified, g.quote(column), newType), nil
	default:
		return "", fmt.Errorf("ddl: dialect %q cannot change a column type in place", g.dialect)
	}
}

// RenameColumn renders the dialect's column rename statement.
func (g *Generator) RenameColumn(table TableRef, oldName, newName string) (string, error) {
	if g.dialect == dbcapabilities.DialectSQLServer {
		return fmt.Sprintf("EXEC sp_rename '%s.%s', '%s', 'COLUMN'",
			g.qualify(table.Schema, table.Name), oldName, newName), nil
	}
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		g.qualify(table.Schema, table.Name), g.quote(oldName), g.quote(newName)), nil
}

// RenameTable renders the dialect's table rename statement.
func (g *Generator) RenameTable(table TableRef, newName string) (string, error) {
	switch g.dialect {
	case dbcapabilities.DialectMySQL, dbcapabilities.DialectClickHouse:
		return fmt.Sprintf("RENAME TABLE %s TO %s", g.qualify(table.Schema, table.Name), g.qualify(table.Schema, newName)), nil
	case dbcapabilities.DialectSQLServer:
		return fmt.Sprintf("EXEC sp_rename '%s', '%s'", g.qualify(table.Schema, table.Name), newName), nil
	default:
		return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", g.qualify(table.Schema, table.Name), g.quote(newName)), nil
	}
}

// DropTable renders a DROP TABLE statement.
func (g *Generator) DropTable(table TableRef, ifExists bool) (string, error) {
	exists := ""
	if ifExists {
		exists = "IF EXISTS "
	}
	return fmt.Sprintf("DROP TABLE %s%s", exists, g.qualify(table.Schema, table.Name)), nil
}

// TruncateTable renders the dialect's truncate statement. SQLite has no
// TRUNCATE keyword, so an unqualified DELETE is used there.
func (g *Generator) TruncateTable(table TableRef) (string, error) {
	if g.dialect == dbcapabilities.DialectSQLite {
		return fmt.Sprintf("DELETE FROM %s", g.qualify(table.Schema, table.Name)), nil
	}
	return fmt.Sprintf("TRUNCATE TABLE %s", g.qualify(table.Schema, table.Name)), nil
}
