package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/schema"
)

func mustGenerator(t *testing.T, dialect dbcapabilities.Dialect) *Generator {
	t.Helper()
	g, err := NewGenerator(dialect)
	require.NoError(t, err)
	return g
}

func usersDesign() TableDesign {
	return TableDesign{
		Schema: "app",
		Name:   "users",
		Columns: []ColumnDesign{
			{Name: "id", Type: "BIGINT", AutoIncrement: true},
			{Name: "email", Type: "VARCHAR(255)"},
			{Name: "bio", Type: "TEXT", Nullable: true},
			{Name: "active", Type: "BOOLEAN", Default: "TRUE"},
		},
		PrimaryKey: []string{"id"},
		Indexes: []IndexDesign{
			{Name: "idx_users_email", Columns: []string{"email"}, Unique: true},
		},
	}
}

func TestCreateTablePostgres(t *testing.T) {
	g := mustGenerator(t, dbcapabilities.DialectPostgres)
	got, err := g.CreateTable(usersDesign())
	require.NoError(t, err)

	want := `CREATE TABLE "app"."users" (
  "id" BIGINT GENERATED BY DEFAULT AS IDENTITY,
  "email" VARCHAR(255) NOT NULL,
  "bio" TEXT,
  "active" BOOLEAN NOT NULL DEFAULT TRUE,
  PRIMARY KEY ("id")
)`
	assert.Equal(t, want, got)
}

func TestCreateTableMySQL(t *testing.T) {
	g := mustGenerator(t, dbcapabilities.DialectMySQL)
	design := usersDesign()
	design.Options.Engine = "InnoDB"
	got, err := g.CreateTable(design)
	require.NoError(t, err)

	want := "CREATE TABLE `app`.`users` (\n" +
		"  `id` BIGINT AUTO_INCREMENT,\n" +
		"  `email` VARCHAR(255) NOT NULL,\n" +
		"  `bio` TEXT,\n" +
		"  `active` BOOLEAN NOT NULL DEFAULT TRUE,\n" +
		"  PRIMARY KEY (`id`)\n" +
		") ENGINE = InnoDB"
	assert.Equal(t, want, got)
}

func TestCreateTableSQLiteAutoincrementInline(t *testing.T) {
	g := mustGenerator(t, dbcapabilities.DialectSQLite)
	got, err := g.CreateTable(usersDesign())
	require.NoError(t, err)

	want := `CREATE TABLE "users" (
  "id" INTEGER PRIMARY KEY AUTOINCREMENT,
  "email" VARCHAR(255) NOT NULL,
  "bio" TEXT,
  "active" BOOLEAN NOT NULL DEFAULT TRUE
)`
	assert.Equal(t, want, got, "schema prefix dropped and primary key folded into the id column")
}

func TestCreateTableSQLServer(t *testing.T) {
	g := mustGenerator(t, dbcapabilities.DialectSQLServer)
	got, err := g.CreateTable(usersDesign())
	require.NoError(t, err)

	want := `CREATE TABLE [app].[users] (
  [id] BIGINT IDENTITY(1,1),
  [email] VARCHAR(255) NOT NULL,
  [bio] TEXT,
  [active] BOOLEAN NOT NULL DEFAULT TRUE,
  PRIMARY KEY ([id])
)`
	assert.Equal(t, want, got)
}

func TestCreateTableClickHouse(t *testing.T) {
	g := mustGenerator(t, dbcapabilities.DialectClickHouse)
	design := TableDesign{
		Name: "events",
		Columns: []ColumnDesign{
			{Name: "ts", Type: "DateTime64(3)"},
			{Name: "payload", Type: "String", Nullable: true},
		},
		Options: TableOptions{OrderBy: []string{"ts"}},
	}
	got, err := g.CreateTable(design)
	require.NoError(t, err)

	want := "CREATE TABLE `events` (\n" +
		"  `ts` DateTime64(3),\n" +
		"  `payload` Nullable(String)\n" +
		") ENGINE = MergeTree ORDER BY (`ts`)"
	assert.Equal(t, want, got)
}

func TestCreateTableClickHouseNeedsOrderingKey(t *testing.T) {
	g := mustGenerator(t, dbcapabilities.DialectClickHouse)
	_, err := g.CreateTable(TableDesign{
		Name:    "events",
		Columns: []ColumnDesign{{Name: "ts", Type: "DateTime"}},
	})
	assert.ErrorContains(t, err, "ORDER BY")
}

func TestCreateTableForeignKeys(t *testing.T) {
	g := mustGenerator(t, dbcapabilities.DialectPostgres)
	design := TableDesign{
		Name: "orders",
		Columns: []ColumnDesign{
			{Name: "id", Type: "BIGINT"},
			{Name: "user_id", Type: "BIGINT"},
		},
		PrimaryKey: []string{"id"},
		ForeignKeys: []ForeignKeyDesign{{
			Name:       "fk_orders_user",
			Columns:    []string{"user_id"},
			RefSchema:  "app",
			RefTable:   "users",
			RefColumns: []string{"id"},
			OnDelete:   schema.ActionCascade,
		}},
	}
	got, err := g.CreateTable(design)
	require.NoError(t, err)
	assert.Contains(t, got, `CONSTRAINT "fk_orders_user" FOREIGN KEY ("user_id") REFERENCES "app"."users" ("id") ON DELETE CASCADE`)
	assert.NotContains(t, got, "ON UPDATE")
}

func TestCreateTableScriptIncludesIndexes(t *testing.T) {
	g := mustGenerator(t, dbcapabilities.DialectPostgres)
	stmts, err := g.CreateTableScript(usersDesign())
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, `CREATE UNIQUE INDEX "idx_users_email" ON "app"."users" ("email")`, stmts[1])
}

func TestCreateIndexNonUnique(t *testing.T) {
	g := mustGenerator(t, dbcapabilities.DialectMySQL)
	got, err := g.CreateIndex(TableRef{Name: "t"}, IndexDesign{Name: "idx_a", Columns: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "CREATE INDEX `idx_a` ON `t` (`a`, `b`)", got)
}

func TestDropIndexPerDialect(t *testing.T) {
	table := TableRef{Name: "t"}

	got, err := mustGenerator(t, dbcapabilities.DialectPostgres).DropIndex(table, "idx_a")
	require.NoError(t, err)
	assert.Equal(t, `DROP INDEX "idx_a"`, got)

	got, err = mustGenerator(t, dbcapabilities.DialectMySQL).DropIndex(table, "idx_a")
	require.NoError(t, err)
	assert.Equal(t, "DROP INDEX `idx_a` ON `t`", got)
}

func TestAddColumn(t *testing.T) {
	table := TableRef{Schema: "app", Name: "users"}
	col := ColumnDesign{Name: "age", Type: "INT", Nullable: true}

	got, err := mustGenerator(t, dbcapabilities.DialectPostgres).AddColumn(table, col)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "app"."users" ADD COLUMN "age" INT`, got)

	got, err = mustGenerator(t, dbcapabilities.DialectSQLServer).AddColumn(table, col)
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE [app].[users] ADD [age] INT", got)
}

func TestAddColumnSQLiteRejectsAutoincrement(t *testing.T) {
	g := mustGenerator(t, dbcapabilities.DialectSQLite)
	_, err := g.AddColumn(TableRef{Name: "t"}, ColumnDesign{Name: "id", Type: "INTEGER", AutoIncrement: true})
	assert.ErrorContains(t, err, "AUTOINCREMENT")
}

func TestAlterColumnType(t *testing.T) {
	table := TableRef{Name: "t"}

	got, err := mustGenerator(t, dbcapabilities.DialectPostgres).AlterColumnType(table, "a", "BIGINT")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "t" ALTER COLUMN "a" TYPE BIGINT`, got)

	got, err = mustGenerator(t, dbcapabilities.DialectMySQL).AlterColumnType(table, "a", "BIGINT")
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE `t` MODIFY COLUMN `a` BIGINT", got)

	_, err = mustGenerator(t, dbcapabilities.DialectSQLite).AlterColumnType(table, "a", "BIGINT")
	assert.Error(t, err, "sqlite requires a table rebuild")
}

func TestRenameColumnAndTable(t *testing.T) {
	table := TableRef{Schema: "app", Name: "users"}

	got, err := mustGenerator(t, dbcapabilities.DialectPostgres).RenameColumn(table, "bio", "about")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "app"."users" RENAME COLUMN "bio" TO "about"`, got)

	got, err = mustGenerator(t, dbcapabilities.DialectSQLServer).RenameColumn(table, "bio", "about")
	require.NoError(t, err)
	assert.Equal(t, "EXEC sp_rename '[app].[users].bio', 'about', 'COLUMN'", got)

	got, err = mustGenerator(t, dbcapabilities.DialectMySQL).RenameTable(table, "members")
	require.NoError(t, err)
	assert.Equal(t, "RENAME TABLE `app`.`users` TO `app`.`members`", got)

	got, err = mustGenerator(t, dbcapabilities.DialectPostgres).RenameTable(table, "members")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "app"."users" RENAME TO "members"`, got)
}

func TestDropAndTruncate(t *testing.T) {
	table := TableRef{Name: "users"}

	got, err := mustGenerator(t, dbcapabilities.DialectPostgres).DropTable(table, true)
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE IF EXISTS "users"`, got)

	got, err = mustGenerator(t, dbcapabilities.DialectPostgres).TruncateTable(table)
	require.NoError(t, err)
	assert.Equal(t, `TRUNCATE TABLE "users"`, got)

	got, err = mustGenerator(t, dbcapabilities.DialectSQLite).TruncateTable(table)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "users"`, got)
}

func TestNewGeneratorRejectsNonSQLDialects(t *testing.T) {
	_, err := NewGenerator(dbcapabilities.DialectMongo)
	assert.Error(t, err)
	_, err = NewGenerator(dbcapabilities.DialectRedis)
	assert.Error(t, err)
}

func TestForDatabase(t *testing.T) {
	g, err := ForDatabase(dbcapabilities.MariaDB)
	require.NoError(t, err)
	assert.Equal(t, dbcapabilities.DialectMySQL, g.Dialect())
}
