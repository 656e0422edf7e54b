package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			"simple",
			"SELECT 1; SELECT 2;",
			[]string{"SELECT 1", "SELECT 2"},
		},
		{
			"no trailing semicolon",
			"SELECT 1; SELECT 2",
			[]string{"SELECT 1", "SELECT 2"},
		},
		{
			"semicolon in string literal",
			"INSERT INTO t VALUES ('a;b'); SELECT 1",
			[]string{"INSERT INTO t VALUES ('a;b')", "SELECT 1"},
		},
		{
			"escaped quote in literal",
			`INSERT INTO t VALUES ('it''s;fine'); SELECT 1`,
			[]string{`INSERT INTO t VALUES ('it''s;fine')`, "SELECT 1"},
		},
		{
			"semicolon in line comment",
			"SELECT 1 -- trailing; comment\n; SELECT 2",
			[]string{"SELECT 1 -- trailing; comment", "SELECT 2"},
		},
		{
			"semicolon in block comment",
			"SELECT 1 /* a;b */; SELECT 2",
			[]string{"SELECT 1 /* a;b */", "SELECT 2"},
		},
		{
			"dollar quoted body",
			"CREATE FUNCTION f() RETURNS int AS $$ BEGIN RETURN 1; END $$ LANGUAGE plpgsql; SELECT 1",
			[]string{"CREATE FUNCTION f() RETURNS int AS $$ BEGIN RETURN 1; END $$ LANGUAGE plpgsql", "SELECT 1"},
		},
		{
			"tagged dollar quote",
			"SELECT $tag$;$tag$; SELECT 2",
			[]string{"SELECT $tag$;$tag$", "SELECT 2"},
		},
		{
			"double quoted identifier",
			`SELECT ";" FROM "t;x"; SELECT 2`,
			[]string{`SELECT ";" FROM "t;x"`, "SELECT 2"},
		},
		{
			"empty statements dropped",
			";;  ;SELECT 1;;",
			[]string{"SELECT 1"},
		},
		{
			"empty script",
			"   \n\t ",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitStatements(tt.script))
		})
	}
}

func TestClassifyQueryKeywords(t *testing.T) {
	queries := []string{
		"SELECT * FROM t",
		"  with x as (select 1) select * from x",
		"SHOW TABLES",
		"DESCRIBE users",
		"EXPLAIN SELECT 1",
		"PRAGMA table_info(t)",
		"-- comment first\nSELECT 1",
		"/* block */ SELECT 1",
	}
	for _, q := range queries {
		assert.True(t, Classify(q).IsQuery, "expected query: %q", q)
	}

	statements := []string{
		"INSERT INTO t VALUES (1)",
		"UPDATE t SET a = 1 WHERE id = 2",
		"CREATE TABLE t (id int)",
		"DELETE FROM t WHERE id = 1",
		"",
	}
	for _, s := range statements {
		assert.False(t, Classify(s).IsQuery, "expected statement: %q", s)
	}
}

func TestClassifyDestructive(t *testing.T) {
	assert.True(t, Classify("DROP TABLE users").Destructive)
	assert.True(t, Classify("truncate table users").Destructive)
	assert.True(t, Classify("DELETE FROM users").Destructive)
	assert.True(t, Classify("UPDATE users SET active = false").Destructive)

	assert.False(t, Classify("DELETE FROM users WHERE id = 1").Destructive)
	assert.False(t, Classify("UPDATE users SET a=1 WHERE id = 1").Destructive)
	assert.False(t, Classify("SELECT * FROM drop_log").Destructive)
	assert.False(t, Classify("INSERT INTO t VALUES (1)").Destructive)
}
