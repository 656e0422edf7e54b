package dbcapabilities

import (
	"fmt"
	"strings"
)

// DatabaseID is the canonical identifier for a database technology supported
// by the engine. Use these constants to look up capability information.
type DatabaseID string

const (
	// Relational SQL
	PostgreSQL DatabaseID = "postgres"
	MySQL      DatabaseID = "mysql"
	MariaDB    DatabaseID = "mariadb"
	SQLServer  DatabaseID = "mssql"
	SQLite     DatabaseID = "sqlite"

	// Columnar analytics
	ClickHouse DatabaseID = "clickhouse"

	// NoSQL paradigms
	MongoDB DatabaseID = "mongodb"
	Redis   DatabaseID = "redis"
)

// DataParadigm enumerates the primary data storage paradigms a database supports.
type DataParadigm string

const (
	ParadigmRelational DataParadigm = "relational" // Tables, schemas, SQL
	ParadigmDocument   DataParadigm = "document"   // Collections, documents
	ParadigmKeyValue   DataParadigm = "keyvalue"   // Key/Value
	ParadigmColumnar   DataParadigm = "columnar"   // Columnar analytics
)

// Dialect identifies the SQL (or command) dialect an adapter speaks. DDL
// generation and statement classification key off this rather than the
// DatabaseID so that wire-compatible engines share one dialect.
type Dialect string

const (
	DialectPostgres   Dialect = "postgres"
	DialectMySQL      Dialect = "mysql"
	DialectSQLite     Dialect = "sqlite"
	DialectSQLServer  Dialect = "mssql"
	DialectClickHouse Dialect = "clickhouse"
	DialectMongo      Dialect = "mongodb"
	DialectRedis      Dialect = "redis"
)

// Capability describes what a database supports in a way the engine can
// consume uniformly, without asking the adapter at runtime.
type Capability struct {
	// Human-friendly vendor or product name, e.g., "PostgreSQL".
	Name string `json:"name"`

	// Canonical ID used across the codebase (see DatabaseID constants).
	ID DatabaseID `json:"id"`

	// SQL/command dialect spoken by this database.
	Dialect Dialect `json:"dialect"`

	// Primary data storage paradigms supported.
	Paradigms []DataParadigm `json:"paradigms"`

	// Whether BEGIN/COMMIT/ROLLBACK style transactions are available.
	SupportsTransactions bool `json:"supportsTransactions"`

	// Whether the adapter can enumerate schemas, tables and columns.
	SupportsSchemaIntrospection bool `json:"supportsSchemaIntrospection"`

	// Whether an in-flight statement can be cancelled server-side.
	SupportsCancellation bool `json:"supportsCancellation"`

	// Whether one server hosts multiple named databases that a single
	// connection can enumerate.
	SupportsMultipleDatabases bool `json:"supportsMultipleDatabases"`

	// Whether the database is reached over the network. File-backed
	// engines (SQLite) connect by path instead of host/port.
	NetworkAttached bool `json:"networkAttached"`

	// Default TCP port, 0 for file-backed engines.
	DefaultPort int `json:"defaultPort"`

	// Whether the database exposes a built-in/system database and its
	// typical names.
	HasSystemDatabase bool     `json:"hasSystemDatabase"`
	SystemDatabases   []string `json:"systemDatabases,omitempty"`

	// Common aliases (directory names, drivers, env labels) that map to
	// this database.
	Aliases []string `json:"aliases,omitempty"`
}

// All is a registry of capabilities keyed by the canonical database ID.
var All = map[DatabaseID]Capability{
	PostgreSQL: {
		Name:                        "PostgreSQL",
		ID:                          PostgreSQL,
		Dialect:                     DialectPostgres,
		Paradigms:                   []DataParadigm{ParadigmRelational},
		SupportsTransactions:        true,
		SupportsSchemaIntrospection: true,
		SupportsCancellation:        true,
		SupportsMultipleDatabases:   true,
		NetworkAttached:             true,
		DefaultPort:                 5432,
		HasSystemDatabase:           true,
		SystemDatabases:             []string{"postgres"},
		Aliases:                     []string{"postgresql", "pgsql", "pg"},
	},
	MySQL: {
		Name:                        "MySQL",
		ID:                          MySQL,
		Dialect:                     DialectMySQL,
		Paradigms:                   []DataParadigm{ParadigmRelational},
		SupportsTransactions:        true,
		SupportsSchemaIntrospection: true,
		SupportsCancellation:        true,
		SupportsMultipleDatabases:   true,
		NetworkAttached:             true,
		DefaultPort:                 3306,
		HasSystemDatabase:           true,
		SystemDatabases:             []string{"mysql", "information_schema"},
		Aliases:                     []string{"aurora-mysql"},
	},
	MariaDB: {
		Name:                        "MariaDB",
		ID:                          MariaDB,
		Dialect:                     DialectMySQL,
		Paradigms:                   []DataParadigm{ParadigmRelational},
		SupportsTransactions:        true,
		SupportsSchemaIntrospection: true,
		SupportsCancellation:        true,
		SupportsMultipleDatabases:   true,
		NetworkAttached:             true,
		DefaultPort:                 3306,
		HasSystemDatabase:           true,
		SystemDatabases:             []string{"mysql", "information_schema"},
	},
	SQLServer: {
		Name:                        "Microsoft SQL Server",
		ID:                          SQLServer,
		Dialect:                     DialectSQLServer,
		Paradigms:                   []DataParadigm{ParadigmRelational},
		SupportsTransactions:        true,
		SupportsSchemaIntrospection: true,
		SupportsCancellation:        true,
		SupportsMultipleDatabases:   true,
		NetworkAttached:             true,
		DefaultPort:                 1433,
		HasSystemDatabase:           true,
		SystemDatabases:             []string{"master"},
		Aliases:                     []string{"sqlserver", "azure-sql"},
	},
	SQLite: {
		Name:                        "SQLite",
		ID:                          SQLite,
		Dialect:                     DialectSQLite,
		Paradigms:                   []DataParadigm{ParadigmRelational},
		SupportsTransactions:        true,
		SupportsSchemaIntrospection: true,
		SupportsCancellation:        true,
		SupportsMultipleDatabases:   false,
		NetworkAttached:             false,
		DefaultPort:                 0,
		HasSystemDatabase:           false,
		Aliases:                     []string{"sqlite3"},
	},
	ClickHouse: {
		Name:                        "ClickHouse",
		ID:                          ClickHouse,
		Dialect:                     DialectClickHouse,
		Paradigms:                   []DataParadigm{ParadigmColumnar, ParadigmRelational},
		SupportsTransactions:        false,
		SupportsSchemaIntrospection: true,
		SupportsCancellation:        true,
		SupportsMultipleDatabases:   true,
		NetworkAttached:             true,
		DefaultPort:                 9000,
		HasSystemDatabase:           true,
		SystemDatabases:             []string{"system"},
	},
	MongoDB: {
		Name:                        "MongoDB",
		ID:                          MongoDB,
		Dialect:                     DialectMongo,
		Paradigms:                   []DataParadigm{ParadigmDocument},
		SupportsTransactions:        false,
		SupportsSchemaIntrospection: true,
		SupportsCancellation:        true,
		SupportsMultipleDatabases:   true,
		NetworkAttached:             true,
		DefaultPort:                 27017,
		HasSystemDatabase:           true,
		SystemDatabases:             []string{"admin", "local", "config"},
		Aliases:                     []string{"mongo"},
	},
	Redis: {
		Name:                        "Redis",
		ID:                          Redis,
		Dialect:                     DialectRedis,
		Paradigms:                   []DataParadigm{ParadigmKeyValue},
		SupportsTransactions:        false,
		SupportsSchemaIntrospection: false,
		SupportsCancellation:        false,
		SupportsMultipleDatabases:   true,
		NetworkAttached:             true,
		DefaultPort:                 6379,
		HasSystemDatabase:           false,
		Aliases:                     []string{"valkey"},
	},
}

// IDs returns all canonical database IDs in deterministic order.
func IDs() []DatabaseID {
	return []DatabaseID{
		PostgreSQL, MySQL, MariaDB, SQLServer, SQLite,
		ClickHouse, MongoDB, Redis,
	}
}

// Get returns the capability descriptor for the given canonical ID.
func Get(id DatabaseID) (Capability, bool) {
	cap, ok := All[id]
	return cap, ok
}

// MustGet returns the capability descriptor for the given canonical ID and
// panics when the ID is unknown. Intended for adapter init paths where the
// ID is a package constant.
func MustGet(id DatabaseID) Capability {
	cap, ok := All[id]
	if !ok {
		panic(fmt.Sprintf("dbcapabilities: unknown database id %q", id))
	}
	return cap
}

// ParseID resolves a case-insensitive name or alias to a canonical DatabaseID.
func ParseID(name string) (DatabaseID, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if _, ok := All[DatabaseID(normalized)]; ok {
		return DatabaseID(normalized), true
	}
	for id, cap := range All {
		for _, alias := range cap.Aliases {
			if alias == normalized {
				return id, true
			}
		}
	}
	return "", false
}

// SupportsParadigm reports whether the database supports the given paradigm.
func (c Capability) SupportsParadigm(p DataParadigm) bool {
	for _, paradigm := range c.Paradigms {
		if paradigm == p {
			return true
		}
	}
	return false
}
