// Package sqlite implements the SQLite adapter over database/sql with the
// mattn/go-sqlite3 backend. Connections address a file path instead of a
// network endpoint; a single writer is enforced by the engine itself.
package sqlite

import (
	"context"
	"database/sql"
	"net/url"
	"strconv"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/samurmaykrr/zqlz/internal/database/sqlcommon"
	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
)

// Driver creates SQLite connections.
type Driver struct{}

// New returns the SQLite driver.
func New() *Driver { return &Driver{} }

// ID returns the canonical database type this driver serves.
func (d *Driver) ID() dbcapabilities.DatabaseID { return dbcapabilities.SQLite }

// Capabilities returns the static capability descriptor.
func (d *Driver) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.SQLite)
}

// Connect opens the database file and verifies it with a ping.
func (d *Driver) Connect(ctx context.Context, cfg driver.Config) (driver.Connection, error) {
	if cfg.DatabaseName == "" {
		return nil, driver.NewConfigError(dbcapabilities.SQLite, "database_name", "file path is required")
	}

	db, err := sql.Open("sqlite3", DSN(cfg))
	if err != nil {
		return nil, driver.NewConnectionError(dbcapabilities.SQLite, "", 0, err)
	}
	// SQLite serializes writers; a single underlying handle avoids
	// SQLITE_BUSY churn between statements of the same engine connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, driver.NewConnectionError(dbcapabilities.SQLite, "", 0, err)
	}

	return &Conn{Conn: sqlcommon.NewConn(cfg.ID, db, dbcapabilities.SQLite, cfg, d, mapError)}, nil
}

// TestConnection opens the file and closes it again.
func (d *Driver) TestConnection(ctx context.Context, cfg driver.Config) error {
	conn, err := d.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	return conn.Close()
}

// ConnectionFields describes the connection dialog for SQLite.
func (d *Driver) ConnectionFields() []driver.ConnectionField {
	return []driver.ConnectionField{
		{Key: "name", Label: "Connection Name", Type: driver.FieldText, Required: true},
		{Key: "database_name", Label: "Database File", Type: driver.FieldFilePath, Required: true},
		{Key: "mode", Label: "Mode", Type: driver.FieldSelect, Default: "rwc", Options: []string{"ro", "rw", "rwc", "memory"}},
	}
}

// DSN renders a file: URI for the config. Params pass through as query
// options, which is how go-sqlite3 takes its pragmas.
func DSN(cfg driver.Config) string {
	q := url.Values{}
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	if _, ok := cfg.Params["_busy_timeout"]; !ok {
		q.Set("_busy_timeout", "5000")
	}

	dsn := "file:" + cfg.DatabaseName
	if encoded := q.Encode(); encoded != "" {
		dsn += "?" + encoded
	}
	return dsn
}

// mapError classifies a go-sqlite3 error into the engine taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var sqErr sqlite3.Error
	if asSqliteError(err, &sqErr) {
		kind := driver.ErrQueryFailed
		switch sqErr.Code {
		case sqlite3.ErrConstraint:
			kind = driver.ErrIntegrityViolation
		case sqlite3.ErrInterrupt:
			kind = driver.ErrCancelled
		}
		code := strconv.Itoa(int(sqErr.Code))
		if sqErr.ExtendedCode != 0 {
			code = strconv.Itoa(int(sqErr.ExtendedCode))
		}
		return driver.NewQueryError(dbcapabilities.SQLite, kind, code, err)
	}
	return err
}

// asSqliteError unwraps to the value-typed sqlite3.Error.
func asSqliteError(err error, target *sqlite3.Error) bool {
	for err != nil {
		if e, ok := err.(sqlite3.Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// quoteIdent doubles embedded quotes for PRAGMA interpolation, which cannot
// take bind parameters.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
