// Package mssql implements the Microsoft SQL Server adapter over
// database/sql with the go-mssqldb backend.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	gomssql "github.com/microsoft/go-mssqldb"

	"github.com/samurmaykrr/zqlz/internal/database/sqlcommon"
	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
)

// Driver creates SQL Server connections.
type Driver struct{}

// New returns the SQL Server driver.
func New() *Driver { return &Driver{} }

// ID returns the canonical database type this driver serves.
func (d *Driver) ID() dbcapabilities.DatabaseID { return dbcapabilities.SQLServer }

// Capabilities returns the static capability descriptor.
func (d *Driver) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.SQLServer)
}

// Connect establishes a connection and verifies it with a ping.
func (d *Driver) Connect(ctx context.Context, cfg driver.Config) (driver.Connection, error) {
	db, err := sql.Open("sqlserver", DSN(cfg))
	if err != nil {
		return nil, driver.NewConnectionError(dbcapabilities.SQLServer, cfg.Host, cfg.EffectivePort(), err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, driver.NewConnectionError(dbcapabilities.SQLServer, cfg.Host, cfg.EffectivePort(), err)
	}

	return &Conn{Conn: sqlcommon.NewConn(cfg.ID, db, dbcapabilities.SQLServer, cfg, d, mapError)}, nil
}

// TestConnection performs a full handshake and closes it.
func (d *Driver) TestConnection(ctx context.Context, cfg driver.Config) error {
	conn, err := d.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	return conn.Close()
}

// ConnectionFields describes the connection dialog.
func (d *Driver) ConnectionFields() []driver.ConnectionField {
	fields := driver.StandardNetworkFields(1433)
	return append(fields,
		driver.ConnectionField{
			Key: "encrypt", Label: "Encrypt", Type: driver.FieldSelect,
			Default: "true",
			Options: []string{"true", "false", "disable"},
		},
	)
}

// DSN builds a sqlserver:// URL from the config.
func DSN(cfg driver.Config) string {
	q := url.Values{}
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	if cfg.DatabaseName != "" {
		q.Set("database", cfg.DatabaseName)
	}
	switch cfg.TLS {
	case driver.TLSDisabled:
		q.Set("encrypt", "disable")
	case driver.TLSRequire, driver.TLSVerifyCA:
		q.Set("encrypt", "true")
	}
	if timeout := cfg.EffectiveConnectTimeout(); timeout > 0 {
		q.Set("dial timeout", strconv.Itoa(int(timeout.Seconds())))
	}

	u := url.URL{
		Scheme:   "sqlserver",
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.EffectivePort()),
		RawQuery: q.Encode(),
	}
	if cfg.Username != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			u.User = url.User(cfg.Username)
		}
	}
	return u.String()
}

// Server error numbers the adapter classifies specially.
var integrityNumbers = map[int32]struct{}{
	2627: {}, // unique constraint
	2601: {}, // duplicate key in unique index
	547:  {}, // foreign key or check constraint
	515:  {}, // cannot insert NULL
}

// mapError classifies a go-mssqldb error into the engine taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var msErr gomssql.Error
	if errors.As(err, &msErr) {
		kind := driver.ErrQueryFailed
		if _, ok := integrityNumbers[msErr.Number]; ok {
			kind = driver.ErrIntegrityViolation
		}
		return driver.NewQueryError(dbcapabilities.SQLServer, kind, strconv.Itoa(int(msErr.Number)), err)
	}
	return err
}
