// Package mysql implements the MySQL adapter over database/sql with the
// go-sql-driver backend. MariaDB speaks the same wire protocol; its adapter
// reuses this package with its own database ID.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/samurmaykrr/zqlz/internal/database/sqlcommon"
	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
)

// Driver creates MySQL-protocol connections for the database ID it was built
// with.
type Driver struct {
	id dbcapabilities.DatabaseID
}

// New returns the MySQL driver.
func New() *Driver { return NewFor(dbcapabilities.MySQL) }

// NewFor returns a driver for any MySQL-wire-compatible database ID.
func NewFor(id dbcapabilities.DatabaseID) *Driver { return &Driver{id: id} }

// ID returns the canonical database type this driver serves.
func (d *Driver) ID() dbcapabilities.DatabaseID { return d.id }

// Capabilities returns the static capability descriptor.
func (d *Driver) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(d.id)
}

// Connect establishes a connection and verifies it with a ping.
func (d *Driver) Connect(ctx context.Context, cfg driver.Config) (driver.Connection, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, driver.NewConnectionError(d.id, cfg.Host, cfg.EffectivePort(), err)
	}
	// One session per engine connection; pooling happens a layer up.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, driver.NewConnectionError(d.id, cfg.Host, cfg.EffectivePort(), err)
	}

	conn := &Conn{
		Conn: sqlcommon.NewConn(cfg.ID, db, d.id, cfg, d, d.mapError),
		drv:  d,
	}
	conn.loadSessionID(ctx)
	return conn, nil
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
	fields := driver.StandardNetworkFields(3306)
	return append(fields,
		driver.ConnectionField{
			Key: "charset", Label: "Character Set", Type: driver.FieldText,
			Placeholder: "utf8mb4",
		},
	)
}

func (d *Driver) mapError(err error) error { return mapError(d.id, err) }

// DSN renders a go-sql-driver connection string from the config. ParseTime
// is always on so temporal columns come back as time.Time.
func DSN(cfg driver.Config) (string, error) {
	mc := gomysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.EffectivePort())
	mc.DBName = cfg.DatabaseName
	mc.ParseTime = true
	mc.Timeout = cfg.EffectiveConnectTimeout()

	switch cfg.TLS {
	case driver.TLSDisabled, "":
		mc.TLSConfig = "false"
	case driver.TLSPrefer:
		mc.TLSConfig = "preferred"
	case driver.TLSRequire:
		mc.TLSConfig = "skip-verify"
	case driver.TLSVerifyCA:
		mc.TLSConfig = "true"
	}

	if len(cfg.Params) > 0 {
		mc.Params = make(map[string]string, len(cfg.Params))
		for k, v := range cfg.Params {
			mc.Params[k] = v
		}
	}
	return mc.FormatDSN(), nil
}
