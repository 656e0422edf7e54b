// Package clickhouse implements the ClickHouse adapter on the native
// protocol through clickhouse-go's database/sql bridge. ClickHouse has no
// transactions; Begin reports unsupported and the engine routes around it.
package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"

	ch "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/samurmaykrr/zqlz/internal/database/sqlcommon"
	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
)

// Driver creates ClickHouse connections.
type Driver struct{}

// New returns the ClickHouse driver.
func New() *Driver { return &Driver{} }

// ID returns the canonical database type this driver serves.
func (d *Driver) ID() dbcapabilities.DatabaseID { return dbcapabilities.ClickHouse }

// Capabilities returns the static capability descriptor.
func (d *Driver) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.ClickHouse)
}

// Options builds the native-protocol client options for a config.
func Options(cfg driver.Config) *ch.Options {
	opts := &ch.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.EffectivePort())},
		Auth: ch.Auth{
			Database: cfg.DatabaseName,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: cfg.EffectiveConnectTimeout(),
	}
	switch cfg.TLS {
	case driver.TLSRequire:
		opts.TLS = &tls.Config{InsecureSkipVerify: true}
	case driver.TLSVerifyCA:
		opts.TLS = &tls.Config{}
	}
	return opts
}

// Connect establishes a connection and verifies it with a ping.
func (d *Driver) Connect(ctx context.Context, cfg driver.Config) (driver.Connection, error) {
	db := ch.OpenDB(Options(cfg))
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, driver.NewConnectionError(dbcapabilities.ClickHouse, cfg.Host, cfg.EffectivePort(), err)
	}

	return &Conn{Conn: sqlcommon.NewConn(cfg.ID, db, dbcapabilities.ClickHouse, cfg, d, mapError)}, nil
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
	return driver.StandardNetworkFields(9000)
}
