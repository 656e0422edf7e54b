// Package postgres implements the PostgreSQL adapter on the native pgx
// protocol. One engine connection maps to one *pgx.Conn; concurrency comes
// from the engine's pool, not from sharing a session.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
)

// Driver creates PostgreSQL connections.
type Driver struct{}

// New returns the PostgreSQL driver.
func New() *Driver { return &Driver{} }

// ID returns the canonical database type this driver serves.
func (d *Driver) ID() dbcapabilities.DatabaseID { return dbcapabilities.PostgreSQL }

// Capabilities returns the static capability descriptor.
func (d *Driver) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.PostgreSQL)
}

// Connect establishes a connection and verifies it with a ping.
func (d *Driver) Connect(ctx context.Context, cfg driver.Config) (driver.Connection, error) {
	conn, err := pgx.Connect(ctx, DSN(cfg))
	if err != nil {
		return nil, driver.NewConnectionError(dbcapabilities.PostgreSQL, cfg.Host, cfg.EffectivePort(), err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(context.Background())
		return nil, driver.NewConnectionError(dbcapabilities.PostgreSQL, cfg.Host, cfg.EffectivePort(), err)
	}
	return newConn(cfg.ID, conn, cfg, d), nil
}

// TestConnection performs a full handshake and closes it.
func (d *Driver) TestConnection(ctx context.Context, cfg driver.Config) error {
	conn, err := d.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	return conn.Close()
}

// ConnectionFields describes the connection dialog for PostgreSQL.
func (d *Driver) ConnectionFields() []driver.ConnectionField {
	fields := driver.StandardNetworkFields(5432)
	return append(fields,
		driver.ConnectionField{
			Key: "sslmode", Label: "SSL Mode", Type: driver.FieldSelect,
			Default: "prefer",
			Options: []string{"disable", "prefer", "require", "verify-ca", "verify-full"},
		},
	)
}

// DSN renders the pgx connection string for a config.
func (d *Driver) DSN(cfg driver.Config) string { return DSN(cfg) }

// DSN builds a postgres:// URL from the config. Params pass through as query
// options; the typed TLS mode wins over a params sslmode.
func DSN(cfg driver.Config) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.EffectivePort()),
		Path:   "/" + cfg.DatabaseName,
	}
	if cfg.Username != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			u.User = url.User(cfg.Username)
		}
	}

	q := url.Values{}
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	if cfg.TLS != "" {
		q.Set("sslmode", sslMode(cfg.TLS))
	}
	if cfg.TLSCAFile != "" {
		q.Set("sslrootcert", cfg.TLSCAFile)
	}
	if cfg.TLSCertFile != "" {
		q.Set("sslcert", cfg.TLSCertFile)
	}
	if cfg.TLSKeyFile != "" {
		q.Set("sslkey", cfg.TLSKeyFile)
	}
	if timeout := cfg.EffectiveConnectTimeout(); timeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(timeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func sslMode(mode driver.TLSMode) string {
	switch mode {
	case driver.TLSDisabled:
		return "disable"
	case driver.TLSRequire:
		return "require"
	case driver.TLSVerifyCA:
		return "verify-ca"
	default:
		return "prefer"
	}
}
