// Package redis implements the Redis adapter. Statements are raw commands
// ("GET user:1", "HGETALL session:abc"); replies are rendered into the
// engine's tabular result shape. There is no catalog, so the adapter exposes
// a KeyBrowser instead of an Introspector.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
)

// Driver creates Redis connections.
type Driver struct{}

// New returns the Redis driver.
func New() *Driver { return &Driver{} }

// ID returns the canonical database type this driver serves.
func (d *Driver) ID() dbcapabilities.DatabaseID { return dbcapabilities.Redis }

// Capabilities returns the static capability descriptor.
func (d *Driver) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.Redis)
}

// ClientOptions builds the go-redis options for a config. The logical
// database index comes from DatabaseName or the "db" param.
func ClientOptions(cfg driver.Config) *goredis.Options {
	opts := &goredis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.EffectivePort()),
		Username:    cfg.Username,
		Password:    cfg.Password,
		DialTimeout: cfg.EffectiveConnectTimeout(),
	}
	if db, err := strconv.Atoi(cfg.DatabaseName); err == nil {
		opts.DB = db
	} else if raw, ok := cfg.Param("db"); ok {
		if db, err := strconv.Atoi(raw); err == nil {
			opts.DB = db
		}
	}
	switch cfg.TLS {
	case driver.TLSRequire:
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	case driver.TLSVerifyCA:
		opts.TLSConfig = &tls.Config{}
	}
	return opts
}

// Connect establishes a client and verifies it with a ping.
func (d *Driver) Connect(ctx context.Context, cfg driver.Config) (driver.Connection, error) {
	client := goredis.NewClient(ClientOptions(cfg))
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, driver.NewConnectionError(dbcapabilities.Redis, cfg.Host, cfg.EffectivePort(), err)
	}
	return newConn(cfg.ID, client, cfg, d), nil
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
	return []driver.ConnectionField{
		{Key: "name", Label: "Connection Name", Type: driver.FieldText, Required: true},
		{Key: "host", Label: "Host", Type: driver.FieldText, Placeholder: "localhost", Required: true},
		{Key: "port", Label: "Port", Type: driver.FieldNumber, Default: "6379"},
		{Key: "database_name", Label: "Database Index", Type: driver.FieldNumber, Default: "0"},
		{Key: "username", Label: "Username", Type: driver.FieldText},
		{Key: "password", Label: "Password", Type: driver.FieldPassword, Secret: true},
	}
}
