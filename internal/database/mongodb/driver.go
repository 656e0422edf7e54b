// Package mongodb implements the MongoDB adapter. Statements are database
// commands in MongoDB extended JSON, run through RunCommand; row-returning
// commands stream their cursor into the engine's tabular result shape.
package mongodb

import (
	"context"
	"fmt"
	"net/url"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
)

// Driver creates MongoDB connections.
type Driver struct{}

// New returns the MongoDB driver.
func New() *Driver { return &Driver{} }

// ID returns the canonical database type this driver serves.
func (d *Driver) ID() dbcapabilities.DatabaseID { return dbcapabilities.MongoDB }

// Capabilities returns the static capability descriptor.
func (d *Driver) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.MongoDB)
}

// Connect establishes a client and verifies it with a primary ping.
func (d *Driver) Connect(ctx context.Context, cfg driver.Config) (driver.Connection, error) {
	opts := options.Client().
		ApplyURI(URI(cfg)).
		SetConnectTimeout(cfg.EffectiveConnectTimeout())

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, driver.NewConnectionError(dbcapabilities.MongoDB, cfg.Host, cfg.EffectivePort(), err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, driver.NewConnectionError(dbcapabilities.MongoDB, cfg.Host, cfg.EffectivePort(), err)
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
	fields := driver.StandardNetworkFields(27017)
	return append(fields,
		driver.ConnectionField{
			Key: "authSource", Label: "Auth Database", Type: driver.FieldText,
			Placeholder: "admin",
		},
	)
}

// URI builds a mongodb:// connection string from the config.
func URI(cfg driver.Config) string {
	u := url.URL{
		Scheme: "mongodb",
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
	if cfg.TLS == driver.TLSRequire || cfg.TLS == driver.TLSVerifyCA {
		q.Set("tls", "true")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
