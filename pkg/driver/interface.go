package driver

import (
	"context"
	"strconv"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/schema"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

// Driver is the factory contract every backend implements. Implementations
// are stateless and safe for concurrent use; all per-connection state lives
// behind Connection.
type Driver interface {
	// ID returns the canonical database type this driver serves.
	ID() dbcapabilities.DatabaseID

	// Capabilities returns the static capability descriptor.
	Capabilities() dbcapabilities.Capability

	// Connect establishes a connection. The returned Connection is fully
	// initialized and has been pinged; on failure the error is a
	// *ConnectionError and no resources remain allocated.
	Connect(ctx context.Context, cfg Config) (Connection, error)

	// TestConnection performs a full handshake and closes it, returning
	// nil when the config is usable.
	TestConnection(ctx context.Context, cfg Config) error

	// ConnectionFields describes the fields a connection dialog should
	// render for this backend.
	ConnectionFields() []ConnectionField
}

// Connection is a live database session. Implementations are safe for
// concurrent use unless the backend itself forbids it (single-writer
// file engines serialize internally).
type Connection interface {
	// ID returns the engine-assigned connection ID.
	ID() string

	// Type returns the database type of this connection.
	Type() dbcapabilities.DatabaseID

	// IsConnected reports the last known liveness without touching the
	// network.
	IsConnected() bool

	// Ping verifies the server is reachable.
	Ping(ctx context.Context) error

	// Query runs a row-returning statement. Args bind positionally.
	Query(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error)

	// Execute runs a non-row-returning statement.
	Execute(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error)

	// Begin starts a transaction. Backends without transaction support
	// return *UnsupportedError.
	Begin(ctx context.Context) (Transaction, error)

	// Introspector returns the schema catalog surface, or nil when the
	// backend has none.
	Introspector() schema.Introspector

	// CancelHandle returns a handle that cancels the statement currently
	// running on this connection, or nil when the backend cannot cancel
	// server-side.
	CancelHandle() CancelHandle

	// Config returns the configuration this connection was opened with.
	Config() Config

	// Driver returns the driver that produced this connection.
	Driver() Driver

	// Close releases the connection. Safe to call more than once; only
	// the first call does work.
	Close() error
}

// Transaction scopes statements to one database transaction. Commit and
// Rollback end the transaction; any use afterwards returns ErrClosed.
type Transaction interface {
	Query(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error)
	Execute(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// CancelHandle cancels an in-flight statement out of band. Cancel is
// fire-and-forget and idempotent; cancelling an idle connection is a no-op.
type CancelHandle interface {
	Cancel(ctx context.Context) error
}

// FieldType selects the widget a connection dialog renders for a field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldPassword FieldType = "password"
	FieldNumber   FieldType = "number"
	FieldFilePath FieldType = "filepath"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
)

// ConnectionField describes one input in a backend's connection dialog.
type ConnectionField struct {
	// Key matches a Config field name or Params key.
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Placeholder string    `json:"placeholder,omitempty"`
	Default     string    `json:"default,omitempty"`
	Required    bool      `json:"required"`
	Secret      bool      `json:"secret"`
	// Options for FieldSelect.
	Options []string `json:"options,omitempty"`
}

// StandardNetworkFields returns the field set shared by network-attached
// backends. Adapters append backend-specific fields.
func StandardNetworkFields(defaultPort int) []ConnectionField {
	return []ConnectionField{
		{Key: "name", Label: "Connection Name", Type: FieldText, Required: true},
		{Key: "host", Label: "Host", Type: FieldText, Placeholder: "localhost", Required: true},
		{Key: "port", Label: "Port", Type: FieldNumber, Default: strconv.Itoa(defaultPort)},
		{Key: "database_name", Label: "Database", Type: FieldText},
		{Key: "username", Label: "Username", Type: FieldText},
		{Key: "password", Label: "Password", Type: FieldPassword, Secret: true},
	}
}
