package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/schema"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

// Conn is one MongoDB client session.
type Conn struct {
	id  string
	cfg driver.Config
	drv *Driver

	client    *mongo.Client
	connected atomic.Bool
	closed    atomic.Bool
}

func newConn(id string, client *mongo.Client, cfg driver.Config, drv *Driver) *Conn {
	c := &Conn{id: id, cfg: cfg, drv: drv, client: client}
	c.connected.Store(true)
	return c
}

// ID returns the engine-assigned connection ID.
func (c *Conn) ID() string { return c.id }

// Type returns the database type of this connection.
func (c *Conn) Type() dbcapabilities.DatabaseID { return dbcapabilities.MongoDB }

// Config returns the configuration this connection was opened with.
func (c *Conn) Config() driver.Config { return c.cfg }

// Driver returns the driver that produced this connection.
func (c *Conn) Driver() driver.Driver { return c.drv }

// IsConnected reports the last known liveness without touching the network.
func (c *Conn) IsConnected() bool { return c.connected.Load() && !c.closed.Load() }

// Ping verifies the primary is reachable.
func (c *Conn) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return driver.ErrClosed
	}
	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		c.connected.Store(false)
		return driver.NewConnectionError(dbcapabilities.MongoDB, c.cfg.Host, c.cfg.EffectivePort(), err)
	}
	c.connected.Store(true)
	return nil
}

// database resolves the target database for commands.
func (c *Conn) database() *mongo.Database {
	name := c.cfg.DatabaseName
	if name == "" {
		name = "test"
	}
	return c.client.Database(name)
}

// Query runs a cursor-returning command. The statement is a command document
// in MongoDB extended JSON, e.g. {"find": "users", "filter": {"active": true}}.
// Positional args are not part of the command model and are rejected.
func (c *Conn) Query(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
	if c.closed.Load() {
		return nil, driver.ErrClosed
	}
	if len(args) > 0 {
		return nil, driver.NewUnsupportedError(dbcapabilities.MongoDB, "bind parameters", "embed values in the command document")
	}

	cmd, err := parseCommand(statement)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	cursor, err := c.database().RunCommandCursor(ctx, cmd)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	result, err := collectDocs(ctx, cursor)
	if err != nil {
		return nil, mapError(err)
	}
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// Execute runs a write command and reports the affected document count from
// the server response (n / nModified).
func (c *Conn) Execute(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error) {
	if c.closed.Load() {
		return nil, driver.ErrClosed
	}
	if len(args) > 0 {
		return nil, driver.NewUnsupportedError(dbcapabilities.MongoDB, "bind parameters", "embed values in the command document")
	}

	cmd, err := parseCommand(statement)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var response bson.M
	if err := c.database().RunCommand(ctx, cmd).Decode(&response); err != nil {
		return nil, mapError(err)
	}

	result := &value.StatementResult{ExecutionTime: time.Since(start)}
	if n, ok := numericField(response, "nModified"); ok {
		result.RowsAffected = n
	} else if n, ok := numericField(response, "n"); ok {
		result.RowsAffected = n
	}
	return result, nil
}

// Begin reports unsupported. Multi-document transactions need a replica set
// session; the engine treats standalone MongoDB as non-transactional.
func (c *Conn) Begin(ctx context.Context) (driver.Transaction, error) {
	return nil, driver.NewUnsupportedError(dbcapabilities.MongoDB, "transactions", "multi-document transactions require a replica set")
}

// Introspector returns the collection catalog surface.
func (c *Conn) Introspector() schema.Introspector { return &introspector{conn: c} }

// CancelHandle returns nil; in-flight commands cancel through the caller's
// context.
func (c *Conn) CancelHandle() driver.CancelHandle { return nil }

// Close disconnects the client. Safe to call more than once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.connected.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// parseCommand decodes an extended JSON command document.
func parseCommand(statement string) (bson.D, error) {
	var cmd bson.D
	if err := bson.UnmarshalExtJSON([]byte(statement), false, &cmd); err != nil {
		return nil, driver.NewQueryError(dbcapabilities.MongoDB, driver.ErrQueryFailed, "",
			errors.New("statement is not a valid command document: "+err.Error()))
	}
	if len(cmd) == 0 {
		return nil, driver.NewQueryError(dbcapabilities.MongoDB, driver.ErrQueryFailed, "",
			errors.New("empty command document"))
	}
	return cmd, nil
}

// collectDocs drains a command cursor into the tabular result shape. Columns
// are the union of document keys in order of first appearance; missing keys
// read as null.
func collectDocs(ctx context.Context, cursor *mongo.Cursor) (*value.QueryResult, error) {
	var docs []bson.D
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	var columns []value.ColumnMeta
	colIndex := map[string]int{}
	for _, doc := range docs {
		for _, elem := range doc {
			if _, ok := colIndex[elem.Key]; !ok {
				colIndex[elem.Key] = len(columns)
				columns = append(columns, value.ColumnMeta{Name: elem.Key, Nullable: true})
			}
		}
	}

	result := &value.QueryResult{Columns: columns}
	for _, doc := range docs {
		row := value.Row{Values: make([]value.Value, len(columns))}
		for i := range row.Values {
			row.Values[i] = value.Null
		}
		for _, elem := range doc {
			row.Values[colIndex[elem.Key]] = bsonValue(elem.Value)
		}
		result.Rows = append(result.Rows, row)
	}
	result.RowCount = len(result.Rows)
	return result, nil
}

// bsonValue converts a decoded BSON value into the backend-neutral model.
// Embedded documents and arrays become JSON so nesting survives the tabular
// projection.
func bsonValue(v interface{}) value.Value {
	switch x := v.(type) {
	case nil:
		return value.Null
	case bson.ObjectID:
		return value.NewText(x.Hex())
	case bson.DateTime:
		return value.NewTimestamp(x.Time())
	case bson.Decimal128:
		return value.NewDecimal(x.String())
	case bson.Binary:
		return value.NewBytes(x.Data)
	case bson.D:
		if raw, err := json.Marshal(bsonToMap(x)); err == nil {
			return value.NewJSON(raw)
		}
		return value.NewText(strconv.Quote("unrenderable document"))
	case bson.A:
		items := make([]value.Value, len(x))
		for i, item := range x {
			items[i] = bsonValue(item)
		}
		return value.NewArray(items)
	case bson.M:
		if raw, err := json.Marshal(map[string]interface{}(x)); err == nil {
			return value.NewJSON(raw)
		}
		return value.NewText(strconv.Quote("unrenderable document"))
	default:
		return value.FromAny(v)
	}
}

func bsonToMap(doc bson.D) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for _, elem := range doc {
		switch x := elem.Value.(type) {
		case bson.D:
			out[elem.Key] = bsonToMap(x)
		case bson.ObjectID:
			out[elem.Key] = x.Hex()
		case bson.DateTime:
			out[elem.Key] = x.Time()
		default:
			out[elem.Key] = elem.Value
		}
	}
	return out
}

func numericField(doc bson.M, key string) (int64, bool) {
	switch x := doc[key].(type) {
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		return int64(x), true
	}
	return 0, false
}

// mapError classifies a mongo driver error into the engine taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if mongo.IsDuplicateKeyError(err) {
		return driver.NewQueryError(dbcapabilities.MongoDB, driver.ErrIntegrityViolation, "11000", err)
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return driver.NewQueryError(dbcapabilities.MongoDB, driver.ErrQueryFailed, strconv.Itoa(int(cmdErr.Code)), err)
	}
	return err
}
