package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/schema"
	"github.com/samurmaykrr/zqlz/pkg/value"
)

// Conn is one Redis client.
type Conn struct {
	id  string
	cfg driver.Config
	drv *Driver

	client    *goredis.Client
	connected atomic.Bool
	closed    atomic.Bool
}

func newConn(id string, client *goredis.Client, cfg driver.Config, drv *Driver) *Conn {
	c := &Conn{id: id, cfg: cfg, drv: drv, client: client}
	c.connected.Store(true)
	return c
}

// ID returns the engine-assigned connection ID.
func (c *Conn) ID() string { return c.id }

// Type returns the database type of this connection.
func (c *Conn) Type() dbcapabilities.DatabaseID { return dbcapabilities.Redis }

// Config returns the configuration this connection was opened with.
func (c *Conn) Config() driver.Config { return c.cfg }

// Driver returns the driver that produced this connection.
func (c *Conn) Driver() driver.Driver { return c.drv }

// IsConnected reports the last known liveness without touching the network.
func (c *Conn) IsConnected() bool { return c.connected.Load() && !c.closed.Load() }

// Ping verifies the server is reachable.
func (c *Conn) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return driver.ErrClosed
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.connected.Store(false)
		return driver.NewConnectionError(dbcapabilities.Redis, c.cfg.Host, c.cfg.EffectivePort(), err)
	}
	c.connected.Store(true)
	return nil
}

// Query runs a command and renders the reply as rows. Args append to the
// tokenized command.
func (c *Conn) Query(ctx context.Context, statement string, args []value.Value) (*value.QueryResult, error) {
	reply, elapsed, err := c.do(ctx, statement, args)
	if err != nil {
		return nil, err
	}
	result := replyToResult(reply)
	result.ExecutionTime = elapsed
	return result, nil
}

// Execute runs a command and reports integer replies as the affected count.
func (c *Conn) Execute(ctx context.Context, statement string, args []value.Value) (*value.StatementResult, error) {
	reply, elapsed, err := c.do(ctx, statement, args)
	if err != nil {
		return nil, err
	}
	result := &value.StatementResult{ExecutionTime: elapsed}
	if n, ok := reply.(int64); ok {
		result.RowsAffected = n
	}
	return result, nil
}

func (c *Conn) do(ctx context.Context, statement string, args []value.Value) (interface{}, time.Duration, error) {
	if c.closed.Load() {
		return nil, 0, driver.ErrClosed
	}

	tokens, err := TokenizeCommand(statement)
	if err != nil {
		return nil, 0, driver.NewQueryError(dbcapabilities.Redis, driver.ErrQueryFailed, "", err)
	}
	if len(tokens) == 0 {
		return nil, 0, driver.NewQueryError(dbcapabilities.Redis, driver.ErrQueryFailed, "", errors.New("empty command"))
	}

	cmdArgs := make([]interface{}, 0, len(tokens)+len(args))
	for _, tok := range tokens {
		cmdArgs = append(cmdArgs, tok)
	}
	cmdArgs = append(cmdArgs, value.ManyToAny(args)...)

	start := time.Now()
	reply, err := c.client.Do(ctx, cmdArgs...).Result()
	elapsed := time.Since(start)
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, elapsed, mapError(err)
	}
	if errors.Is(err, goredis.Nil) {
		reply = nil
	}
	return reply, elapsed, nil
}

// Begin reports unsupported. MULTI/EXEC queues commands rather than giving
// interactive transaction semantics.
func (c *Conn) Begin(ctx context.Context) (driver.Transaction, error) {
	return nil, driver.NewUnsupportedError(dbcapabilities.Redis, "transactions", "MULTI/EXEC queues are not interactive transactions")
}

// Introspector returns nil; Redis has no table catalog. Key enumeration goes
// through KeyBrowser.
func (c *Conn) Introspector() schema.Introspector { return nil }

// CancelHandle returns nil; Redis commands are effectively atomic and
// complete too fast to cancel server-side.
func (c *Conn) CancelHandle() driver.CancelHandle { return nil }

// KeyBrowser returns the key enumeration surface.
func (c *Conn) KeyBrowser() schema.KeyBrowser { return &keyBrowser{conn: c} }

// Close releases the client. Safe to call more than once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.connected.Store(false)
	return c.client.Close()
}

// keyBrowser enumerates keys with SCAN and annotates each with TYPE and TTL.
type keyBrowser struct {
	conn *Conn
}

func (b *keyBrowser) ListKeys(ctx context.Context, pattern string, limit int64) ([]schema.KeyValueInfo, error) {
	if pattern == "" {
		pattern = "*"
	}
	if limit <= 0 {
		limit = 100
	}

	var keys []schema.KeyValueInfo
	iter := b.conn.client.Scan(ctx, 0, pattern, limit).Iterator()
	for iter.Next(ctx) {
		if int64(len(keys)) >= limit {
			break
		}
		key := iter.Val()

		info := schema.KeyValueInfo{Key: key, Type: "unknown", TTLSeconds: -1}
		if keyType, err := b.conn.client.Type(ctx, key).Result(); err == nil {
			info.Type = keyType
		}
		if ttl, err := b.conn.client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
			info.TTLSeconds = int64(ttl.Seconds())
		}
		keys = append(keys, info)
	}
	if err := iter.Err(); err != nil {
		return nil, mapError(err)
	}
	return keys, nil
}

// mapError classifies a go-redis error into the engine taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var redisErr goredis.Error
	if errors.As(err, &redisErr) {
		return driver.NewQueryError(dbcapabilities.Redis, driver.ErrQueryFailed, "", err)
	}
	return driver.WrapQuery(dbcapabilities.Redis, err)
}

// TokenizeCommand splits a command line into arguments. Single and double
// quotes group tokens; backslash escapes work inside double quotes.
func TokenizeCommand(line string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inToken := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		case ch == '\'' || ch == '"':
			quote := ch
			inToken = true
			closed := false
			for i++; i < len(line); i++ {
				if line[i] == '\\' && quote == '"' && i+1 < len(line) {
					i++
					current.WriteByte(line[i])
					continue
				}
				if line[i] == quote {
					closed = true
					break
				}
				current.WriteByte(line[i])
			}
			if !closed {
				return nil, fmt.Errorf("unterminated %c-quoted string", quote)
			}
		default:
			inToken = true
			current.WriteByte(ch)
		}
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

// replyToResult renders a command reply as a tabular result. Flat replies
// become a single "value" column; map replies (HGETALL) become field/value
// pairs.
func replyToResult(reply interface{}) *value.QueryResult {
	switch x := reply.(type) {
	case nil:
		return &value.QueryResult{
			Columns:  []value.ColumnMeta{{Name: "value", Nullable: true}},
			Rows:     []value.Row{{Values: []value.Value{value.Null}}},
			RowCount: 1,
		}
	case map[interface{}]interface{}:
		result := &value.QueryResult{
			Columns: []value.ColumnMeta{{Name: "field"}, {Name: "value", Nullable: true}},
		}
		for k, v := range x {
			result.Rows = append(result.Rows, value.Row{Values: []value.Value{
				value.FromAny(k), value.FromAny(v),
			}})
		}
		result.RowCount = len(result.Rows)
		return result
	case []interface{}:
		result := &value.QueryResult{
			Columns: []value.ColumnMeta{{Name: "value", Nullable: true}},
		}
		for _, item := range x {
			result.Rows = append(result.Rows, value.Row{Values: []value.Value{value.FromAny(item)}})
		}
		result.RowCount = len(result.Rows)
		return result
	default:
		return &value.QueryResult{
			Columns:  []value.ColumnMeta{{Name: "value", Nullable: true}},
			Rows:     []value.Row{{Values: []value.Value{value.FromAny(reply)}}},
			RowCount: 1,
		}
	}
}
