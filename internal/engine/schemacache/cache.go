// Package schemacache caches introspection results per connection so UI
// surfaces (sidebars, completion) don't hammer database catalogs. Cache is
// a plain TTL cache; LazyCache adds a bounded LRU with duplicate-load
// suppression for large servers.
package schemacache

import (
	"context"
	"sync"
	"time"

	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/logger"
	"github.com/samurmaykrr/zqlz/pkg/schema"
)

// DefaultTTL is how long cached listings stay fresh.
const DefaultTTL = 5 * time.Minute

// Key scopes one cache entry. Entries are never shared across connection
// IDs: two connections to the same server still cache independently.
type Key struct {
	ConnectionID string
	Schema       string
}

type entry struct {
	tables    []schema.TableInfo
	views     []schema.ViewInfo
	hasTables bool
	hasViews  bool
	fetchedAt time.Time
}

// Stats is a point-in-time cache counter snapshot.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Cache is a TTL cache over table and view listings. Safe for concurrent
// use.
type Cache struct {
	ttl time.Duration
	log *logger.Logger

	mu      sync.RWMutex
	entries map[Key]*entry
	hits    int64
	misses  int64
}

// New creates a cache. A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Cache{
		ttl:     ttl,
		log:     log,
		entries: make(map[Key]*entry),
	}
}

// Tables returns the table listing for (conn, schemaName), consulting the
// cache first. Connections without an introspector yield
// ErrSchemaUnavailable.
func (c *Cache) Tables(ctx context.Context, conn driver.Connection, schemaName string) ([]schema.TableInfo, error) {
	intro := conn.Introspector()
	if intro == nil {
		return nil, driver.NewUnsupportedError(conn.Type(), "schema introspection", "")
	}

	key := Key{ConnectionID: conn.ID(), Schema: schemaName}

	c.mu.RLock()
	ent, ok := c.entries[key]
	if ok && ent.hasTables && time.Since(ent.fetchedAt) <= c.ttl {
		tables := copyTables(ent.tables)
		c.mu.RUnlock()
		c.bump(&c.hits)
		return tables, nil
	}
	c.mu.RUnlock()
	c.bump(&c.misses)

	tables, err := intro.ListTables(ctx, schemaName)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = &entry{
		tables:    copyTables(tables),
		hasTables: true,
		fetchedAt: time.Now(),
	}
	c.mu.Unlock()

	c.log.Debug("schema cache refreshed",
		logger.F("connection_id", conn.ID()),
		logger.F("schema", schemaName),
		logger.F("tables", len(tables)))
	return tables, nil
}

// Views returns the view listing for (conn, schemaName), consulting the
// cache first.
func (c *Cache) Views(ctx context.Context, conn driver.Connection, schemaName string) ([]schema.ViewInfo, error) {
	intro := conn.Introspector()
	if intro == nil {
		return nil, driver.NewUnsupportedError(conn.Type(), "schema introspection", "")
	}

	key := Key{ConnectionID: conn.ID(), Schema: schemaName}

	c.mu.RLock()
	ent, ok := c.entries[key]
	if ok && ent.hasViews && time.Since(ent.fetchedAt) <= c.ttl {
		views := copyViews(ent.views)
		c.mu.RUnlock()
		c.bump(&c.hits)
		return views, nil
	}
	c.mu.RUnlock()
	c.bump(&c.misses)

	views, err := intro.ListViews(ctx, schemaName)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	ent, ok = c.entries[key]
	if !ok || time.Since(ent.fetchedAt) > c.ttl {
		ent = &entry{fetchedAt: time.Now()}
		c.entries[key] = ent
	}
	ent.views = copyViews(views)
	ent.hasViews = true
	c.mu.Unlock()

	return views, nil
}

// Invalidate drops the entry for one (connection, schema) scope.
func (c *Cache) Invalidate(connID, schemaName string) {
	c.mu.Lock()
	delete(c.entries, Key{ConnectionID: connID, Schema: schemaName})
	c.mu.Unlock()
}

// InvalidateConnection drops every entry belonging to a connection, called
// on disconnect and after DDL statements.
func (c *Cache) InvalidateConnection(connID string) {
	c.mu.Lock()
	for key := range c.entries {
		if key.ConnectionID == connID {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[Key]*entry)
	c.mu.Unlock()
}

// Stats returns cache counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}

func (c *Cache) bump(counter *int64) {
	c.mu.Lock()
	*counter++
	c.mu.Unlock()
}

func copyTables(in []schema.TableInfo) []schema.TableInfo {
	out := make([]schema.TableInfo, len(in))
	copy(out, in)
	return out
}

func copyViews(in []schema.ViewInfo) []schema.ViewInfo {
	out := make([]schema.ViewInfo, len(in))
	copy(out, in)
	return out
}
