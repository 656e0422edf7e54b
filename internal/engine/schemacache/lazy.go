package schemacache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/logger"
	"github.com/samurmaykrr/zqlz/pkg/schema"
)

// LazyConfig tunes the lazy cache.
type LazyConfig struct {
	// ListTTL covers table/view listings, DetailTTL covers per-table
	// structure, SchemaTTL covers schema name listings.
	ListTTL   time.Duration
	DetailTTL time.Duration
	SchemaTTL time.Duration
	// MaxEntries bounds resident entries; least recently used entries are
	// evicted first.
	MaxEntries int
}

// DefaultLazyConfig returns the standard policy.
func DefaultLazyConfig() LazyConfig {
	return LazyConfig{
		ListTTL:    5 * time.Minute,
		DetailTTL:  3 * time.Minute,
		SchemaTTL:  1 * time.Minute,
		MaxEntries: 256,
	}
}

type lazyKey struct {
	connID     string
	kind       string // "schemas", "tables", "views", "details"
	schemaName string
	table      string
}

type lazyEntry struct {
	key       lazyKey
	val       interface{}
	err       error
	fetchedAt time.Time
	// loading is non-nil while the first loader is in flight; waiters
	// block on it instead of issuing duplicate catalog reads.
	loading chan struct{}
}

// LazyStats is a point-in-time counter snapshot.
type LazyStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

// LazyCache is a bounded, lazily-populated schema cache. Reads bump entry
// recency, so eviction follows actual use rather than insertion order, and
// concurrent requests for the same entry trigger exactly one catalog read.
type LazyCache struct {
	cfg LazyConfig
	log *logger.Logger

	mu    sync.Mutex
	ll    *list.List // front = most recently used
	items map[lazyKey]*list.Element

	hits      int64
	misses    int64
	evictions int64
}

// NewLazy creates a lazy cache. Zero config fields fall back to defaults.
func NewLazy(cfg LazyConfig, log *logger.Logger) *LazyCache {
	def := DefaultLazyConfig()
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	if cfg.DetailTTL <= 0 {
		cfg.DetailTTL = def.DetailTTL
	}
	if cfg.SchemaTTL <= 0 {
		cfg.SchemaTTL = def.SchemaTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LazyCache{
		cfg:   cfg,
		log:   log,
		ll:    list.New(),
		items: make(map[lazyKey]*list.Element),
	}
}

// Schemas returns the schema listing for conn.
func (c *LazyCache) Schemas(ctx context.Context, conn driver.Connection) ([]string, error) {
	intro, err := introspectorOf(conn)
	if err != nil {
		return nil, err
	}
	key := lazyKey{connID: conn.ID(), kind: "schemas"}
	val, err := c.get(ctx, key, c.cfg.SchemaTTL, func(ctx context.Context) (interface{}, error) {
		return intro.ListSchemas(ctx)
	})
	if err != nil {
		return nil, err
	}
	return val.([]string), nil
}

// Tables returns the table listing for (conn, schemaName).
func (c *LazyCache) Tables(ctx context.Context, conn driver.Connection, schemaName string) ([]schema.TableInfo, error) {
	intro, err := introspectorOf(conn)
	if err != nil {
		return nil, err
	}
	key := lazyKey{connID: conn.ID(), kind: "tables", schemaName: schemaName}
	val, err := c.get(ctx, key, c.cfg.ListTTL, func(ctx context.Context) (interface{}, error) {
		return intro.ListTables(ctx, schemaName)
	})
	if err != nil {
		return nil, err
	}
	return val.([]schema.TableInfo), nil
}

// Views returns the view listing for (conn, schemaName).
func (c *LazyCache) Views(ctx context.Context, conn driver.Connection, schemaName string) ([]schema.ViewInfo, error) {
	intro, err := introspectorOf(conn)
	if err != nil {
		return nil, err
	}
	key := lazyKey{connID: conn.ID(), kind: "views", schemaName: schemaName}
	val, err := c.get(ctx, key, c.cfg.ListTTL, func(ctx context.Context) (interface{}, error) {
		return intro.ListViews(ctx, schemaName)
	})
	if err != nil {
		return nil, err
	}
	return val.([]schema.ViewInfo), nil
}

// Details returns the structure of one table.
func (c *LazyCache) Details(ctx context.Context, conn driver.Connection, schemaName, table string) (*schema.TableDetails, error) {
	intro, err := introspectorOf(conn)
	if err != nil {
		return nil, err
	}
	key := lazyKey{connID: conn.ID(), kind: "details", schemaName: schemaName, table: table}
	val, err := c.get(ctx, key, c.cfg.DetailTTL, func(ctx context.Context) (interface{}, error) {
		return intro.GetTableDetails(ctx, schemaName, table)
	})
	if err != nil {
		return nil, err
	}
	return val.(*schema.TableDetails), nil
}

// InvalidateConnection drops every entry belonging to a connection.
func (c *LazyCache) InvalidateConnection(connID string) {
	c.mu.Lock()
	for key, el := range c.items {
		if key.connID == connID {
			c.ll.Remove(el)
			delete(c.items, key)
		}
	}
	c.mu.Unlock()
}

// Invalidate drops every entry under one (connection, schema) scope.
func (c *LazyCache) Invalidate(connID, schemaName string) {
	c.mu.Lock()
	for key, el := range c.items {
		if key.connID == connID && key.schemaName == schemaName {
			c.ll.Remove(el)
			delete(c.items, key)
		}
	}
	c.mu.Unlock()
}

// Stats returns cache counters.
func (c *LazyCache) Stats() LazyStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return LazyStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   len(c.items),
	}
}

func (c *LazyCache) get(ctx context.Context, key lazyKey, ttl time.Duration, load func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	for {
		c.mu.Lock()
		if el, ok := c.items[key]; ok {
			ent := el.Value.(*lazyEntry)
			if ent.loading != nil {
				ch := ent.loading
				c.mu.Unlock()
				select {
				case <-ctx.Done():
					return nil, driver.ErrCancelled
				case <-ch:
				}
				// Loader finished (or failed and removed the entry);
				// retry the lookup.
				continue
			}
			if time.Since(ent.fetchedAt) <= ttl {
				c.ll.MoveToFront(el)
				c.hits++
				val := ent.val
				c.mu.Unlock()
				return val, nil
			}
			// Expired.
			c.ll.Remove(el)
			delete(c.items, key)
		}

		ent := &lazyEntry{key: key, loading: make(chan struct{})}
		el := c.ll.PushFront(ent)
		c.items[key] = el
		c.misses++
		c.evictLocked()
		c.mu.Unlock()

		val, err := load(ctx)

		c.mu.Lock()
		ent.val = val
		ent.err = err
		ent.fetchedAt = time.Now()
		close(ent.loading)
		ent.loading = nil
		if err != nil {
			// Errors are not cached.
			if cur, ok := c.items[key]; ok && cur == el {
				c.ll.Remove(el)
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
		return val, err
	}
}

// evictLocked removes least recently used ready entries until the cache
// fits. Entries still loading are skipped; they have waiters.
func (c *LazyCache) evictLocked() {
	for len(c.items) > c.cfg.MaxEntries {
		el := c.ll.Back()
		evicted := false
		for el != nil {
			ent := el.Value.(*lazyEntry)
			prev := el.Prev()
			if ent.loading == nil {
				c.ll.Remove(el)
				delete(c.items, ent.key)
				c.evictions++
				evicted = true
				break
			}
			el = prev
		}
		if !evicted {
			return
		}
	}
}

func introspectorOf(conn driver.Connection) (schema.Introspector, error) {
	intro := conn.Introspector()
	if intro == nil {
		return nil, driver.NewUnsupportedError(conn.Type(), "schema introspection", "")
	}
	return intro, nil
}
