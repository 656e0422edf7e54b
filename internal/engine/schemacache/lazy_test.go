package schemacache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samurmaykrr/zqlz/pkg/schema"
)

func lazyConfig(maxEntries int) LazyConfig {
	return LazyConfig{
		ListTTL:    time.Minute,
		DetailTTL:  time.Minute,
		SchemaTTL:  time.Minute,
		MaxEntries: maxEntries,
	}
}

func TestLazyCacheEvictsByRecencyNotInsertionOrder(t *testing.T) {
	conn := newConn("c1")
	conn.Intro.SetTables("a", []schema.TableInfo{{Name: "ta"}})
	conn.Intro.SetTables("b", []schema.TableInfo{{Name: "tb"}})
	conn.Intro.SetTables("c", []schema.TableInfo{{Name: "tc"}})
	c := NewLazy(lazyConfig(2), nil)

	ctx := context.Background()
	_, err := c.Tables(ctx, conn, "a")
	require.NoError(t, err)
	_, err = c.Tables(ctx, conn, "b")
	require.NoError(t, err)

	// Touch "a" so "b" becomes least recently used, then overflow.
	_, err = c.Tables(ctx, conn, "a")
	require.NoError(t, err)
	_, err = c.Tables(ctx, conn, "c")
	require.NoError(t, err)

	loadsBefore := conn.Intro.Loads()
	_, err = c.Tables(ctx, conn, "a")
	require.NoError(t, err)
	assert.Equal(t, loadsBefore, conn.Intro.Loads(), "a was recently used and must survive")

	_, err = c.Tables(ctx, conn, "b")
	require.NoError(t, err)
	assert.Equal(t, loadsBefore+1, conn.Intro.Loads(), "b was evicted and reloads")

	assert.EqualValues(t, 1, c.Stats().Evictions)
}

func TestLazyCacheSuppressesDuplicateLoads(t *testing.T) {
	conn := newConn("c1")
	conn.Intro.SetTables("slow", []schema.TableInfo{{Name: "t"}})

	c := NewLazy(lazyConfig(10), nil)
	ctx := context.Background()

	// Race 8 readers for the same key; the loading gate must collapse
	// them into a single catalog read.
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := c.Tables(ctx, conn, "slow")
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, conn.Intro.Loads())
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestLazyCacheDetails(t *testing.T) {
	conn := newConn("c1")
	c := NewLazy(lazyConfig(10), nil)
	ctx := context.Background()

	details, err := c.Details(ctx, conn, "public", "users")
	require.NoError(t, err)
	assert.Equal(t, "users", details.Table.Name)
	require.NotNil(t, details.PrimaryKey)

	loads := conn.Intro.Loads()
	_, err = c.Details(ctx, conn, "public", "users")
	require.NoError(t, err)
	assert.Equal(t, loads, conn.Intro.Loads())
}

func TestLazyCacheSchemas(t *testing.T) {
	conn := newConn("c1")
	c := NewLazy(lazyConfig(10), nil)

	schemas, err := c.Schemas(context.Background(), conn)
	require.NoError(t, err)
	assert.Contains(t, schemas, "public")
}

func TestLazyCacheTTLExpiry(t *testing.T) {
	conn := newConn("c1")
	cfg := lazyConfig(10)
	cfg.ListTTL = 20 * time.Millisecond
	c := NewLazy(cfg, nil)
	ctx := context.Background()

	_, err := c.Tables(ctx, conn, "public")
	require.NoError(t, err)
	loads := conn.Intro.Loads()

	time.Sleep(40 * time.Millisecond)

	_, err = c.Tables(ctx, conn, "public")
	require.NoError(t, err)
	assert.Equal(t, loads+1, conn.Intro.Loads())
}

func TestLazyCacheErrorsAreNotCached(t *testing.T) {
	conn := newConn("c1")
	conn.Intro.SetError(assert.AnError)
	c := NewLazy(lazyConfig(10), nil)
	ctx := context.Background()

	_, err := c.Tables(ctx, conn, "public")
	require.Error(t, err)
	assert.Zero(t, c.Stats().Entries)

	conn.Intro.SetError(nil)
	tables, err := c.Tables(ctx, conn, "public")
	require.NoError(t, err)
	assert.Len(t, tables, 2)
}

func TestLazyCacheInvalidateConnection(t *testing.T) {
	a, b := newConn("a"), newConn("b")
	c := NewLazy(lazyConfig(10), nil)
	ctx := context.Background()

	_, _ = c.Tables(ctx, a, "public")
	_, _ = c.Tables(ctx, b, "public")
	require.Equal(t, 2, c.Stats().Entries)

	c.InvalidateConnection(a.ID())
	assert.Equal(t, 1, c.Stats().Entries)
}
