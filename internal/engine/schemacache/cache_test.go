package schemacache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samurmaykrr/zqlz/internal/engine/enginetest"
	"github.com/samurmaykrr/zqlz/pkg/dbcapabilities"
	"github.com/samurmaykrr/zqlz/pkg/driver"
	"github.com/samurmaykrr/zqlz/pkg/schema"
)

func newConn(id string) *enginetest.FakeConn {
	drv := &enginetest.FakeDriver{}
	return enginetest.NewFakeConn(id, drv, driver.Config{ID: id, Database: dbcapabilities.PostgreSQL, Host: "h"})
}

func TestCacheServesFromCacheWithinTTL(t *testing.T) {
	conn := newConn("c1")
	c := New(time.Minute, nil)

	first, err := c.Tables(context.Background(), conn, "public")
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, conn.Intro.Loads())

	second, err := c.Tables(context.Background(), conn, "public")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, conn.Intro.Loads(), "second read must hit the cache")

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestCacheRefreshesAfterTTL(t *testing.T) {
	conn := newConn("c1")
	c := New(20*time.Millisecond, nil)

	_, err := c.Tables(context.Background(), conn, "public")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = c.Tables(context.Background(), conn, "public")
	require.NoError(t, err)
	assert.Equal(t, 2, conn.Intro.Loads())
}

func TestCacheEntriesAreScopedPerConnection(t *testing.T) {
	a, b := newConn("a"), newConn("b")
	b.Intro.SetTables("public", []schema.TableInfo{{Name: "other", Type: schema.TableTypeTable}})
	c := New(time.Minute, nil)

	tablesA, err := c.Tables(context.Background(), a, "public")
	require.NoError(t, err)
	tablesB, err := c.Tables(context.Background(), b, "public")
	require.NoError(t, err)

	assert.Len(t, tablesA, 2)
	assert.Len(t, tablesB, 1)
	assert.Equal(t, 1, a.Intro.Loads())
	assert.Equal(t, 1, b.Intro.Loads())
}

func TestCacheInvalidate(t *testing.T) {
	conn := newConn("c1")
	c := New(time.Minute, nil)

	_, err := c.Tables(context.Background(), conn, "public")
	require.NoError(t, err)

	c.Invalidate(conn.ID(), "public")
	_, err = c.Tables(context.Background(), conn, "public")
	require.NoError(t, err)
	assert.Equal(t, 2, conn.Intro.Loads())
}

func TestCacheInvalidateConnection(t *testing.T) {
	conn := newConn("c1")
	other := newConn("c2")
	c := New(time.Minute, nil)

	_, _ = c.Tables(context.Background(), conn, "public")
	_, _ = c.Tables(context.Background(), other, "public")
	c.InvalidateConnection(conn.ID())

	assert.Equal(t, 1, c.Stats().Entries)

	_, err := c.Tables(context.Background(), other, "public")
	require.NoError(t, err)
	assert.Equal(t, 1, other.Intro.Loads(), "other connection's entry survives")
}

func TestCacheWithoutIntrospector(t *testing.T) {
	conn := newConn("kv")
	conn.Intro = nil
	c := New(time.Minute, nil)

	_, err := c.Tables(context.Background(), conn, "")
	assert.ErrorIs(t, err, driver.ErrUnsupported)
}

func TestCacheLoadErrorsAreNotCached(t *testing.T) {
	conn := newConn("c1")
	conn.Intro.SetError(assert.AnError)
	c := New(time.Minute, nil)

	_, err := c.Tables(context.Background(), conn, "public")
	require.Error(t, err)

	conn.Intro.SetError(nil)
	tables, err := c.Tables(context.Background(), conn, "public")
	require.NoError(t, err)
	assert.Len(t, tables, 2)
}

func TestCacheViews(t *testing.T) {
	conn := newConn("c1")
	c := New(time.Minute, nil)

	_, err := c.Views(context.Background(), conn, "public")
	require.NoError(t, err)
	_, err = c.Views(context.Background(), conn, "public")
	require.NoError(t, err)
	assert.Equal(t, 1, conn.Intro.Loads())
}
