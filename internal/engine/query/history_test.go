package query

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordN(h *History, n int) {
	for i := 0; i < n; i++ {
		h.Record(HistoryEntry{
			ConnectionID: "c1",
			SQL:          fmt.Sprintf("SELECT %d", i),
			StartedAt:    time.Now(),
			Success:      true,
		})
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	h := NewHistory(10)
	recordN(h, 3)

	entries := h.List(0)
	require.Len(t, entries, 3)
	assert.Equal(t, "SELECT 2", entries[0].SQL)
	assert.Equal(t, "SELECT 0", entries[2].SQL)
}

func TestHistoryCapEvictsOldest(t *testing.T) {
	h := NewHistory(5)
	recordN(h, 8)

	entries := h.List(0)
	require.Len(t, entries, 5)
	assert.Equal(t, "SELECT 7", entries[0].SQL)
	assert.Equal(t, "SELECT 3", entries[4].SQL, "oldest entries are evicted first")
}

func TestHistoryAssignsIDs(t *testing.T) {
	h := NewHistory(10)
	e := h.Record(HistoryEntry{SQL: "SELECT 1"})
	assert.NotEmpty(t, e.ID)
}

func TestHistoryForConnection(t *testing.T) {
	h := NewHistory(10)
	h.Record(HistoryEntry{ConnectionID: "a", SQL: "SELECT 1"})
	h.Record(HistoryEntry{ConnectionID: "b", SQL: "SELECT 2"})
	h.Record(HistoryEntry{ConnectionID: "a", SQL: "SELECT 3"})

	entries := h.ForConnection("a", 0)
	require.Len(t, entries, 2)
	assert.Equal(t, "SELECT 3", entries[0].SQL)
}

func TestHistorySearch(t *testing.T) {
	h := NewHistory(10)
	h.Record(HistoryEntry{SQL: "SELECT * FROM users"})
	h.Record(HistoryEntry{SQL: "DELETE FROM orders WHERE id = 1"})
	h.Record(HistoryEntry{SQL: "select count(*) from USERS"})

	assert.Len(t, h.Search("users", 0), 2)
	assert.Len(t, h.Search("orders", 0), 1)
	assert.Empty(t, h.Search("missing", 0))
}

func TestHistoryListLimit(t *testing.T) {
	h := NewHistory(10)
	recordN(h, 6)
	assert.Len(t, h.List(2), 2)
}

func TestHistoryJSONRoundTrip(t *testing.T) {
	h := NewHistory(10)
	h.Record(HistoryEntry{
		ConnectionID: "c1",
		SQL:          "SELECT 1",
		StartedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:     42 * time.Millisecond,
		RowCount:     1,
		Success:      true,
	})

	raw, err := json.Marshal(h)
	require.NoError(t, err)

	restored := NewHistory(10)
	require.NoError(t, json.Unmarshal(raw, restored))
	require.Equal(t, 1, restored.Len())

	got := restored.List(0)[0]
	assert.Equal(t, "SELECT 1", got.SQL)
	assert.Equal(t, 42*time.Millisecond, got.Duration)
	assert.True(t, got.Success)
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(10)
	recordN(h, 3)
	h.Clear()
	assert.Zero(t, h.Len())
}
