package query

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryCapacity bounds the in-memory history ring.
const DefaultHistoryCapacity = 1000

// HistoryEntry records one executed statement. Parameters are not stored;
// they may contain secrets and the statement text is what users search for.
type HistoryEntry struct {
	ID           string        `json:"id"`
	ConnectionID string        `json:"connection_id"`
	SQL          string        `json:"sql"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	// RowCount is rows returned for queries, rows affected for
	// statements.
	RowCount int64  `json:"row_count"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// History is a bounded ring of executed statements, newest first. Safe for
// concurrent use.
type History struct {
	mu      sync.RWMutex
	cap     int
	entries []HistoryEntry // index 0 = newest
}

// NewHistory creates a history ring. A non-positive capacity falls back to
// DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{cap: capacity}
}

// Record prepends an entry, evicting the oldest once the ring is full. A
// missing ID is assigned.
func (h *History) Record(entry HistoryEntry) HistoryEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append([]HistoryEntry{entry}, h.entries...)
	if len(h.entries) > h.cap {
		h.entries = h.entries[:h.cap]
	}
	return entry
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (h *History) List(limit int) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.filterLocked(limit, func(HistoryEntry) bool { return true })
}

// ForConnection returns entries for one connection, newest first.
func (h *History) ForConnection(connID string, limit int) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.filterLocked(limit, func(e HistoryEntry) bool {
		return e.ConnectionID == connID
	})
}

// Search returns entries whose SQL contains the term, case-insensitive,
// newest first.
func (h *History) Search(term string, limit int) []HistoryEntry {
	needle := strings.ToLower(term)
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.filterLocked(limit, func(e HistoryEntry) bool {
		return strings.Contains(strings.ToLower(e.SQL), needle)
	})
}

func (h *History) filterLocked(limit int, keep func(HistoryEntry) bool) []HistoryEntry {
	var out []HistoryEntry
	for _, e := range h.entries {
		if !keep(e) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Clear drops all entries.
func (h *History) Clear() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
}

// MarshalJSON serializes the retained entries, newest first.
func (h *History) MarshalJSON() ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.entries)
}

// UnmarshalJSON replaces the retained entries, truncating to capacity.
func (h *History) UnmarshalJSON(data []byte) error {
	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cap <= 0 {
		h.cap = DefaultHistoryCapacity
	}
	if len(entries) > h.cap {
		entries = entries[:h.cap]
	}
	h.entries = entries
	return nil
}
