package recorder

import (
	"context"
	"sync"

	"github.com/roach88/poser/internal/ir"
)

// HistoryStore persists session records.
type HistoryStore interface {
	// AppendSession prepends rec and evicts records beyond ir.HistoryCap.
	AppendSession(ctx context.Context, rec ir.SessionRecord) error
	// ListSessions returns up to limit records, newest first.
	// A limit <= 0 returns all of them.
	ListSessions(ctx context.Context, limit int) ([]ir.SessionRecord, error)
	ClearSessions(ctx context.Context) error
}

// MemoryHistory is an in-memory HistoryStore.
type MemoryHistory struct {
	mu      sync.RWMutex
	records []ir.SessionRecord
	limit   int
}

// NewMemoryHistory creates an empty history capped at ir.HistoryCap.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{limit: ir.HistoryCap}
}

// AppendSession implements HistoryStore.
func (h *MemoryHistory) AppendSession(_ context.Context, rec ir.SessionRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append([]ir.SessionRecord{rec}, h.records...)
	if len(h.records) > h.limit {
		clear(h.records[h.limit:])
		h.records = h.records[:h.limit]
	}
	return nil
}

// ListSessions implements HistoryStore.
func (h *MemoryHistory) ListSessions(_ context.Context, limit int) ([]ir.SessionRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := len(h.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]ir.SessionRecord, n)
	copy(out, h.records)
	return out, nil
}

// ClearSessions implements HistoryStore.
func (h *MemoryHistory) ClearSessions(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
	return nil
}

// Len returns the number of records held.
func (h *MemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
