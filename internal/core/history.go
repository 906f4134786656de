package core

import "sync"

// DefaultHistorySize is the number of finished runs kept in memory.
const DefaultHistorySize = 100

// History keeps the most recent run results for later lookup.
type History struct {
	mu    sync.RWMutex
	size  int
	order []string
	runs  map[string]*BulkResult
}

// NewHistory keeps at most size results.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size, runs: make(map[string]*BulkResult, size)}
}

// Add records a result, evicting the oldest when full.
func (h *History) Add(r *BulkResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.runs[r.RunID]; !ok {
		h.order = append(h.order, r.RunID)
	}
	h.runs[r.RunID] = r

	for len(h.order) > h.size {
		delete(h.runs, h.order[0])
		h.order = h.order[1:]
	}
}

// Get returns a result by run id.
func (h *History) Get(runID string) (*BulkResult, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.runs[runID]
	return r, ok
}

// Recent returns results newest first.
func (h *History) Recent() []*BulkResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*BulkResult, 0, len(h.order))
	for i := len(h.order) - 1; i >= 0; i-- {
		out = append(out, h.runs[h.order[i]])
	}
	return out
}
