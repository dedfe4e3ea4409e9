// Package checksum remembers the hashes of recently processed uploads so a
// repeated file can be flagged without a storage round trip.
package checksum

import "sync"

// History maps upload hashes to the run that first processed them. It is
// bounded: once capacity is reached the oldest entry falls off.
type History struct {
	mu       sync.Mutex
	capacity int
	order    []string
	runs     map[string]string
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{
		capacity: capacity,
		runs:     make(map[string]string),
	}
}

// Remember records that the file with the given hash was processed under
// runID. Re-remembering an already known hash updates the run it points to.
func (h *History) Remember(hash, runID string) {
	if hash == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, known := h.runs[hash]; known {
		h.runs[hash] = runID
		return
	}
	h.runs[hash] = runID
	h.order = append(h.order, hash)
	if len(h.order) > h.capacity {
		evicted := h.order[0]
		h.order = h.order[1:]
		delete(h.runs, evicted)
	}
}

// Seen reports whether the hash was processed before, and under which run.
func (h *History) Seen(hash string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	runID, ok := h.runs[hash]
	return runID, ok
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.order)
}
