package errorstate

import "time"

// DefaultHistoryCapacity bounds the error history.
const DefaultHistoryCapacity = 100

// HistoryEntry is one recorded error.
type HistoryEntry struct {
	Code       Code      `json:"code"`
	Diagnostic string    `json:"diagnostic,omitempty"`
	Context    string    `json:"context,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// History is a fixed-capacity ring buffer of HistoryEntry.
// Once full, each Add overwrites the oldest entry.
type History struct {
	entries []HistoryEntry
	next    int
	full    bool
}

// NewHistory creates a ring with the given capacity (minimum 1).
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{entries: make([]HistoryEntry, capacity)}
}

// Add appends e, evicting the oldest entry when full.
func (h *History) Add(e HistoryEntry) {
	h.entries[h.next] = e
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	if h.full {
		return len(h.entries)
	}
	return h.next
}

// Entries returns a copy of the stored entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	if !h.full {
		out := make([]HistoryEntry, h.next)
		copy(out, h.entries[:h.next])
		return out
	}
	out := make([]HistoryEntry, 0, len(h.entries))
	out = append(out, h.entries[h.next:]...)
	out = append(out, h.entries[:h.next]...)
	return out
}
