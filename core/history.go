package core

import "sync"

const defaultHistoryCapacity = 100

// invocationHistory is a fixed-capacity ring buffer of settled invocations,
// newest first on read.
type invocationHistory struct {
	mu    sync.Mutex
	items []InvocationRecord
	head  int
	count int
}

func newInvocationHistory(capacity int) invocationHistory {
	if capacity < 1 {
		capacity = defaultHistoryCapacity
	}
	return invocationHistory{items: make([]InvocationRecord, capacity)}
}

func (h *invocationHistory) Add(record InvocationRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.items) == 0 {
		return
	}

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (h *invocationHistory) Recent(limit int) []InvocationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}

	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]InvocationRecord, 0, limit)
	for i := range limit {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}
