// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package queue

// itemHeap is a binary min-heap of queue items ordered by (priority, seq).
// It is not synchronized; the Queue mutex guards it.
type itemHeap struct {
	items []*item
}

// less orders by ascending priority, then FIFO by enqueue sequence.
func (h *itemHeap) less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

// Len returns the number of queued items.
func (h *itemHeap) Len() int {
	return len(h.items)
}

// Push adds an item.
func (h *itemHeap) Push(it *item) {
	h.items = append(h.items, it)
	h.bubbleUp(len(h.items) - 1)
}

// Pop removes and returns the highest-priority item, or nil when empty.
func (h *itemHeap) Pop() *item {
	n := len(h.items)
	if n == 0 {
		return nil
	}

	top := h.items[0]
	last := n - 1
	h.items[0] = h.items[last]
	h.items[last] = nil
	h.items = h.items[:last]
	if last > 0 {
		h.bubbleDown(0)
	}
	return top
}

// Peek returns the highest-priority item without removing it.
func (h *itemHeap) Peek() *item {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}

func (h *itemHeap) bubbleUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *itemHeap) bubbleDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2

		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.swap(i, smallest)
		i = smallest
	}
}

func (h *itemHeap) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}
