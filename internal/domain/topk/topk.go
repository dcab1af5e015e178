// Package topk provides a fixed-capacity priority queue that keeps the best
// K values seen in a stream.
package topk

import (
	"container/heap"
	"slices"
)

// Worse reports whether a ranks below b.
type Worse[T any] func(a, b T) bool

// Bounded keeps at most capacity values. Its root is always the worst kept
// value, so a full queue rejects anything not better than the root in O(1)
// and replaces the root in O(log K).
type Bounded[T any] struct {
	h        *minHeap[T]
	capacity int
}

// New returns an empty queue.
func New[T any](capacity int, worse Worse[T]) *Bounded[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Bounded[T]{
		h:        &minHeap[T]{items: make([]T, 0, capacity), worse: worse},
		capacity: capacity,
	}
}

// Offer considers v and reports whether it was kept.
func (b *Bounded[T]) Offer(v T) bool {
	if b.capacity == 0 {
		return false
	}
	if b.h.Len() < b.capacity {
		heap.Push(b.h, v)
		return true
	}
	if !b.h.worse(b.h.items[0], v) {
		return false
	}
	// Evict the current worst and take its place.
	b.h.items[0] = v
	heap.Fix(b.h, 0)
	return true
}

// Len returns the number of kept values.
func (b *Bounded[T]) Len() int { return b.h.Len() }

// Cap returns the capacity.
func (b *Bounded[T]) Cap() int { return b.capacity }

// Worst returns the current root without removing it.
func (b *Bounded[T]) Worst() (T, bool) {
	var zero T
	if b.h.Len() == 0 {
		return zero, false
	}
	return b.h.items[0], true
}

// Drain empties the queue and returns the kept values best first.
func (b *Bounded[T]) Drain() []T {
	out := make([]T, 0, b.h.Len())
	for b.h.Len() > 0 {
		out = append(out, heap.Pop(b.h).(T))
	}
	slices.Reverse(out)
	return out
}

type minHeap[T any] struct {
	items []T
	worse Worse[T]
}

func (h *minHeap[T]) Len() int           { return len(h.items) }
func (h *minHeap[T]) Less(i, j int) bool { return h.worse(h.items[i], h.items[j]) }
func (h *minHeap[T]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *minHeap[T]) Push(x any) { h.items = append(h.items, x.(T)) }

func (h *minHeap[T]) Pop() any {
	n := len(h.items)
	v := h.items[n-1]
	var zero T
	h.items[n-1] = zero
	h.items = h.items[:n-1]
	return v
}
