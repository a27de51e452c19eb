package queue

import (
	"container/heap"
	"sync"
	"time"
)

type entry[T any] struct {
	deadline time.Time
	seq      uint64
	value    T
}

type entryHeap[T any] []entry[T]

func (h entryHeap[T]) Len() int { return len(h) }

// Equal deadlines keep insertion order.
func (h entryHeap[T]) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h entryHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap[T]) Push(x any) {
	*h = append(*h, x.(entry[T]))
}

func (h *entryHeap[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = entry[T]{}
	*h = old[:n-1]
	return x
}

// DeadlineQueue is a min-heap of values keyed by an absolute deadline, safe
// for concurrent use.
type DeadlineQueue[T any] struct {
	mu  sync.Mutex
	h   entryHeap[T]
	seq uint64
}

func NewDeadlineQueue[T any]() *DeadlineQueue[T] {
	return &DeadlineQueue[T]{}
}

func (that *DeadlineQueue[T]) Push(deadline time.Time, v T) {
	that.mu.Lock()
	that.seq++
	heap.Push(&that.h, entry[T]{deadline: deadline, seq: that.seq, value: v})
	that.mu.Unlock()
}

// Peek returns the nearest deadline.
func (that *DeadlineQueue[T]) Peek() (time.Time, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()
	if len(that.h) == 0 {
		return time.Time{}, false
	}
	return that.h[0].deadline, true
}

// PopExpired appends to dst, in ascending deadline order, every value whose
// deadline is not after now.
func (that *DeadlineQueue[T]) PopExpired(now time.Time, dst []T) []T {
	that.mu.Lock()
	for len(that.h) > 0 && !that.h[0].deadline.After(now) {
		dst = append(dst, heap.Pop(&that.h).(entry[T]).value)
	}
	that.mu.Unlock()
	return dst
}

func (that *DeadlineQueue[T]) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()
	return len(that.h)
}
