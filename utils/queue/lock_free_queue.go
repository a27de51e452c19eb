package queue

import (
	"sync/atomic"
)

type TaskQueue[T any] interface {
	Enqueue(T)
	Dequeue() (T, bool)
	Drain(fn func(T)) int
	IsEmpty() bool
	Len() int
}

// Queue is a lock-free FIFO (Michael-Scott). Any number of goroutines may
// Enqueue concurrently; Dequeue and Drain must be called by a single consumer.
type Queue[T any] struct {
	head   atomic.Pointer[node[T]]
	tail   atomic.Pointer[node[T]]
	length atomic.Int32
}

type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

func NewQueue[T any]() *Queue[T] {
	n := &node[T]{}
	q := &Queue[T]{}
	q.head.Store(n)
	q.tail.Store(n)
	return q
}

func (that *Queue[T]) Enqueue(v T) {
	n := &node[T]{value: v}
	for {
		tail := that.tail.Load()
		next := tail.next.Load()
		if tail != that.tail.Load() {
			continue
		}
		if next != nil {
			that.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			that.tail.CompareAndSwap(tail, n)
			that.length.Add(1)
			return
		}
	}
}

func (that *Queue[T]) Dequeue() (v T, ok bool) {
	for {
		head := that.head.Load()
		tail := that.tail.Load()
		next := head.next.Load()
		if head != that.head.Load() {
			continue
		}
		if head == tail {
			if next == nil {
				return v, false
			}
			that.tail.CompareAndSwap(tail, next)
			continue
		}
		// the first node is blank.
		if that.head.CompareAndSwap(head, next) {
			v = next.value
			var zero T
			next.value = zero
			that.length.Add(-1)
			return v, true
		}
	}
}

// Drain removes the entries whose Enqueue had completed when Drain was
// called and passes them to fn in FIFO order. Entries enqueued while fn runs
// are left for the next Drain.
func (that *Queue[T]) Drain(fn func(T)) int {
	n := int(that.length.Load())
	for i := 0; i < n; i++ {
		v, ok := that.Dequeue()
		if !ok {
			return i
		}
		fn(v)
	}
	return n
}

func (that *Queue[T]) IsEmpty() bool {
	return that.length.Load() == 0
}

func (that *Queue[T]) Len() int {
	return int(that.length.Load())
}
