package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue[int]()
	assert.True(t, q.IsEmpty())
	_, ok := q.Dequeue()
	assert.False(t, ok)

	for i := 0; i < 100; i++ {
		q.Enqueue(i)
	}
	assert.Equal(t, 100, q.Len())
	for i := 0; i < 100; i++ {
		v, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	assert.True(t, q.IsEmpty())
}

func TestQueueDrainSnapshot(t *testing.T) {
	q := NewQueue[int]()
	q.Enqueue(1)
	q.Enqueue(2)

	var got []int
	n := q.Drain(func(v int) {
		got = append(got, v)
		// enqueued during the drain, left for the next one
		q.Enqueue(v * 10)
	})
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 2, q.Len())

	got = got[:0]
	q.Drain(func(v int) { got = append(got, v) })
	assert.Equal(t, []int{10, 20}, got)
	assert.True(t, q.IsEmpty())
}

func TestQueueConcurrentProducers(t *testing.T) {
	const producers, perProducer = 8, 2000
	q := NewQueue[[2]int]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue([2]int{p, i})
			}
		}(p)
	}
	wg.Wait()

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	total := q.Drain(func(v [2]int) {
		// each producer's entries come out in the order it enqueued them
		require.Equal(t, last[v[0]]+1, v[1])
		last[v[0]] = v[1]
	})
	assert.Equal(t, producers*perProducer, total)
	assert.True(t, q.IsEmpty())
}
