package balancer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moqsien/gkloop/iface"
)

// fakeLoop only answers NumFds.
type fakeLoop struct {
	iface.IELoop
	fds int
}

func (that *fakeLoop) NumFds() int { return that.fds }

func TestRoundRobinWrapsAround(t *testing.T) {
	b := New(iface.RoundRobinLB)
	assert.Nil(t, b.Next())

	loops := []*fakeLoop{{}, {}, {}}
	for _, l := range loops {
		b.Register(l)
	}
	require.Equal(t, 3, b.Len())

	for round := 0; round < 3; round++ {
		for _, l := range loops {
			assert.Same(t, l, b.Next())
		}
	}
}

func TestLeastConnPicksFewestFds(t *testing.T) {
	b := New(iface.LeastConnLB)
	assert.Nil(t, b.Next())

	loops := []*fakeLoop{{fds: 4}, {fds: 1}, {fds: 1}, {fds: 3}}
	for _, l := range loops {
		b.Register(l)
	}
	assert.Same(t, loops[1], b.Next())

	loops[1].fds = 5
	assert.Same(t, loops[2], b.Next())
}

func TestIteratorStops(t *testing.T) {
	b := &RoundRobin{}
	for i := 0; i < 5; i++ {
		b.Register(&fakeLoop{})
	}
	visited := 0
	b.Iterator(func(key int, val iface.IELoop) bool {
		visited++
		return key < 2
	})
	assert.Equal(t, 3, visited)
}

func TestRegisterWhilePicking(t *testing.T) {
	for _, kind := range []iface.Balancer{iface.RoundRobinLB, iface.LeastConnLB} {
		b := New(kind)
		b.Register(&fakeLoop{})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Register(&fakeLoop{fds: i + 1})
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				assert.NotNil(t, b.Next())
			}
		}()
		wg.Wait()
		assert.Equal(t, 101, b.Len())
	}
}
