package balancer

import (
	"github.com/moqsien/gkloop/iface"
)

type RoundRobin struct {
	loopList
	nextIndex int
}

// Next hands out the registered loops in turn. It returns nil when none is registered.
func (that *RoundRobin) Next() (e iface.IELoop) {
	that.mu.Lock()
	defer that.mu.Unlock()
	if len(that.loops) == 0 {
		return nil
	}
	if that.nextIndex >= len(that.loops) {
		that.nextIndex = 0
	}
	e = that.loops[that.nextIndex]
	that.nextIndex++
	return
}
