package balancer

import (
	"sync"

	"github.com/moqsien/gkloop/iface"
)

var (
	_ iface.IBalancer = (*RoundRobin)(nil)
	_ iface.IBalancer = (*LeastConn)(nil)
)

func New(kind iface.Balancer) iface.IBalancer {
	switch kind {
	case iface.LeastConnLB:
		return &LeastConn{}
	default:
		return &RoundRobin{}
	}
}

// loopList is the registration part shared by every balancer. Loops may be
// registered while others are already being picked.
type loopList struct {
	mu    sync.RWMutex
	loops []iface.IELoop
}

func (that *loopList) Register(e iface.IELoop) {
	that.mu.Lock()
	that.loops = append(that.loops, e)
	that.mu.Unlock()
}

func (that *loopList) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()
	return len(that.loops)
}

// Iterator visits the loops in registration order until f returns false.
// f must not register loops.
func (that *loopList) Iterator(f iface.BalancerIterFunc) {
	that.mu.RLock()
	defer that.mu.RUnlock()
	for key, val := range that.loops {
		if !f(key, val) {
			return
		}
	}
}
