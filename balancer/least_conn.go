package balancer

import (
	"github.com/moqsien/gkloop/iface"
)

// LeastConn picks the loop watching the fewest descriptors.
type LeastConn struct {
	loopList
}

func (that *LeastConn) Next() (e iface.IELoop) {
	that.mu.RLock()
	defer that.mu.RUnlock()
	if len(that.loops) == 0 {
		return nil
	}
	min, minFds := that.loops[0], that.loops[0].NumFds()
	for _, v := range that.loops[1:] {
		if n := v.NumFds(); n < minFds {
			min, minFds = v, n
		}
	}
	return min
}
