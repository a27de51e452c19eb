package iface

import "time"

// IPoller is the descriptor interest registry backing a loop.
type IPoller interface {
	// Register adds fd with the given interest, or modifies the interest of an already registered fd.
	Register(fd int, interest Interest) error
	Unregister(fd int) error
	Lookup(fd int) (Interest, bool)
	// Poll blocks until a descriptor is ready or timeout elapses. A negative timeout blocks indefinitely.
	Poll(timeout time.Duration) ([]PollEvent, error)
	Close() error
}

type IELoop interface {
	SetReader(fd int, cb Callback) error
	SetWriter(fd int, cb Callback) error
	RemoveReader(fd int) error
	RemoveWriter(fd int) error
	CallSoon(cb Callback) error
	CallLater(delay time.Duration, cb Callback) error
	CallAt(deadline time.Time, cb Callback) error
	NumFds() int
	Start() error
	Stop()
	Close() error
}

type IBalancer interface {
	Register(IELoop)
	Next() IELoop
	Iterator(f BalancerIterFunc)
	Len() int
}
