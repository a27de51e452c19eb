//go:build linux || darwin

/*
Poller is the descriptor interest registry of a loop. It keeps the interest set of
every registered descriptor and translates it onto the platform poller provided by
package sys (epoll on linux, kqueue on darwin).
*/
package poll

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/moqsien/gkloop/iface"
	"github.com/moqsien/gkloop/sys"
	"github.com/moqsien/gkloop/utils"
	"github.com/moqsien/gkloop/utils/errs"
)

type Poller struct {
	pollFd    int                    // poll file descriptor
	mu        sync.Mutex             // guards interests and closed
	interests map[int]iface.Interest // registered descriptors
	closed    bool
	size      int               // current capacity of events
	events    []sys.Event       // raw events filled by the kernel
	ready     []iface.PollEvent // merged result of the last Poll
	index     map[int]int       // fd -> position in ready, reset every Poll
}

var _ iface.IPoller = (*Poller)(nil)

func New(size int) (p *Poller, err error) {
	if size < iface.MinPollSize {
		size = iface.InitPollSize
	}
	if size > iface.MaxPollSize {
		size = iface.MaxPollSize
	}
	p = &Poller{
		interests: make(map[int]iface.Interest),
		index:     make(map[int]int),
		size:      size,
		events:    make([]sys.Event, size),
	}
	if p.pollFd, err = sys.CreatePoll(); err != nil {
		return nil, err
	}
	return p, nil
}

func (that *Poller) GetFd() int {
	return that.pollFd
}

func (that *Poller) Register(fd int, interest iface.Interest) error {
	if fd < 0 {
		return errs.ErrInvalidFd
	}
	if interest == 0 {
		return that.Unregister(fd)
	}
	that.mu.Lock()
	defer that.mu.Unlock()
	if that.closed {
		return errs.ErrPollerClosed
	}
	old := that.interests[fd]
	if old == interest {
		return nil
	}
	if err := sys.PollCtl(that.pollFd, fd, old, interest); err != nil {
		return err
	}
	that.interests[fd] = interest
	return nil
}

func (that *Poller) Unregister(fd int) error {
	that.mu.Lock()
	defer that.mu.Unlock()
	if that.closed {
		return errs.ErrPollerClosed
	}
	old, ok := that.interests[fd]
	if !ok {
		return errors.Wrapf(errs.ErrInvalidFd, "fd %d is not registered", fd)
	}
	delete(that.interests, fd)
	return sys.PollCtl(that.pollFd, fd, old, 0)
}

func (that *Poller) Lookup(fd int) (iface.Interest, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()
	interest, ok := that.interests[fd]
	return interest, ok
}

// Poll waits for readiness. Readiness reported in several kernel records for the
// same descriptor is merged into one PollEvent, in order of first appearance. The
// returned slice is reused by the next call.
func (that *Poller) Poll(timeout time.Duration) ([]iface.PollEvent, error) {
	that.mu.Lock()
	closed := that.closed
	that.mu.Unlock()
	if closed {
		return nil, errs.ErrPollerClosed
	}

	n, err := sys.PollWait(that.pollFd, that.events, utils.DurationToMsec(timeout))
	if err != nil {
		return nil, err
	}

	that.ready = that.ready[:0]
	for i := 0; i < n; i++ {
		fd, events := sys.DecodeEvent(&that.events[i])
		if j, ok := that.index[fd]; ok {
			that.ready[j].Events |= events
			continue
		}
		that.index[fd] = len(that.ready)
		that.ready = append(that.ready, iface.PollEvent{Fd: fd, Events: events})
	}
	clear(that.index)

	if n == that.size {
		that.ExpandEventList()
	} else if n < that.size>>1 {
		that.ShrinkEventList()
	}
	return that.ready, nil
}

func (that *Poller) ExpandEventList() {
	if newSize := that.size << 1; newSize <= iface.MaxPollSize {
		that.size = newSize
		that.events = make([]sys.Event, newSize)
	}
}

func (that *Poller) ShrinkEventList() {
	if newSize := that.size >> 1; newSize >= iface.MinPollSize {
		that.size = newSize
		that.events = make([]sys.Event, newSize)
	}
}

func (that *Poller) Close() error {
	that.mu.Lock()
	defer that.mu.Unlock()
	if that.closed {
		return nil
	}
	that.closed = true
	that.interests = nil
	return utils.SysError("pollfd_close", sys.CloseFd(that.pollFd))
}
