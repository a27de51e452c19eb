/*
Eloop is a single-threaded reactor. One goroutine runs the loop and every callback;
any goroutine may register descriptors, schedule callbacks or stop the loop, and the
loop is woken through its wake channel when it is blocked in the poller.
*/
package eloop

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	fifo "github.com/eapache/queue"
	"github.com/moqsien/processes/logger"

	"github.com/moqsien/gkloop/iface"
	"github.com/moqsien/gkloop/poll"
	"github.com/moqsien/gkloop/sys"
	"github.com/moqsien/gkloop/utils/errs"
	"github.com/moqsien/gkloop/utils/queue"
)

type Eloop struct {
	Index        int                                  // index of the loop inside an engine
	poller       iface.IPoller                        // descriptor interest registry
	wakeR        int                                  // read end of the wake channel
	wakeW        int                                  // write end, equal to wakeR for an eventfd
	wakeBuf      []byte                               // buffer for draining wakeR
	wakeMu       sync.RWMutex                         // wake writes against teardown
	released     bool                                 // poller and wake channel closed, guarded by wakeMu
	toWakeup     atomic.Int32                         // a wake unit is pending in the channel
	assocMu      sync.Mutex                           // guards assocs and registry updates
	assocs       map[int]association                  // callbacks per descriptor
	ready        *queue.Queue[iface.Callback]         // callbacks to run as soon as possible
	timers       *queue.DeadlineQueue[iface.Callback] // callbacks to run at a deadline
	expired      []iface.Callback                     // timers popped in the current iteration
	batch        *fifo.Queue                          // callbacks selected for the current drain
	running      atomic.Bool
	active       atomic.Bool // Start has not returned yet
	closed       atomic.Bool
	failure      atomic.Pointer[errs.FatalErr] // a wake write failed, the loop can no longer be woken
	lockOSThread bool
	onFatal      func(err error)
	now          func() time.Time
}

var _ iface.IELoop = (*Eloop)(nil)

func New(opts *Options) (*Eloop, error) {
	if opts == nil {
		opts = &Options{}
	}
	p, err := poll.New(opts.PollSize)
	if err != nil {
		return nil, err
	}
	return newEloop(p, opts)
}

func newEloop(p iface.IPoller, opts *Options) (*Eloop, error) {
	r, w, err := sys.CreateWakeFd()
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	that := &Eloop{
		poller:       p,
		wakeR:        r,
		wakeW:        w,
		wakeBuf:      make([]byte, 64),
		assocs:       make(map[int]association),
		ready:        queue.NewQueue[iface.Callback](),
		timers:       queue.NewDeadlineQueue[iface.Callback](),
		batch:        fifo.New(),
		lockOSThread: opts.LockOSThread,
		onFatal:      opts.OnFatal,
		now:          time.Now,
	}
	if that.onFatal == nil {
		that.onFatal = Abort
	}
	// the wake channel is watched like any descriptor so that Poll returns when it is signaled
	if err = that.upsert(r, iface.Read, that.drainWake); err != nil {
		_ = that.release()
		return nil, err
	}
	return that, nil
}

// Abort is the default fatal handler. It logs err and panics.
func Abort(err error) {
	logger.Errorf("error occurs in event-loop, aborting: %v", err)
	panic(err)
}

func (that *Eloop) fatal(err *errs.FatalErr) error {
	that.onFatal(err)
	return err
}

// Start runs the loop on the calling goroutine until Stop or Close. It returns
// the fatal error once a poll or a wake write has failed.
func (that *Eloop) Start() error {
	if that.closed.Load() {
		return errs.ErrLoopClosed
	}
	if !that.active.CompareAndSwap(false, true) {
		return errs.ErrLoopRunning
	}
	if that.lockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	defer func() {
		that.running.Store(false)
		that.active.Store(false)
		if that.closed.Load() {
			if err := that.release(); err != nil {
				logger.Warningf("error occurs when releasing event-loop #%d: %v", that.Index, err)
			}
		}
	}()

	that.running.Store(true)
	for that.running.Load() {
		if err := that.RunOnce(); err != nil {
			return err
		}
	}
	return nil
}

// Stop asks the loop to return from Start once the current iteration has run
// its callbacks. It does not interrupt a running callback.
func (that *Eloop) Stop() {
	that.running.Store(false)
	_ = that.wake()
}

func (that *Eloop) IsRunning() bool {
	return that.running.Load()
}

// RunOnce polls once, dispatches descriptor callbacks, then runs the ready
// callbacks followed by the expired timers.
func (that *Eloop) RunOnce() error {
	that.wakeMu.RLock()
	released := that.released
	that.wakeMu.RUnlock()
	if released {
		return errs.ErrLoopClosed
	}
	if fe := that.failure.Load(); fe != nil {
		return fe
	}

	timeout := time.Duration(-1)
	if that.batch.Length() > 0 {
		// leftovers of a drain interrupted by a panicking callback
		timeout = 0
	} else if deadline, ok := that.timers.Peek(); ok {
		if timeout = deadline.Sub(that.now()); timeout < 0 {
			timeout = 0
		}
	}

	events, err := that.poller.Poll(timeout)
	if err != nil {
		if !errs.IsInterrupted(err) {
			return that.fatal(errs.NewFatalErr(errs.OpPoll, err))
		}
		events = nil
	}

	for _, ev := range events {
		if ev.Events&iface.Read != 0 {
			if cb := that.callback(ev.Fd, iface.Read); cb != nil {
				cb()
			}
		}
		if ev.Events&iface.Write != 0 {
			if cb := that.callback(ev.Fd, iface.Write); cb != nil {
				cb()
			}
		}
	}

	that.expired = that.timers.PopExpired(that.now(), that.expired[:0])
	that.ready.Drain(func(cb iface.Callback) {
		that.batch.Add(cb)
	})
	for i, cb := range that.expired {
		that.batch.Add(cb)
		that.expired[i] = nil
	}
	// a panicking callback leaves the rest of the batch in place, to run first next time
	for that.batch.Length() > 0 {
		that.batch.Remove().(iface.Callback)()
	}
	return nil
}

func (that *Eloop) Now() time.Time {
	return that.now()
}

// CallSoon runs cb on the loop goroutine during the next drain, after every
// callback scheduled before it.
func (that *Eloop) CallSoon(cb iface.Callback) error {
	if cb == nil {
		return errs.ErrNilCallback
	}
	if that.closed.Load() {
		return errs.ErrLoopClosed
	}
	that.ready.Enqueue(cb)
	return that.wake()
}

func (that *Eloop) CallLater(delay time.Duration, cb iface.Callback) error {
	return that.CallAt(that.now().Add(delay), cb)
}

// CallAt runs cb on the first drain at or after deadline. A deadline in the
// past fires on the next iteration.
func (that *Eloop) CallAt(deadline time.Time, cb iface.Callback) error {
	if cb == nil {
		return errs.ErrNilCallback
	}
	if that.closed.Load() {
		return errs.ErrLoopClosed
	}
	that.timers.Push(deadline, cb)
	return that.wake()
}

func (that *Eloop) wake() error {
	if !that.toWakeup.CompareAndSwap(0, 1) {
		return nil
	}
	that.wakeMu.RLock()
	defer that.wakeMu.RUnlock()
	if that.released {
		return errs.ErrLoopClosed
	}
	if err := sys.Trigger(that.wakeW); err != nil {
		fe := errs.NewFatalErr(errs.OpWake, err)
		that.failure.CompareAndSwap(nil, fe)
		that.toWakeup.Store(0)
		return that.fatal(fe)
	}
	return nil
}

func (that *Eloop) drainWake() {
	sys.DrainFd(that.wakeR, that.wakeBuf)
	that.toWakeup.Store(0)
}

// Close stops the loop and releases the poller and the wake channel. When the
// loop is running they are released by Start on its way out. Descriptors
// registered by callers are never closed.
func (that *Eloop) Close() error {
	if !that.closed.CompareAndSwap(false, true) {
		return nil
	}
	that.Stop()
	if !that.active.Load() {
		return that.release()
	}
	return nil
}

func (that *Eloop) release() (err error) {
	that.wakeMu.Lock()
	defer that.wakeMu.Unlock()
	if that.released {
		return nil
	}
	that.released = true

	that.assocMu.Lock()
	that.assocs = make(map[int]association)
	that.assocMu.Unlock()

	err = that.poller.Close()
	if e := sys.CloseFd(that.wakeR); e != nil && err == nil {
		err = e
	}
	if that.wakeW != that.wakeR {
		if e := sys.CloseFd(that.wakeW); e != nil && err == nil {
			err = e
		}
	}
	return
}
