/*
Engine hosts a group of independent event loops, each running on its own worker
of an ants pool, and picks one of them for new work through a balancer.
*/
package engine

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/moqsien/processes/logger"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"

	"github.com/moqsien/gkloop/balancer"
	"github.com/moqsien/gkloop/eloop"
	"github.com/moqsien/gkloop/iface"
	"github.com/moqsien/gkloop/utils/errs"
)

type Engine struct {
	Balancer  iface.IBalancer // picks a loop for new work
	Loops     []*eloop.Eloop  // hosted loops, Index matches the position
	Pool      *ants.Pool      // one worker per loop
	IsClosing int32
	serving   int32
	wg        sync.WaitGroup // loops that have not returned from Start
	errMu     sync.Mutex
	err       error // first error returned by a loop
	once      sync.Once
}

func New(opts *iface.Options) (*Engine, error) {
	if opts == nil {
		opts = &iface.Options{}
	}
	num := opts.NumOfLoops
	if num <= 0 {
		num = runtime.NumCPU()
	}
	pool, err := ants.NewPool(num, ants.WithPanicHandler(func(p interface{}) {
		logger.Errorf("event-loop panics: %v", p)
	}))
	if err != nil {
		return nil, errors.Wrap(err, "create loop pool")
	}

	that := &Engine{
		Balancer: balancer.New(opts.LoadBalancer),
		Pool:     pool,
	}
	for i := 0; i < num; i++ {
		loop, err := eloop.New(&eloop.Options{
			LockOSThread: opts.LockOSThread,
			PollSize:     opts.PollSize,
			OnFatal:      that.onFatal(i),
		})
		if err != nil {
			_ = that.Close()
			return nil, errors.Wrapf(err, "create event-loop #%d", i)
		}
		loop.Index = i
		that.Loops = append(that.Loops, loop)
		that.Balancer.Register(loop)
	}
	return that, nil
}

// onFatal logs a poll failure instead of aborting, so that the loop returns
// from Start and the error surfaces through Wait or Close. A loop whose wake
// channel failed cannot be stopped any more, so that one still aborts.
func (that *Engine) onFatal(index int) func(err error) {
	return func(err error) {
		var fe *errs.FatalErr
		if errors.As(err, &fe) && fe.Op == errs.OpWake {
			eloop.Abort(err)
		}
		logger.Errorf("error occurs in event-loop #%d: %v", index, err)
	}
}

// Serve starts every loop and returns once all of them are running. When a loop
// cannot be started, or exits early, the loops already started are stopped and
// Serve may be called again.
func (that *Engine) Serve() error {
	if atomic.LoadInt32(&that.IsClosing) == 1 {
		return errs.ErrEngineShutdown
	}
	if !atomic.CompareAndSwapInt32(&that.serving, 0, 1) {
		return errs.ErrEngineRunning
	}
	for _, loop := range that.Loops {
		loop := loop
		started, exited := make(chan struct{}), make(chan struct{})
		if err := loop.CallSoon(func() { close(started) }); err != nil {
			return that.undoServe(errors.Wrapf(err, "start event-loop #%d", loop.Index))
		}
		that.wg.Add(1)
		err := that.Pool.Submit(func() {
			defer that.wg.Done()
			defer close(exited)
			if err := loop.Start(); err != nil {
				logger.Warningf("event-loop #%d exits with error: %v", loop.Index, err)
				that.setErr(err)
			}
		})
		if err != nil {
			that.wg.Done()
			return that.undoServe(errors.Wrapf(err, "submit event-loop #%d", loop.Index))
		}
		select {
		case <-started:
		case <-exited:
			return that.undoServe(that.firstErr())
		}
	}
	return nil
}

func (that *Engine) undoServe(err error) error {
	if e := that.Stop(); e != nil && err == nil {
		err = e
	}
	return err
}

// Next picks the loop that should take new work.
func (that *Engine) Next() iface.IELoop {
	return that.Balancer.Next()
}

// NumFds is the number of descriptors watched by all loops together.
func (that *Engine) NumFds() (n int) {
	that.Balancer.Iterator(func(_ int, loop iface.IELoop) bool {
		n += loop.NumFds()
		return true
	})
	return
}

// NumLoops is the number of hosted loops.
func (that *Engine) NumLoops() int {
	return that.Balancer.Len()
}

// Wait blocks until every loop has returned from Start.
func (that *Engine) Wait() error {
	that.wg.Wait()
	return that.firstErr()
}

// Stop asks every loop to return from Start. The loops stay usable and can be
// served again.
func (that *Engine) Stop() error {
	that.Balancer.Iterator(func(_ int, loop iface.IELoop) bool {
		loop.Stop()
		return true
	})
	err := that.Wait()
	atomic.StoreInt32(&that.serving, 0)
	return err
}

// Close stops and releases every loop, then the pool. It returns the first error
// met by a loop, while running or while closing.
func (that *Engine) Close() (err error) {
	that.once.Do(func() {
		atomic.StoreInt32(&that.IsClosing, 1)
		for _, loop := range that.Loops {
			if e := loop.Close(); e != nil {
				logger.Warningf("error occurs when closing event-loop #%d: %v", loop.Index, e)
				that.setErr(e)
			}
		}
		that.wg.Wait()
		that.Pool.Release()
		err = that.firstErr()
	})
	return
}

func (that *Engine) setErr(err error) {
	that.errMu.Lock()
	if that.err == nil {
		that.err = err
	}
	that.errMu.Unlock()
}

func (that *Engine) firstErr() error {
	that.errMu.Lock()
	defer that.errMu.Unlock()
	return that.err
}
