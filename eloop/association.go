package eloop

import (
	"github.com/pkg/errors"

	"github.com/moqsien/gkloop/iface"
	"github.com/moqsien/gkloop/utils/errs"
)

// association holds the callbacks of one registered descriptor. It is a value:
// a change always stores a new association.
type association struct {
	read  iface.Callback
	write iface.Callback
}

func (that association) interest() (i iface.Interest) {
	if that.read != nil {
		i |= iface.Read
	}
	if that.write != nil {
		i |= iface.Write
	}
	return
}

func (that association) with(dir iface.Interest, cb iface.Callback) association {
	switch dir {
	case iface.Read:
		that.read = cb
	case iface.Write:
		that.write = cb
	}
	return that
}

func (that association) get(dir iface.Interest) iface.Callback {
	if dir == iface.Read {
		return that.read
	}
	return that.write
}

// SetReader calls cb every time fd becomes readable, replacing a previous read callback.
func (that *Eloop) SetReader(fd int, cb iface.Callback) error {
	return that.setCallback(fd, iface.Read, cb)
}

// SetWriter calls cb every time fd becomes writable, replacing a previous write callback.
func (that *Eloop) SetWriter(fd int, cb iface.Callback) error {
	return that.setCallback(fd, iface.Write, cb)
}

func (that *Eloop) RemoveReader(fd int) error {
	return that.removeCallback(fd, iface.Read)
}

func (that *Eloop) RemoveWriter(fd int) error {
	return that.removeCallback(fd, iface.Write)
}

// Interest reports what the registry currently watches fd for.
func (that *Eloop) Interest(fd int) (iface.Interest, bool) {
	return that.poller.Lookup(fd)
}

// NumFds is the number of caller descriptors registered with the loop.
func (that *Eloop) NumFds() int {
	that.assocMu.Lock()
	defer that.assocMu.Unlock()
	if _, ok := that.assocs[that.wakeR]; ok {
		return len(that.assocs) - 1
	}
	return len(that.assocs)
}

func (that *Eloop) checkFd(fd int) error {
	switch {
	case fd < 0:
		return errs.ErrInvalidFd
	case fd == that.wakeR || fd == that.wakeW:
		return errors.Wrapf(errs.ErrUnsupportedOp, "fd %d is owned by the loop", fd)
	case that.closed.Load():
		return errs.ErrLoopClosed
	}
	return nil
}

func (that *Eloop) setCallback(fd int, dir iface.Interest, cb iface.Callback) error {
	if cb == nil {
		return errs.ErrNilCallback
	}
	if err := that.checkFd(fd); err != nil {
		return err
	}
	return that.upsert(fd, dir, cb)
}

func (that *Eloop) upsert(fd int, dir iface.Interest, cb iface.Callback) error {
	that.assocMu.Lock()
	defer that.assocMu.Unlock()
	next := that.assocs[fd].with(dir, cb)
	if err := that.poller.Register(fd, next.interest()); err != nil {
		return errors.Wrapf(err, "register fd %d for %s", fd, next.interest())
	}
	that.assocs[fd] = next
	return nil
}

func (that *Eloop) removeCallback(fd int, dir iface.Interest) error {
	if err := that.checkFd(fd); err != nil {
		return err
	}
	that.assocMu.Lock()
	defer that.assocMu.Unlock()
	old, ok := that.assocs[fd]
	if !ok {
		return nil
	}
	next := old.with(dir, nil)
	if next.interest() == 0 {
		// the registry forgets fd even when the kernel already dropped it
		delete(that.assocs, fd)
		return errors.Wrapf(that.poller.Unregister(fd), "unregister fd %d", fd)
	}
	if err := that.poller.Register(fd, next.interest()); err != nil {
		return errors.Wrapf(err, "register fd %d for %s", fd, next.interest())
	}
	that.assocs[fd] = next
	return nil
}

// callback looks up the current callback of fd for one direction.
func (that *Eloop) callback(fd int, dir iface.Interest) iface.Callback {
	that.assocMu.Lock()
	defer that.assocMu.Unlock()
	return that.assocs[fd].get(dir)
}
