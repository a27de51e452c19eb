//go:build darwin

package sys

import (
	"golang.org/x/sys/unix"

	"github.com/moqsien/gkloop/iface"
	"github.com/moqsien/gkloop/utils"
)

type Event = unix.Kevent_t

const (
	kSysAdd  = "kevent_add"
	kSysWait = "kevent_wait"
)

func CreatePoll() (int, error) {
	pollFd, err := unix.Kqueue()
	if err != nil {
		return -1, utils.SysError("kqueue", err)
	}
	unix.CloseOnExec(pollFd)
	return pollFd, nil
}

func PollCtl(pollFd, fd int, old, interest iface.Interest) error {
	changes := make([]unix.Kevent_t, 0, 2)
	change := func(dir iface.Interest, filter int) {
		var ev unix.Kevent_t
		switch {
		case interest&dir != 0 && old&dir == 0:
			unix.SetKevent(&ev, fd, filter, unix.EV_ADD)
		case interest&dir == 0 && old&dir != 0:
			unix.SetKevent(&ev, fd, filter, unix.EV_DELETE)
		default:
			return
		}
		changes = append(changes, ev)
	}
	change(iface.Read, unix.EVFILT_READ)
	change(iface.Write, unix.EVFILT_WRITE)
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(pollFd, changes, nil, nil)
	return utils.SysError(kSysAdd, err)
}

func PollWait(pollFd int, events []Event, msec int) (int, error) {
	var tsp *unix.Timespec
	if msec >= 0 {
		ts := unix.NsecToTimespec(int64(msec) * 1e6)
		tsp = &ts
	}
	n, err := unix.Kevent(pollFd, nil, events, tsp)
	if err != nil {
		return 0, utils.SysError(kSysWait, err)
	}
	return n, nil
}

func DecodeEvent(ev *Event) (fd int, interest iface.Interest) {
	fd = int(ev.Ident)
	switch ev.Filter {
	case unix.EVFILT_READ:
		interest = iface.Read
	case unix.EVFILT_WRITE:
		interest = iface.Write
	}
	if ev.Flags&(unix.EV_EOF|unix.EV_ERROR) != 0 {
		interest |= iface.ReadWrite
	}
	return
}

func CreateWakeFd() (r, w int, err error) {
	return Pipe()
}

func Pipe() (r, w int, err error) {
	var p [2]int
	if err = unix.Pipe(p[:]); err != nil {
		return -1, -1, utils.SysError("pipe", err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err = unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return -1, -1, utils.SysError("setnonblock", err)
		}
	}
	return p[0], p[1], nil
}
