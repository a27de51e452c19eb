//go:build linux

package sys

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/moqsien/gkloop/iface"
	"github.com/moqsien/gkloop/utils"
)

type Event = unix.EpollEvent

var ePool = &sync.Pool{New: func() any {
	return &unix.EpollEvent{}
}}

func eGet() *unix.EpollEvent {
	return ePool.Get().(*unix.EpollEvent)
}

func ePut(event *unix.EpollEvent) {
	ePool.Put(event)
}

func toEpoll(interest iface.Interest) (evs uint32) {
	if interest&iface.Read != 0 {
		evs |= unix.EPOLLIN | unix.EPOLLPRI
	}
	if interest&iface.Write != 0 {
		evs |= unix.EPOLLOUT
	}
	return
}

func CreatePoll() (int, error) {
	pollFd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	return pollFd, utils.SysError("epoll_create1", err)
}

// PollCtl moves fd from the old interest set to the new one.
func PollCtl(pollFd, fd int, old, interest iface.Interest) error {
	var (
		event     *unix.EpollEvent
		ctlAction int
		eSysName  string
	)
	switch {
	case interest == 0:
		ctlAction, eSysName = unix.EPOLL_CTL_DEL, "epoll_ctl_del"
	case old == 0:
		ctlAction, eSysName = unix.EPOLL_CTL_ADD, "epoll_ctl_add"
	default:
		ctlAction, eSysName = unix.EPOLL_CTL_MOD, "epoll_ctl_mod"
	}
	if ctlAction != unix.EPOLL_CTL_DEL {
		event = eGet()
		defer ePut(event)
		event.Fd, event.Events = int32(fd), toEpoll(interest)
	}
	return utils.SysError(eSysName, unix.EpollCtl(pollFd, ctlAction, fd, event))
}

func PollWait(pollFd int, events []Event, msec int) (int, error) {
	n, err := unix.EpollWait(pollFd, events, msec)
	if err != nil {
		return 0, utils.SysError("epoll_wait", err)
	}
	return n, nil
}

// DecodeEvent reports errors and hang-ups as both readable and writable so
// that whichever callback is registered observes them.
func DecodeEvent(ev *Event) (fd int, interest iface.Interest) {
	fd = int(ev.Fd)
	if ev.Events&(unix.EPOLLIN|unix.EPOLLPRI|unix.EPOLLRDHUP) != 0 {
		interest |= iface.Read
	}
	if ev.Events&unix.EPOLLOUT != 0 {
		interest |= iface.Write
	}
	if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		interest |= iface.ReadWrite
	}
	return
}

// CreateWakeFd returns an eventfd as both the read and the write end.
func CreateWakeFd() (r, w int, err error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return -1, -1, utils.SysError("eventfd", err)
	}
	return fd, fd, nil
}

// Pipe returns a connected, non-blocking pair of descriptors.
func Pipe() (r, w int, err error) {
	var p [2]int
	if err = unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return -1, -1, utils.SysError("pipe2", err)
	}
	return p[0], p[1], nil
}
