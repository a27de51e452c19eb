//go:build linux || darwin

package sys

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/moqsien/gkloop/utils"
)

var (
	u       uint64 = 1
	trigger        = (*(*[8]byte)(unsafe.Pointer(&u)))[:]
)

func CloseFd(fd int) error {
	return unix.Close(fd)
}

func SetNonblock(fd int) error {
	return utils.SysError("setnonblock", unix.SetNonblock(fd, true))
}

func Write(fd int, p []byte) (n int, err error) {
	return unix.Write(fd, p)
}

func Read(fd int, p []byte) (n int, err error) {
	return unix.Read(fd, p)
}

// Trigger writes one wake unit to fd. A full channel is already readable, so
// EAGAIN is not an error.
func Trigger(fd int) error {
	for {
		_, err := unix.Write(fd, trigger)
		switch err {
		case nil, unix.EAGAIN:
			return nil
		case unix.EINTR:
			continue
		default:
			return utils.SysError("write", err)
		}
	}
}

// DrainFd reads fd until it would block.
func DrainFd(fd int, buf []byte) {
	for {
		n, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil || n <= 0 {
			return
		}
	}
}
