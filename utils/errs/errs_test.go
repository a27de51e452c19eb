package errs

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestIsInterrupted(t *testing.T) {
	assert.True(t, IsInterrupted(unix.EINTR))
	assert.True(t, IsInterrupted(os.NewSyscallError("epoll_wait", unix.EINTR)))
	assert.True(t, IsInterrupted(errors.Wrap(os.NewSyscallError("epoll_wait", unix.EINTR), "poll")))
	assert.False(t, IsInterrupted(unix.EBADF))
	assert.False(t, IsInterrupted(nil))
}

func TestErrno(t *testing.T) {
	errno, ok := Errno(errors.Wrap(os.NewSyscallError("write", unix.EBADF), "wake"))
	require.True(t, ok)
	assert.Equal(t, unix.EBADF, errno)

	_, ok = Errno(ErrLoopClosed)
	assert.False(t, ok)
}

func TestFatalErr(t *testing.T) {
	fe := NewFatalErr("epoll_wait", os.NewSyscallError("epoll_wait", unix.EBADF))
	assert.Equal(t, int(unix.EBADF), fe.Code)
	assert.Equal(t, "fatal: epoll_wait: [errno 9] bad file descriptor", fe.Error())
	assert.True(t, errors.Is(fe, unix.EBADF))

	fe = NewFatalErr("wake", ErrPollerClosed)
	assert.Equal(t, 0, fe.Code)
	assert.Contains(t, fe.Error(), ErrPollerClosed.Error())
}
