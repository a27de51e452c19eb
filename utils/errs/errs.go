package errs

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var (
	ErrLoopClosed     = errors.New("event loop is closed")
	ErrLoopRunning    = errors.New("event loop is already running")
	ErrInvalidFd      = errors.New("invalid file descriptor")
	ErrNilCallback    = errors.New("callback must not be nil")
	ErrPollerClosed   = errors.New("poller is closed")
	ErrEngineShutdown = errors.New("engine is going to be shutdown")
	ErrEngineRunning  = errors.New("engine is already serving")
	ErrUnsupportedOp  = errors.New("unsupported operation")
)

// IsInterrupted reports whether err is, or wraps, an interrupted system call.
func IsInterrupted(err error) bool {
	return errors.Is(err, unix.EINTR)
}

// Errno extracts the OS error code carried by err.
func Errno(err error) (unix.Errno, bool) {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

// Operations reported in FatalErr.Op.
const (
	OpPoll = "poll"
	OpWake = "wake"
)

// FatalErr describes a failure after which a loop can no longer guarantee
// correctness or liveness.
type FatalErr struct {
	Op   string
	Code int
	Msg  string
	err  error
}

func NewFatalErr(op string, err error) *FatalErr {
	fe := &FatalErr{Op: op, Msg: "unknown error", err: err}
	if err != nil {
		fe.Msg = err.Error()
	}
	if errno, ok := Errno(err); ok {
		fe.Code = int(errno)
		fe.Msg = errno.Error()
	}
	return fe
}

func (that *FatalErr) Error() string {
	return fmt.Sprintf("fatal: %s: [errno %d] %s", that.Op, that.Code, that.Msg)
}

func (that *FatalErr) Unwrap() error {
	return that.err
}
