package utils

import (
	"os"
	"time"
)

func SysError(name string, err error) error {
	return os.NewSyscallError(name, err)
}

// DurationToMsec converts a poll timeout to whole milliseconds, rounding up so that
// a poll never returns before the deadline it waits for. Negative means infinite.
func DurationToMsec(d time.Duration) int {
	if d < 0 {
		return -1
	}
	msec := d / time.Millisecond
	if d%time.Millisecond != 0 {
		msec++
	}
	return int(msec)
}
