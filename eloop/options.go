package eloop

type Options struct {
	LockOSThread bool            // pin the goroutine running Start to its OS thread
	PollSize     int             // initial size of the poll event buffer
	OnFatal      func(err error) // unrecoverable poll or wake failure, logs and panics when nil
}
