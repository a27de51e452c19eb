package iface

import "strings"

type Balancer int

// Interest is the set of readiness directions watched for a descriptor.
type Interest uint8

func (that Interest) Has(i Interest) bool {
	return that&i == i
}

func (that Interest) String() string {
	if that == 0 {
		return "none"
	}
	var parts []string
	if that&Read != 0 {
		parts = append(parts, "read")
	}
	if that&Write != 0 {
		parts = append(parts, "write")
	}
	return strings.Join(parts, "|")
}

// Callback is a unit of work run on the loop goroutine.
type Callback func()

// PollEvent is one descriptor reported ready by IPoller.Poll.
type PollEvent struct {
	Fd     int
	Events Interest
}

type BalancerIterFunc func(key int, val IELoop) bool

type Options struct {
	NumOfLoops   int      // number of loops hosted by an engine, defaults to runtime.NumCPU()
	LoadBalancer Balancer // how an engine picks a loop for new work
	LockOSThread bool     // pin every loop to its own OS thread
	PollSize     int      // initial poll event buffer size of every loop
}
