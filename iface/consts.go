package iface

const (
	RoundRobinLB Balancer = 0
	LeastConnLB  Balancer = 1
)

const (
	Read      Interest = 1 << iota // descriptor is readable, or hung up
	Write                          // descriptor is writable
	ReadWrite = Read | Write
)

const (
	MaxPollSize  int = 1024
	MinPollSize  int = 32
	InitPollSize int = 128
)
