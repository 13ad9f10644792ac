package server

import (
	"runtime"
	"time"

	"github.com/matzehuels/graphwriter/pkg/queue"
)

// DefaultAddr is the loopback address the service listens on.
const DefaultAddr = "127.0.0.1:14446"

// DefaultReadTimeout bounds how long a connection may take to send its request.
const DefaultReadTimeout = 30 * time.Second

// DefaultReserved is the number of CPUs left free for the rest of the host.
const DefaultReserved = 2

// Config controls the acceptor, queue, and worker pool.
type Config struct {
	// Addr is the loopback host:port to listen on.
	Addr string
	// ReadTimeout is the per-connection decode deadline. Zero disables it.
	ReadTimeout time.Duration
	// QueueCapacity is rounded up to a power of two. Zero means 1024.
	QueueCapacity int
	// Workers fixes the pool size. Zero derives it from the CPU count.
	Workers int
	// Reserved is subtracted from the CPU count when Workers is zero.
	Reserved int
}

// DefaultConfig returns the service defaults.
func DefaultConfig() Config {
	return Config{
		Addr:          DefaultAddr,
		ReadTimeout:   DefaultReadTimeout,
		QueueCapacity: queue.DefaultCapacity,
		Reserved:      DefaultReserved,
	}
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = queue.DefaultCapacity
	}
	if c.Reserved < 0 {
		c.Reserved = 0
	}
	return c
}

// PoolSize returns the number of workers for cfg on this host.
func (c Config) PoolSize() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return PoolSize(runtime.NumCPU(), c.Reserved)
}

// PoolSize returns cpus minus reserved, never less than one.
func PoolSize(cpus, reserved int) int {
	if n := cpus - reserved; n > 1 {
		return n
	}
	return 1
}
