package bitbucket

import "sync/atomic"

// atomicCounter is a monotonic int counter safe for concurrent increment
// from the errgroup-bounded fan-out in ResolveThreads.
type atomicCounter struct {
	n int64
}

func (c *atomicCounter) add(delta int64) {
	atomic.AddInt64(&c.n, delta)
}

func (c *atomicCounter) value() int {
	return int(atomic.LoadInt64(&c.n))
}
