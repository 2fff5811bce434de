// Package core models one processor core: its trace cursor, the cycle at
// which it next becomes free, and its execution counters.
package core

import (
	"fmt"

	"github.com/sarchlab/mesibus/cache"
	"github.com/sarchlab/mesibus/trace"
)

// A Core walks its memory reference trace in program order, one access at a
// time.
type Core struct {
	ID    int
	Cache *cache.Cache

	Trace   []trace.Request
	InstPtr int

	nextFreeCycle uint64

	ReadCount  uint64
	WriteCount uint64
	ExecCycles uint64
	IdleCycles uint64
}

// New creates a core owning the given cache.
func New(id int, c *cache.Cache) *Core {
	return &Core{ID: id, Cache: c}
}

// LoadTrace hands the core its reference sequence and pre-counts the read
// and write instructions.
func (c *Core) LoadTrace(reqs []trace.Request) {
	c.Trace = reqs
	c.InstPtr = 0
	c.ReadCount = 0
	c.WriteCount = 0

	for _, r := range reqs {
		if r.IsWrite {
			c.WriteCount++
		} else {
			c.ReadCount++
		}
	}
}

// Done returns true once the whole trace has been consumed.
func (c *Core) Done() bool {
	return c.InstPtr >= len(c.Trace)
}

// Ready returns true if the core can attempt an access at the given cycle.
func (c *Core) Ready(cycle uint64) bool {
	return !c.Done() && c.nextFreeCycle <= cycle
}

// NextAccess returns the access the core will attempt next. It panics if
// the trace is exhausted.
func (c *Core) NextAccess() trace.Request {
	if c.Done() {
		panic(fmt.Sprintf("core %d: no access left in trace", c.ID))
	}
	return c.Trace[c.InstPtr]
}

// NextFreeCycle returns the cycle at which the core becomes free.
func (c *Core) NextFreeCycle() uint64 {
	return c.nextFreeCycle
}

// BusyUntil blocks the core until the given cycle. The next-free cycle of a
// core never moves backwards.
func (c *Core) BusyUntil(cycle uint64) {
	if cycle < c.nextFreeCycle {
		panic(fmt.Sprintf(
			"core %d: next free cycle moving backwards, %d -> %d",
			c.ID, c.nextFreeCycle, cycle,
		))
	}
	c.nextFreeCycle = cycle
}

// Consume advances the instruction pointer past the current access.
func (c *Core) Consume() {
	if c.Done() {
		panic(fmt.Sprintf("core %d: consuming past end of trace", c.ID))
	}
	c.InstPtr++
}
