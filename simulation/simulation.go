// Package simulation couples the cores, their caches, and the shared bus
// into a cycle-driven engine. The simulation owns every component and is the
// sole mutator over simulated time; components reference each other by id.
package simulation

import (
	"sync"

	"github.com/sarchlab/mesibus/bus"
	"github.com/sarchlab/mesibus/cache"
	"github.com/sarchlab/mesibus/core"
	"github.com/sarchlab/mesibus/hooking"
	"github.com/sarchlab/mesibus/trace"
)

// NumCores is the number of processor cores on the bus.
const NumCores = 4

// HitCost is the cost of a cache hit in cycles.
const HitCost = 1

// A Simulation drives four cores with private L1 caches over a single
// snooping bus until every trace is exhausted.
type Simulation struct {
	hooking.HookableBase

	cores []*core.Core
	bus   *bus.Bus

	cycle uint64

	progressMu sync.RWMutex
	progress   Progress
}

// Builder can build simulations.
type Builder struct {
	setBits   int
	numWays   int
	blockBits int
}

// MakeBuilder creates a builder with the default 4KB 2-way geometry.
func MakeBuilder() Builder {
	return Builder{
		setBits:   6,
		numWays:   2,
		blockBits: 5,
	}
}

// WithSetBits sets the number of set-index bits of every L1 cache.
func (b Builder) WithSetBits(s int) Builder {
	b.setBits = s
	return b
}

// WithWayAssociativity sets the associativity of every L1 cache.
func (b Builder) WithWayAssociativity(e int) Builder {
	b.numWays = e
	return b
}

// WithBlockBits sets the block-offset bits of every L1 cache.
func (b Builder) WithBlockBits(blockBits int) Builder {
	b.blockBits = blockBits
	return b
}

// Build builds a simulation with empty traces.
func (b Builder) Build() *Simulation {
	s := &Simulation{
		bus: bus.New(),
	}

	for i := 0; i < NumCores; i++ {
		c := cache.MakeBuilder().
			WithSetBits(b.setBits).
			WithWayAssociativity(b.numWays).
			WithBlockBits(b.blockBits).
			Build()

		s.cores = append(s.cores, core.New(i, c))
	}

	s.updateProgress(false)

	return s
}

// Core returns the core with the given id.
func (s *Simulation) Core(id int) *core.Core {
	return s.cores[id]
}

// Bus returns the shared bus.
func (s *Simulation) Bus() *bus.Bus {
	return s.bus
}

// Cycle returns the current global cycle.
func (s *Simulation) Cycle() uint64 {
	return s.cycle
}

// LoadTraces loads <base>_proc0.trace through <base>_proc3.trace. Any
// missing file aborts the load.
func (s *Simulation) LoadTraces(base string) error {
	for _, c := range s.cores {
		reqs, err := trace.LoadFile(trace.FileName(base, c.ID))
		if err != nil {
			return err
		}
		c.LoadTrace(reqs)
	}

	s.updateProgress(false)

	return nil
}

// SetTrace hands one core a reference sequence directly.
func (s *Simulation) SetTrace(coreID int, reqs []trace.Request) {
	s.cores[coreID].LoadTrace(reqs)
	s.updateProgress(false)
}
