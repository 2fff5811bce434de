package simulation

import (
	"fmt"
	"math"

	"github.com/sarchlab/mesibus/core"
	"github.com/sarchlab/mesibus/hooking"
)

// Run drives the global clock until every core has drained its trace and the
// last transaction has left the bus. Given identical traces and geometry the
// run is bit-identical from one invocation to the next.
func (s *Simulation) Run() {
	for {
		s.releaseBusIfDue()

		if s.finished() {
			break
		}

		s.tick()
	}

	s.updateProgress(true)
	s.InvokeHook(s, hooking.HookPosSimulationEnd, s.cycle)
}

// releaseBusIfDue frees the bus at the start of a tick, before any core is
// examined.
func (s *Simulation) releaseBusIfDue() {
	if !s.bus.Busy() {
		return
	}

	if s.cycle > s.bus.FreeCycle() {
		panic(fmt.Sprintf(
			"simulation: cycle %d ran past busy bus free cycle %d",
			s.cycle, s.bus.FreeCycle(),
		))
	}

	if s.cycle == s.bus.FreeCycle() {
		s.bus.Release(s.cycle)
	}
}

func (s *Simulation) finished() bool {
	if s.bus.Busy() {
		return false
	}

	for _, c := range s.cores {
		if !c.Done() {
			return false
		}
	}

	return s.cycle >= s.maxNextFreeCycle()
}

func (s *Simulation) maxNextFreeCycle() uint64 {
	max := uint64(0)
	for _, c := range s.cores {
		if c.NextFreeCycle() > max {
			max = c.NextFreeCycle()
		}
	}
	return max
}

// tick visits every ready core once in ascending id order, then advances the
// clock exactly once: one cycle if anything progressed, otherwise a jump to
// the next event so the scheduler never busy-waits.
func (s *Simulation) tick() {
	progressed := false
	var blocked []*core.Core

	for _, c := range s.cores {
		if !c.Ready(s.cycle) {
			continue
		}

		switch s.executeAccess(c) {
		case accessCompleted:
			progressed = true
		case accessBlocked:
			blocked = append(blocked, c)
		}
	}

	prev := s.cycle

	if progressed {
		s.cycle = prev + 1
	} else {
		s.cycle = s.nextEventCycle(prev)
	}

	// A core that attempted an access but lost the bus was idle for every
	// cycle until the clock moves again.
	for _, c := range blocked {
		c.IdleCycles += s.cycle - prev
	}

	s.updateProgress(false)
}

// nextEventCycle returns the earliest future cycle at which anything can
// happen: a blocked or busy core becoming free, or the bus draining.
func (s *Simulation) nextEventCycle(now uint64) uint64 {
	next := uint64(math.MaxUint64)

	for _, c := range s.cores {
		if c.Done() {
			continue
		}
		if c.NextFreeCycle() > now && c.NextFreeCycle() < next {
			next = c.NextFreeCycle()
		}
	}

	if s.bus.Busy() && s.bus.FreeCycle() < next {
		next = s.bus.FreeCycle()
	}

	if next == math.MaxUint64 {
		// Nothing outstanding but the trailing next-free cycles of the
		// cores that just finished.
		return s.maxNextFreeCycle()
	}

	return next
}
