package simulation_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mesibus/hooking"
	"github.com/sarchlab/mesibus/mesi"
	"github.com/sarchlab/mesibus/simulation"
	"github.com/sarchlab/mesibus/trace"
)

type collectingHook struct {
	contexts []hooking.HookCtx
}

func (h *collectingHook) Func(ctx hooking.HookCtx) {
	h.contexts = append(h.contexts, ctx)
}

func (h *collectingHook) at(pos hooking.HookPos) []hooking.HookCtx {
	var matched []hooking.HookCtx
	for _, ctx := range h.contexts {
		if ctx.Pos == pos {
			matched = append(matched, ctx)
		}
	}
	return matched
}

func read(addr uint32) trace.Request {
	return trace.Request{IsWrite: false, Address: addr}
}

func write(addr uint32) trace.Request {
	return trace.Request{IsWrite: true, Address: addr}
}

func lineState(s *simulation.Simulation, coreID int, addr uint32) mesi.State {
	c := s.Core(coreID).Cache
	setIndex, tag := c.Decode(addr)

	line := c.Lookup(setIndex, tag)
	if line == nil {
		return mesi.Invalid
	}
	return line.State
}

var _ = Describe("Simulation", func() {
	var s *simulation.Simulation

	BeforeEach(func() {
		s = simulation.MakeBuilder().
			WithSetBits(2).
			WithWayAssociativity(2).
			WithBlockBits(5).
			Build()
	})

	It("should charge cold misses the memory penalty", func() {
		s.SetTrace(0, []trace.Request{read(0x0), read(0x20), read(0x40)})

		s.Run()

		stats := s.Core(0).Cache.Stats
		Expect(stats.ReadMisses).To(Equal(uint64(3)))
		Expect(stats.ReadHits).To(Equal(uint64(0)))
		Expect(stats.TrafficBytes).To(Equal(uint64(96)))
		Expect(s.Bus().Stats.TrafficBytes).To(Equal(uint64(96)))
		Expect(s.Bus().Stats.Invalidations).To(Equal(uint64(0)))
		Expect(s.Cycle()).To(Equal(uint64(303)))
		Expect(s.Core(0).ExecCycles).To(Equal(uint64(303)))
		Expect(s.Core(0).IdleCycles).To(Equal(uint64(0)))

		for _, addr := range []uint32{0x0, 0x20, 0x40} {
			Expect(lineState(s, 0, addr)).To(Equal(mesi.Exclusive))
		}
	})

	It("should serve hits in one cycle", func() {
		s.SetTrace(0, []trace.Request{read(0x0), read(0x0), read(0x0)})

		s.Run()

		stats := s.Core(0).Cache.Stats
		Expect(stats.ReadMisses).To(Equal(uint64(1)))
		Expect(stats.ReadHits).To(Equal(uint64(2)))
		Expect(s.Cycle()).To(Equal(uint64(103)))
	})

	It("should share a block read by two cores", func() {
		s.SetTrace(0, []trace.Request{read(0x0)})
		s.SetTrace(1, []trace.Request{read(0x0)})

		s.Run()

		Expect(lineState(s, 0, 0x0)).To(Equal(mesi.Shared))
		Expect(lineState(s, 1, 0x0)).To(Equal(mesi.Shared))
		Expect(s.Bus().Stats.Invalidations).To(Equal(uint64(0)))
		Expect(s.Bus().Stats.TrafficBytes).To(Equal(uint64(64)))
		Expect(s.Bus().Stats.Transactions).To(Equal(uint64(2)))

		// The second reader waits out the first fill, then pays only the
		// cache-to-cache transfer.
		Expect(s.Core(1).IdleCycles).To(Equal(uint64(101)))
		Expect(s.Core(1).ExecCycles).To(Equal(uint64(17)))
	})

	It("should invalidate a peer copy on a write miss", func() {
		s.SetTrace(0, []trace.Request{read(0x0)})
		s.SetTrace(1, []trace.Request{write(0x0)})

		s.Run()

		Expect(lineState(s, 0, 0x0)).To(Equal(mesi.Invalid))
		Expect(lineState(s, 1, 0x0)).To(Equal(mesi.Modified))
		Expect(s.Bus().Stats.Invalidations).To(Equal(uint64(1)))
		Expect(s.Core(1).Cache.Stats.WriteMisses).To(Equal(uint64(1)))
		Expect(s.Core(0).Cache.Stats.Invalidations).To(Equal(uint64(1)))
	})

	It("should upgrade a shared line without moving data", func() {
		s.SetTrace(0, []trace.Request{read(0x0)})
		s.SetTrace(1, []trace.Request{read(0x0), write(0x0)})

		s.Run()

		Expect(lineState(s, 0, 0x0)).To(Equal(mesi.Invalid))
		Expect(lineState(s, 1, 0x0)).To(Equal(mesi.Modified))
		Expect(s.Core(1).Cache.Stats.WriteHits).To(Equal(uint64(1)))
		Expect(s.Bus().Stats.Invalidations).To(Equal(uint64(1)))

		// Two fills moved data; the upgrade itself moved none.
		Expect(s.Bus().Stats.TrafficBytes).To(Equal(uint64(64)))
		Expect(s.Bus().Stats.Transactions).To(Equal(uint64(3)))
	})

	It("should write back a dirty victim on a conflict miss", func() {
		s = simulation.MakeBuilder().
			WithSetBits(1).
			WithWayAssociativity(1).
			WithBlockBits(5).
			Build()
		s.SetTrace(0, []trace.Request{write(0x0), write(0x40)})

		s.Run()

		stats := s.Core(0).Cache.Stats
		Expect(stats.WriteMisses).To(Equal(uint64(2)))
		Expect(stats.Evictions).To(Equal(uint64(1)))
		Expect(stats.WriteBacks).To(Equal(uint64(1)))
		Expect(s.Bus().Stats.TrafficBytes).To(Equal(uint64(96)))
		Expect(s.Cycle()).To(Equal(uint64(302)))
	})

	It("should stall the loser of bus contention", func() {
		s.SetTrace(0, []trace.Request{read(0x0)})
		s.SetTrace(1, []trace.Request{read(0x100)})

		s.Run()

		Expect(s.Core(0).NextFreeCycle()).To(Equal(uint64(101)))
		Expect(s.Core(1).NextFreeCycle()).To(Equal(uint64(202)))
		Expect(s.Core(1).IdleCycles).To(Equal(uint64(101)))
		Expect(s.Bus().Stats.Transactions).To(Equal(uint64(2)))
		Expect(s.Bus().Stats.TrafficBytes).To(Equal(uint64(64)))
	})

	It("should not emit traffic when re-reading a resident line", func() {
		s.SetTrace(0, []trace.Request{read(0x0), read(0x0)})

		s.Run()

		Expect(lineState(s, 0, 0x0)).To(Equal(mesi.Exclusive))
		Expect(s.Bus().Stats.TrafficBytes).To(Equal(uint64(32)))
		Expect(s.Bus().Stats.Transactions).To(Equal(uint64(1)))
	})

	It("should not emit traffic when rewriting a modified line", func() {
		s.SetTrace(0, []trace.Request{write(0x0), write(0x0)})

		s.Run()

		Expect(lineState(s, 0, 0x0)).To(Equal(mesi.Modified))
		Expect(s.Bus().Stats.TrafficBytes).To(Equal(uint64(32)))
		Expect(s.Bus().Stats.Invalidations).To(Equal(uint64(0)))
	})

	It("should fetch a dirty block from its peer after a write-back", func() {
		s.SetTrace(0, []trace.Request{write(0x0)})
		s.SetTrace(1, []trace.Request{read(0x0)})

		s.Run()

		Expect(lineState(s, 0, 0x0)).To(Equal(mesi.Shared))
		Expect(lineState(s, 1, 0x0)).To(Equal(mesi.Shared))

		// Fill, peer write-back, and cache-to-cache transfer each move one
		// block.
		Expect(s.Bus().Stats.TrafficBytes).To(Equal(uint64(96)))

		// The reader pays the peer write-back plus the transfer.
		Expect(s.Core(1).ExecCycles).To(Equal(uint64(1 + 100 + 16)))
	})

	It("should account every access exactly once", func() {
		s.SetTrace(0, []trace.Request{
			read(0x0), write(0x0), read(0x20), read(0x0), write(0x40),
		})
		s.SetTrace(1, []trace.Request{read(0x0), write(0x20)})

		s.Run()

		for _, id := range []int{0, 1} {
			c := s.Core(id)
			stats := c.Cache.Stats
			total := stats.ReadHits + stats.ReadMisses +
				stats.WriteHits + stats.WriteMisses
			Expect(total).To(Equal(uint64(len(c.Trace))), "core %d", id)
			Expect(stats.Accesses).To(Equal(uint64(len(c.Trace))), "core %d", id)
		}
	})

	It("should count evictions as misses minus cold fills", func() {
		s = simulation.MakeBuilder().
			WithSetBits(0).
			WithWayAssociativity(2).
			WithBlockBits(5).
			Build()
		s.SetTrace(0, []trace.Request{
			read(0x0), read(0x20), read(0x40), read(0x0),
		})

		s.Run()

		stats := s.Core(0).Cache.Stats
		coldFills := uint64(2)
		Expect(stats.ReadMisses).To(Equal(uint64(4)))
		Expect(stats.Evictions).To(Equal(stats.Misses() - coldFills))
	})

	It("should keep LRU order across all ways of a fully associative cache", func() {
		s = simulation.MakeBuilder().
			WithSetBits(0).
			WithWayAssociativity(2).
			WithBlockBits(5).
			Build()
		s.SetTrace(0, []trace.Request{
			read(0x0), read(0x20), read(0x0), read(0x40),
		})

		s.Run()

		// 0x0 was touched after 0x20 filled, so 0x20 was the victim.
		Expect(lineState(s, 0, 0x0)).To(Equal(mesi.Exclusive))
		Expect(lineState(s, 0, 0x40)).To(Equal(mesi.Exclusive))
		Expect(lineState(s, 0, 0x20)).To(Equal(mesi.Invalid))
	})

	It("should cost two cycles to transfer a word-sized block", func() {
		s = simulation.MakeBuilder().
			WithSetBits(2).
			WithWayAssociativity(2).
			WithBlockBits(2).
			Build()
		s.SetTrace(0, []trace.Request{read(0x0)})
		s.SetTrace(1, []trace.Request{read(0x0)})

		s.Run()

		Expect(s.Core(1).ExecCycles).To(Equal(uint64(1 + 2)))
		Expect(s.Bus().Stats.TrafficBytes).To(Equal(uint64(8)))
	})

	It("should be deterministic run to run", func() {
		traces := [][]trace.Request{
			{read(0x0), write(0x20), read(0x40), write(0x0)},
			{write(0x0), read(0x20)},
			{read(0x0), read(0x0), write(0x40)},
			{write(0x20)},
		}

		runOnce := func() *simulation.Simulation {
			sim := simulation.MakeBuilder().
				WithSetBits(2).
				WithWayAssociativity(2).
				WithBlockBits(5).
				Build()
			for i, tr := range traces {
				sim.SetTrace(i, tr)
			}
			sim.Run()
			return sim
		}

		a := runOnce()
		b := runOnce()

		Expect(a.Cycle()).To(Equal(b.Cycle()))
		Expect(a.Bus().Stats).To(Equal(b.Bus().Stats))
		for i := 0; i < simulation.NumCores; i++ {
			Expect(a.Core(i).Cache.Stats).To(Equal(b.Core(i).Cache.Stats))
			Expect(a.Core(i).ExecCycles).To(Equal(b.Core(i).ExecCycles))
			Expect(a.Core(i).IdleCycles).To(Equal(b.Core(i).IdleCycles))
		}
	})

	It("should fire hooks for every access, transaction, and the end", func() {
		hook := &collectingHook{}
		s.AcceptHook(hook)

		s.SetTrace(0, []trace.Request{read(0x0), read(0x0)})
		s.SetTrace(1, []trace.Request{write(0x0)})

		s.Run()

		completions := hook.at(hooking.HookPosAccessCompleted)
		Expect(completions).To(HaveLen(3))

		first, ok := completions[0].Item.(simulation.AccessRecord)
		Expect(ok).To(BeTrue())
		Expect(first.CoreID).To(Equal(0))
		Expect(first.Hit).To(BeFalse())
		Expect(first.Cost).To(Equal(uint64(101)))

		hits := 0
		for _, ctx := range completions {
			if ctx.Item.(simulation.AccessRecord).Hit {
				hits++
			}
		}
		Expect(uint64(hits)).To(Equal(
			s.Core(0).Cache.Stats.ReadHits + s.Core(1).Cache.Stats.WriteHits))

		transactions := hook.at(hooking.HookPosBusTransaction)
		Expect(uint64(len(transactions))).To(Equal(s.Bus().Stats.Transactions))

		ends := hook.at(hooking.HookPosSimulationEnd)
		Expect(ends).To(HaveLen(1))
		Expect(ends[0].Item).To(Equal(s.Cycle()))
	})

	It("should report a finished progress snapshot after the run", func() {
		s.SetTrace(0, []trace.Request{read(0x0), read(0x20)})

		s.Run()

		p := s.Progress()
		Expect(p.Done).To(BeTrue())
		Expect(p.Cores).To(HaveLen(simulation.NumCores))
		Expect(p.Cores[0].Executed).To(Equal(2))
		Expect(p.Cores[0].Total).To(Equal(2))
	})
})
