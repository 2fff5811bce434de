package simulation

import (
	"github.com/sarchlab/mesibus/bus"
	"github.com/sarchlab/mesibus/cache"
	"github.com/sarchlab/mesibus/core"
	"github.com/sarchlab/mesibus/hooking"
	"github.com/sarchlab/mesibus/mesi"
	"github.com/sarchlab/mesibus/trace"
)

type accessOutcome int

const (
	// accessCompleted means the access was consumed and the core advanced.
	accessCompleted accessOutcome = iota

	// accessBlocked means the access needed the bus while it was busy; the
	// instruction pointer did not move.
	accessBlocked
)

// An AccessRecord describes one consumed trace access. It is the item of
// access-completed hooks.
type AccessRecord struct {
	CoreID  int
	IsWrite bool
	Hit     bool
	Address uint32
	Cycle   uint64
	Cost    uint64
}

// executeAccess presents the core's next access to its cache and carries the
// transaction through: the requester's fill, the peers' snoop transitions,
// and the bus occupancy all happen here, atomically in simulated time.
func (s *Simulation) executeAccess(c *core.Core) accessOutcome {
	req := c.NextAccess()
	setIndex, tag := c.Cache.Decode(req.Address)

	line := c.Cache.Lookup(setIndex, tag)
	if line != nil {
		return s.executeHit(c, req, line)
	}

	return s.executeMiss(c, req, setIndex, tag)
}

func (s *Simulation) executeHit(
	c *core.Core,
	req trace.Request,
	line *cache.Line,
) accessOutcome {
	next, op := mesi.OnHit(line.State, req.IsWrite)

	if op == mesi.BusUpgr {
		if s.bus.Busy() {
			return accessBlocked
		}

		s.snoopPeers(c.ID, req.Address, mesi.BusUpgr)
		s.bus.Acquire(c.ID, s.cycle, HitCost)

		s.InvokeHook(s, hooking.HookPosBusTransaction, bus.Transaction{
			Op:      mesi.BusUpgr,
			CoreID:  c.ID,
			Address: req.Address,
			Cycle:   s.cycle,
			Cost:    HitCost,
		})
	}

	line.State = next
	c.Cache.Touch(line, s.cycle)

	c.Cache.Stats.Accesses++
	if req.IsWrite {
		c.Cache.Stats.WriteHits++
	} else {
		c.Cache.Stats.ReadHits++
	}

	c.ExecCycles += HitCost
	c.BusyUntil(s.cycle + HitCost)
	c.Consume()

	s.InvokeHook(s, hooking.HookPosAccessCompleted, AccessRecord{
		CoreID:  c.ID,
		IsWrite: req.IsWrite,
		Hit:     true,
		Address: req.Address,
		Cycle:   s.cycle,
		Cost:    HitCost,
	})

	s.mustBeCoherent(c.ID, req.Address)

	return accessCompleted
}

func (s *Simulation) executeMiss(
	c *core.Core,
	req trace.Request,
	setIndex int,
	tag uint32,
) accessOutcome {
	if s.bus.Busy() {
		return accessBlocked
	}

	ca := c.Cache
	blockSize := uint64(ca.BlockSize())

	ca.Stats.Accesses++
	if req.IsWrite {
		ca.Stats.WriteMisses++
	} else {
		ca.Stats.ReadMisses++
	}

	cost := uint64(HitCost)
	var bytes uint64

	victim := ca.PickVictim(setIndex)
	if victim.Valid && victim.State.IsValid() {
		ca.Stats.Evictions++
		if victim.State.IsDirty() {
			ca.Stats.WriteBacks++
			cost += bus.MemPenalty
			bytes += blockSize
		}
	}

	op := mesi.MissOp(req.IsWrite)
	result, peerWritesBack := s.snoopPeers(c.ID, req.Address, op)

	if peerWritesBack {
		cost += bus.MemPenalty
		bytes += blockSize
	}

	if op == mesi.BusRd && result != bus.NoData {
		// A peer supplies the block cache to cache.
		cost += bus.TransferCycles(ca.BlockSize())
	} else {
		// The block comes from memory.
		cost += bus.MemPenalty
	}
	bytes += blockSize

	fill := mesi.FillState(req.IsWrite, result != bus.NoData)
	completion := s.cycle + cost
	ca.Install(victim, tag, fill, completion)

	ca.Stats.TrafficBytes += bytes
	s.bus.AddTraffic(bytes)
	s.bus.Acquire(c.ID, s.cycle, cost)

	c.ExecCycles += cost
	c.BusyUntil(completion)
	c.Consume()

	s.InvokeHook(s, hooking.HookPosBusTransaction, bus.Transaction{
		Op:      op,
		CoreID:  c.ID,
		Address: req.Address,
		Cycle:   s.cycle,
		Cost:    cost,
		Bytes:   bytes,
		Result:  result,
	})

	s.InvokeHook(s, hooking.HookPosAccessCompleted, AccessRecord{
		CoreID:  c.ID,
		IsWrite: req.IsWrite,
		Hit:     false,
		Address: req.Address,
		Cycle:   s.cycle,
		Cost:    cost,
	})

	ca.MustHaveDistinctTags(setIndex)
	s.mustBeCoherent(c.ID, req.Address)

	return accessCompleted
}

// snoopPeers visits every cache but the requester's and applies the peer
// transitions the transaction dictates. It reports what the peers held
// before mutation and whether any peer had to write its copy back.
func (s *Simulation) snoopPeers(
	requesterID int,
	addr uint32,
	op mesi.BusOp,
) (result bus.SnoopResult, writesBack bool) {
	result = bus.NoData

	for _, peer := range s.cores {
		if peer.ID == requesterID {
			continue
		}

		pc := peer.Cache
		setIndex, tag := pc.Decode(addr)
		line := pc.Lookup(setIndex, tag)
		if line == nil {
			continue
		}

		switch line.State {
		case mesi.Modified:
			result = bus.ModifiedData
		case mesi.Exclusive:
			result = bus.ExclusiveData
		case mesi.Shared:
			if result == bus.NoData {
				result = bus.SharedData
			}
		}

		next, _, wb := mesi.OnSnoop(line.State, op)
		if wb {
			writesBack = true
		}

		if next == mesi.Invalid {
			pc.Invalidate(line)
			pc.Stats.Invalidations++
			s.bus.AddInvalidation()
		} else {
			line.State = next
		}
	}

	return result, writesBack
}
