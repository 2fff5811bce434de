// Package bus models the single shared bus that serializes coherence
// transactions. The bus owns no cache lines; it carries arbitration state
// and the global traffic counters, while the simulation applies snoop
// effects to the caches it owns.
package bus

import (
	"fmt"

	"github.com/sarchlab/mesibus/mesi"
)

// Timing constants of the memory system.
const (
	// MemPenalty is the fixed cost, in cycles, of a memory fetch or a
	// write-back.
	MemPenalty = 100

	// TransferPerWord is the bus occupancy, in cycles, of moving one word
	// cache to cache.
	TransferPerWord = 2

	// WordSize is the width of a bus word in bytes.
	WordSize = 4
)

// TransferCycles returns the cost of moving one block cache to cache.
func TransferCycles(blockSize int) uint64 {
	return uint64(TransferPerWord * (blockSize / WordSize))
}

// SnoopResult summarizes what the peers held before a transaction mutated
// them.
type SnoopResult int

const (
	// NoData means no peer held the block.
	NoData SnoopResult = iota

	// SharedData means at least one peer held the block clean.
	SharedData

	// ExclusiveData means exactly one peer held the block clean and alone.
	ExclusiveData

	// ModifiedData means a peer held the block dirty and wrote it back.
	ModifiedData
)

func (r SnoopResult) String() string {
	switch r {
	case NoData:
		return "NoData"
	case SharedData:
		return "Shared"
	case ExclusiveData:
		return "Exclusive"
	case ModifiedData:
		return "Modified"
	}

	panic(fmt.Sprintf("bus: unknown snoop result %d", int(r)))
}

// A Transaction records one bus occupancy, for counters and instrumentation.
type Transaction struct {
	Op      mesi.BusOp
	CoreID  int
	Address uint32
	Cycle   uint64
	Cost    uint64
	Bytes   uint64
	Result  SnoopResult
}

// Stats accumulates the global bus counters.
type Stats struct {
	Transactions  uint64
	Invalidations uint64
	TrafficBytes  uint64
}

// A Bus arbitrates the single shared transport. At most one transaction
// occupies it at any simulated cycle.
type Bus struct {
	busy      bool
	freeCycle uint64
	ownerID   int

	Stats Stats
}

// New creates a free bus.
func New() *Bus {
	return &Bus{ownerID: -1}
}

// Busy returns true while a transaction occupies the bus.
func (b *Bus) Busy() bool { return b.busy }

// FreeCycle returns the cycle at which the current transaction completes.
// It is only meaningful while the bus is busy.
func (b *Bus) FreeCycle() uint64 { return b.freeCycle }

// OwnerID returns the core owning the current transaction, or -1.
func (b *Bus) OwnerID() int {
	if !b.busy {
		return -1
	}
	return b.ownerID
}

// Acquire occupies the bus for a transaction initiated at cycle with the
// given cost. The caller must have checked Busy first.
func (b *Bus) Acquire(ownerID int, cycle, cost uint64) {
	if b.busy {
		panic(fmt.Sprintf(
			"bus: core %d acquiring at cycle %d while owned by core %d until %d",
			ownerID, cycle, b.ownerID, b.freeCycle,
		))
	}

	if ownerID < 0 {
		panic(fmt.Sprintf(
			"bus: acquired at cycle %d without an owning core", cycle,
		))
	}

	b.busy = true
	b.ownerID = ownerID
	b.freeCycle = cycle + cost
	b.Stats.Transactions++
}

// Release frees the bus at a cycle boundary. The scheduler calls it exactly
// when the current cycle reaches FreeCycle.
func (b *Bus) Release(cycle uint64) {
	if !b.busy {
		return
	}

	if cycle < b.freeCycle {
		panic(fmt.Sprintf(
			"bus: released at cycle %d before free cycle %d", cycle, b.freeCycle,
		))
	}

	b.busy = false
	b.ownerID = -1
}

// AddTraffic charges bytes to the global traffic counter. Each data-bearing
// transaction is charged exactly once.
func (b *Bus) AddTraffic(bytes uint64) {
	b.Stats.TrafficBytes += bytes
}

// AddInvalidation counts one peer copy invalidated by a transaction.
func (b *Bus) AddInvalidation() {
	b.Stats.Invalidations++
}
