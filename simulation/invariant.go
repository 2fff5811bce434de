package simulation

import (
	"fmt"

	"github.com/sarchlab/mesibus/mesi"
)

// mustBeCoherent panics if the caches disagree about who owns the block at
// addr: more than one Modified holder, or a Modified or Exclusive holder
// next to any other non-Invalid copy. Such a state is an engine bug, never
// an input problem.
func (s *Simulation) mustBeCoherent(requesterID int, addr uint32) {
	var mCount, eCount, sCount int
	holders := make([]int, 0, NumCores)

	setIndex := -1
	for _, c := range s.cores {
		si, tag := c.Cache.Decode(addr)
		setIndex = si

		line := c.Cache.Lookup(si, tag)
		if line == nil {
			continue
		}

		holders = append(holders, c.ID)
		switch line.State {
		case mesi.Modified:
			mCount++
		case mesi.Exclusive:
			eCount++
		case mesi.Shared:
			sCount++
		}
	}

	ok := mCount <= 1 && eCount <= 1 &&
		(mCount == 0 || eCount+sCount == 0) &&
		(eCount == 0 || mCount+sCount == 0)

	if !ok {
		panic(fmt.Sprintf(
			"simulation: coherence violated for address 0x%x "+
				"(core %d, set %d, cycle %d): M=%d E=%d S=%d held by cores %v",
			addr, requesterID, setIndex, s.cycle,
			mCount, eCount, sCount, holders,
		))
	}
}
