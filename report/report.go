// Package report renders the final statistics of a simulation as text.
package report

import (
	"fmt"
	"io"

	"github.com/sarchlab/mesibus/simulation"
)

// PolicyLine names the fixed policies of the memory system.
const PolicyLine = "MESI / write-back write-allocate / LRU / central snooping bus"

// Write renders the geometry header, one block per core, and the global bus
// summary.
func Write(w io.Writer, s *simulation.Simulation) error {
	if err := writeHeader(w, s); err != nil {
		return err
	}

	for id := 0; id < simulation.NumCores; id++ {
		if err := writeCore(w, s, id); err != nil {
			return err
		}
	}

	return writeSummary(w, s)
}

func writeHeader(w io.Writer, s *simulation.Simulation) error {
	c := s.Core(0).Cache
	perCoreKB := float64(c.TotalSize()) / 1024.0

	_, err := fmt.Fprintf(w,
		"Set index bits (s)    : %d\n"+
			"Associativity (E)     : %d\n"+
			"Block offset bits (b) : %d\n"+
			"Block size (bytes)    : %d\n"+
			"Number of sets        : %d\n"+
			"Per-core cache (KB)   : %.2f\n"+
			"Policy                : %s\n\n",
		c.SetBits(), c.NumWays(), c.BlockBits(),
		c.BlockSize(), c.NumSets(), perCoreKB, PolicyLine,
	)

	return err
}

func writeCore(w io.Writer, s *simulation.Simulation, id int) error {
	c := s.Core(id)
	stats := c.Cache.Stats

	_, err := fmt.Fprintf(w,
		"---------- Core %d ----------\n"+
			"Total instructions  : %d\n"+
			"Read instructions   : %d\n"+
			"Write instructions  : %d\n"+
			"Execution cycles    : %d\n"+
			"Idle cycles         : %d\n"+
			"Cache misses        : %d (%.4f%%)\n"+
			"Evictions           : %d\n"+
			"Writebacks          : %d\n"+
			"Invalidations       : %d\n"+
			"Data traffic (bytes): %d\n\n",
		id,
		len(c.Trace),
		c.ReadCount,
		c.WriteCount,
		c.ExecCycles,
		c.IdleCycles,
		stats.Misses(), stats.MissRate(),
		stats.Evictions,
		stats.WriteBacks,
		stats.Invalidations,
		stats.TrafficBytes,
	)

	return err
}

func writeSummary(w io.Writer, s *simulation.Simulation) error {
	_, err := fmt.Fprintf(w,
		"Global bus transactions   : %d\n"+
			"Global bus traffic (bytes): %d\n"+
			"Total cycles              : %d\n",
		s.Bus().Stats.Transactions,
		s.Bus().Stats.TrafficBytes,
		s.Cycle(),
	)

	return err
}
