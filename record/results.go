package record

import "github.com/sarchlab/mesibus/simulation"

// CoreRow is one per-core result row.
type CoreRow struct {
	CoreID        int
	Instructions  int
	Reads         uint64
	Writes        uint64
	ExecCycles    uint64
	IdleCycles    uint64
	Misses        uint64
	MissRate      float64
	Evictions     uint64
	WriteBacks    uint64
	Invalidations uint64
	TrafficBytes  uint64
}

// BusRow is the single global bus summary row.
type BusRow struct {
	Transactions  uint64
	Invalidations uint64
	TrafficBytes  uint64
	TotalCycles   uint64
}

// StoreResults writes the final statistics of a finished simulation.
func StoreResults(r Recorder, s *simulation.Simulation) {
	r.CreateTable("core_stats", CoreRow{})
	r.CreateTable("bus_stats", BusRow{})

	for id := 0; id < simulation.NumCores; id++ {
		c := s.Core(id)
		stats := c.Cache.Stats

		r.InsertData("core_stats", CoreRow{
			CoreID:        id,
			Instructions:  len(c.Trace),
			Reads:         c.ReadCount,
			Writes:        c.WriteCount,
			ExecCycles:    c.ExecCycles,
			IdleCycles:    c.IdleCycles,
			Misses:        stats.Misses(),
			MissRate:      stats.MissRate(),
			Evictions:     stats.Evictions,
			WriteBacks:    stats.WriteBacks,
			Invalidations: stats.Invalidations,
			TrafficBytes:  stats.TrafficBytes,
		})
	}

	r.InsertData("bus_stats", BusRow{
		Transactions:  s.Bus().Stats.Transactions,
		Invalidations: s.Bus().Stats.Invalidations,
		TrafficBytes:  s.Bus().Stats.TrafficBytes,
		TotalCycles:   s.Cycle(),
	})

	r.Flush()
}
