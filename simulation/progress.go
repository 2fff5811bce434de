package simulation

// CoreProgress is the per-core slice of a progress snapshot.
type CoreProgress struct {
	ID       int    `json:"id"`
	Executed int    `json:"executed"`
	Total    int    `json:"total"`
	Idle     uint64 `json:"idle_cycles"`
	Exec     uint64 `json:"exec_cycles"`
}

// Progress is a consistent snapshot of how far the simulation has come. It
// is safe to read from other goroutines while the simulation runs.
type Progress struct {
	Cycle uint64         `json:"cycle"`
	Done  bool           `json:"done"`
	Cores []CoreProgress `json:"cores"`
}

// Progress returns the latest snapshot.
func (s *Simulation) Progress() Progress {
	s.progressMu.RLock()
	defer s.progressMu.RUnlock()

	snapshot := s.progress
	snapshot.Cores = append([]CoreProgress(nil), s.progress.Cores...)

	return snapshot
}

func (s *Simulation) updateProgress(done bool) {
	cores := make([]CoreProgress, len(s.cores))
	for i, c := range s.cores {
		cores[i] = CoreProgress{
			ID:       c.ID,
			Executed: c.InstPtr,
			Total:    len(c.Trace),
			Idle:     c.IdleCycles,
			Exec:     c.ExecCycles,
		}
	}

	s.progressMu.Lock()
	s.progress = Progress{Cycle: s.cycle, Done: done, Cores: cores}
	s.progressMu.Unlock()
}
