package cache

// A VictimFinder decides which line of a set should be evicted.
type VictimFinder interface {
	FindVictim(set *Set) *Line
}

// LRUVictimFinder picks the least recently used line to evict.
type LRUVictimFinder struct{}

// NewLRUVictimFinder returns a newly constructed LRU evictor.
func NewLRUVictimFinder() *LRUVictimFinder {
	return &LRUVictimFinder{}
}

// FindVictim returns an empty line if the set has one, otherwise the line at
// the front of the LRU queue.
func (e *LRUVictimFinder) FindVictim(set *Set) *Line {
	for _, wayID := range set.LRUQueue {
		line := &set.Lines[wayID]
		if !line.Valid || !line.State.IsValid() {
			return line
		}
	}

	return &set.Lines[set.LRUQueue[0]]
}
