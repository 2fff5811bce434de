// Package cache models a per-core write-back L1 data cache as a
// set-associative array of MESI-tagged lines with LRU replacement.
package cache

import (
	"fmt"

	"github.com/sarchlab/mesibus/mesi"
)

// Stats accumulates the access statistics of one cache.
type Stats struct {
	Accesses      uint64
	ReadHits      uint64
	ReadMisses    uint64
	WriteHits     uint64
	WriteMisses   uint64
	Evictions     uint64
	WriteBacks    uint64
	Invalidations uint64
	TrafficBytes  uint64
}

// Misses returns the total number of misses.
func (s Stats) Misses() uint64 {
	return s.ReadMisses + s.WriteMisses
}

// MissRate returns the miss rate in percent.
func (s Stats) MissRate() float64 {
	if s.Accesses == 0 {
		return 0
	}
	return float64(s.Misses()) * 100.0 / float64(s.Accesses)
}

// A Cache holds the tag metadata of one L1 data cache. It stores no data;
// the simulation only tracks states and timing.
type Cache struct {
	setBits   int
	numWays   int
	blockBits int

	numSets   int
	blockSize int

	Sets         []Set
	victimFinder VictimFinder

	Stats Stats
}

// SetBits returns the number of set-index bits.
func (c *Cache) SetBits() int { return c.setBits }

// NumWays returns the associativity.
func (c *Cache) NumWays() int { return c.numWays }

// BlockBits returns the number of block-offset bits.
func (c *Cache) BlockBits() int { return c.blockBits }

// NumSets returns the number of sets.
func (c *Cache) NumSets() int { return c.numSets }

// BlockSize returns the block size in bytes.
func (c *Cache) BlockSize() int { return c.blockSize }

// TotalSize returns the capacity of the cache in bytes.
func (c *Cache) TotalSize() uint64 {
	return uint64(c.numSets) * uint64(c.numWays) * uint64(c.blockSize)
}

// Decode splits a 32-bit address into its set index and tag.
func (c *Cache) Decode(addr uint32) (setIndex int, tag uint32) {
	setIndex = int((addr >> c.blockBits) & uint32(c.numSets-1))
	tag = addr >> (c.setBits + c.blockBits)
	return
}

// Lookup finds the valid, non-Invalid line holding tag in the set, or nil.
func (c *Cache) Lookup(setIndex int, tag uint32) *Line {
	set := &c.Sets[setIndex]
	for way := range set.Lines {
		line := &set.Lines[way]
		if line.Holds(tag) {
			return line
		}
	}

	return nil
}

// PickVictim returns the line a fill of the set should replace. An empty
// slot is preferred over evicting the LRU line.
func (c *Cache) PickVictim(setIndex int) *Line {
	return c.victimFinder.FindVictim(&c.Sets[setIndex])
}

// Install writes a line into the slot that victim identifies, stamping cycle
// as its last use and marking it most recently used.
func (c *Cache) Install(victim *Line, tag uint32, state mesi.State, cycle uint64) {
	victim.Valid = true
	victim.Tag = tag
	victim.State = state
	victim.LastUsedCycle = cycle

	c.Sets[victim.SetID].Visit(victim.WayID)
}

// Touch marks the line most recently used without changing its tag or state.
func (c *Cache) Touch(line *Line, cycle uint64) {
	line.LastUsedCycle = cycle
	c.Sets[line.SetID].Visit(line.WayID)
}

// Invalidate marks a line Invalid, leaving the slot free for reuse.
func (c *Cache) Invalidate(line *Line) {
	line.State = mesi.Invalid
	line.Valid = false
}

// MustHaveDistinctTags panics if two valid lines of a set carry the same
// tag. The condition indicates a fill that bypassed Lookup.
func (c *Cache) MustHaveDistinctTags(setIndex int) {
	set := &c.Sets[setIndex]
	seen := make(map[uint32]int, len(set.Lines))

	for way := range set.Lines {
		line := &set.Lines[way]
		if !line.Valid || !line.State.IsValid() {
			continue
		}

		if prev, ok := seen[line.Tag]; ok {
			panic(fmt.Sprintf(
				"cache: duplicate tag 0x%x in set %d, ways %d and %d",
				line.Tag, setIndex, prev, way,
			))
		}
		seen[line.Tag] = way
	}
}
