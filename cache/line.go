package cache

import "github.com/sarchlab/mesibus/mesi"

// A Line is the metadata associated with one cache line.
type Line struct {
	Valid         bool
	Tag           uint32
	State         mesi.State
	LastUsedCycle uint64
	SetID         int
	WayID         int
}

// Holds returns true if the line holds the block identified by tag in a
// readable state.
func (l *Line) Holds(tag uint32) bool {
	return l.Valid && l.State.IsValid() && l.Tag == tag
}
