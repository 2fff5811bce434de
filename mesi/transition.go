package mesi

import "fmt"

// BusOp is the coherence transaction a processor-side access may place on
// the bus.
type BusOp int

const (
	// BusNone means the access completes without a bus transaction.
	BusNone BusOp = iota

	// BusRd fetches a block with intent to read.
	BusRd

	// BusRdX fetches a block with intent to modify, invalidating peers.
	BusRdX

	// BusUpgr invalidates peer copies of a Shared block without moving data.
	BusUpgr
)

func (op BusOp) String() string {
	switch op {
	case BusNone:
		return "None"
	case BusRd:
		return "BusRd"
	case BusRdX:
		return "BusRdX"
	case BusUpgr:
		return "BusUpgr"
	}

	panic(fmt.Sprintf("mesi: unknown bus op %d", int(op)))
}

// OnHit returns the next state of a line hit by the local processor and the
// bus transaction the hit requires. Only a write hit on a Shared line needs
// the bus (BusUpgr); every other hit is silent.
func OnHit(s State, isWrite bool) (next State, op BusOp) {
	switch s {
	case Shared:
		if isWrite {
			return Modified, BusUpgr
		}
		return Shared, BusNone
	case Exclusive:
		if isWrite {
			return Modified, BusNone
		}
		return Exclusive, BusNone
	case Modified:
		return Modified, BusNone
	}

	panic(fmt.Sprintf("mesi: hit on %s line", s))
}

// MissOp returns the bus transaction a miss must issue.
func MissOp(isWrite bool) BusOp {
	if isWrite {
		return BusRdX
	}
	return BusRd
}

// FillState returns the state a line is installed in after a miss fill.
// peerHeld reports whether any peer held the block non-Invalid before the
// snoop ran.
func FillState(isWrite, peerHeld bool) State {
	if isWrite {
		return Modified
	}
	if peerHeld {
		return Shared
	}
	return Exclusive
}

// OnSnoop returns the next state of a peer line observing op on the bus,
// along with whether the line supplies its data and whether it must write
// the block back first.
func OnSnoop(s State, op BusOp) (next State, supplies, writesBack bool) {
	if !s.IsValid() {
		return Invalid, false, false
	}

	switch op {
	case BusRd:
		switch s {
		case Modified:
			return Shared, true, true
		case Exclusive:
			return Shared, true, false
		case Shared:
			return Shared, true, false
		}
	case BusRdX:
		return Invalid, false, s == Modified
	case BusUpgr:
		return Invalid, false, false
	}

	panic(fmt.Sprintf("mesi: illegal snoop %s on %s line", op, s))
}
