package cache

import "fmt"

// Builder can build caches.
type Builder struct {
	setBits   int
	numWays   int
	blockBits int

	victimFinder VictimFinder
}

// MakeBuilder creates a new builder with a 4KB 2-way geometry as default.
func MakeBuilder() Builder {
	return Builder{
		setBits:   6,
		numWays:   2,
		blockBits: 5,
	}
}

// WithSetBits sets the number of set-index bits. The cache will have 2^s
// sets.
func (b Builder) WithSetBits(s int) Builder {
	b.setBits = s
	return b
}

// WithWayAssociativity sets the number of lines per set.
func (b Builder) WithWayAssociativity(e int) Builder {
	b.numWays = e
	return b
}

// WithBlockBits sets the number of block-offset bits. Blocks are 2^b bytes.
func (b Builder) WithBlockBits(blockBits int) Builder {
	b.blockBits = blockBits
	return b
}

// WithVictimFinder sets the replacement policy.
func (b Builder) WithVictimFinder(vf VictimFinder) Builder {
	b.victimFinder = vf
	return b
}

// Build builds a cache.
func (b Builder) Build() *Cache {
	b.mustHaveSaneGeometry()

	vf := b.victimFinder
	if vf == nil {
		vf = NewLRUVictimFinder()
	}

	c := &Cache{
		setBits:      b.setBits,
		numWays:      b.numWays,
		blockBits:    b.blockBits,
		numSets:      1 << b.setBits,
		blockSize:    1 << b.blockBits,
		victimFinder: vf,
	}

	c.Sets = make([]Set, c.numSets)
	for i := range c.Sets {
		c.Sets[i] = newSet(i, c.numWays)
	}

	return c
}

func (b Builder) mustHaveSaneGeometry() {
	if b.setBits < 0 || b.setBits > 30 {
		panic(fmt.Sprintf("cache: set bits %d out of range", b.setBits))
	}

	if b.numWays < 1 {
		panic(fmt.Sprintf("cache: associativity %d out of range", b.numWays))
	}

	if b.blockBits < 2 || b.blockBits > 30 {
		panic(fmt.Sprintf("cache: block bits %d out of range", b.blockBits))
	}
}
