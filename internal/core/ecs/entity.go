package ecs

import (
	"errors"
	"math"
)

// ErrPoolExhausted is returned when the pool cannot hand out another slot.
var ErrPoolExhausted = errors.New("ecs: entity pool exhausted")

// EntityID encodes a 32-bit slot index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
// Generation 0 is never handed out, so the zero EntityID is never alive.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// EntityPool manages entity allocation with generational indices and a free list.
// A slot whose generation would wrap is retired instead of recycled.
type EntityPool struct {
	generations []uint32
	alive       []bool // by slot; false while the slot sits on the free list
	freeList    []uint32
	nextIndex   uint32
	live        int
	retired     int
	capacity    int
}

// NewEntityPool creates a pool that never holds more than capacity live slots.
// A non-positive capacity means the full 32-bit index space.
func NewEntityPool(capacity int) *EntityPool {
	if capacity <= 0 || capacity > math.MaxUint32 {
		capacity = math.MaxUint32
	}
	return &EntityPool{
		generations: make([]uint32, 0, 1024),
		alive:       make([]bool, 0, 1024),
		freeList:    make([]uint32, 0, 256),
		capacity:    capacity,
	}
}

func (p *EntityPool) Create() (EntityID, error) {
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		p.alive[idx] = true
		p.live++
		return NewEntityID(idx, p.generations[idx]), nil
	}
	if int(p.nextIndex) >= p.capacity {
		return 0, ErrPoolExhausted
	}
	idx := p.nextIndex
	p.nextIndex++
	p.generations = append(p.generations, 1)
	p.alive = append(p.alive, true)
	p.live++
	return NewEntityID(idx, 1), nil
}

// CreateBatch hands out n ids with a single reservation of the generation table.
// Recycled slots are used first. Nothing is allocated when n ids cannot be served.
func (p *EntityPool) CreateBatch(n int) ([]EntityID, error) {
	if n <= 0 {
		return nil, nil
	}
	fresh := n - len(p.freeList)
	if fresh < 0 {
		fresh = 0
	}
	if fresh > 0 && int(p.nextIndex)+fresh > p.capacity {
		return nil, ErrPoolExhausted
	}

	out := make([]EntityID, 0, n)
	recycled := n - fresh
	for i := 0; i < recycled; i++ {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		p.alive[idx] = true
		out = append(out, NewEntityID(idx, p.generations[idx]))
	}

	if fresh > 0 {
		if need := int(p.nextIndex) + fresh; need > cap(p.generations) {
			grown := make([]uint32, len(p.generations), need)
			copy(grown, p.generations)
			p.generations = grown
			flags := make([]bool, len(p.alive), need)
			copy(flags, p.alive)
			p.alive = flags
		}
		for i := 0; i < fresh; i++ {
			idx := p.nextIndex
			p.nextIndex++
			p.generations = append(p.generations, 1)
			p.alive = append(p.alive, true)
			out = append(out, NewEntityID(idx, 1))
		}
	}
	p.live += n
	return out, nil
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx >= p.nextIndex || !p.alive[idx] {
		return false
	}
	return p.generations[idx] == id.Generation()
}

// Destroy releases id back to the free list. It reports false when id is
// unknown or already destroyed, leaving the pool untouched.
func (p *EntityPool) Destroy(id EntityID) bool {
	if !p.Alive(id) {
		return false
	}
	idx := id.Index()
	p.alive[idx] = false
	p.live--
	gen := p.generations[idx] + 1
	if gen == 0 {
		// Every generation of this slot has been issued; reusing it could
		// revive a stale id.
		p.retired++
		return true
	}
	p.generations[idx] = gen
	p.freeList = append(p.freeList, idx)
	return true
}

// Len returns the number of live entities.
func (p *EntityPool) Len() int { return p.live }

// Slots returns the number of slots ever allocated (live + free + retired).
func (p *EntityPool) Slots() int { return int(p.nextIndex) }

// Retired returns the number of slots taken out of use after generation wrap.
func (p *EntityPool) Retired() int { return p.retired }
