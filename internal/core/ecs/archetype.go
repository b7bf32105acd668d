package ecs

import "github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/bitset"

// Archetype groups every entity whose component mask is exactly Mask.
type Archetype struct {
	mask     bitset.Mask
	entities []EntityID
}

func (a *Archetype) Mask() bitset.Mask { return a.mask }
func (a *Archetype) Len() int          { return len(a.entities) }

// ArchetypeInfo is a read-only description of one archetype.
type ArchetypeInfo struct {
	Mask bitset.Mask
	Size int
}

type location struct {
	arch *Archetype
	row  int
}

// ArchetypeIndex maps masks to archetypes and tracks where each entity lives.
// Not safe for concurrent use; the Registry serializes access.
type ArchetypeIndex struct {
	byMask map[bitset.Mask]*Archetype
	list   []*Archetype
	locs   []location // by slot index
}

func NewArchetypeIndex() *ArchetypeIndex {
	x := &ArchetypeIndex{
		byMask: make(map[bitset.Mask]*Archetype, 32),
		list:   make([]*Archetype, 0, 32),
		locs:   make([]location, 0, 1024),
	}
	x.archetype(bitset.Mask{})
	return x
}

// archetype returns the archetype for mask, creating it on first use.
func (x *ArchetypeIndex) archetype(mask bitset.Mask) *Archetype {
	if a, ok := x.byMask[mask]; ok {
		return a
	}
	a := &Archetype{mask: mask, entities: make([]EntityID, 0, 16)}
	x.byMask[mask] = a
	x.list = append(x.list, a)
	return a
}

func (x *ArchetypeIndex) lookup(e EntityID) (location, bool) {
	idx := int(e.Index())
	if idx >= len(x.locs) {
		return location{}, false
	}
	loc := x.locs[idx]
	if loc.arch == nil || loc.row >= len(loc.arch.entities) || loc.arch.entities[loc.row] != e {
		return location{}, false
	}
	return loc, true
}

func (x *ArchetypeIndex) attach(e EntityID, a *Archetype) {
	idx := int(e.Index())
	if idx >= len(x.locs) {
		if idx < cap(x.locs) {
			x.locs = x.locs[:idx+1]
		} else {
			grown := make([]location, idx+1, 2*(idx+1))
			copy(grown, x.locs)
			x.locs = grown
		}
	}
	x.locs[idx] = location{arch: a, row: len(a.entities)}
	a.entities = append(a.entities, e)
}

func (x *ArchetypeIndex) detach(e EntityID, loc location) {
	a := loc.arch
	last := len(a.entities) - 1
	if loc.row != last {
		moved := a.entities[last]
		a.entities[loc.row] = moved
		x.locs[moved.Index()].row = loc.row
	}
	a.entities = a.entities[:last]
	x.locs[e.Index()] = location{}
}

// Insert places e into the archetype for mask. It reports false if e is
// already indexed.
func (x *ArchetypeIndex) Insert(e EntityID, mask bitset.Mask) bool {
	if _, ok := x.lookup(e); ok {
		return false
	}
	x.attach(e, x.archetype(mask))
	return true
}

// Remove detaches e from its archetype and returns the mask it had.
func (x *ArchetypeIndex) Remove(e EntityID) (bitset.Mask, bool) {
	loc, ok := x.lookup(e)
	if !ok {
		return bitset.Mask{}, false
	}
	x.detach(e, loc)
	return loc.arch.mask, true
}

// MoveEntity detaches e from the archetype for from and attaches it to the
// archetype for to. It reports false, changing nothing, when e is not
// currently in from.
func (x *ArchetypeIndex) MoveEntity(e EntityID, from, to bitset.Mask) bool {
	loc, ok := x.lookup(e)
	if !ok || loc.arch.mask != from {
		return false
	}
	if from == to {
		return true
	}
	target := x.archetype(to)
	x.detach(e, loc)
	x.attach(e, target)
	return true
}

// MaskOf returns the mask of the archetype holding e.
func (x *ArchetypeIndex) MaskOf(e EntityID) (bitset.Mask, bool) {
	loc, ok := x.lookup(e)
	if !ok {
		return bitset.Mask{}, false
	}
	return loc.arch.mask, true
}

// Query returns every entity whose archetype mask is a superset of required.
// Only archetypes are scanned; member lists are copied out.
func (x *ArchetypeIndex) Query(required bitset.Mask) []EntityID {
	n := 0
	for _, a := range x.list {
		if a.mask.Contains(required) {
			n += len(a.entities)
		}
	}
	out := make([]EntityID, 0, n)
	for _, a := range x.list {
		if a.mask.Contains(required) {
			out = append(out, a.entities...)
		}
	}
	return out
}

// Count is Query without materializing the result.
func (x *ArchetypeIndex) Count(required bitset.Mask) int {
	n := 0
	for _, a := range x.list {
		if a.mask.Contains(required) {
			n += len(a.entities)
		}
	}
	return n
}

func (x *ArchetypeIndex) Archetypes() []ArchetypeInfo {
	out := make([]ArchetypeInfo, 0, len(x.list))
	for _, a := range x.list {
		out = append(out, ArchetypeInfo{Mask: a.mask, Size: len(a.entities)})
	}
	return out
}
