package ecs

import (
	"iter"
	"slices"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/bitset"
)

// ComponentKind is the stable integer tag of a registered component type.
// It doubles as the kind's bit position in a bitset.Mask.
type ComponentKind uint16

func (k ComponentKind) Mask() bitset.Mask { return bitset.Of(uint16(k)) }

// MaskOf builds the mask covering every kind given.
func MaskOf(kinds ...ComponentKind) bitset.Mask {
	var m bitset.Mask
	for _, k := range kinds {
		m = m.With(uint16(k))
	}
	return m
}

// Storage is the type-erased view of a Store that the Registry keeps.
type Storage interface {
	Kind() ComponentKind
	Name() string
	Len() int
	Has(id EntityID) bool
	Value(id EntityID) (any, bool)
	Each(fn func(EntityID, any))
	Compact()

	drop(id EntityID)
}

// Store is the dense storage for one component kind. Values live in a packed
// slice; sparse maps an entity slot index to its dense position plus one.
//
// A Store may be mutated by one goroutine at a time. The scheduler grants that
// by never grouping two systems that declare the same kind.
type Store[T any] struct {
	reg      *Registry
	kind     ComponentKind
	name     string
	sparse   []int32
	entities []EntityID
	values   []T

	onSet    func(EntityID, T)
	onRemove func(EntityID)
}

func (s *Store[T]) Kind() ComponentKind { return s.kind }
func (s *Store[T]) Name() string        { return s.name }
func (s *Store[T]) Mask() bitset.Mask   { return s.kind.Mask() }

// Len returns the number of entities holding this component.
func (s *Store[T]) Len() int { return len(s.values) }

// Observe installs hooks called after a value is set and after it is removed.
// Either may be nil. Hooks run on the mutating goroutine, possibly under the
// Registry lock, so they must not call back into the Registry.
func (s *Store[T]) Observe(onSet func(EntityID, T), onRemove func(EntityID)) {
	s.onSet = onSet
	s.onRemove = onRemove
}

func (s *Store[T]) slot(id EntityID) (int, bool) {
	idx := int(id.Index())
	if idx >= len(s.sparse) {
		return 0, false
	}
	d := int(s.sparse[idx])
	if d == 0 || s.entities[d-1] != id {
		return 0, false
	}
	return d - 1, true
}

// Add inserts or overwrites the component for id and moves id to the
// archetype that includes this kind. It reports false if id is not alive.
func (s *Store[T]) Add(id EntityID, v T) bool {
	if !s.reg.Alive(id) {
		return false
	}
	if i, ok := s.slot(id); ok {
		s.values[i] = v
	} else {
		s.insert(id, v)
		s.reg.setKind(id, s.kind)
	}
	if s.onSet != nil {
		s.onSet(id, v)
	}
	return true
}

func (s *Store[T]) insert(id EntityID, v T) {
	idx := int(id.Index())
	if idx >= len(s.sparse) {
		n := idx + 1
		if n < 2*len(s.sparse) {
			n = 2 * len(s.sparse)
		}
		s.sparse = append(s.sparse, make([]int32, n-len(s.sparse))...)
	}
	s.entities = append(s.entities, id)
	s.values = append(s.values, v)
	s.sparse[idx] = int32(len(s.values))
}

// Remove deletes the component for id and moves id to the archetype without
// this kind. It returns the previous value, or false if there was none.
func (s *Store[T]) Remove(id EntityID) (T, bool) {
	i, ok := s.slot(id)
	if !ok {
		var zero T
		return zero, false
	}
	old := s.values[i]
	s.erase(id, i)
	s.reg.clearKind(id, s.kind)
	if s.onRemove != nil {
		s.onRemove(id)
	}
	return old, true
}

// erase swaps the last dense element into i so freed slots are reused before
// the slice grows.
func (s *Store[T]) erase(id EntityID, i int) {
	last := len(s.values) - 1
	if i != last {
		moved := s.entities[last]
		s.entities[i] = moved
		s.values[i] = s.values[last]
		s.sparse[moved.Index()] = int32(i + 1)
	}
	var zero T
	s.values[last] = zero
	s.entities = s.entities[:last]
	s.values = s.values[:last]
	s.sparse[id.Index()] = 0
}

// drop removes id without touching archetype membership. The Registry calls
// it while destroying an entity.
func (s *Store[T]) drop(id EntityID) {
	i, ok := s.slot(id)
	if !ok {
		return
	}
	s.erase(id, i)
	if s.onRemove != nil {
		s.onRemove(id)
	}
}

func (s *Store[T]) Get(id EntityID) (T, bool) {
	i, ok := s.slot(id)
	if !ok {
		var zero T
		return zero, false
	}
	return s.values[i], true
}

// Ref returns a pointer to the stored value for in-place updates. The pointer
// is valid until the next Add, Remove or Compact on this store.
func (s *Store[T]) Ref(id EntityID) (*T, bool) {
	i, ok := s.slot(id)
	if !ok {
		return nil, false
	}
	return &s.values[i], true
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.slot(id)
	return ok
}

func (s *Store[T]) Value(id EntityID) (any, bool) {
	v, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	return v, true
}

// All yields every (entity, value) pair in dense order. The sequence can be
// ranged over any number of times.
func (s *Store[T]) All() iter.Seq2[EntityID, T] {
	return func(yield func(EntityID, T) bool) {
		for i := 0; i < len(s.values); i++ {
			if !yield(s.entities[i], s.values[i]) {
				return
			}
		}
	}
}

func (s *Store[T]) Each(fn func(EntityID, any)) {
	for i := 0; i < len(s.values); i++ {
		fn(s.entities[i], s.values[i])
	}
}

// Compact reorders the dense arrays by slot index, undoing the shuffling left
// by swap removals, and releases capacity no longer needed.
func (s *Store[T]) Compact() {
	n := len(s.values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return int(s.entities[a].Index()) - int(s.entities[b].Index())
	})

	entities := make([]EntityID, n)
	values := make([]T, n)
	for dst, src := range order {
		entities[dst] = s.entities[src]
		values[dst] = s.values[src]
	}
	s.entities = entities
	s.values = values

	maxIdx := -1
	if n > 0 {
		maxIdx = int(entities[n-1].Index())
	}
	sparse := make([]int32, maxIdx+1)
	for i, id := range entities {
		sparse[id.Index()] = int32(i + 1)
	}
	s.sparse = sparse
}
