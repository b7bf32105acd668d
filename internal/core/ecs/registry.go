package ecs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jfuginay/flexport-cross-platform-game-sub006/internal/core/bitset"
	"go.uber.org/zap"
)

var (
	ErrTooManyKinds  = errors.New("ecs: too many component kinds")
	ErrDuplicateKind = errors.New("ecs: component kind already registered")
)

// KindInfo names one registered component kind.
type KindInfo struct {
	Kind ComponentKind
	Name string
}

// Registry owns the entity pool, every component store and the archetype
// index. Structural changes (create, destroy, kind bits) take the write lock;
// component values inside a Store are not guarded here.
type Registry struct {
	mu         sync.RWMutex
	pool       *EntityPool
	archetypes *ArchetypeIndex
	stores     []Storage // indexed by ComponentKind
	byName     map[string]ComponentKind
	log        *zap.Logger
}

func NewRegistry(maxEntities int, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		pool:       NewEntityPool(maxEntities),
		archetypes: NewArchetypeIndex(),
		stores:     make([]Storage, 0, 16),
		byName:     make(map[string]ComponentKind, 16),
		log:        log,
	}
}

// Register creates the store for T under name and assigns it the next kind.
// Lookups by kind are resolved here once, never per access.
func Register[T any](r *Registry, name string) (*Store[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("register %q: %w", name, ErrDuplicateKind)
	}
	if len(r.stores) >= bitset.Capacity {
		return nil, fmt.Errorf("register %q: %w", name, ErrTooManyKinds)
	}
	s := &Store[T]{
		reg:    r,
		kind:   ComponentKind(len(r.stores)),
		name:   name,
		sparse: make([]int32, 0, 256),
	}
	r.stores = append(r.stores, s)
	r.byName[name] = s.kind
	return s, nil
}

func (r *Registry) Create() (EntityID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, err := r.pool.Create()
	if err != nil {
		return 0, err
	}
	r.archetypes.Insert(id, bitset.Mask{})
	return id, nil
}

func (r *Registry) CreateBatch(n int) ([]EntityID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids, err := r.pool.CreateBatch(n)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		r.archetypes.Insert(id, bitset.Mask{})
	}
	return ids, nil
}

// Destroy removes id from every store and its archetype, then recycles the
// slot. Destroying a dead or unknown entity is a logged no-op returning false.
func (r *Registry) Destroy(id EntityID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.pool.Alive(id) {
		r.log.Debug("destroy of dead entity ignored", zap.Uint64("entity", uint64(id)))
		return false
	}
	mask, ok := r.archetypes.Remove(id)
	if !ok {
		r.log.Warn("live entity missing from archetype index", zap.Uint64("entity", uint64(id)))
	}
	for _, k := range mask.Bits() {
		if int(k) < len(r.stores) {
			r.stores[k].drop(id)
		}
	}
	r.pool.Destroy(id)
	return true
}

func (r *Registry) Alive(id EntityID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pool.Alive(id)
}

// Mask returns the component mask of a live entity.
func (r *Registry) Mask(id EntityID) (bitset.Mask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.pool.Alive(id) {
		return bitset.Mask{}, false
	}
	return r.archetypes.MaskOf(id)
}

// Query returns the live entities whose mask is a superset of required.
func (r *Registry) Query(required bitset.Mask) []EntityID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.archetypes.Query(required)
}

func (r *Registry) Count(required bitset.Mask) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.archetypes.Count(required)
}

func (r *Registry) Archetypes() []ArchetypeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.archetypes.Archetypes()
}

// Len returns the number of live entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pool.Len()
}

// Kind resolves a registered kind by name.
func (r *Registry) Kind(name string) (ComponentKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.byName[name]
	return k, ok
}

func (r *Registry) Kinds() []KindInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]KindInfo, 0, len(r.stores))
	for _, s := range r.stores {
		out = append(out, KindInfo{Kind: s.Kind(), Name: s.Name()})
	}
	return out
}

// Storage returns the type-erased store for kind, or nil.
func (r *Registry) Storage(kind ComponentKind) Storage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(kind) >= len(r.stores) {
		return nil
	}
	return r.stores[kind]
}

// Compact defragments every store. Must not run while systems are executing.
func (r *Registry) Compact() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		s.Compact()
	}
}

func (r *Registry) setKind(id EntityID, kind ComponentKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	from, ok := r.archetypes.MaskOf(id)
	if !ok {
		r.log.Warn("add component: entity missing from archetype index",
			zap.Uint64("entity", uint64(id)), zap.Uint16("kind", uint16(kind)))
		return
	}
	r.archetypes.MoveEntity(id, from, from.With(uint16(kind)))
}

func (r *Registry) clearKind(id EntityID, kind ComponentKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	from, ok := r.archetypes.MaskOf(id)
	if !ok {
		r.log.Warn("remove component: entity missing from archetype index",
			zap.Uint64("entity", uint64(id)), zap.Uint16("kind", uint16(kind)))
		return
	}
	r.archetypes.MoveEntity(id, from, from.Without(uint16(kind)))
}
