package ecs

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityIDEncoding(t *testing.T) {
	id := NewEntityID(7, 3)
	assert.Equal(t, uint32(7), id.Index())
	assert.Equal(t, uint32(3), id.Generation())
	assert.False(t, id.IsZero())
	assert.True(t, EntityID(0).IsZero())
}

func TestPoolCreateAndRecycle(t *testing.T) {
	p := NewEntityPool(0)
	a, err := p.Create()
	require.NoError(t, err)
	b, err := p.Create()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.False(t, p.Alive(0), "zero id is never alive")

	require.True(t, p.Destroy(a))
	assert.False(t, p.Alive(a))

	c, err := p.Create()
	require.NoError(t, err)
	assert.Equal(t, a.Index(), c.Index(), "slot is recycled")
	assert.NotEqual(t, a, c, "generation changes on reuse")
	assert.False(t, p.Alive(a), "stale id stays dead after reuse")
	assert.Equal(t, 2, p.Len())
}

func TestPoolDoubleDestroyIgnored(t *testing.T) {
	p := NewEntityPool(0)
	a, _ := p.Create()
	require.True(t, p.Destroy(a))
	assert.False(t, p.Destroy(a))
	assert.False(t, p.Destroy(NewEntityID(999, 1)))
	assert.Equal(t, 0, p.Len())

	// only one free slot was recorded
	x, _ := p.Create()
	y, _ := p.Create()
	assert.NotEqual(t, x.Index(), y.Index())
}

func TestPoolBatchUsesFreeListFirst(t *testing.T) {
	p := NewEntityPool(0)
	ids, err := p.CreateBatch(4)
	require.NoError(t, err)
	require.Len(t, ids, 4)
	p.Destroy(ids[1])
	p.Destroy(ids[3])

	more, err := p.CreateBatch(3)
	require.NoError(t, err)
	require.Len(t, more, 3)
	assert.Equal(t, 5, p.Slots(), "two recycled slots plus one fresh")
	assert.Equal(t, 5, p.Len())
	for _, id := range more {
		assert.True(t, p.Alive(id))
	}
}

func TestPoolExhaustion(t *testing.T) {
	p := NewEntityPool(3)
	_, err := p.CreateBatch(4)
	require.ErrorIs(t, err, ErrPoolExhausted)
	assert.Equal(t, 0, p.Len(), "failed batch allocates nothing")

	ids, err := p.CreateBatch(3)
	require.NoError(t, err)
	_, err = p.Create()
	require.ErrorIs(t, err, ErrPoolExhausted)

	p.Destroy(ids[0])
	_, err = p.Create()
	require.NoError(t, err, "recycled slots do not count against capacity")
}

// go test -run ^TestPoolUniqueness$ ./internal/core/ecs -count 1
func TestPoolUniqueness(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	p := NewEntityPool(0)
	live := map[EntityID]struct{}{}
	var order []EntityID

	for step := 0; step < 20000; step++ {
		switch {
		case len(order) > 0 && rng.Intn(3) == 0:
			i := rng.Intn(len(order))
			id := order[i]
			order[i] = order[len(order)-1]
			order = order[:len(order)-1]
			require.True(t, p.Destroy(id))
			delete(live, id)
		case rng.Intn(10) == 0:
			ids, err := p.CreateBatch(rng.Intn(8) + 1)
			require.NoError(t, err)
			for _, id := range ids {
				_, dup := live[id]
				require.False(t, dup, "id %d handed out twice", id)
				live[id] = struct{}{}
				order = append(order, id)
			}
		default:
			id, err := p.Create()
			require.NoError(t, err)
			_, dup := live[id]
			require.False(t, dup, "id %d handed out twice", id)
			live[id] = struct{}{}
			order = append(order, id)
		}
	}
	assert.Equal(t, len(live), p.Len())
}

// An id naming a free slot's next generation was never issued and must not
// be destroyable.
//
// go test -run ^TestPoolRejectsUnissuedGeneration$ ./internal/core/ecs -count 1
func TestPoolRejectsUnissuedGeneration(t *testing.T) {
	p := NewEntityPool(0)
	a, err := p.Create()
	require.NoError(t, err)
	require.True(t, p.Destroy(a))

	next := NewEntityID(a.Index(), a.Generation()+1)
	assert.False(t, p.Alive(next))
	assert.False(t, p.Destroy(next))
	assert.Equal(t, 0, p.Len())

	x, err := p.Create()
	require.NoError(t, err)
	y, err := p.Create()
	require.NoError(t, err)
	assert.NotEqual(t, x, y)
	assert.Equal(t, next, x, "the free slot is reissued once")
	assert.Equal(t, 2, p.Len())
}

func TestPoolRetiresSlotOnGenerationWrap(t *testing.T) {
	p := NewEntityPool(0)
	a, err := p.Create()
	require.NoError(t, err)
	p.generations[a.Index()] = math.MaxUint32
	last := NewEntityID(a.Index(), math.MaxUint32)
	require.True(t, p.Alive(last))

	require.True(t, p.Destroy(last))
	assert.Equal(t, 1, p.Retired())
	assert.False(t, p.Alive(a), "first-generation id stays dead")
	assert.False(t, p.Alive(NewEntityID(a.Index(), 1)))

	b, err := p.Create()
	require.NoError(t, err)
	assert.NotEqual(t, a.Index(), b.Index(), "retired slot is not reused")
	assert.Equal(t, 1, p.Len())
}
