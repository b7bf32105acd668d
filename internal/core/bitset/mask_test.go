package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSetClear(t *testing.T) {
	var m Mask
	m = m.With(0).With(63).With(64).With(255)
	assert.True(t, m.Has(0))
	assert.True(t, m.Has(63))
	assert.True(t, m.Has(64))
	assert.True(t, m.Has(255))
	assert.False(t, m.Has(1))
	assert.Equal(t, 4, m.Count())

	m = m.Without(63)
	assert.False(t, m.Has(63))
	assert.Equal(t, []uint16{0, 64, 255}, m.Bits())
}

func TestMaskOutOfRangeIgnored(t *testing.T) {
	m := Of(300)
	assert.True(t, m.IsZero())
	assert.False(t, m.Has(300))
}

func TestMaskContains(t *testing.T) {
	abc := Of(1, 2, 70)
	assert.True(t, abc.Contains(Of(1, 70)))
	assert.True(t, abc.Contains(Mask{}), "empty mask is a subset of everything")
	assert.False(t, abc.Contains(Of(3)))
	assert.False(t, Of(1).Contains(abc))
}

func TestMaskIntersects(t *testing.T) {
	assert.True(t, Of(1, 2).Intersects(Of(2, 3)))
	assert.False(t, Of(1, 2).Intersects(Of(3, 130)))
	assert.False(t, Mask{}.Intersects(Of(1)))
}

func TestMaskOrAndNot(t *testing.T) {
	m := Of(1, 2).Or(Of(2, 200))
	assert.Equal(t, Of(1, 2, 200), m)
	assert.Equal(t, Of(1), m.AndNot(Of(2, 200)))
}

func TestMaskComparableAsKey(t *testing.T) {
	seen := map[Mask]int{}
	seen[Of(1, 2)]++
	seen[Of(2, 1)]++
	assert.Len(t, seen, 1)
	assert.Equal(t, 2, seen[Of(1, 2)])
}
