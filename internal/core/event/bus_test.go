package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct{ N int }
type pong struct{ S string }

func TestEmitVisibleAfterSwap(t *testing.T) {
	b := NewBus()
	Emit(b, ping{1})
	Emit(b, ping{2})
	Emit(b, pong{"x"})

	assert.Empty(t, Read[ping](b), "not readable in the emitting step")
	assert.Equal(t, 3, b.Pending())

	b.SwapBuffers()
	assert.Equal(t, []ping{{1}, {2}}, Read[ping](b))
	assert.Equal(t, []pong{{"x"}}, Read[pong](b))
	assert.Equal(t, 0, b.Pending())

	b.SwapBuffers()
	assert.Empty(t, Read[ping](b), "events live for exactly one step")
}

func TestReadUnknownType(t *testing.T) {
	b := NewBus()
	b.SwapBuffers()
	assert.Nil(t, Read[struct{ Z int }](b))
}

func TestEmitConcurrent(t *testing.T) {
	b := NewBus()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				Emit(b, ping{g*1000 + i})
			}
		}(g)
	}
	wg.Wait()
	b.SwapBuffers()
	require.Len(t, Read[ping](b), 800)

	// per-emitter order is preserved
	last := map[int]int{}
	for _, p := range Read[ping](b) {
		g := p.N / 1000
		if prev, ok := last[g]; ok {
			assert.Greater(t, p.N, prev)
		}
		last[g] = p.N
	}
}
