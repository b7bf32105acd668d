package event

import (
	"reflect"
	"sync"
)

type queue interface {
	reset()
	size() int
}

type typedQueue[T any] struct {
	items []T
}

func (q *typedQueue[T]) reset() {
	clear(q.items)
	q.items = q.items[:0]
}

func (q *typedQueue[T]) size() int { return len(q.items) }

// Bus is a double-buffered set of typed event queues. Events emitted in step N
// are readable in step N+1. SwapBuffers() is called by the World at step start.
//
// Emit may be called from systems running in parallel. Read is lock-free and
// only valid between two SwapBuffers calls.
type Bus struct {
	mu    sync.Mutex // guards back
	front map[reflect.Type]queue
	back  map[reflect.Type]queue
}

func NewBus() *Bus {
	return &Bus{
		front: make(map[reflect.Type]queue),
		back:  make(map[reflect.Type]queue),
	}
}

// Emit queues an event into the back buffer (will be readable next step).
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeFor[T]()
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.back[t]
	if !ok {
		q = &typedQueue[T]{items: make([]T, 0, 16)}
		b.back[t] = q
	}
	tq := q.(*typedQueue[T])
	tq.items = append(tq.items, event)
}

// Read returns the events of type T emitted during the previous step, in
// emission order. The slice is shared; callers must not modify it.
func Read[T any](b *Bus) []T {
	q, ok := b.front[reflect.TypeFor[T]()]
	if !ok {
		return nil
	}
	return q.(*typedQueue[T]).items
}

// SwapBuffers rotates back→front and clears the new back buffer.
func (b *Bus) SwapBuffers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.front, b.back = b.back, b.front
	for _, q := range b.back {
		q.reset()
	}
}

// Pending returns the number of events waiting for the next swap.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, q := range b.back {
		n += q.size()
	}
	return n
}
