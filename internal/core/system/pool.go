package system

import "sync"

// pool is a fixed set of worker goroutines fed from one task channel.
type pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex // held for reading while sending, for writing while closing
	closed bool
	size   int
}

func newPool(workers int) *pool {
	if workers < 1 {
		workers = 1
	}
	p := &pool{
		tasks: make(chan func(), workers*4),
		size:  workers,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *pool) work() {
	defer p.wg.Done()
	for fn := range p.tasks {
		fn()
	}
}

// submit queues fn and reports false, without running it, once the pool is
// closed.
func (p *pool) submit(fn func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.tasks <- fn
	return true
}

// close stops accepting work and waits for the workers to drain.
func (p *pool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
