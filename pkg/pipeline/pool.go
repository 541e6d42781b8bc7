package pipeline

import (
	"errors"
	"runtime"
	"sync"
)

// ErrPoolClosed is returned when work is submitted after Close
var ErrPoolClosed = errors.New("worker pool is closed")

// Pool runs submitted functions on at most n goroutines at a time.
// Submission never blocks; queued work waits for a free slot.
type Pool struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	slots  chan struct{}
	closed bool
	Cancel func()
}

// StartPool creates a pool with numWorkers slots, defaulting to GOMAXPROCS
func StartPool(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{slots: make(chan struct{}, numWorkers)}
	p.Cancel = sync.OnceFunc(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
	})
	return p
}

// Size returns the number of slots
func (p *Pool) Size() int {
	return cap(p.slots)
}

// Do queues f
func (p *Pool) Do(f func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.slots <- struct{}{}
		defer func() { <-p.slots }()
		f()
	}()
	return nil
}

// Wait blocks until all queued work has finished. With done, the pool
// stops accepting new work first.
func (p *Pool) Wait(done bool) {
	if done {
		p.Cancel()
	}
	p.wg.Wait()
}
