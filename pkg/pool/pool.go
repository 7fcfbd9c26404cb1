package pool

import (
	"context"
	"sync"
)

// WorkerPool runs submitted tasks on a fixed number of goroutines.
// Tasks submitted after the pool's context is done are dropped.
type WorkerPool struct {
	ctx     context.Context
	tasks   chan func(context.Context)
	wg      sync.WaitGroup
	mu      sync.Mutex
	skipped int
}

// New creates a worker pool with numWorkers goroutines (at least one) and a
// task queue of taskQueueSize.
func New(ctx context.Context, numWorkers int, taskQueueSize int) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if taskQueueSize < 0 {
		taskQueueSize = 0
	}
	p := &WorkerPool{
		ctx:   ctx,
		tasks: make(chan func(context.Context), taskQueueSize),
	}

	p.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.worker()
	}

	return p
}

// worker is a goroutine that processes tasks from the tasks channel.
func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		if p.ctx.Err() != nil {
			p.mu.Lock()
			p.skipped++
			p.mu.Unlock()
			continue
		}
		task(p.ctx)
	}
}

// Submit adds a task to the worker pool. It blocks while the queue is full.
func (p *WorkerPool) Submit(task func(ctx context.Context)) {
	p.tasks <- task
}

// Stop closes the queue and waits for every queued task to finish or be dropped.
// It returns the number of dropped tasks.
func (p *WorkerPool) Stop() int {
	close(p.tasks)
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.skipped
}
