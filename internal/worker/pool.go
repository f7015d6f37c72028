package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of workers pulling from a FIFO queue.
// Results are drained as they arrive so producers never block on a full
// results channel.
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	out        []Result // owned by the collector goroutine until collected closes
	collected  chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	queueOnce  sync.Once
}

// NewPool creates a pool bound to parent. Cancelling parent stops workers
// from picking up further jobs; jobs already running observe the same ctx.
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		collected:  make(chan struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the workers and the goroutine draining results
func (p *Pool) Start() {
	go func() {
		defer close(p.collected)
		for result := range p.results {
			p.out = append(p.out, result)
		}
	}()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		// Prefer cancellation over queued work.
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

// Submit enqueues a job. It returns false when the pool was cancelled
// before the job could be queued.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Wait closes the queue, waits for the workers to finish and returns every
// result produced. Jobs still queued when the pool is cancelled produce no result.
func (p *Pool) Wait() []Result {
	p.closeQueue()
	p.wg.Wait()
	p.closeResults()
	<-p.collected
	p.cancelFunc()
	return p.out
}

// Shutdown cancels the pool and waits for running jobs to return
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeQueue() {
	p.queueOnce.Do(func() {
		close(p.jobQueue)
	})
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
