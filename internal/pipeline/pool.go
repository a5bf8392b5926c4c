package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/vm-affekt/ytmux/internal/logging"
)

var ErrPoolClosed = errors.New("worker pool is closed")

type job struct {
	ctx context.Context
	run func(ctx context.Context)
}

// Pool runs submitted jobs on a fixed number of worker goroutines.
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines. queueSize jobs may wait for a free worker before Submit blocks.
func NewPool(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &Pool{
		jobs: make(chan job, queueSize),
	}
	for id := 0; id < workers; id++ {
		p.wg.Add(1)
		go p.worker(id)
	}
	return p
}

// Submit hands run to the pool. It blocks while the queue is full and gives up when ctx is done.
// The job runs with ctx's logger but is not cancelled by ctx.
func (p *Pool) Submit(ctx context.Context, run func(ctx context.Context)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job{ctx: logging.CopyContext(ctx, context.Background()), run: run}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for queued and running ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	log := logging.L().Sugar().With("worker_id", id)
	log.Debug("worker started")
	for j := range p.jobs {
		p.runJob(j)
	}
	log.Debug("worker stopped")
}

func (p *Pool) runJob(j job) {
	defer func() {
		if r := recover(); r != nil {
			logging.FromContextS(j.ctx).With("recovered_obj", r).Error("!!! A PANIC occurred while running pipeline job !!!")
		}
	}()
	j.run(j.ctx)
}
