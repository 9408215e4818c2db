package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
)

// ErrPoolClosed is the failure of a job submitted after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 4

type task struct {
	name string
	run  func(ctx context.Context)
}

// Pool is a fixed set of worker goroutines draining an unbounded task queue.
type Pool struct {
	workers int
	tasks   *fifo[task]
	wg      sync.WaitGroup
	once    sync.Once
}

func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pool{workers: workers, tasks: newFifo[task]()}
}

func (p *Pool) Workers() int { return p.workers }

// Start launches the workers. They exit when ctx is done or the pool is
// closed and drained.
func (p *Pool) Start(ctx context.Context) {
	p.once.Do(func() {
		logger := ctxlog.FromContext(ctx)
		logger.Debug("Starting worker pool.", "workers", p.workers)
		p.wg.Add(p.workers)
		for i := 0; i < p.workers; i++ {
			go p.worker(ctx, i)
		}
	})
}

// Submit queues a task without blocking.
func (p *Pool) Submit(name string, run func(ctx context.Context)) bool {
	return p.tasks.push(task{name: name, run: run})
}

// Close stops accepting tasks and waits for the workers to finish.
func (p *Pool) Close() {
	p.tasks.close()
	p.wg.Wait()
}

// worker is the processing loop of a single worker goroutine.
func (p *Pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for {
		t, ok := p.tasks.pop(ctx)
		if !ok {
			break
		}
		logger.Debug("Worker picked up job.", "workerID", workerID, "job", t.name)
		t.run(ctx)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}
