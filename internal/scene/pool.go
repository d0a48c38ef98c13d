package scene

import (
	"context"
	"runtime"
	"sync"

	"impostor-lod/internal/impostor"
)

// BoundsJob asks a worker to recompute the bounds of one trackable.
type BoundsJob struct {
	Trackable *impostor.Trackable
	// Done is signalled once the bounds are refreshed
	Done *sync.WaitGroup
}

// WorkerPool manages goroutines for load-time bounds computation.
type WorkerPool struct {
	jobQueue chan BoundsJob
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWorkerPool creates a new bounds worker pool.
func NewWorkerPool(workers int, queueSize int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	pool := &WorkerPool{
		jobQueue: make(chan BoundsJob, queueSize),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := range workers {
		pool.wg.Add(1)
		go pool.worker(i)
	}
	return pool
}

// SubmitJobBlocking blocks until the job is queued or ctx or the pool is done.
// It reports whether the job was queued.
func (p *WorkerPool) SubmitJobBlocking(ctx context.Context, job BoundsJob) bool {
	select {
	case p.jobQueue <- job:
		return true
	case <-ctx.Done():
		return false
	case <-p.ctx.Done():
		return false
	}
}

func (p *WorkerPool) worker(_ int) {
	defer p.wg.Done()

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			job.Trackable.RefreshBounds()
			if job.Done != nil {
				job.Done.Done()
			}
		case <-p.ctx.Done():
			return
		}
	}
}

// Shutdown stops the workers and waits for them.
func (p *WorkerPool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}

// RefreshBounds recomputes the bounds of every trackable on a temporary pool of
// workers goroutines (GOMAXPROCS when workers <= 0). Trackables must not be ticked
// while this runs.
func RefreshBounds(ctx context.Context, trackables []*impostor.Trackable, workers int) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	pool := NewWorkerPool(workers, len(trackables))
	defer pool.Shutdown()

	var done sync.WaitGroup
	for _, t := range trackables {
		done.Add(1)
		if !pool.SubmitJobBlocking(ctx, BoundsJob{Trackable: t, Done: &done}) {
			done.Done()
			break
		}
	}

	finished := make(chan struct{})
	go func() {
		done.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return ctx.Err()
	case <-ctx.Done():
		pool.Shutdown()
		pool.drain()
		<-finished
		return ctx.Err()
	}
}

// drain completes every job still queued after the workers stopped.
func (p *WorkerPool) drain() {
	for {
		select {
		case job := <-p.jobQueue:
			if job.Done != nil {
				job.Done.Done()
			}
		default:
			return
		}
	}
}
