package meshing

import (
	"context"
	"sync"
)

// MeshJob is one extraction request. Handle identifies the requester and is
// passed back untouched. A nil Context marks a stale job.
type MeshJob[H any] struct {
	Handle  H
	Context *ChunkContext
	Options Options
	// Result channel - will be sent the result when done
	ResultChan chan<- MeshResult[H]
}

// MeshResult contains the result of a meshing operation. Mesh is nil when
// the chunk has no surface or the job was stale.
type MeshResult[H any] struct {
	Handle H
	Mesh   *MeshData
}

// WorkerPool runs extraction jobs on a fixed set of goroutines.
type WorkerPool[H any] struct {
	jobQueue chan MeshJob[H]
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
}

// NewWorkerPool creates a pool and starts its workers.
func NewWorkerPool[H any](workers int, queueSize int) *WorkerPool[H] {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	pool := &WorkerPool[H]{
		jobQueue: make(chan MeshJob[H], queueSize),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool
}

// SubmitJob queues a job without blocking. It returns false when the queue
// is full or the pool is shut down.
func (p *WorkerPool[H]) SubmitJob(job MeshJob[H]) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false
	}
}

// SubmitJobBlocking queues a job, waiting for room. It returns false if the
// pool shut down first.
func (p *WorkerPool[H]) SubmitJobBlocking(job MeshJob[H]) bool {
	select {
	case p.jobQueue <- job:
		return true
	case <-p.ctx.Done():
		return false
	}
}

func (p *WorkerPool[H]) worker() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			var mesh *MeshData
			if job.Context != nil {
				mesh = Extract(job.Context, job.Options)
			}
			select {
			case job.ResultChan <- MeshResult[H]{Handle: job.Handle, Mesh: mesh}:
			case <-p.ctx.Done():
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

// Shutdown stops the workers and waits for them. Queued jobs are dropped.
func (p *WorkerPool[H]) Shutdown() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}

// Workers is the number of worker goroutines.
func (p *WorkerPool[H]) Workers() int { return p.workers }

// QueueLength returns the number of jobs waiting for a worker.
func (p *WorkerPool[H]) QueueLength() int {
	return len(p.jobQueue)
}
