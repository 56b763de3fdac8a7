package terrain

import (
	"container/heap"
	"sync"
	"sync/atomic"

	"sdfterrain/internal/meshing"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// jobHandle travels with a mesh job and identifies the node it was cut for.
type jobHandle struct {
	node       *Node
	generation uint32
	boundaries meshing.Boundaries
}

type queuedChunk struct {
	node       *Node
	generation uint32
	lod        int32
	seq        uint64
}

// chunkQueue orders finer LODs first, first come first served within a LOD.
type chunkQueue []queuedChunk

func (q chunkQueue) Len() int { return len(q) }
func (q chunkQueue) Less(i, j int) bool {
	if q[i].lod != q[j].lod {
		return q[i].lod < q[j].lod
	}
	return q[i].seq < q[j].seq
}
func (q chunkQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *chunkQueue) Push(x any) { *q = append(*q, x.(queuedChunk)) }

func (q *chunkQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Scheduler feeds chunk mesh jobs to the worker pool with at most maxTasks
// in flight. Enqueue may be called from the build goroutine; Dispatch and
// Deliver belong to the owner goroutine.
type Scheduler struct {
	mu    sync.Mutex
	queue chunkQueue
	seq   uint64

	sem      *semaphore.Weighted
	pool     *meshing.WorkerPool[jobHandle]
	results  chan meshing.MeshResult[jobHandle]
	opts     meshing.Options
	inFlight atomic.Int64
	stale    atomic.Int64
	logger   *zap.Logger
}

// NewScheduler starts workers extraction goroutines.
func NewScheduler(maxTasks, workers int, opts meshing.Options, logger *zap.Logger) *Scheduler {
	if maxTasks < 1 {
		maxTasks = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		sem:  semaphore.NewWeighted(int64(maxTasks)),
		pool: meshing.NewWorkerPool[jobHandle](workers, maxTasks),
		// Every in-flight job owns a slot, so workers never block on send.
		results: make(chan meshing.MeshResult[jobHandle], maxTasks),
		opts:    opts,
		logger:  logger,
	}
}

// Enqueue marks n queued and adds it to the queue.
func (s *Scheduler) Enqueue(n *Node) {
	n.Data.Job = Queued
	s.mu.Lock()
	s.seq++
	heap.Push(&s.queue, queuedChunk{node: n, generation: n.Data.Generation, lod: n.Data.LOD, seq: s.seq})
	s.mu.Unlock()
}

func (s *Scheduler) pop() (queuedChunk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return queuedChunk{}, false
	}
	return heap.Pop(&s.queue).(queuedChunk), true
}

// Len is the number of queued jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// InFlight is the number of dispatched jobs not yet delivered.
func (s *Scheduler) InFlight() int { return int(s.inFlight.Load()) }

// Stale is the number of jobs discarded because their node was detached.
func (s *Scheduler) Stale() int64 { return s.stale.Load() }

// IsMeshing reports queued or undelivered work.
func (s *Scheduler) IsMeshing() bool { return s.Len() > 0 || s.InFlight() > 0 }

// Dispatch submits queued jobs while permits are available. snapshot cuts
// the immutable extraction input for a node; a nil context yields a nil
// mesh. It returns the number of jobs submitted.
func (s *Scheduler) Dispatch(snapshot func(*Node) (*meshing.ChunkContext, meshing.Boundaries)) int {
	submitted := 0
	for s.sem.TryAcquire(1) {
		q, ok := s.pop()
		if !ok {
			s.sem.Release(1)
			break
		}
		n := q.node
		if n.Data.Generation != q.generation {
			// Detached while queued.
			n.Data.Job = Idle
			s.sem.Release(1)
			s.stale.Add(1)
			s.logger.Debug("dropping stale chunk job", zap.Int32("lod", q.lod))
			continue
		}

		ctx, b := snapshot(n)
		n.Data.Job = Running
		s.inFlight.Add(1)
		job := meshing.MeshJob[jobHandle]{
			Handle:     jobHandle{node: n, generation: q.generation, boundaries: b},
			Context:    ctx,
			Options:    s.opts,
			ResultChan: s.results,
		}
		if !s.pool.SubmitJob(job) {
			s.inFlight.Add(-1)
			s.sem.Release(1)
			n.Data.Job = Idle
			s.logger.Warn("mesh pool refused job", zap.Int32("lod", q.lod))
			break
		}
		submitted++
		s.logger.Debug("dispatched chunk job",
			zap.Int32("lod", q.lod),
			zap.Float32s("center", centerFields(n)),
			zap.Bool("empty", ctx == nil),
		)
	}
	return submitted
}

// Deliver drains finished jobs without blocking and hands the live ones to
// apply. It returns the number of results applied.
func (s *Scheduler) Deliver(apply func(jobHandle, *meshing.MeshData)) int {
	applied := 0
	for {
		select {
		case r := <-s.results:
			s.inFlight.Add(-1)
			s.sem.Release(1)
			n := r.Handle.node
			if n.Data.Generation != r.Handle.generation {
				n.Data.Job = Idle
				s.stale.Add(1)
				s.logger.Debug("discarding stale mesh", zap.Int32("lod", n.Data.LOD))
				continue
			}
			apply(r.Handle, r.Mesh)
			applied++
		default:
			return applied
		}
	}
}

// Close stops the workers. Undelivered results are dropped.
func (s *Scheduler) Close() {
	s.pool.Shutdown()
}

func centerFields(n *Node) []float32 {
	c := n.Center()
	return c[:]
}
