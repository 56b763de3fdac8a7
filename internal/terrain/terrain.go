package terrain

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"sdfterrain/internal/lod"
	"sdfterrain/internal/meshing"
	"sdfterrain/internal/octree"
	"sdfterrain/internal/profiling"
	"sdfterrain/internal/sdf"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Settings configures a Terrain.
type Settings struct {
	// Scale is the world size of the smallest node.
	Scale float32
	// SizeLog2 is the size of the root node.
	SizeLog2 uint32
	LOD      lod.Settings
	// MaxConcurrentTasks caps mesh jobs in flight.
	MaxConcurrentTasks int
	// Workers is the number of extraction goroutines.
	Workers int
	// CollidersPerSecond rate-limits collider updates.
	CollidersPerSecond int
	// ColliderMaxLOD is the coarsest LOD that gets colliders.
	ColliderMaxLOD int
	Mesh           meshing.Options
}

// DefaultSettings returns the stock terrain configuration.
func DefaultSettings() Settings {
	return Settings{
		Scale:              1,
		SizeLog2:           14,
		LOD:                lod.DefaultSettings(),
		MaxConcurrentTasks: 12,
		Workers:            runtime.NumCPU(),
		CollidersPerSecond: 128,
		ColliderMaxLOD:     2,
	}
}

// Option customizes a Terrain.
type Option func(*Terrain)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(t *Terrain) { t.logger = l }
}

// Stats is a snapshot of the terrain's bookkeeping.
type Stats struct {
	Nodes       int
	Chunks      int
	Meshes      int
	Triangles   int
	Queued      int
	InFlight    int
	Builds      int64
	Edits       int64
	StaleJobs   int64
	PendingEdit int
}

// Terrain owns the octree. Process must be called from a single owner
// goroutine; SetCamera and ModifyUsingSDF may be called from anywhere.
type Terrain struct {
	settings Settings
	field    sdf.Field
	policy   *lod.Policy
	root     *Node
	sched    *Scheduler
	logger   *zap.Logger
	epsilons []float32

	onMesh     func(*Node, *meshing.MeshData)
	onCollider func(*Node, []mgl32.Vec3)

	// building is set while the build goroutine owns the tree.
	building   atomic.Bool
	forceBuild atomic.Bool
	buildWG    sync.WaitGroup

	mu     sync.Mutex
	camera mgl32.Vec3
	edits  []ModifySettings

	// Owned by whichever goroutine currently owns the tree.
	released  []*Node
	colliders []colliderRequest

	builds    atomic.Int64
	editCount atomic.Int64
}

type colliderRequest struct {
	node *Node
	gen  uint32
}

// New creates a terrain over field. Nothing is built until the first
// Process or Build call.
func New(settings Settings, field sdf.Field, opts ...Option) *Terrain {
	if settings.Scale <= 0 {
		settings.Scale = 1
	}
	settings.LOD.Scale = settings.Scale
	if settings.MaxConcurrentTasks < 1 {
		settings.MaxConcurrentTasks = 1
	}
	if settings.Workers < 1 {
		settings.Workers = 1
	}
	if settings.LOD.MinChunkSizeLog2 < 1 {
		settings.LOD.MinChunkSizeLog2 = 1
	}

	t := &Terrain{
		settings: settings,
		field:    field,
		policy:   lod.New(settings.LOD),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.root = octree.NewRoot[Voxel](mgl32.Vec3{}, settings.SizeLog2, Voxel{})
	t.sched = NewScheduler(settings.MaxConcurrentTasks, settings.Workers, settings.Mesh, t.logger)
	t.GenerateEpsilons()
	return t
}

// Root returns the root node. Only the owner goroutine may inspect it, and
// not while a build runs.
func (t *Terrain) Root() *Node { return t.root }

// Policy returns the LOD policy.
func (t *Terrain) Policy() *lod.Policy { return t.policy }

// Settings returns the effective settings.
func (t *Terrain) Settings() Settings { return t.settings }

// SetCamera records the viewer position used by the next LOD update.
func (t *Terrain) SetCamera(pos mgl32.Vec3) {
	t.mu.Lock()
	t.camera = pos
	t.mu.Unlock()
}

func (t *Terrain) cameraPosition() mgl32.Vec3 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.camera
}

// OnMeshReady registers the callback run on the owner goroutine when a
// chunk mesh is replaced. A nil mesh means the chunk's mesh was removed.
func (t *Terrain) OnMeshReady(fn func(*Node, *meshing.MeshData)) { t.onMesh = fn }

// OnCollider registers the callback that receives chunk-local collision
// triangles, rate limited by Settings.CollidersPerSecond.
func (t *Terrain) OnCollider(fn func(*Node, []mgl32.Vec3)) { t.onCollider = fn }

// IsBuilding reports whether the build goroutine owns the tree.
func (t *Terrain) IsBuilding() bool { return t.building.Load() }

// IsMeshing reports whether mesh jobs are queued or running.
func (t *Terrain) IsMeshing() bool { return t.sched.IsMeshing() }

// Idle reports that at least one build ran and no build, mesh job, collider
// update or queued edit is outstanding. Owner goroutine only.
func (t *Terrain) Idle() bool {
	if t.building.Load() || t.sched.IsMeshing() || t.forceBuild.Load() {
		return false
	}
	if t.builds.Load() == 0 || len(t.colliders) > 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.edits) == 0
}

// Build starts a build on a background goroutine. It is refused while a
// build or mesh jobs are in flight.
func (t *Terrain) Build() bool {
	if t.sched.IsMeshing() || !t.building.CompareAndSwap(false, true) {
		return false
	}
	t.forceBuild.Store(false)
	t.buildWG.Add(1)
	go func() {
		defer t.buildWG.Done()
		defer t.building.Store(false)
		defer profiling.Track("terrain.Build")()

		start := time.Now()
		t.build(t.root)
		t.builds.Add(1)
		t.logger.Info("build finished",
			zap.Duration("took", time.Since(start)),
			zap.Int("queued", t.sched.Len()),
			zap.Float32s("camera", cameraFields(t.policy.Camera())),
		)
	}()
	return true
}

// WaitBuild blocks until the running build, if any, has finished.
func (t *Terrain) WaitBuild() { t.buildWG.Wait() }

// ForceUpdateLOD moves the LOD camera regardless of hysteresis and rebuilds.
func (t *Terrain) ForceUpdateLOD() bool {
	if t.building.Load() {
		return false
	}
	t.policy.UpdateCamera(t.cameraPosition(), true)
	t.forceBuild.Store(true)
	return t.Build()
}

// Process is the owner tick. While a build runs it does nothing; otherwise
// it may start a build, dispatches and delivers mesh jobs, applies one
// queued edit and hands out collider updates.
func (t *Terrain) Process(delta time.Duration) {
	defer profiling.Track("terrain.Process")()
	if t.building.Load() {
		return
	}
	t.flushReleased()

	if !t.sched.IsMeshing() {
		moved := t.policy.UpdateCamera(t.cameraPosition(), false)
		if (moved || t.forceBuild.Load()) && t.Build() {
			return
		}
	}

	t.sched.Dispatch(t.snapshot)
	t.sched.Deliver(t.applyResult)
	t.flushReleased()
	t.processModifyQueue()
	t.processColliders(delta)
}

// EnqueueChunkUpdate schedules a mesh job for n. Owner goroutine only.
func (t *Terrain) EnqueueChunkUpdate(n *Node) {
	if n == nil {
		return
	}
	if busy(n) {
		if n.Data.Job == Running {
			n.Data.Requeue = true
		}
		return
	}
	t.sched.Enqueue(n)
}

// applyResult installs a delivered mesh. Results for detached nodes were
// already filtered by the scheduler.
func (t *Terrain) applyResult(h jobHandle, mesh *meshing.MeshData) {
	n := h.node
	n.Data.Job = Completed
	t.releaseParentAndChildren(n)
	if !t.isChunk(n) {
		t.releaseMesh(n)
	} else {
		n.Data.Mesh = mesh
		n.Data.Meshed = true
		n.Data.Boundaries = h.boundaries
		if t.onMesh != nil {
			t.onMesh(n, mesh)
		}
		if mesh != nil && int(n.Data.LOD) <= t.settings.ColliderMaxLOD {
			t.colliders = append(t.colliders, colliderRequest{node: n, gen: n.Data.Generation})
		}
	}
	n.Data.Job = Idle
	if n.Data.Requeue {
		n.Data.Requeue = false
		t.EnqueueChunkUpdate(n)
	}
}

func (t *Terrain) releaseParentAndChildren(n *Node) {
	if p := n.Parent(); p != nil {
		t.releaseMesh(p)
	}
	if !n.IsLeaf() {
		for _, c := range n.Children() {
			t.releaseMesh(c)
		}
	}
}

// releaseMesh drops the mesh of n unless a job around it is in flight.
func (t *Terrain) releaseMesh(n *Node) {
	if anyChildBusy(n) || busy(n.Parent()) {
		return
	}
	if !n.Data.Meshed {
		return
	}
	hadMesh := n.Data.Mesh != nil
	n.Data.Mesh = nil
	n.Data.Meshed = false
	n.Data.Boundaries = 0
	if hadMesh {
		t.released = append(t.released, n)
	}
}

// flushReleased reports removed meshes on the owner goroutine.
func (t *Terrain) flushReleased() {
	if len(t.released) == 0 {
		return
	}
	rel := t.released
	t.released = nil
	if t.onMesh == nil {
		return
	}
	for _, n := range rel {
		if !n.Data.Meshed {
			t.onMesh(n, nil)
		}
	}
}

// processColliders hands out at most max(1, ceil(rate*delta)) collider
// updates.
func (t *Terrain) processColliders(delta time.Duration) {
	if len(t.colliders) == 0 {
		return
	}
	rate := max(1, int(math.Ceil(float64(t.settings.CollidersPerSecond)*delta.Seconds())))
	processed := 0
	for processed < rate && len(t.colliders) > 0 {
		req := t.colliders[0]
		t.colliders = t.colliders[1:]
		n := req.node
		if n.Data.Generation != req.gen || n.Data.Mesh == nil {
			continue
		}
		if t.onCollider != nil {
			t.onCollider(n, n.Data.Mesh.CollisionTriangles())
		}
		processed++
	}
}

// GenerateEpsilons precomputes the surface tolerance of every node size:
// 1.75 times the node's edge length.
func (t *Terrain) GenerateEpsilons() []float32 {
	t.epsilons = make([]float32, t.settings.SizeLog2+1)
	for i := range t.epsilons {
		t.epsilons[i] = 1.75 * float32(uint64(1)<<i) * t.settings.Scale
	}
	return t.epsilons
}

// Stats walks the tree. Owner goroutine only, not during a build.
func (t *Terrain) Stats() Stats {
	s := Stats{
		Queued:    t.sched.Len(),
		InFlight:  t.sched.InFlight(),
		Builds:    t.builds.Load(),
		Edits:     t.editCount.Load(),
		StaleJobs: t.sched.Stale(),
	}
	t.mu.Lock()
	s.PendingEdit = len(t.edits)
	t.mu.Unlock()
	t.root.Walk(func(n *Node) bool {
		s.Nodes++
		if t.isChunk(n) {
			s.Chunks++
		}
		if n.Data.Mesh != nil {
			s.Meshes++
			s.Triangles += n.Data.Mesh.TriangleCount()
		}
		return true
	})
	return s
}

// Close waits for the build goroutine and stops the mesh workers.
func (t *Terrain) Close() {
	t.buildWG.Wait()
	t.sched.Close()
}

func cameraFields(v mgl32.Vec3) []float32 { return v[:] }
