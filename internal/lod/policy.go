package lod

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Settings configures the LOD shells.
type Settings struct {
	// Scale is the world size of a level-0 cell.
	Scale float32
	// MinChunkSizeLog2 is the chunk size in level cells (chunk = 2^m cells).
	MinChunkSizeLog2 uint32
	// ShellSize is the shell width in grid cells of the level.
	ShellSize int
	// LevelCount bounds the LOD range; positions beyond the last shell get -1.
	LevelCount int
	// MaxChunkSizeLog2 is the size of the largest node handled as a chunk.
	MaxChunkSizeLog2 uint32
	// Hysteresis is the camera distance that triggers a new LOD layout.
	Hysteresis float32
}

// DefaultSettings mirrors the terrain defaults.
func DefaultSettings() Settings {
	return Settings{
		Scale:            1,
		MinChunkSizeLog2: 4,
		ShellSize:        2,
		LevelCount:       20,
		MaxChunkSizeLog2: 4 + 19,
		Hysteresis:       64,
	}
}

// Policy maps positions to levels of detail around a tracked camera.
// Reads are safe from any goroutine; the camera only moves through
// UpdateCamera.
type Policy struct {
	settings Settings
	invChunk float64

	mu      sync.RWMutex
	camera  [3]float64 // chunk units
	cameraW mgl32.Vec3 // world units
	placed  bool
}

// New creates a policy with the camera at the origin.
func New(s Settings) *Policy {
	if s.ShellSize < 2 {
		s.ShellSize = 2
	}
	if s.LevelCount <= 0 {
		s.LevelCount = 1
	}
	if s.Scale <= 0 {
		s.Scale = 1
	}
	return &Policy{
		settings: s,
		invChunk: 1 / (float64(uint64(1)<<s.MinChunkSizeLog2) * float64(s.Scale)),
	}
}

func (p *Policy) Settings() Settings { return p.settings }

// Camera returns the position the current layout was computed for.
func (p *Policy) Camera() mgl32.Vec3 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cameraW
}

// UpdateCamera moves the tracked camera when forced or when it travelled more
// than the hysteresis distance. It reports whether the layout changed.
func (p *Policy) UpdateCamera(pos mgl32.Vec3, force bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.placed && !force && pos.Sub(p.cameraW).Len() <= p.settings.Hysteresis {
		return false
	}
	p.placed = true
	p.cameraW = pos
	p.camera = [3]float64{
		float64(pos[0]) * p.invChunk,
		float64(pos[1]) * p.invChunk,
		float64(pos[2]) * p.invChunk,
	}
	return true
}

// GridSize is the shell grid step of level l, in chunk units.
func GridSize(l int) float64 {
	return math.Ldexp(1, l+2)
}

// LODToGridSize is the world size of a level-l cell pair, matching the
// spacing of level l samples.
func (p *Policy) LODToGridSize(l int) float32 {
	return float32(uint64(1)<<uint(l+1)) * p.settings.Scale
}

// ChunkSizeLog2 is the node size of a chunk at level l.
func (p *Policy) ChunkSizeLog2(l int) uint32 {
	return uint32(l) + p.settings.MinChunkSizeLog2
}

func (p *Policy) toChunk(pos mgl32.Vec3) [3]float64 {
	return [3]float64{
		float64(pos[0]) * p.invChunk,
		float64(pos[1]) * p.invChunk,
		float64(pos[2]) * p.invChunk,
	}
}

func (p *Policy) cam() [3]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.camera
}

// InShell reports whether pos lies inside the shell of level l around the
// camera snapped to that level's grid.
func (p *Policy) InShell(pos mgl32.Vec3, l int) bool {
	return p.inShell(p.toChunk(pos), p.cam(), l)
}

func (p *Policy) inShell(pos, cam [3]float64, l int) bool {
	grid := GridSize(l)
	limit := grid * float64(p.settings.ShellSize)
	for i := 0; i < 3; i++ {
		snapped := math.Floor(cam[i]/grid) * grid
		if math.Abs(pos[i]-snapped) >= limit {
			return false
		}
	}
	return true
}

// LODAt returns the level of detail at pos, or -1 beyond the last shell.
// The log2 estimate is within one level of the shell answer and is corrected
// with explicit shell checks.
func (p *Policy) LODAt(pos mgl32.Vec3) int {
	cp, cam := p.toChunk(pos), p.cam()
	delta := 0.0
	for i := 0; i < 3; i++ {
		delta = max(delta, math.Abs(cp[i]-cam[i]))
	}
	delta /= 2 * float64(p.settings.ShellSize)
	l := max(0, int(math.Floor(math.Log2(max(1, delta)))))

	switch {
	case !p.inShell(cp, cam, l):
		l++
	case l > 0 && p.inShell(cp, cam, l-1):
		l--
	}
	if l >= p.settings.LevelCount {
		return -1
	}
	return l
}

// LODAtBruteForce walks the shells from the finest level outwards.
func (p *Policy) LODAtBruteForce(pos mgl32.Vec3) int {
	cp, cam := p.toChunk(pos), p.cam()
	for l := 0; l < p.settings.LevelCount; l++ {
		if p.inShell(cp, cam, l) {
			return l
		}
	}
	return -1
}

// DesiredLOD is the level a node of the given size centered at center should
// use. Nodes larger than the biggest chunk are not LOD managed and report 0 so
// that builds keep descending through them.
func (p *Policy) DesiredLOD(center mgl32.Vec3, sizeLog2 uint32) int {
	if sizeLog2 > p.settings.MaxChunkSizeLog2 {
		return 0
	}
	return p.LODAt(center)
}
