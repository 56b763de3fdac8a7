package meshing

import (
	"math"

	"sdfterrain/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// Face indices used by boundary masks, in bit order.
const (
	FacePosX = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
)

// FaceDirections are the unit offsets of the six faces in bit order.
var FaceDirections = [6]mgl32.Vec3{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// Boundaries is the LOD signature of a chunk: bit f is set when the
// neighbor across face f is coarser, bit f+8 when it is finer.
type Boundaries uint16

func (b Boundaries) Coarser() uint8 { return uint8(b) & 0x3F }

func (b Boundaries) Finer() uint8 { return uint8(b>>8) & 0x3F }

func (b Boundaries) CoarserAt(face int) bool { return b&(1<<face) != 0 }

func (b Boundaries) FinerAt(face int) bool { return b&(1<<(face+8)) != 0 }

// Sample is an immutable copy of one octree node taken for a job.
type Sample struct {
	Center   mgl32.Vec3
	Size     float32
	Value    float32
	Normal   mgl32.Vec3
	Material uint32
}

// ChunkContext is the addressable neighborhood of one chunk. The inner grid
// covers the chunk plus one cell of padding on every side; the ring grid
// holds next-coarser samples around faces whose neighbor is coarser.
type ChunkContext struct {
	Center     mgl32.Vec3
	Edge       float32
	LOD        int
	Cells      int
	Boundaries Boundaries

	leaf    float32
	res     int
	origin  mgl32.Vec3
	samples []Sample
	grid    []int32

	ringSamples []Sample
	ring        map[[3]int32]int32
	ringOrigin  mgl32.Vec3
}

// PaddedBounds is the region whose samples NewChunkContext needs for the
// inner grid: the chunk grown by one leaf, minus a small epsilon.
func PaddedBounds(center mgl32.Vec3, edge float32, cells int) geom.Bounds {
	leaf := edge / float32(cells)
	return geom.Cube(center, edge*0.5).Expand(leaf - 0.001)
}

// RingBounds returns the acceptance region for ring samples and the interior
// region they must not intersect.
func RingBounds(center mgl32.Vec3, edge float32, cells int, b Boundaries) (accept, reject geom.Bounds) {
	leaf := edge / float32(cells)
	half := edge * 0.5
	chunk := geom.Cube(center, half)
	accept = geom.Empty()
	reject = chunk
	for f := 0; f < 6; f++ {
		if !b.CoarserAt(f) {
			continue
		}
		axis, positive := f/2, f%2 == 0
		slab := chunk.Expand(2 * leaf)
		if positive {
			slab.Min[axis] = chunk.Max[axis] - 2*leaf
			reject.Max[axis] = chunk.Max[axis] - 2*leaf
		} else {
			slab.Max[axis] = chunk.Min[axis] + 2*leaf
			reject.Min[axis] = chunk.Min[axis] + 2*leaf
		}
		accept = accept.Union(slab)
	}
	return accept.Expand(-0.001), reject.Expand(-0.001)
}

// NewChunkContext lays the samples out on the chunk's grids. Samples larger
// than a grid cell occupy every cell they cover.
func NewChunkContext(center mgl32.Vec3, edge float32, lod, cells int, b Boundaries, inner, ring []Sample) *ChunkContext {
	leaf := edge / float32(cells)
	chunkMin := center.Sub(mgl32.Vec3{edge * 0.5, edge * 0.5, edge * 0.5})
	c := &ChunkContext{
		Center:      center,
		Edge:        edge,
		LOD:         lod,
		Cells:       cells,
		Boundaries:  b,
		leaf:        leaf,
		res:         cells + 2,
		origin:      chunkMin.Sub(mgl32.Vec3{leaf, leaf, leaf}),
		samples:     inner,
		ringSamples: ring,
		ringOrigin:  chunkMin.Sub(mgl32.Vec3{2 * leaf, 2 * leaf, 2 * leaf}),
	}
	c.grid = make([]int32, c.res*c.res*c.res)
	for i, s := range inner {
		lo, span := cellRange(s, c.origin, leaf)
		for z := max(lo[2], 0); z < min(lo[2]+span, c.res); z++ {
			for y := max(lo[1], 0); y < min(lo[1]+span, c.res); y++ {
				for x := max(lo[0], 0); x < min(lo[0]+span, c.res); x++ {
					if idx := c.index(x, y, z); c.grid[idx] == 0 {
						c.grid[idx] = int32(i) + 1
					}
				}
			}
		}
	}
	if len(ring) > 0 {
		c.ring = make(map[[3]int32]int32, len(ring))
		limit := cells/2 + 2
		for i, s := range ring {
			lo, span := cellRange(s, c.ringOrigin, 2*leaf)
			for z := max(lo[2], 0); z < min(lo[2]+span, limit); z++ {
				for y := max(lo[1], 0); y < min(lo[1]+span, limit); y++ {
					for x := max(lo[0], 0); x < min(lo[0]+span, limit); x++ {
						key := [3]int32{int32(x), int32(y), int32(z)}
						if _, ok := c.ring[key]; !ok {
							c.ring[key] = int32(i)
						}
					}
				}
			}
		}
	}
	return c
}

func cellRange(s Sample, origin mgl32.Vec3, cell float32) ([3]int, int) {
	span := max(int(math.Round(float64(s.Size/cell))), 1)
	var lo [3]int
	for a := 0; a < 3; a++ {
		lo[a] = int(math.Round(float64((s.Center[a] - s.Size*0.5 - origin[a]) / cell)))
	}
	return lo, span
}

func (c *ChunkContext) index(x, y, z int) int {
	return (z*c.res+y)*c.res + x
}

// Leaf is the edge length of one inner cell.
func (c *ChunkContext) Leaf() float32 { return c.leaf }

// Resolution is the number of inner grid coordinates per axis.
func (c *ChunkContext) Resolution() int { return c.res }

// InnerAt returns the sample index at grid coordinate p, or -1.
func (c *ChunkContext) InnerAt(p [3]int) int32 {
	for a := 0; a < 3; a++ {
		if p[a] < 0 || p[a] >= c.res {
			return -1
		}
	}
	return c.grid[c.index(p[0], p[1], p[2])] - 1
}

// RingAt returns the ring sample index at ring coordinate p, or -1.
func (c *ChunkContext) RingAt(p [3]int) int32 {
	if c.ring == nil {
		return -1
	}
	if i, ok := c.ring[[3]int32{int32(p[0]), int32(p[1]), int32(p[2])}]; ok {
		return i
	}
	return -1
}

// Samples returns the inner samples.
func (c *ChunkContext) Samples() []Sample { return c.samples }

// RingSamples returns the ring samples.
func (c *ChunkContext) RingSamples() []Sample { return c.ringSamples }
