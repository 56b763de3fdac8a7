package terrain

import (
	"sdfterrain/internal/geom"
	"sdfterrain/internal/meshing"

	"github.com/go-gl/mathgl/mgl32"
)

var faceOffsets = [6]mgl32.Vec3{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// LeavesInBounds returns the nodes intersecting b that sit at their own LOD,
// or leaves coarser than it. Below a chunk every node uses the chunk's LOD.
func (t *Terrain) LeavesInBounds(b geom.Bounds) []*Node {
	var out []*Node
	t.leavesInBounds(t.root, b, &out)
	return out
}

func (t *Terrain) leavesInBounds(n *Node, b geom.Bounds, out *[]*Node) {
	if !n.Bounds(t.settings.Scale).Intersects(b) {
		return
	}
	size, lod := int32(n.SizeLog2()), n.Data.LOD
	if size == lod || (n.IsLeaf() && size >= lod) {
		*out = append(*out, n)
		return
	}
	if n.IsLeaf() {
		return
	}
	chunk := t.isChunk(n)
	for _, c := range n.Children() {
		if chunk {
			t.leavesAtLOD(c, b, int(lod), out)
		} else {
			t.leavesInBounds(c, b, out)
		}
	}
}

// LeavesInBoundsAtLOD returns the nodes of size lod intersecting b, plus
// leaves coarser than lod standing in for the missing ones.
func (t *Terrain) LeavesInBoundsAtLOD(b geom.Bounds, lod int) []*Node {
	var out []*Node
	t.leavesAtLOD(t.root, b, lod, &out)
	return out
}

func (t *Terrain) leavesAtLOD(n *Node, b geom.Bounds, lod int, out *[]*Node) {
	if !n.Bounds(t.settings.Scale).Intersects(b) {
		return
	}
	if int(n.SizeLog2()) <= lod || n.IsLeaf() {
		*out = append(*out, n)
		return
	}
	for _, c := range n.Children() {
		t.leavesAtLOD(c, b, lod, out)
	}
}

// leavesExcluding gathers nodes of size lod inside accept whose bounds stay
// clear of reject.
func (t *Terrain) leavesExcluding(n *Node, accept, reject geom.Bounds, lod int, out *[]*Node) {
	b := n.Bounds(t.settings.Scale)
	if !accept.Intersects(b) {
		return
	}
	if int(n.SizeLog2()) <= lod || n.IsLeaf() {
		if !reject.Intersects(b) {
			*out = append(*out, n)
		}
		return
	}
	for _, c := range n.Children() {
		t.leavesExcluding(c, accept, reject, lod, out)
	}
}

// ComputeBoundaries compares n's LOD with the LOD one edge length away on
// each face. Bit i marks a coarser neighbor, bit i+8 a finer one.
func (t *Terrain) ComputeBoundaries(n *Node) meshing.Boundaries {
	var b meshing.Boundaries
	edge := n.EdgeLength(t.settings.Scale)
	lod := int(n.Data.LOD)
	for i, off := range faceOffsets {
		l := t.policy.LODAt(n.Center().Add(off.Mul(edge)))
		if lod < l {
			b |= 1 << i
		}
		if lod > l {
			b |= 1 << (i + 8)
		}
	}
	return b
}

// snapshot copies everything a mesh job of n needs out of the tree. It runs
// on the owner goroutine; the result is immutable.
func (t *Terrain) snapshot(n *Node) (*meshing.ChunkContext, meshing.Boundaries) {
	if !t.isChunk(n) {
		return nil, 0
	}
	lod := int(n.Data.LOD)
	center := n.Center()
	edge := n.EdgeLength(t.settings.Scale)
	cells := 1 << t.minChunk()
	b := t.ComputeBoundaries(n)

	var leaves []*Node
	t.leavesAtLOD(t.root, meshing.PaddedBounds(center, edge, cells), lod, &leaves)
	if len(leaves) == 0 {
		return nil, b
	}
	inner := toSamples(leaves, t.settings.Scale)

	var ring []meshing.Sample
	if b.Coarser() != 0 {
		accept, reject := meshing.RingBounds(center, edge, cells, b)
		var rl []*Node
		t.leavesExcluding(t.root, accept, reject, lod+1, &rl)
		ring = toSamples(rl, t.settings.Scale)
	}
	return meshing.NewChunkContext(center, edge, lod, cells, b, inner, ring), b
}

func toSamples(nodes []*Node, scale float32) []meshing.Sample {
	out := make([]meshing.Sample, len(nodes))
	for i, n := range nodes {
		v := refresh(n)
		out[i] = meshing.Sample{
			Center:   n.Center(),
			Size:     n.EdgeLength(scale),
			Value:    v.Value,
			Normal:   v.Normal,
			Material: v.Material,
		}
	}
	return out
}
