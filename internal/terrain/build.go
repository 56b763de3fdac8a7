package terrain

import (
	"sdfterrain/internal/sdf"
)

// surfaceSlack widens the circumscribed radius of a node (edge * cbrt(3))
// when deciding whether it may contain the surface.
const (
	circumscribed = 1.44224957
	surfaceSlack  = 1.75
)

func (t *Terrain) nearSurface(n *Node, value float32) bool {
	return abs32(value) < n.EdgeLength(t.settings.Scale)*circumscribed*surfaceSlack
}

func (t *Terrain) minChunk() uint32 { return t.settings.LOD.MinChunkSizeLog2 }

// isChunk reports whether n is meshed as one chunk at its current LOD.
func (t *Terrain) isChunk(n *Node) bool {
	return n.Data.LOD >= 0 && n.SizeLog2() == uint32(n.Data.LOD)+t.minChunk()
}

// build walks the tree from n, refining it around the surface to the LOD the
// policy asks for and queueing chunks whose mesh is missing or out of date.
func (t *Terrain) build(n *Node) {
	lod := t.policy.DesiredLOD(n.Center(), n.SizeLog2())
	n.Data.LOD = int32(lod)
	if lod < 0 {
		t.releaseMesh(n)
		return
	}

	size := n.SizeLog2()
	if !n.Data.Generated {
		s := sdf.At(t.field, n.Center())
		setValue(n, s.Value, s.Normal)
		if t.nearSurface(n, s.Value) && size > uint32(lod) {
			t.subdivide(n, inherit)
			n.Data.Generated = true
		}
		// A leaf that stays a leaf is final until an edit touches it.
		if n.IsLeaf() && (size > uint32(lod) || size == 0) {
			n.Data.Generated = true
			markMaterialized(n)
			return
		}
	}

	chunk := t.isChunk(n)
	if chunk && !n.IsLeaf() && (!n.Data.Meshed || n.Data.Boundaries != t.ComputeBoundaries(n)) {
		t.EnqueueChunkUpdate(n)
	}

	if !n.IsLeaf() && !(chunk && n.Data.Meshed) &&
		(n.Data.Materialized != fullyMaterialized || size > t.minChunk()) {
		for _, c := range n.Children() {
			t.build(c)
		}
	}

	if !chunk {
		t.releaseMesh(n)
	}
}

// subdivide splits a leaf and forgets that its ancestors are complete.
func (t *Terrain) subdivide(n *Node, init func(parent, child *Node)) bool {
	if !n.Subdivide(t.settings.Scale, 0, init) {
		return false
	}
	clearMaterialized(n)
	return true
}

// prune drops the subtree below n unless one of its nodes has a job in
// flight. Detached nodes get a new generation so their pending results are
// discarded.
func (t *Terrain) prune(n *Node) bool {
	if n.IsLeaf() {
		return false
	}
	inFlight := false
	n.Walk(func(c *Node) bool {
		if busy(c) {
			inFlight = true
		}
		return !inFlight
	})
	if inFlight {
		return false
	}
	n.Prune(func(c *Node) {
		c.Data.Generation++
		if c.Data.Mesh != nil {
			t.released = append(t.released, c)
		}
		c.Data.Mesh = nil
		c.Data.Meshed = false
	})
	n.Data.Materialized = 0
	return true
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
