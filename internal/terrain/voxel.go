package terrain

import (
	"sdfterrain/internal/meshing"
	"sdfterrain/internal/octree"

	"github.com/go-gl/mathgl/mgl32"
)

// SampleState tracks the freshness of a node's value.
type SampleState uint8

const (
	// Unsampled nodes have never been given a value.
	Unsampled SampleState = iota
	// Clean values are current.
	Clean
	// Dirty interior values must be re-averaged from the children.
	Dirty
)

func (s SampleState) String() string {
	switch s {
	case Unsampled:
		return "unsampled"
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	}
	return "unknown"
}

// JobState is the mesh job lifecycle of a chunk node. Delivery returns the
// node to Idle.
type JobState uint8

const (
	Idle JobState = iota
	Queued
	Running
	Completed
)

func (s JobState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Queued:
		return "queued"
	case Running:
		return "running"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// fullyMaterialized is the Materialized mask of a finished subtree.
const fullyMaterialized = 0xFF

// Voxel is the payload of one octree node.
type Voxel struct {
	Value    float32
	Normal   mgl32.Vec3
	Material uint32
	LOD      int32

	Sample SampleState
	// Generated is set once the node's structure has been decided from its
	// sample; ungenerated nodes are re-sampled by the next build.
	Generated bool
	// Modified marks nodes touched by an edit; only they are persisted.
	Modified bool
	// Materialized has bit i set when child i's subtree is fully built.
	Materialized uint8

	Job JobState
	// Requeue asks for another job once the running one is delivered.
	Requeue bool
	// Generation changes whenever the node is detached, invalidating jobs.
	Generation uint32

	Mesh       *meshing.MeshData
	Meshed     bool
	Boundaries meshing.Boundaries
}

// Node is an octree node carrying a Voxel.
type Node = octree.Node[Voxel]

func busy(n *Node) bool {
	return n != nil && (n.Data.Job == Queued || n.Data.Job == Running)
}

func anyChildBusy(n *Node) bool {
	if n.IsLeaf() {
		return false
	}
	for _, c := range n.Children() {
		if busy(c) {
			return true
		}
	}
	return false
}

// markDirty flags n and its ancestors for re-averaging, stopping at the first
// ancestor that is already dirty.
func markDirty(n *Node) {
	for ; n != nil && n.Data.Sample != Dirty; n = n.Parent() {
		n.Data.Sample = Dirty
	}
}

// setValue stores a fresh sample and invalidates the parent's average.
func setValue(n *Node, value float32, normal mgl32.Vec3) {
	n.Data.Value = value
	n.Data.Normal = normal
	n.Data.Sample = Clean
	markDirty(n.Parent())
}

// refresh recomputes a dirty interior node from its children: the mean value,
// the re-normalized mean normal and the most common material.
func refresh(n *Node) *Voxel {
	v := &n.Data
	if v.Sample != Dirty {
		return v
	}
	v.Sample = Clean
	if n.IsLeaf() {
		return v
	}
	var (
		sum    float32
		normal mgl32.Vec3
		counts [8]struct {
			material uint32
			n        int
		}
		distinct int
	)
	for _, c := range n.Children() {
		cv := refresh(c)
		sum += cv.Value
		normal = normal.Add(cv.Normal)
		found := false
		for i := 0; i < distinct; i++ {
			if counts[i].material == cv.Material {
				counts[i].n++
				found = true
				break
			}
		}
		if !found {
			counts[distinct].material, counts[distinct].n = cv.Material, 1
			distinct++
		}
	}
	v.Value = sum * 0.125
	if l := normal.Len(); l > 1e-12 {
		v.Normal = normal.Mul(1 / l)
	}
	best := counts[0]
	for _, c := range counts[1:distinct] {
		if c.n > best.n || (c.n == best.n && c.material < best.material) {
			best = c
		}
	}
	v.Material = best.material
	return v
}

// markMaterialized records that n's subtree is complete and propagates the
// fact to ancestors whose children are now all complete.
func markMaterialized(n *Node) {
	for n != nil {
		if n.Data.Materialized == fullyMaterialized {
			return
		}
		if n.IsLeaf() {
			n.Data.Materialized = fullyMaterialized
		} else {
			var mask uint8
			for i, c := range n.Children() {
				if c.Data.Materialized == fullyMaterialized {
					mask |= 1 << i
				}
			}
			n.Data.Materialized = mask
			if mask != fullyMaterialized {
				return
			}
		}
		n = n.Parent()
	}
}

// clearMaterialized forgets that n's subtree, and therefore every ancestor,
// is complete.
func clearMaterialized(n *Node) {
	for ; n != nil; n = n.Parent() {
		n.Data.Materialized = 0
	}
}

// inherit initializes a new child from its parent: the parent's sample is a
// placeholder until the child is sampled itself.
func inherit(parent, child *Node) {
	p := &parent.Data
	child.Data = Voxel{
		Value:     p.Value,
		Normal:    p.Normal,
		Material:  p.Material,
		LOD:       p.LOD,
		Sample:    p.Sample,
		Generated: p.Generated,
	}
	if child.Data.Sample == Dirty {
		child.Data.Sample = Clean
	}
}
