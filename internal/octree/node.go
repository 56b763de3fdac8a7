package octree

import (
	"sdfterrain/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// ChildOffsets lists the octant directions in child index order: x varies
// fastest, then y, then z.
var ChildOffsets = [8]mgl32.Vec3{
	{-1, -1, -1},
	{1, -1, -1},
	{-1, 1, -1},
	{1, 1, -1},
	{-1, -1, 1},
	{1, -1, 1},
	{-1, 1, 1},
	{1, 1, 1},
}

// Node is a sparse octree node carrying a payload of type T. Children are
// owned exclusively through their slot; the parent link is an observation
// pointer and never keeps anything alive.
type Node[T any] struct {
	Data T

	center   mgl32.Vec3
	sizeLog2 uint32
	parent   *Node[T]
	children *[8]*Node[T]
}

// NewRoot creates a parentless node.
func NewRoot[T any](center mgl32.Vec3, sizeLog2 uint32, data T) *Node[T] {
	return &Node[T]{Data: data, center: center, sizeLog2: sizeLog2}
}

func (n *Node[T]) Center() mgl32.Vec3 { return n.center }

func (n *Node[T]) SizeLog2() uint32 { return n.sizeLog2 }

func (n *Node[T]) Parent() *Node[T] { return n.parent }

// IsLeaf reports whether no children array is allocated.
func (n *Node[T]) IsLeaf() bool { return n.children == nil }

// Children returns the child slots, or nil for a leaf.
func (n *Node[T]) Children() *[8]*Node[T] { return n.children }

// Child returns child i, or nil for a leaf.
func (n *Node[T]) Child(i int) *Node[T] {
	if n.children == nil {
		return nil
	}
	return n.children[i]
}

// EdgeLength is the world-space edge length of the node's cube.
func (n *Node[T]) EdgeLength(scale float32) float32 {
	return float32(uint64(1)<<n.sizeLog2) * scale
}

// Bounds is the node's cube in world space.
func (n *Node[T]) Bounds(scale float32) geom.Bounds {
	return geom.Cube(n.center, n.EdgeLength(scale)*0.5)
}

// Subdivide allocates the 8 children of a leaf. init is called once per child
// after its geometry and parent link are set, so it can inherit from the
// parent's payload. It is a no-op on interior nodes and at minSize.
func (n *Node[T]) Subdivide(scale float32, minSize uint32, init func(parent, child *Node[T])) bool {
	if n.children != nil || n.sizeLog2 <= minSize {
		return false
	}
	offset := n.EdgeLength(scale) * 0.25
	var children [8]*Node[T]
	for i, dir := range ChildOffsets {
		c := &Node[T]{
			center:   n.center.Add(dir.Mul(offset)),
			sizeLog2: n.sizeLog2 - 1,
			parent:   n,
		}
		if init != nil {
			init(n, c)
		}
		children[i] = c
	}
	n.children = &children
	return true
}

// Prune drops the whole subtree below n. The detached nodes are handed to
// release first, deepest first, so payload owners can invalidate handles.
func (n *Node[T]) Prune(release func(*Node[T])) {
	if n.children == nil {
		return
	}
	for _, c := range n.children {
		if c == nil {
			continue
		}
		c.Prune(release)
		if release != nil {
			release(c)
		}
		c.parent = nil
	}
	n.children = nil
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func (n *Node[T]) Walk(fn func(*Node[T]) bool) {
	if !fn(n) || n.children == nil {
		return
	}
	for _, c := range n.children {
		if c != nil {
			c.Walk(fn)
		}
	}
}

// Count returns the number of nodes in the subtree including n.
func (n *Node[T]) Count() int {
	total := 0
	n.Walk(func(*Node[T]) bool {
		total++
		return true
	})
	return total
}

// Depth returns the number of parent hops to the root.
func (n *Node[T]) Depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// Octant returns the child index whose octant contains p.
func (n *Node[T]) Octant(p mgl32.Vec3) int {
	i := 0
	if p[0] >= n.center[0] {
		i |= 1
	}
	if p[1] >= n.center[1] {
		i |= 2
	}
	if p[2] >= n.center[2] {
		i |= 4
	}
	return i
}
