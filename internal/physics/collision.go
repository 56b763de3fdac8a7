package physics

import (
	"sync"

	"sdfterrain/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// shape is one chunk's collision triangles in world space.
type shape struct {
	tris   []mgl32.Vec3
	bounds geom.Bounds
}

// Colliders holds the collision triangles of the terrain chunks, keyed by
// whatever identifies a chunk to the caller. Safe for concurrent use.
type Colliders[K comparable] struct {
	mu     sync.RWMutex
	shapes map[K]shape
}

func NewColliders[K comparable]() *Colliders[K] {
	return &Colliders[K]{shapes: make(map[K]shape)}
}

// Set replaces the triangles of key. tris are relative to center, three
// vertices per triangle; an empty list removes the key.
func (c *Colliders[K]) Set(key K, center mgl32.Vec3, tris []mgl32.Vec3) {
	if len(tris) < 3 {
		c.Remove(key)
		return
	}
	s := shape{tris: make([]mgl32.Vec3, len(tris)/3*3), bounds: geom.Empty()}
	for i := range s.tris {
		p := tris[i].Add(center)
		s.tris[i] = p
		s.bounds = s.bounds.Union(geom.Bounds{Min: p, Max: p})
	}
	c.mu.Lock()
	c.shapes[key] = s
	c.mu.Unlock()
}

func (c *Colliders[K]) Remove(key K) {
	c.mu.Lock()
	delete(c.shapes, key)
	c.mu.Unlock()
}

// Len is the number of chunks with colliders.
func (c *Colliders[K]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.shapes)
}

// Triangles is the total triangle count.
func (c *Colliders[K]) Triangles() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, s := range c.shapes {
		n += len(s.tris) / 3
	}
	return n
}

// Collides reports whether a sphere touches any triangle.
func (c *Colliders[K]) Collides(center mgl32.Vec3, radius float32) bool {
	box := geom.Cube(center, radius)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.shapes {
		if !s.bounds.Intersects(box) {
			continue
		}
		for t := 0; t+2 < len(s.tris); t += 3 {
			p := closestOnTriangle(center, s.tris[t], s.tris[t+1], s.tris[t+2])
			if p.Sub(center).LenSqr() <= radius*radius {
				return true
			}
		}
	}
	return false
}

// GroundHeight casts straight down from (x, fromY, z) and returns the height
// of the first surface within maxDrop.
func (c *Colliders[K]) GroundHeight(x, z, fromY, maxDrop float32) (float32, bool) {
	r := c.Raycast(mgl32.Vec3{x, fromY, z}, mgl32.Vec3{0, -1, 0}, 0, maxDrop)
	if !r.Hit {
		return 0, false
	}
	return r.Position[1], true
}

// closestOnTriangle is the point of triangle abc closest to p.
func closestOnTriangle(p, a, b, c mgl32.Vec3) mgl32.Vec3 {
	ab, ac, ap := b.Sub(a), c.Sub(a), p.Sub(a)
	d1, d2 := ab.Dot(ap), ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}
	bp := p.Sub(b)
	d3, d4 := ab.Dot(bp), ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return a.Add(ab.Mul(d1 / (d1 - d3)))
	}
	cp := p.Sub(c)
	d5, d6 := ab.Dot(cp), ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return a.Add(ac.Mul(d2 / (d2 - d6)))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		return b.Add(c.Sub(b).Mul((d4 - d3) / ((d4 - d3) + (d5 - d6))))
	}
	denom := 1 / (va + vb + vc)
	v, w := vb*denom, vc*denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}
