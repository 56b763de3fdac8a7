package physics

import (
	"sdfterrain/internal/geom"
	"sdfterrain/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	MinReachDistance = 0.1
	MaxReachDistance = 5.0
)

// parallelEpsilon rejects rays nearly parallel to a triangle.
const parallelEpsilon = 1e-7

// RaycastResult stores the result of a raycast operation
type RaycastResult struct {
	Position mgl32.Vec3
	// Normal is the geometric normal of the hit triangle, facing the ray.
	Normal   mgl32.Vec3
	Distance float32
	Hit      bool
}

// Raycast returns the nearest triangle hit along direction with a distance in
// [minDist, maxDist].
func (c *Colliders[K]) Raycast(start, direction mgl32.Vec3, minDist, maxDist float32) RaycastResult {
	defer profiling.Track("physics.Raycast")()
	dir := geom.NormalizeOr(direction, mgl32.Vec3{0, 0, 1})
	result := RaycastResult{Distance: maxDist}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.shapes {
		if !rayHitsBox(start, dir, s.bounds, maxDist) {
			continue
		}
		for t := 0; t+2 < len(s.tris); t += 3 {
			a, b, cc := s.tris[t], s.tris[t+1], s.tris[t+2]
			d, ok := intersect(start, dir, a, b, cc)
			if !ok || d < minDist || d > result.Distance {
				continue
			}
			n := b.Sub(a).Cross(cc.Sub(a))
			if n.Dot(dir) > 0 {
				n = n.Mul(-1)
			}
			result = RaycastResult{
				Position: start.Add(dir.Mul(d)),
				Normal:   geom.NormalizeOr(n, mgl32.Vec3{0, 1, 0}),
				Distance: d,
				Hit:      true,
			}
		}
	}
	if !result.Hit {
		result.Distance = 0
	}
	return result
}

// intersect is the Möller-Trumbore ray/triangle test. Both faces count.
func intersect(orig, dir, a, b, c mgl32.Vec3) (float32, bool) {
	e1, e2 := b.Sub(a), c.Sub(a)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if det > -parallelEpsilon && det < parallelEpsilon {
		return 0, false
	}
	inv := 1 / det
	s := orig.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	return t, t >= 0
}

// rayHitsBox is the slab test against b, limited to maxDist.
func rayHitsBox(orig, dir mgl32.Vec3, b geom.Bounds, maxDist float32) bool {
	tmin, tmax := float32(0), maxDist
	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if orig[i] < b.Min[i] || orig[i] > b.Max[i] {
				return false
			}
			continue
		}
		inv := 1 / dir[i]
		t0, t1 := (b.Min[i]-orig[i])*inv, (b.Max[i]-orig[i])*inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tmin, tmax = max(tmin, t0), min(tmax, t1)
		if tmin > tmax {
			return false
		}
	}
	return true
}
