package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Bounds is an axis-aligned box. The zero value is the degenerate box at the
// origin; Empty() is the identity of Union.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Empty returns a box that contains nothing and is the identity of Union.
func Empty() Bounds {
	return Bounds{
		Min: mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// New builds a box from two arbitrary corners.
func New(a, b mgl32.Vec3) Bounds {
	return Bounds{Min: MinVec(a, b), Max: MaxVec(a, b)}
}

// Cube returns the box centered on c with the given half extent.
func Cube(c mgl32.Vec3, half float32) Bounds {
	h := mgl32.Vec3{half, half, half}
	return Bounds{Min: c.Sub(h), Max: c.Add(h)}
}

func (b Bounds) IsValid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

func (b Bounds) Center() mgl32.Vec3 { return b.Min.Add(b.Max).Mul(0.5) }

func (b Bounds) Size() mgl32.Vec3 { return b.Max.Sub(b.Min) }

// Contains reports whether p lies inside or on the box.
func (b Bounds) Contains(p mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Intersects is inclusive: boxes that only touch intersect.
func (b Bounds) Intersects(o Bounds) bool {
	for i := 0; i < 3; i++ {
		if b.Max[i] < o.Min[i] || o.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

// Encloses reports whether o lies entirely inside b.
func (b Bounds) Encloses(o Bounds) bool {
	for i := 0; i < 3; i++ {
		if o.Min[i] < b.Min[i] || o.Max[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Intersect returns the overlap, or Empty() when the boxes are disjoint.
func (b Bounds) Intersect(o Bounds) Bounds {
	if !b.Intersects(o) {
		return Empty()
	}
	return Bounds{Min: MaxVec(b.Min, o.Min), Max: MinVec(b.Max, o.Max)}
}

func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{Min: MinVec(b.Min, o.Min), Max: MaxVec(b.Max, o.Max)}
}

// Subtract removes o from b when the remainder is still a box, that is when o
// covers b fully on two axes and overlaps one side of the third. Otherwise b
// is returned unchanged.
func (b Bounds) Subtract(o Bounds) Bounds {
	if !b.Intersects(o) {
		return b
	}
	if o.Encloses(b) {
		return Empty()
	}
	axis := -1
	for i := 0; i < 3; i++ {
		if o.Min[i] <= b.Min[i] && o.Max[i] >= b.Max[i] {
			continue
		}
		if axis >= 0 {
			return b
		}
		axis = i
	}
	if axis < 0 {
		return b
	}
	out := b
	switch {
	case o.Min[axis] <= b.Min[axis]:
		out.Min[axis] = o.Max[axis]
	case o.Max[axis] >= b.Max[axis]:
		out.Max[axis] = o.Min[axis]
	}
	return out
}

// ShaveByClosestPlane moves the face of b nearest to p onto p, keeping the
// half of the box that does not contain the face.
func (b Bounds) ShaveByClosestPlane(p mgl32.Vec3) Bounds {
	if !b.Contains(p) {
		return b
	}
	best := float32(math.MaxFloat32)
	axis, toMax := 0, false
	for i := 0; i < 3; i++ {
		if d := p[i] - b.Min[i]; d < best {
			best, axis, toMax = d, i, false
		}
		if d := b.Max[i] - p[i]; d < best {
			best, axis, toMax = d, i, true
		}
	}
	out := b
	if toMax {
		out.Max[axis] = p[axis]
	} else {
		out.Min[axis] = p[axis]
	}
	return out
}

// Expand grows the box by f on every side. Negative values shrink it.
func (b Bounds) Expand(f float32) Bounds {
	return b.ExpandVec(mgl32.Vec3{f, f, f})
}

func (b Bounds) ExpandVec(v mgl32.Vec3) Bounds {
	return Bounds{Min: b.Min.Sub(v), Max: b.Max.Add(v)}
}

// Recenter moves the box so that its center becomes c.
func (b Bounds) Recenter(c mgl32.Vec3) Bounds {
	return b.Translate(c.Sub(b.Center()))
}

func (b Bounds) Translate(v mgl32.Vec3) Bounds {
	return Bounds{Min: b.Min.Add(v), Max: b.Max.Add(v)}
}

func (b Bounds) Scale(f float32) Bounds {
	return New(b.Min.Mul(f), b.Max.Mul(f))
}

// Corners returns the 8 corners in octant order (x fastest, then y, then z).
func (b Bounds) Corners() [8]mgl32.Vec3 {
	var out [8]mgl32.Vec3
	for i := range out {
		c := b.Min
		if i&1 != 0 {
			c[0] = b.Max[0]
		}
		if i&2 != 0 {
			c[1] = b.Max[1]
		}
		if i&4 != 0 {
			c[2] = b.Max[2]
		}
		out[i] = c
	}
	return out
}

func MinVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])}
}

func MaxVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])}
}

// MulVec multiplies componentwise.
func MulVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func AbsVec(a mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{abs32(a[0]), abs32(a[1]), abs32(a[2])}
}

// MaxComponent returns the largest component of v.
func MaxComponent(v mgl32.Vec3) float32 {
	return max(v[0], v[1], v[2])
}

// NormalizeOr returns v normalized, or fallback when v has no usable length.
func NormalizeOr(v, fallback mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l < 1e-12 || math.IsNaN(float64(l)) || math.IsInf(float64(l), 0) {
		return fallback
	}
	return v.Mul(1 / l)
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
