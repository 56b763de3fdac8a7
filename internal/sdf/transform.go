package sdf

import (
	"math"

	"sdfterrain/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// Transformed places a field with translation, rotation and scale.
type Transformed struct {
	Inner Field

	forward    mgl32.Mat4
	inverse    mgl32.Mat4
	normalMat  mgl32.Mat3
	scaleRatio float32
}

// NewTransformed composes T*R*S around inner.
func NewTransformed(inner Field, translation mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) *Transformed {
	forward := mgl32.Translate3D(translation[0], translation[1], translation[2]).
		Mul4(rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(scale[0], scale[1], scale[2]))
	abs := geom.AbsVec(scale)
	return &Transformed{
		Inner:      inner,
		forward:    forward,
		inverse:    forward.Inv(),
		normalMat:  forward.Mat3().Inv().Transpose(),
		scaleRatio: min(abs[0], abs[1], abs[2]),
	}
}

func (t *Transformed) local(p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.TransformCoordinate(p, t.inverse)
}

// Distance is exact for uniform scale and a bound for non-uniform scale.
func (t *Transformed) Distance(p mgl32.Vec3) float32 {
	if t.Inner == nil {
		return inf()
	}
	return t.Inner.Distance(t.local(p)) * t.scaleRatio
}

func (t *Transformed) Normal(p mgl32.Vec3) mgl32.Vec3 {
	if t.Inner == nil {
		return Up
	}
	return geom.NormalizeOr(t.normalMat.Mul3x1(t.Inner.Normal(t.local(p))), Up)
}

func (t *Transformed) Bounds() geom.Bounds {
	if t.Inner == nil {
		return geom.Empty()
	}
	out := geom.Empty()
	for _, c := range t.Inner.Bounds().Corners() {
		w := mgl32.TransformCoordinate(c, t.forward)
		out = out.Union(geom.Bounds{Min: w, Max: w})
	}
	return out
}

// Combined joins two fields with a boolean operation. A missing operand
// makes the combination empty (+Inf everywhere).
type Combined struct {
	A, B Field
	Op   Operation
	K    float32
}

func (c *Combined) valid() bool { return c.A != nil && c.B != nil }

func (c *Combined) Distance(p mgl32.Vec3) float32 {
	if !c.valid() {
		return float32(math.Inf(1))
	}
	return ApplyValue(c.Op, c.A.Distance(p), c.B.Distance(p), c.K)
}

func (c *Combined) Normal(p mgl32.Vec3) mgl32.Vec3 {
	if !c.valid() {
		return Up
	}
	return Apply(c.Op, At(c.A, p), At(c.B, p), c.K).Normal
}

func (c *Combined) Bounds() geom.Bounds {
	if !c.valid() {
		return geom.Empty()
	}
	a, b := c.A.Bounds(), c.B.Bounds()
	switch c.Op {
	case Union:
		return a.Union(b)
	case SmoothUnion:
		return a.Union(b).Expand(c.K)
	case Subtraction, SmoothSubtraction:
		return a
	default:
		return a.Intersect(b)
	}
}
