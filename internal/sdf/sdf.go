package sdf

import (
	"math"

	"sdfterrain/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// Field is a signed distance provider: negative inside, positive outside.
// Implementations must be safe for concurrent reads.
type Field interface {
	Distance(p mgl32.Vec3) float32
	Normal(p mgl32.Vec3) mgl32.Vec3
	Bounds() geom.Bounds
}

// Sample is a distance with its surface normal.
type Sample struct {
	Value  float32
	Normal mgl32.Vec3
}

// Up is the fallback normal for degenerate gradients.
var Up = mgl32.Vec3{0, 1, 0}

const normalDelta = 0.001

// At samples value and normal of f at p.
func At(f Field, p mgl32.Vec3) Sample {
	return Sample{Value: f.Distance(p), Normal: f.Normal(p)}
}

// GradientNormal estimates the normal with a tetrahedral finite difference.
func GradientNormal(f Field, p mgl32.Vec3) mgl32.Vec3 {
	k0 := mgl32.Vec3{1, -1, -1}
	k1 := mgl32.Vec3{-1, -1, 1}
	k2 := mgl32.Vec3{-1, 1, -1}
	k3 := mgl32.Vec3{1, 1, 1}
	n := k0.Mul(f.Distance(p.Add(k0.Mul(normalDelta)))).
		Add(k1.Mul(f.Distance(p.Add(k1.Mul(normalDelta))))).
		Add(k2.Mul(f.Distance(p.Add(k2.Mul(normalDelta))))).
		Add(k3.Mul(f.Distance(p.Add(k3.Mul(normalDelta)))))
	return geom.NormalizeOr(n, Up)
}

const (
	marchEpsilon  = 0.01
	marchMaxSteps = 100
)

// RayMarch sphere-traces f from origin along dir. It returns the hit point and
// true when the surface is reached within maxDist.
func RayMarch(f Field, origin, dir mgl32.Vec3, maxDist float32) (mgl32.Vec3, bool) {
	dir = geom.NormalizeOr(dir, Up)
	var travelled float32
	for i := 0; i < marchMaxSteps; i++ {
		p := origin.Add(dir.Mul(travelled))
		d := f.Distance(p)
		if d < marchEpsilon {
			return p, true
		}
		travelled += d
		if travelled > maxDist {
			break
		}
	}
	return mgl32.Vec3{}, false
}

func isFinite(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

func inf() float32 { return float32(math.Inf(1)) }
