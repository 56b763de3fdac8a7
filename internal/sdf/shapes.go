package sdf

import (
	"math"

	"sdfterrain/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// unbounded is the half extent used by fields without a natural bound.
const unbounded = 1e9

// Sphere is a ball around Center.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

func (s Sphere) Distance(p mgl32.Vec3) float32 {
	return p.Sub(s.Center).Len() - s.Radius
}

func (s Sphere) Normal(p mgl32.Vec3) mgl32.Vec3 {
	return geom.NormalizeOr(p.Sub(s.Center), Up)
}

func (s Sphere) Bounds() geom.Bounds {
	return geom.Cube(s.Center, s.Radius)
}

// Box is an axis-aligned box given by its half extents.
type Box struct {
	Center      mgl32.Vec3
	HalfExtents mgl32.Vec3
}

func (b Box) offset(p mgl32.Vec3) mgl32.Vec3 {
	return geom.AbsVec(p.Sub(b.Center)).Sub(b.HalfExtents)
}

func (b Box) Distance(p mgl32.Vec3) float32 {
	q := b.offset(p)
	outside := geom.MaxVec(q, mgl32.Vec3{}).Len()
	return outside + min(geom.MaxComponent(q), 0)
}

func (b Box) Normal(p mgl32.Vec3) mgl32.Vec3 {
	d := p.Sub(b.Center)
	q := b.offset(p)
	if geom.MaxComponent(q) > 0 {
		out := geom.MaxVec(q, mgl32.Vec3{})
		for i := 0; i < 3; i++ {
			if d[i] < 0 {
				out[i] = -out[i]
			}
		}
		return geom.NormalizeOr(out, Up)
	}
	axis := 0
	for i := 1; i < 3; i++ {
		if q[i] > q[axis] {
			axis = i
		}
	}
	var n mgl32.Vec3
	n[axis] = 1
	if d[axis] < 0 {
		n[axis] = -1
	}
	return n
}

func (b Box) Bounds() geom.Bounds {
	return geom.Bounds{Min: b.Center.Sub(b.HalfExtents), Max: b.Center.Add(b.HalfExtents)}
}

// Plane is the half space dot(N, p) + Offset <= 0.
type Plane struct {
	N      mgl32.Vec3
	Offset float32
}

// NewPlane normalizes n, falling back to +Y for a degenerate normal.
func NewPlane(n mgl32.Vec3, offset float32) Plane {
	return Plane{N: geom.NormalizeOr(n, Up), Offset: offset}
}

func (p Plane) Distance(x mgl32.Vec3) float32 {
	return p.N.Dot(x) + p.Offset
}

func (p Plane) Normal(mgl32.Vec3) mgl32.Vec3 { return p.N }

func (p Plane) Bounds() geom.Bounds { return geom.Cube(mgl32.Vec3{}, unbounded) }

// Planet is a sphere whose surface is displaced by 3D value noise. Valleys
// are half as deep as peaks are high.
type Planet struct {
	Center     mgl32.Vec3
	Radius     float32
	NoiseScale float32
	Noise      Noise
}

// NewPlanet uses the default radius and noise amplitude.
func NewPlanet(center mgl32.Vec3, seed int64) *Planet {
	return &Planet{Center: center, Radius: 1000, NoiseScale: 50, Noise: DefaultNoise(seed)}
}

func (p *Planet) Distance(x mgl32.Vec3) float32 {
	base := x.Sub(p.Center).Len() - p.Radius
	if base > p.NoiseScale*1.25 {
		return base
	}
	h := float32(p.Noise.At3(float64(x[0]), float64(x[1]), float64(x[2])))
	if h < 0 {
		return base - 0.5*h*p.NoiseScale
	}
	return base - h*p.NoiseScale
}

func (p *Planet) Normal(x mgl32.Vec3) mgl32.Vec3 { return GradientNormal(p, x) }

func (p *Planet) Bounds() geom.Bounds {
	return geom.Cube(p.Center, p.Radius+p.NoiseScale*1.25)
}

// Heightfield is a ground surface y = height(x, z) built from 2D noise.
type Heightfield struct {
	HeightScale float32
	Noise       Noise
}

const heightEpsilon = 0.01

func (h *Heightfield) height(x, z float32) float32 {
	n := float32(h.Noise.At2(float64(x), float64(z)))
	if n > 0 {
		return h.HeightScale * 2 * n
	}
	return h.HeightScale * n
}

func (h *Heightfield) gradient(x, z, y0 float32) (float32, float32) {
	gx := (h.height(x+heightEpsilon, z) - y0) / heightEpsilon
	gz := (h.height(x, z+heightEpsilon) - y0) / heightEpsilon
	return gx, gz
}

func (h *Heightfield) Distance(p mgl32.Vec3) float32 {
	y0 := h.height(p[0], p[2])
	gx, gz := h.gradient(p[0], p[2], y0)
	return (p[1] - y0) / float32(math.Sqrt(float64(1+gx*gx+gz*gz)))
}

func (h *Heightfield) Normal(p mgl32.Vec3) mgl32.Vec3 {
	y0 := h.height(p[0], p[2])
	gx, gz := h.gradient(p[0], p[2], y0)
	return geom.NormalizeOr(mgl32.Vec3{-gx, 1, -gz}, Up)
}

func (h *Heightfield) Bounds() geom.Bounds {
	return geom.Bounds{
		Min: mgl32.Vec3{-unbounded, -2 * h.HeightScale, -unbounded},
		Max: mgl32.Vec3{unbounded, 2 * h.HeightScale, unbounded},
	}
}
