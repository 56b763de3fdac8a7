package meshing

import (
	"sdfterrain/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// CornerOffsets are the 8 cell corners; bit 0 is x, bit 1 is y, bit 2 is z.
var CornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
}

// CellEdges are the 12 cell edges as corner pairs: x edges, y edges, z edges.
var CellEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// faceEdges is, per axis, the primal edge whose sign change creates the quad
// owned by a cell: it ends in the cell's far corner.
var faceEdges = [3][2]int{{6, 7}, {5, 7}, {3, 7}}

// Face direction codes, two bits per axis.
const (
	faceNone     = 0
	faceForward  = 1
	faceReversed = 2
)

func inside(v float32) bool { return v < 0 }

// cellVertex is the result of placing one vertex in a cell.
type cellVertex struct {
	pos        mgl32.Vec3
	normal     mgl32.Vec3
	color      mgl32.Vec4
	material   uint32
	faces      uint8
	duplicates int
}

func (v cellVertex) face(axis int) uint8 {
	return (v.faces >> (2 * axis)) & 3
}

// packFaces records which of the three quads anchored at the cell exist and
// which way they face. Forward means the surface normal points along +axis.
func packFaces(samples []Sample, corners [8]int32) uint8 {
	var out uint8
	for axis, e := range faceEdges {
		a, b := samples[corners[e[0]]].Value, samples[corners[e[1]]].Value
		switch {
		case inside(a) && !inside(b):
			out |= faceForward << (2 * axis)
		case !inside(a) && inside(b):
			out |= faceReversed << (2 * axis)
		}
	}
	return out
}

// placeVertex computes the vertex of a cell from its 8 corner samples. It
// returns false when the surface does not cross the cell.
func placeVertex(samples []Sample, corners [8]int32, cellSize float32, opts *Options) (cellVertex, bool) {
	var (
		out       cellVertex
		sum       mgl32.Vec3
		colorSum  mgl32.Vec4
		gradient  mgl32.Vec3
		crossings int
		qef       *QEF
		points    [12]mgl32.Vec3
		normals   [12]mgl32.Vec3
	)
	if opts.Sharp {
		qef = &QEF{}
	}
	colors := opts.colors()

	for _, e := range CellEdges {
		ia, ib := corners[e[0]], corners[e[1]]
		if ia == ib {
			out.duplicates++
			continue
		}
		a, b := samples[ia], samples[ib]
		gradient = gradient.Add(b.Center.Sub(a.Center).Mul(b.Value - a.Value))
		if inside(a.Value) == inside(b.Value) {
			continue
		}
		denom := abs(a.Value) + abs(b.Value)
		if denom <= 1e-12 {
			continue
		}
		t := abs(a.Value) / denom
		p := a.Center.Add(b.Center.Sub(a.Center).Mul(t))
		if crossings == 0 {
			if inside(a.Value) {
				out.material = a.Material
			} else {
				out.material = b.Material
			}
		}
		points[crossings] = p
		sum = sum.Add(p)
		ca, cb := colors(opts.MaterialMode, a.Material), colors(opts.MaterialMode, b.Material)
		colorSum = colorSum.Add(ca.Mul(1 - t).Add(cb.Mul(t)))
		if qef != nil {
			n := geom.NormalizeOr(a.Normal.Mul(1-t).Add(b.Normal.Mul(t)), gradientFallback(a, b))
			normals[crossings] = n
			qef.Add(p, n, 1)
		}
		crossings++
	}
	if crossings == 0 {
		return out, false
	}

	centroid := sum.Mul(1 / float32(crossings))
	out.color = colorSum.Mul(1 / float32(crossings))
	out.faces = packFaces(samples, corners)
	out.normal = geom.NormalizeOr(gradient, mgl32.Vec3{})

	switch {
	case opts.Cubic:
		out.pos = cornerBounds(samples, corners).Center()
	case qef != nil:
		out.pos = sharpPosition(qef, centroid, crossings, cellSize, cornerBounds(samples, corners))
		out.normal = weightedNormal(out.pos, points[:crossings], normals[:crossings], out.normal)
	default:
		out.pos = centroid
	}
	return out, true
}

// sharpPosition solves the QEF around the centroid and keeps the result
// within half a cell of it and inside the cell's corner box.
func sharpPosition(q *QEF, centroid mgl32.Vec3, crossings int, cellSize float32, box geom.Bounds) mgl32.Vec3 {
	if crossings < 3 {
		return centroid
	}
	x, ok := q.Solve(centroid, 1e-3*cellSize*cellSize)
	if !ok {
		return centroid
	}
	d := x.Sub(centroid)
	if l, limit := d.Len(), 0.5*cellSize; l > limit {
		x = centroid.Add(d.Mul(limit / l))
	}
	box = box.Expand(1e-6)
	return geom.MinVec(geom.MaxVec(x, box.Min), box.Max)
}

// weightedNormal blends Hermite normals, favoring planes that pass near x.
func weightedNormal(x mgl32.Vec3, points, normals []mgl32.Vec3, fallback mgl32.Vec3) mgl32.Vec3 {
	var acc mgl32.Vec3
	for i, n := range normals {
		dist := abs(n.Dot(x.Sub(points[i])))
		w := min(float32(10), 1/(1e-2+dist))
		acc = acc.Add(n.Mul(w))
	}
	return geom.NormalizeOr(acc, fallback)
}

func gradientFallback(a, b Sample) mgl32.Vec3 {
	d := b.Center.Sub(a.Center)
	if b.Value < a.Value {
		d = d.Mul(-1)
	}
	return geom.NormalizeOr(d, mgl32.Vec3{0, 1, 0})
}

func cornerBounds(samples []Sample, corners [8]int32) geom.Bounds {
	b := geom.Empty()
	for _, i := range corners {
		c := samples[i].Center
		b = b.Union(geom.Bounds{Min: c, Max: c})
	}
	return b
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
