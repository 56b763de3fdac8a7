package meshing

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Segment is an undirected mesh edge in world space.
type Segment [2]mgl32.Vec3

// EdgeReport classifies the edges of several meshes joined into one surface.
type EdgeReport struct {
	// Open edges belong to a single triangle.
	Open []Segment
	// NonManifold edges belong to more than two triangles.
	NonManifold []Segment
	Triangles   int
}

// CheckEdges welds vertices of meshes closer than tol and counts how many
// triangles use each welded edge. Only edges whose endpoints both pass keep
// are reported; a nil keep reports everything. Triangles that collapse when
// welded are ignored.
func CheckEdges(meshes []*MeshData, tol float32, keep func(mgl32.Vec3) bool) EdgeReport {
	w := welder{tol: tol, buckets: make(map[[3]int32][]int32)}
	uses := make(map[[2]int32]int)
	var rep EdgeReport
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for _, s := range m.Surfaces {
			for t := 0; t+2 < len(s.Indices); t += 3 {
				var ids [3]int32
				for k := 0; k < 3; k++ {
					ids[k] = w.id(s.Vertices[s.Indices[t+k]].Add(m.Center))
				}
				if ids[0] == ids[1] || ids[1] == ids[2] || ids[0] == ids[2] {
					continue
				}
				rep.Triangles++
				for k := 0; k < 3; k++ {
					a, b := ids[k], ids[(k+1)%3]
					if a > b {
						a, b = b, a
					}
					uses[[2]int32{a, b}]++
				}
			}
		}
	}
	for e, n := range uses {
		if n == 2 {
			continue
		}
		seg := Segment{w.points[e[0]], w.points[e[1]]}
		if keep != nil && (!keep(seg[0]) || !keep(seg[1])) {
			continue
		}
		if n == 1 {
			rep.Open = append(rep.Open, seg)
		} else {
			rep.NonManifold = append(rep.NonManifold, seg)
		}
	}
	return rep
}

type welder struct {
	tol     float32
	buckets map[[3]int32][]int32
	points  []mgl32.Vec3
}

func (w *welder) bucket(p mgl32.Vec3) [3]int32 {
	size := float64(4 * w.tol)
	return [3]int32{
		int32(math.Floor(float64(p[0]) / size)),
		int32(math.Floor(float64(p[1]) / size)),
		int32(math.Floor(float64(p[2]) / size)),
	}
}

func (w *welder) id(p mgl32.Vec3) int32 {
	k := w.bucket(p)
	for dz := int32(-1); dz <= 1; dz++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dx := int32(-1); dx <= 1; dx++ {
				for _, i := range w.buckets[[3]int32{k[0] + dx, k[1] + dy, k[2] + dz}] {
					if w.points[i].Sub(p).Len() <= w.tol {
						return i
					}
				}
			}
		}
	}
	i := int32(len(w.points))
	w.points = append(w.points, p)
	w.buckets[k] = append(w.buckets[k], i)
	return i
}
