package meshing

import (
	"sdfterrain/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// Winding selects how a triangle's vertex order is decided.
type Winding int

const (
	// ForceCCW keeps the given order.
	ForceCCW Winding = iota
	// ForceCW reverses the given order.
	ForceCW
	// FromNormalCheck orients the triangle so its geometric normal agrees
	// with the first vertex normal.
	FromNormalCheck
)

// surfaceBuilder collects vertices and triangles for one chunk. Positions are
// world space until the mesh is finalized.
type surfaceBuilder struct {
	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	colors    []mgl32.Vec4
	materials []uint32
	bad       []bool
	repaired  []mgl32.Vec3
	indices   []int32
	edgeChunk bool
}

func (s *surfaceBuilder) addVertex(v cellVertex) int32 {
	s.positions = append(s.positions, v.pos)
	s.normals = append(s.normals, v.normal)
	s.colors = append(s.colors, v.color)
	s.materials = append(s.materials, v.material)
	s.bad = append(s.bad, v.duplicates > 0)
	s.repaired = append(s.repaired, mgl32.Vec3{})
	return int32(len(s.positions) - 1)
}

// correctWinding reports whether (a,b,c) already faces along a's normal.
func (s *surfaceBuilder) correctWinding(a, b, c int32) bool {
	p0, p1, p2 := s.positions[a], s.positions[b], s.positions[c]
	return p1.Sub(p0).Cross(p2.Sub(p0)).Dot(s.normals[a]) >= 0
}

func (s *surfaceBuilder) addTri(a, b, c int32, w Winding) {
	if a == b || b == c || a == c {
		return
	}
	flip := w == ForceCW || (w == FromNormalCheck && !s.correctWinding(a, b, c))
	if flip {
		a, b = b, a
	}
	// Edge chunks drop triangles built only from unreliable vertices.
	if s.edgeChunk && s.bad[a] && s.bad[b] && s.bad[c] {
		return
	}
	s.indices = append(s.indices, a, b, c)
	s.accumulate(a, b, c)
	s.accumulate(b, c, a)
	s.accumulate(c, a, b)
}

// accumulate lends the normals of reliable neighbors to a vertex whose own
// normal came from duplicated corners.
func (s *surfaceBuilder) accumulate(v, n0, n1 int32) {
	if !s.bad[v] {
		return
	}
	if !s.bad[n0] {
		s.repaired[v] = s.repaired[v].Add(s.normals[n0])
	}
	if !s.bad[n1] {
		s.repaired[v] = s.repaired[v].Add(s.normals[n1])
	}
}

// addQuad emits the polygon given in cyclic order. Repeated vertices collapse
// it to a triangle; a proper quad is split along its shorter diagonal.
func (s *surfaceBuilder) addQuad(q [4]int32, w Winding) {
	var uniq [4]int32
	n := 0
	for _, v := range q {
		dup := false
		for _, u := range uniq[:n] {
			if u == v {
				dup = true
				break
			}
		}
		if !dup {
			uniq[n] = v
			n++
		}
	}
	switch n {
	case 3:
		s.addTri(uniq[0], uniq[1], uniq[2], w)
		return
	case 4:
	default:
		return
	}
	if w == FromNormalCheck {
		w = ForceCCW
		if !s.correctWinding(uniq[0], uniq[1], uniq[2]) {
			w = ForceCW
		}
	}
	a, b, c, d := uniq[0], uniq[1], uniq[2], uniq[3]
	ac := s.positions[a].Sub(s.positions[c])
	bd := s.positions[b].Sub(s.positions[d])
	if ac.Dot(ac) <= bd.Dot(bd) {
		s.addTri(a, b, c, w)
		s.addTri(a, c, d, w)
	} else {
		s.addTri(a, b, d, w)
		s.addTri(b, c, d, w)
	}
}

// finishNormals replaces the normals of duplicated-corner vertices with the
// average of their reliable neighbors.
func (s *surfaceBuilder) finishNormals() {
	for i, bad := range s.bad {
		if !bad {
			continue
		}
		s.normals[i] = geom.NormalizeOr(s.repaired[i], geom.NormalizeOr(s.normals[i], mgl32.Vec3{0, 1, 0}))
	}
	for i, n := range s.normals {
		s.normals[i] = geom.NormalizeOr(n, mgl32.Vec3{0, 1, 0})
	}
}
