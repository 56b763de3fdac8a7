package meshing

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"sdfterrain/internal/geom"
	"sdfterrain/internal/material"
	"sdfterrain/internal/sdf"

	"github.com/go-gl/mathgl/mgl32"
)

// gridSamples samples f on the padded inner grid of a chunk whose minimum
// corner is lo. keep filters grid coordinates.
func gridSamples(f sdf.Field, lo mgl32.Vec3, leaf float32, cells int, keep func(p [3]int) bool) []Sample {
	var out []Sample
	origin := lo.Sub(mgl32.Vec3{leaf, leaf, leaf})
	for z := 0; z < cells+2; z++ {
		for y := 0; y < cells+2; y++ {
			for x := 0; x < cells+2; x++ {
				p := [3]int{x, y, z}
				if keep != nil && !keep(p) {
					continue
				}
				c := origin.Add(mgl32.Vec3{
					(float32(x) + 0.5) * leaf,
					(float32(y) + 0.5) * leaf,
					(float32(z) + 0.5) * leaf,
				})
				s := sdf.At(f, c)
				out = append(out, Sample{Center: c, Size: leaf, Value: s.Value, Normal: s.Normal})
			}
		}
	}
	return out
}

func uniformContext(f sdf.Field, lo mgl32.Vec3, leaf float32, cells int) *ChunkContext {
	edge := leaf * float32(cells)
	center := lo.Add(mgl32.Vec3{edge / 2, edge / 2, edge / 2})
	return NewChunkContext(center, edge, 0, cells, 0, gridSamples(f, lo, leaf, cells, nil), nil)
}

type constField float32

func (c constField) Distance(mgl32.Vec3) float32  { return float32(c) }
func (c constField) Normal(mgl32.Vec3) mgl32.Vec3 { return sdf.Up }
func (c constField) Bounds() geom.Bounds          { return geom.Cube(mgl32.Vec3{}, 1e9) }

func TestExtractSphereVerticesOnSurface(t *testing.T) {
	sphere := sdf.Sphere{Radius: 10}
	ctx := uniformContext(sphere, mgl32.Vec3{0, -8, -8}, 1, 16)

	for _, opts := range []Options{{}, {Sharp: true}} {
		mesh := Extract(ctx, opts)
		if mesh == nil {
			t.Fatalf("sharp=%v: got nil mesh", opts.Sharp)
		}
		if mesh.TriangleCount() == 0 {
			t.Fatalf("sharp=%v: got no triangles", opts.Sharp)
		}
		for i := 0; i < mesh.VertexCount(); i++ {
			d := sphere.Distance(mesh.WorldVertex(i))
			if math.Abs(float64(d)) > 0.5 {
				t.Fatalf("sharp=%v: vertex %d off surface by %v", opts.Sharp, i, d)
			}
		}
	}
}

func TestExtractUniformFieldIsNil(t *testing.T) {
	for _, v := range []float32{1, -1} {
		ctx := uniformContext(constField(v), mgl32.Vec3{}, 1, 8)
		if mesh := Extract(ctx, Options{}); mesh != nil {
			t.Fatalf("uniform %v: got mesh with %d triangles, want nil", v, mesh.TriangleCount())
		}
	}
}

func TestExtractNilContext(t *testing.T) {
	if Extract(nil, Options{}) != nil {
		t.Fatal("nil context: got mesh, want nil")
	}
}

func outwardFraction(mesh *MeshData, center mgl32.Vec3) float64 {
	outward, total := 0, 0
	for _, s := range mesh.Surfaces {
		for t := 0; t+2 < len(s.Indices); t += 3 {
			a := s.Vertices[s.Indices[t]].Add(mesh.Center)
			b := s.Vertices[s.Indices[t+1]].Add(mesh.Center)
			c := s.Vertices[s.Indices[t+2]].Add(mesh.Center)
			n := b.Sub(a).Cross(c.Sub(a))
			centroid := a.Add(b).Add(c).Mul(1.0 / 3)
			if n.Dot(centroid.Sub(center)) > 0 {
				outward++
			}
			total++
		}
	}
	return float64(outward) / float64(total)
}

func TestExtractWindingFacesOutward(t *testing.T) {
	sphere := sdf.Sphere{Center: mgl32.Vec3{1, 2, 3}, Radius: 6}
	ctx := uniformContext(sphere, mgl32.Vec3{-8, -8, -8}, 1, 16)

	mesh := Extract(ctx, Options{})
	if got := outwardFraction(mesh, sphere.Center); got < 0.95 {
		t.Fatalf("outward triangles: got %.3f, want >= 0.95", got)
	}

	cw := Extract(ctx, Options{Clockwise: true})
	if got := outwardFraction(cw, sphere.Center); got > 0.05 {
		t.Fatalf("clockwise outward triangles: got %.3f, want <= 0.05", got)
	}

	checked := Extract(ctx, Options{Winding: FromNormalCheck})
	if got := outwardFraction(checked, sphere.Center); got < 0.95 {
		t.Fatalf("normal checked outward triangles: got %.3f, want >= 0.95", got)
	}
}

func TestExtractClosedSphereIsWatertight(t *testing.T) {
	// A sphere fully inside one chunk must produce a closed surface: every
	// edge is shared by exactly two triangles.
	sphere := sdf.Sphere{Radius: 5}
	mesh := Extract(uniformContext(sphere, mgl32.Vec3{-8, -8, -8}, 1, 16), Options{})
	edges := make(map[[2]int32]int)
	idx := mesh.Surfaces[0].Indices
	for t := 0; t+2 < len(idx); t += 3 {
		for k := 0; k < 3; k++ {
			a, b := idx[t+k], idx[t+(k+1)%3]
			if a > b {
				a, b = b, a
			}
			edges[[2]int32{a, b}]++
		}
	}
	for e, n := range edges {
		if n != 2 {
			t.Fatalf("edge %v: got %d triangles, want 2", e, n)
		}
	}
}

func TestExtractSharpBox(t *testing.T) {
	box := sdf.Box{Center: mgl32.Vec3{0.3, 0.2, 0.1}, HalfExtents: mgl32.Vec3{4, 3, 5}}
	ctx := uniformContext(box, mgl32.Vec3{-8, -8, -8}, 1, 16)
	mesh := Extract(ctx, Options{Sharp: true})
	if mesh == nil {
		t.Fatal("sharp box: got nil mesh")
	}
	for i := 0; i < mesh.VertexCount(); i++ {
		if d := box.Distance(mesh.WorldVertex(i)); math.Abs(float64(d)) > 0.5 {
			t.Fatalf("vertex %d off box surface by %v", i, d)
		}
	}
}

func TestExtractCubicPlacesCellCenters(t *testing.T) {
	sphere := sdf.Sphere{Radius: 5}
	mesh := Extract(uniformContext(sphere, mgl32.Vec3{-8, -8, -8}, 1, 16), Options{Cubic: true})
	for i := 0; i < mesh.VertexCount(); i++ {
		v := mesh.WorldVertex(i)
		for a := 0; a < 3; a++ {
			// Sample centers sit on half-integers, so cell centers are integers.
			if f := float64(v[a]); math.Abs(f-math.Round(f)) > 1e-4 {
				t.Fatalf("vertex %d: got %v, want integer coordinates", i, v)
			}
		}
	}
}

func TestExtractSplitByMaterial(t *testing.T) {
	sphere := sdf.Sphere{Radius: 6}
	ctx := uniformContext(sphere, mgl32.Vec3{-8, -8, -8}, 1, 16)
	for i := range ctx.samples {
		if ctx.samples[i].Center[0] < 0 {
			ctx.samples[i].Material = 1
		} else {
			ctx.samples[i].Material = 2
		}
	}

	whole := Extract(ctx, Options{})
	split := Extract(ctx, Options{SplitByMaterial: true, MaterialMode: material.DiscreteChannelSplatting})
	if got, want := len(split.Surfaces), 2; got != want {
		t.Fatalf("surfaces: got %d, want %d", got, want)
	}
	if split.Materials[0] != 1 || split.Materials[1] != 2 {
		t.Fatalf("materials: got %v, want [1 2]", split.Materials)
	}
	if got, want := split.TriangleCount(), whole.TriangleCount(); got != want {
		t.Fatalf("triangles: got %d, want %d", got, want)
	}
	for _, s := range split.Surfaces {
		if len(s.Vertices) != len(s.Normals) || len(s.Vertices) != len(s.Colors) {
			t.Fatalf("material %d: attribute lengths differ", s.Material)
		}
		for _, i := range s.Indices {
			if int(i) >= len(s.Vertices) {
				t.Fatalf("material %d: index %d out of range", s.Material, i)
			}
		}
	}
}

func TestCollisionTrianglesAndOBJ(t *testing.T) {
	mesh := Extract(uniformContext(sdf.Sphere{Radius: 5}, mgl32.Vec3{-8, -8, -8}, 1, 16), Options{})
	if got, want := len(mesh.CollisionTriangles()), 3*mesh.TriangleCount(); got != want {
		t.Fatalf("collision vertices: got %d, want %d", got, want)
	}

	var buf bytes.Buffer
	n, err := mesh.WriteOBJ(&buf, 10)
	if err != nil {
		t.Fatalf("write obj: %v", err)
	}
	if got, want := n, 10+mesh.VertexCount(); got != want {
		t.Fatalf("vertex total: got %d, want %d", got, want)
	}
	var verts, faces int
	for _, line := range strings.Split(buf.String(), "\n") {
		switch {
		case strings.HasPrefix(line, "v "):
			verts++
		case strings.HasPrefix(line, "f "):
			faces++
			if strings.Contains(line, "f 1//") {
				t.Fatalf("face ignores base offset: %q", line)
			}
		}
	}
	if verts != mesh.VertexCount() || faces != mesh.TriangleCount() {
		t.Fatalf("obj: got %d vertices %d faces, want %d %d", verts, faces, mesh.VertexCount(), mesh.TriangleCount())
	}
}

func TestChunkContextStampsCoarserSamples(t *testing.T) {
	// A 2x2x2 leaf covering grid coordinates 1..2 on every axis.
	coarse := Sample{Center: mgl32.Vec3{1, 1, 1}, Size: 2, Value: 3}
	fine := Sample{Center: mgl32.Vec3{-0.5, -0.5, -0.5}, Size: 1, Value: 1}
	ctx := NewChunkContext(mgl32.Vec3{4, 4, 4}, 8, 0, 8, 0, []Sample{fine, coarse}, nil)

	for _, p := range [][3]int{{1, 1, 1}, {2, 1, 1}, {1, 2, 2}, {2, 2, 2}} {
		if got := ctx.InnerAt(p); got != 1 {
			t.Fatalf("InnerAt(%v): got %d, want 1", p, got)
		}
	}
	if got := ctx.InnerAt([3]int{0, 0, 0}); got != 0 {
		t.Fatalf("InnerAt(pad): got %d, want 0", got)
	}
	if got := ctx.InnerAt([3]int{3, 3, 3}); got != -1 {
		t.Fatalf("InnerAt(empty): got %d, want -1", got)
	}
	if got := ctx.InnerAt([3]int{-1, 0, 0}); got != -1 {
		t.Fatalf("InnerAt(outside): got %d, want -1", got)
	}
	if got := ctx.RingAt([3]int{0, 0, 0}); got != -1 {
		t.Fatalf("RingAt without ring: got %d, want -1", got)
	}
}

func TestBoundariesBits(t *testing.T) {
	b := Boundaries(1<<FacePosX | 1<<(FaceNegZ+8))
	if !b.CoarserAt(FacePosX) || b.CoarserAt(FaceNegX) {
		t.Fatalf("coarser bits wrong: %016b", b)
	}
	if !b.FinerAt(FaceNegZ) || b.FinerAt(FacePosX) {
		t.Fatalf("finer bits wrong: %016b", b)
	}
	if b.Coarser() != 1 || b.Finer() != 1<<FaceNegZ {
		t.Fatalf("masks: got %06b %06b", b.Coarser(), b.Finer())
	}
}

func TestRingBounds(t *testing.T) {
	accept, reject := RingBounds(mgl32.Vec3{}, 16, 16, Boundaries(1<<FacePosX))
	if got, want := accept.Min[0], float32(6.001); math.Abs(float64(got-want)) > 1e-4 {
		t.Fatalf("accept min x: got %v, want %v", got, want)
	}
	if got, want := accept.Max[0], float32(9.999); math.Abs(float64(got-want)) > 1e-4 {
		t.Fatalf("accept max x: got %v, want %v", got, want)
	}
	if got, want := reject.Max[0], float32(5.999); math.Abs(float64(got-want)) > 1e-4 {
		t.Fatalf("reject max x: got %v, want %v", got, want)
	}
	if got, want := reject.Min[0], float32(-7.999); math.Abs(float64(got-want)) > 1e-4 {
		t.Fatalf("reject min x: got %v, want %v", got, want)
	}

	accept, _ = RingBounds(mgl32.Vec3{}, 16, 16, 0)
	if accept.IsValid() {
		t.Fatalf("no coarser faces: got valid accept %v", accept)
	}
}

func TestQEFSolve(t *testing.T) {
	var q QEF
	q.Add(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{1, 0, 0}, 1)
	q.Add(mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0, 2, 0}, 1)
	q.Add(mgl32.Vec3{0, 0, 3}, mgl32.Vec3{0, 0, -1}, 1)
	x, ok := q.Solve(mgl32.Vec3{}, 0)
	if !ok {
		t.Fatal("three planes: solve failed")
	}
	if !x.ApproxEqualThreshold(mgl32.Vec3{1, 2, 3}, 1e-5) {
		t.Fatalf("three planes: got %v, want [1 2 3]", x)
	}
	if q.Count() != 3 {
		t.Fatalf("count: got %d, want 3", q.Count())
	}
}

func TestQEFSingularFallsBack(t *testing.T) {
	var q QEF
	target := mgl32.Vec3{0.25, 0.5, 0.75}
	q.Add(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{1, 0, 0}, 1)
	q.Add(mgl32.Vec3{2, 0, 0}, mgl32.Vec3{1, 0, 0}, 1)
	x, ok := q.Solve(target, 0)
	if ok || x != target {
		t.Fatalf("parallel planes: got %v %v, want %v false", x, ok, target)
	}

	// Regularization makes the same system solvable and keeps the free axes
	// at the target.
	x, ok = q.Solve(target, 1e-3)
	if !ok {
		t.Fatal("regularized: solve failed")
	}
	if math.Abs(float64(x[1]-target[1])) > 1e-4 || math.Abs(float64(x[2]-target[2])) > 1e-4 {
		t.Fatalf("regularized: got %v, want y,z of %v", x, target)
	}

	var empty QEF
	empty.Add(mgl32.Vec3{}, mgl32.Vec3{}, 1)
	if empty.Count() != 0 {
		t.Fatalf("zero normal: got count %d, want 0", empty.Count())
	}
}

func TestSharpPositionFewCrossings(t *testing.T) {
	var q QEF
	centroid := mgl32.Vec3{1, 1, 1}
	if got := sharpPosition(&q, centroid, 2, 1, geom.Cube(centroid, 1)); got != centroid {
		t.Fatalf("two crossings: got %v, want centroid %v", got, centroid)
	}
}

func TestWorkerPool(t *testing.T) {
	pool := NewWorkerPool[int](2, 4)
	defer pool.Shutdown()

	results := make(chan MeshResult[int], 2)
	ctx := uniformContext(sdf.Sphere{Radius: 5}, mgl32.Vec3{-8, -8, -8}, 1, 16)
	if !pool.SubmitJob(MeshJob[int]{Handle: 7, Context: ctx, ResultChan: results}) {
		t.Fatal("submit: queue rejected job")
	}
	if !pool.SubmitJobBlocking(MeshJob[int]{Handle: 8, ResultChan: results}) {
		t.Fatal("submit blocking: pool rejected job")
	}
	got := map[int]bool{}
	for i := 0; i < 2; i++ {
		r := <-results
		got[r.Handle] = r.Mesh != nil
	}
	if !got[7] || got[8] {
		t.Fatalf("results: got %v, want mesh for 7 only", got)
	}

	pool.Shutdown()
	if pool.SubmitJob(MeshJob[int]{Handle: 9, ResultChan: results}) {
		t.Fatal("submit after shutdown: got accepted")
	}
}
