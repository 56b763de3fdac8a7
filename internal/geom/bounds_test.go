package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
)

func TestNewOrdersCorners(t *testing.T) {
	b := New(mgl32.Vec3{1, -2, 3}, mgl32.Vec3{-1, 2, -3})
	want := Bounds{Min: mgl32.Vec3{-1, -2, -3}, Max: mgl32.Vec3{1, 2, 3}}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Fatalf("New mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyIsUnionIdentity(t *testing.T) {
	b := Cube(mgl32.Vec3{1, 2, 3}, 2)
	if got := Empty().Union(b); got != b {
		t.Fatalf("Empty().Union: got %v, want %v", got, b)
	}
	if Empty().IsValid() {
		t.Fatalf("Empty() should not be valid")
	}
}

func TestIntersectDisjointIsEmpty(t *testing.T) {
	a := Cube(mgl32.Vec3{}, 1)
	b := Cube(mgl32.Vec3{5, 0, 0}, 1)
	if a.Intersects(b) {
		t.Fatalf("disjoint boxes reported as intersecting")
	}
	if a.Intersect(b).IsValid() {
		t.Fatalf("intersection of disjoint boxes should be empty")
	}
}

func TestIntersectsIsInclusive(t *testing.T) {
	a := Cube(mgl32.Vec3{}, 1)
	b := Cube(mgl32.Vec3{2, 0, 0}, 1)
	if !a.Intersects(b) {
		t.Fatalf("touching boxes should intersect")
	}
	got := a.Intersect(b)
	if got.Min[0] != 1 || got.Max[0] != 1 {
		t.Fatalf("touching intersection: got %v", got)
	}
}

func TestEnclosesAndContains(t *testing.T) {
	outer := Cube(mgl32.Vec3{}, 4)
	inner := Cube(mgl32.Vec3{1, 1, 1}, 1)
	if !outer.Encloses(inner) {
		t.Fatalf("outer should enclose inner")
	}
	if inner.Encloses(outer) {
		t.Fatalf("inner should not enclose outer")
	}
	if !outer.Contains(mgl32.Vec3{4, 4, 4}) {
		t.Fatalf("corner should be contained")
	}
	if outer.Contains(mgl32.Vec3{4.01, 0, 0}) {
		t.Fatalf("point outside should not be contained")
	}
}

func TestSubtractShavesOneAxis(t *testing.T) {
	b := New(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{4, 4, 4})
	cut := New(mgl32.Vec3{3, -1, -1}, mgl32.Vec3{5, 5, 5})
	got := b.Subtract(cut)
	want := New(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{3, 4, 4})
	if got != want {
		t.Fatalf("Subtract: got %v, want %v", got, want)
	}

	// A hole in the middle cannot be expressed as a box.
	hole := Cube(mgl32.Vec3{2, 2, 2}, 0.5)
	if got := b.Subtract(hole); got != b {
		t.Fatalf("Subtract hole: got %v, want unchanged %v", got, b)
	}
}

func TestShaveByClosestPlane(t *testing.T) {
	b := New(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{10, 10, 10})
	got := b.ShaveByClosestPlane(mgl32.Vec3{9, 5, 5})
	if got.Max[0] != 9 || got.Min[0] != 0 {
		t.Fatalf("ShaveByClosestPlane: got %v", got)
	}
}

func TestRecenterKeepsSize(t *testing.T) {
	b := New(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{2, 4, 6})
	r := b.Recenter(mgl32.Vec3{10, 10, 10})
	if !r.Center().ApproxEqual(mgl32.Vec3{10, 10, 10}) {
		t.Fatalf("Recenter center: got %v", r.Center())
	}
	if !r.Size().ApproxEqual(b.Size()) {
		t.Fatalf("Recenter size: got %v, want %v", r.Size(), b.Size())
	}
}

func TestCornersOrder(t *testing.T) {
	c := Cube(mgl32.Vec3{}, 1).Corners()
	if c[0] != (mgl32.Vec3{-1, -1, -1}) || c[1] != (mgl32.Vec3{1, -1, -1}) || c[7] != (mgl32.Vec3{1, 1, 1}) {
		t.Fatalf("Corners order: got %v", c)
	}
}

func TestNormalizeOrFallback(t *testing.T) {
	fb := mgl32.Vec3{0, 1, 0}
	if got := NormalizeOr(mgl32.Vec3{}, fb); got != fb {
		t.Fatalf("NormalizeOr zero: got %v, want %v", got, fb)
	}
	if got := NormalizeOr(mgl32.Vec3{3, 0, 0}, fb); got != (mgl32.Vec3{1, 0, 0}) {
		t.Fatalf("NormalizeOr: got %v", got)
	}
}
