package sdf

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestUnionWithInfinityIsIdentity(t *testing.T) {
	a := Sample{Value: -3.5, Normal: mgl32.Vec3{0, 0, 1}}
	b := Sample{Value: float32(math.Inf(1)), Normal: mgl32.Vec3{1, 0, 0}}
	got := Apply(Union, a, b, 1)
	if got != a {
		t.Fatalf("union with +Inf: got %v, want %v", got, a)
	}
	if v := ApplyValue(Union, a.Value, b.Value, 1); v != a.Value {
		t.Fatalf("scalar union with +Inf: got %v, want %v", v, a.Value)
	}
}

func TestSubtractSelfAtCenterIsOutside(t *testing.T) {
	s := Sphere{Center: mgl32.Vec3{1, 2, 3}, Radius: 4}
	at := At(s, s.Center)
	got := Apply(Subtraction, at, at, 1)
	if got.Value <= 0 {
		t.Fatalf("self subtraction at center: got %v, want > 0", got.Value)
	}
}

func TestHardOperations(t *testing.T) {
	a := Sample{Value: 1, Normal: mgl32.Vec3{1, 0, 0}}
	b := Sample{Value: -2, Normal: mgl32.Vec3{0, 1, 0}}

	if got := Apply(Union, a, b, 0); got != b {
		t.Fatalf("union: got %v, want %v", got, b)
	}
	if got := Apply(Intersection, a, b, 0); got != a {
		t.Fatalf("intersection: got %v, want %v", got, a)
	}
	got := Apply(Subtraction, a, b, 0)
	want := Sample{Value: 2, Normal: mgl32.Vec3{0, -1, 0}}
	if got != want {
		t.Fatalf("subtraction: got %v, want %v", got, want)
	}
}

func TestSmoothOperationsMatchScalarForm(t *testing.T) {
	a := Sample{Value: 0.3, Normal: mgl32.Vec3{1, 0, 0}}
	b := Sample{Value: -0.1, Normal: mgl32.Vec3{0, 1, 0}}
	for _, op := range []Operation{SmoothUnion, SmoothSubtraction, SmoothIntersection} {
		full := Apply(op, a, b, 1)
		scalar := ApplyValue(op, a.Value, b.Value, 1)
		if math.Abs(float64(full.Value-scalar)) > 1e-6 {
			t.Fatalf("%v: got %v, scalar form %v", op, full.Value, scalar)
		}
		if l := full.Normal.Len(); math.Abs(float64(l-1)) > 1e-5 {
			t.Fatalf("%v: normal length %v, want 1", op, l)
		}
	}
}

func TestSmoothUnionIsBelowHardUnion(t *testing.T) {
	got := ApplyValue(SmoothUnion, 0.2, 0.25, 1)
	if got >= 0.2 {
		t.Fatalf("smooth union should dip below min: got %v", got)
	}
	if ApplyValue(SmoothUnion, 0.2, 0.25, 0) != 0.2 {
		t.Fatalf("k=0 smooth union should equal hard union")
	}
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation("Smooth_Subtraction")
	if err != nil || op != SmoothSubtraction {
		t.Fatalf("ParseOperation: got %v, %v", op, err)
	}
	if _, err := ParseOperation("xor"); err == nil {
		t.Fatalf("ParseOperation should reject unknown names")
	}
}

func TestSphereAndBox(t *testing.T) {
	s := Sphere{Radius: 2}
	if d := s.Distance(mgl32.Vec3{5, 0, 0}); d != 3 {
		t.Fatalf("sphere distance: got %v, want 3", d)
	}
	b := Box{HalfExtents: mgl32.Vec3{1, 1, 1}}
	if d := b.Distance(mgl32.Vec3{3, 0, 0}); d != 2 {
		t.Fatalf("box distance outside: got %v, want 2", d)
	}
	if d := b.Distance(mgl32.Vec3{0.5, 0, 0}); d != -0.5 {
		t.Fatalf("box distance inside: got %v, want -0.5", d)
	}
	if n := b.Normal(mgl32.Vec3{0, -0.9, 0}); n != (mgl32.Vec3{0, -1, 0}) {
		t.Fatalf("box normal: got %v", n)
	}
}

func TestPlaneDegenerateNormal(t *testing.T) {
	p := NewPlane(mgl32.Vec3{}, -1)
	if p.N != Up {
		t.Fatalf("degenerate plane normal: got %v, want %v", p.N, Up)
	}
	if d := p.Distance(mgl32.Vec3{0, 3, 0}); d != 2 {
		t.Fatalf("plane distance: got %v, want 2", d)
	}
}

func TestTransformedTranslatesAndScales(t *testing.T) {
	tr := NewTransformed(Sphere{Radius: 1}, mgl32.Vec3{10, 0, 0}, mgl32.QuatIdent(), mgl32.Vec3{2, 2, 2})
	if d := tr.Distance(mgl32.Vec3{14, 0, 0}); math.Abs(float64(d-2)) > 1e-4 {
		t.Fatalf("transformed distance: got %v, want 2", d)
	}
	n := tr.Normal(mgl32.Vec3{10, 5, 0})
	if !n.ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, 1e-4) {
		t.Fatalf("transformed normal: got %v", n)
	}
	b := tr.Bounds()
	if !b.Min.ApproxEqualThreshold(mgl32.Vec3{8, -2, -2}, 1e-4) || !b.Max.ApproxEqualThreshold(mgl32.Vec3{12, 2, 2}, 1e-4) {
		t.Fatalf("transformed bounds: got %v", b)
	}
}

func TestCombinedMissingOperandIsEmpty(t *testing.T) {
	c := &Combined{A: Sphere{Radius: 1}, Op: Union}
	if d := c.Distance(mgl32.Vec3{}); !math.IsInf(float64(d), 1) {
		t.Fatalf("combined with nil operand: got %v, want +Inf", d)
	}
	c.B = Sphere{Center: mgl32.Vec3{3, 0, 0}, Radius: 1}
	if d := c.Distance(mgl32.Vec3{3, 0, 0}); d != -1 {
		t.Fatalf("combined union: got %v, want -1", d)
	}
}

func TestGradientNormalMatchesAnalytic(t *testing.T) {
	s := Sphere{Radius: 5}
	p := mgl32.Vec3{3, 4, 0}
	if !GradientNormal(s, p).ApproxEqualThreshold(s.Normal(p), 1e-2) {
		t.Fatalf("gradient normal: got %v, want %v", GradientNormal(s, p), s.Normal(p))
	}
}

func TestRayMarchHitsSphere(t *testing.T) {
	s := Sphere{Radius: 1}
	hit, ok := RayMarch(s, mgl32.Vec3{-5, 0, 0}, mgl32.Vec3{1, 0, 0}, 100)
	if !ok {
		t.Fatalf("ray should hit the sphere")
	}
	if math.Abs(float64(hit[0]+1)) > 0.02 {
		t.Fatalf("hit point: got %v, want x near -1", hit)
	}
	if _, ok := RayMarch(s, mgl32.Vec3{-5, 3, 0}, mgl32.Vec3{1, 0, 0}, 20); ok {
		t.Fatalf("ray should miss the sphere")
	}
}

func TestNoiseDeterministicAndBounded(t *testing.T) {
	n := DefaultNoise(42)
	for i := 0; i < 200; i++ {
		x, y, z := float64(i)*7.3, float64(i)*-3.1, float64(i)*1.7
		v := n.At3(x, y, z)
		if v != n.At3(x, y, z) {
			t.Fatalf("noise not deterministic at %v,%v,%v", x, y, z)
		}
		if v < -1 || v > 1 {
			t.Fatalf("noise out of range: %v", v)
		}
	}
	if hash3(1, 2, 3, 42) == hash3(3, 2, 1, 42) {
		t.Fatalf("hash3 should not be symmetric in its axes")
	}
}

func TestPlanetFarFieldIsExact(t *testing.T) {
	p := NewPlanet(mgl32.Vec3{}, 7)
	far := mgl32.Vec3{2000, 0, 0}
	if d := p.Distance(far); d != 1000 {
		t.Fatalf("planet far distance: got %v, want 1000", d)
	}
	if !p.Bounds().Contains(mgl32.Vec3{1050, 0, 0}) {
		t.Fatalf("planet bounds should cover the displaced surface")
	}
}
