package sdf

import (
	"fmt"
	"strings"

	"sdfterrain/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// Operation is a boolean combination of two distance fields.
type Operation int

const (
	Union Operation = iota
	Subtraction
	Intersection
	SmoothUnion
	SmoothSubtraction
	SmoothIntersection
)

var operationNames = [...]string{"union", "subtraction", "intersection", "smooth_union", "smooth_subtraction", "smooth_intersection"}

func (op Operation) String() string {
	if op < 0 || int(op) >= len(operationNames) {
		return fmt.Sprintf("operation(%d)", int(op))
	}
	return operationNames[op]
}

// ParseOperation maps a config name to an Operation.
func ParseOperation(s string) (Operation, error) {
	for i, name := range operationNames {
		if strings.EqualFold(s, name) {
			return Operation(i), nil
		}
	}
	return Union, fmt.Errorf("unknown sdf operation %q", s)
}

// Apply combines a with b. Hard operations keep the normal of the winning
// operand; smooth operations blend value and normal with the same factor.
// k is the blend radius of the smooth variants; k <= 0 degrades them to the
// hard operation.
func Apply(op Operation, a, b Sample, k float32) Sample {
	if k <= 0 {
		switch op {
		case SmoothUnion:
			op = Union
		case SmoothSubtraction:
			op = Subtraction
		case SmoothIntersection:
			op = Intersection
		}
	}
	switch op {
	case Union:
		if b.Value < a.Value {
			return b
		}
		return a
	case Subtraction:
		if -b.Value > a.Value {
			return Sample{Value: -b.Value, Normal: b.Normal.Mul(-1)}
		}
		return a
	case Intersection:
		if b.Value > a.Value {
			return b
		}
		return a
	case SmoothUnion:
		h := clamp01(0.5 + 0.5*(b.Value-a.Value)/k)
		return Sample{
			Value:  mix(b.Value, a.Value, h) - k*h*(1-h),
			Normal: mixNormal(b.Normal, a.Normal, h),
		}
	case SmoothSubtraction:
		h := clamp01(0.5 - 0.5*(b.Value+a.Value)/k)
		return Sample{
			Value:  mix(a.Value, -b.Value, h) + k*h*(1-h),
			Normal: mixNormal(a.Normal, b.Normal.Mul(-1), h),
		}
	case SmoothIntersection:
		h := clamp01(0.5 - 0.5*(b.Value-a.Value)/k)
		return Sample{
			Value:  mix(b.Value, a.Value, h) + k*h*(1-h),
			Normal: mixNormal(b.Normal, a.Normal, h),
		}
	}
	return a
}

// ApplyValue is Apply without normals.
func ApplyValue(op Operation, a, b, k float32) float32 {
	if k <= 0 {
		switch op {
		case SmoothUnion:
			op = Union
		case SmoothSubtraction:
			op = Subtraction
		case SmoothIntersection:
			op = Intersection
		}
	}
	switch op {
	case Union:
		return min(a, b)
	case Subtraction:
		return max(a, -b)
	case Intersection:
		return max(a, b)
	case SmoothUnion:
		h := clamp01(0.5 + 0.5*(b-a)/k)
		return mix(b, a, h) - k*h*(1-h)
	case SmoothSubtraction:
		h := clamp01(0.5 - 0.5*(b+a)/k)
		return mix(a, -b, h) + k*h*(1-h)
	case SmoothIntersection:
		h := clamp01(0.5 - 0.5*(b-a)/k)
		return mix(b, a, h) + k*h*(1-h)
	}
	return a
}

func clamp01(f float32) float32 {
	return min(max(f, 0), 1)
}

func mix(x, y, h float32) float32 {
	return x*(1-h) + y*h
}

func mixNormal(x, y mgl32.Vec3, h float32) mgl32.Vec3 {
	return geom.NormalizeOr(x.Mul(1-h).Add(y.Mul(h)), x)
}
