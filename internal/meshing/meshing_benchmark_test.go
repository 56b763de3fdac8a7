package meshing

import (
	"testing"

	"sdfterrain/internal/sdf"

	"github.com/go-gl/mathgl/mgl32"
)

func BenchmarkExtract(b *testing.B) {
	ctx := uniformContext(&sdf.Heightfield{HeightScale: 3, Noise: sdf.DefaultNoise(7)}, mgl32.Vec3{-8, -8, -8}, 1, 16)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Extract(ctx, Options{})
	}
}

func BenchmarkExtractSharp(b *testing.B) {
	ctx := uniformContext(&sdf.Heightfield{HeightScale: 3, Noise: sdf.DefaultNoise(7)}, mgl32.Vec3{-8, -8, -8}, 1, 16)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Extract(ctx, Options{Sharp: true})
	}
}
