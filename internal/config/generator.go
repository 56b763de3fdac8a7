package config

import (
	"fmt"

	"sdfterrain/internal/sdf"

	"github.com/go-gl/mathgl/mgl32"
)

// Generator selects the base field the terrain is sampled from.
type Generator struct {
	// Kind is one of sphere, plane, planet or heightfield.
	Kind   string     `yaml:"kind"`
	Seed   int64      `yaml:"seed"`
	Radius float32    `yaml:"radius"`
	Center [3]float32 `yaml:"center"`
	// Height is the plane offset or the heightfield amplitude.
	Height    float32 `yaml:"height"`
	Amplitude float32 `yaml:"amplitude"`
	Frequency float64 `yaml:"frequency"`
	Octaves   int     `yaml:"octaves"`
}

// DefaultGenerator is a noisy planet around the origin.
func DefaultGenerator() Generator {
	n := sdf.DefaultNoise(0)
	return Generator{
		Kind:      "planet",
		Radius:    1000,
		Amplitude: 50,
		Frequency: n.Frequency,
		Octaves:   n.Octaves,
	}
}

func (g *Generator) validate() error {
	switch g.Kind {
	case "sphere", "plane", "planet", "heightfield":
	default:
		return fmt.Errorf("unknown generator %q", g.Kind)
	}
	if g.Radius <= 0 {
		g.Radius = 1
	}
	if g.Octaves < 1 {
		g.Octaves = 1
	}
	if g.Octaves > 12 {
		g.Octaves = 12
	}
	if g.Frequency <= 0 {
		g.Frequency = sdf.DefaultNoise(0).Frequency
	}
	return nil
}

// Field builds the configured base field.
func (g Generator) Field() sdf.Field {
	center := mgl32.Vec3(g.Center)
	noise := sdf.DefaultNoise(g.Seed)
	noise.Frequency = g.Frequency
	noise.Octaves = g.Octaves

	switch g.Kind {
	case "sphere":
		return sdf.Sphere{Center: center, Radius: g.Radius}
	case "plane":
		return sdf.NewPlane(sdf.Up, -g.Height)
	case "heightfield":
		return &sdf.Heightfield{HeightScale: g.Amplitude, Noise: noise}
	default:
		return &sdf.Planet{Center: center, Radius: g.Radius, NoiseScale: g.Amplitude, Noise: noise}
	}
}
