package config

import (
	"os"
	"path/filepath"
	"testing"

	"sdfterrain/internal/material"
	"sdfterrain/internal/meshing"
	"sdfterrain/internal/sdf"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
)

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
size_log2: 10
min_chunk_size_log2: 3
material_mode: packed
sharp_features: true
winding: cw
generator:
  kind: sphere
  radius: 64
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s := c.Settings()
	if s.SizeLog2 != 10 || s.LOD.MinChunkSizeLog2 != 3 {
		t.Fatalf("sizes: got %d/%d, want 10/3", s.SizeLog2, s.LOD.MinChunkSizeLog2)
	}
	want := meshing.Options{Sharp: true, Winding: meshing.ForceCW, MaterialMode: material.PackedColor}
	if diff := cmp.Diff(want, s.Mesh); diff != "" {
		t.Fatalf("mesh options (-want +got):\n%s", diff)
	}
	// Untouched keys keep their defaults.
	if d := Default(); c.ShellSize != d.ShellSize || c.MaxConcurrentTasks != d.MaxConcurrentTasks {
		t.Fatalf("defaults lost: got shell %d tasks %d", c.ShellSize, c.MaxConcurrentTasks)
	}
	if f, ok := c.Generator.Field().(sdf.Sphere); !ok || f.Radius != 64 {
		t.Fatalf("generator: got %#v, want sphere of radius 64", c.Generator.Field())
	}
}

func TestValidateClamps(t *testing.T) {
	c := Default()
	c.Scale = -2
	c.SizeLog2 = 40
	c.MinChunkSizeLog2 = 0
	c.ShellSize = 1
	c.LODLevelCount = 100
	c.MaxConcurrentTasks = 0
	c.Workers = -1
	c.CollidersPerSecond = 0
	c.Generator.Octaves = 50
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	got := []any{c.Scale, c.SizeLog2, c.MinChunkSizeLog2, c.ShellSize, c.LODLevelCount, c.MaxConcurrentTasks, c.CollidersPerSecond, c.Generator.Octaves}
	want := []any{float32(1), uint32(24), uint32(1), 2, 32, 1, 1, 12}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("clamped values (-want +got):\n%s", diff)
	}
	if c.Workers < 1 {
		t.Fatalf("workers: got %d, want >= 1", c.Workers)
	}
}

func TestParseRejectsUnknownNames(t *testing.T) {
	for _, doc := range []string{
		"material_mode: sparkly",
		"winding: sideways",
		"generator: {kind: torus}",
		"size_log2: [1, 2]",
	} {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("Parse(%q): got nil error", doc)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	if err := os.WriteFile(path, []byte("generator: {kind: plane, height: 3}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := c.Generator.Field()
	if d := f.Distance(mgl32.Vec3{0, 3, 0}); d != 0 {
		t.Fatalf("plane at height 3: got distance %v at y=3, want 0", d)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load of a missing file: got nil error")
	}
}
