package config

import (
	"fmt"
	"os"
	"runtime"

	"sdfterrain/internal/lod"
	"sdfterrain/internal/material"
	"sdfterrain/internal/meshing"
	"sdfterrain/internal/terrain"

	"gopkg.in/yaml.v3"
)

// Terrain is the YAML terrain document.
type Terrain struct {
	Scale            float32 `yaml:"scale"`
	SizeLog2         uint32  `yaml:"size_log2"`
	MinChunkSizeLog2 uint32  `yaml:"min_chunk_size_log2"`
	ShellSize        int     `yaml:"shell_size"`
	LODLevelCount    int     `yaml:"lod_level_count"`
	MaxChunkSizeLog2 uint32  `yaml:"max_chunk_size_log2"`
	CameraHysteresis float32 `yaml:"camera_hysteresis"`

	MaxConcurrentTasks int `yaml:"max_concurrent_tasks"`
	Workers            int `yaml:"workers"`
	CollidersPerSecond int `yaml:"colliders_per_second"`
	ColliderMaxLOD     int `yaml:"collider_max_lod"`

	MaterialMode    string `yaml:"material_mode"`
	SplitByMaterial bool   `yaml:"split_by_material"`
	SharpFeatures   bool   `yaml:"sharp_features"`
	CubicVoxels     bool   `yaml:"cubic_voxels"`
	Clockwise       bool   `yaml:"clockwise"`
	Winding         string `yaml:"winding"`

	Generator Generator `yaml:"generator"`
}

// Default returns the stock configuration.
func Default() Terrain {
	s := terrain.DefaultSettings()
	return Terrain{
		Scale:              s.Scale,
		SizeLog2:           s.SizeLog2,
		MinChunkSizeLog2:   s.LOD.MinChunkSizeLog2,
		ShellSize:          s.LOD.ShellSize,
		LODLevelCount:      s.LOD.LevelCount,
		MaxChunkSizeLog2:   s.LOD.MaxChunkSizeLog2,
		CameraHysteresis:   s.LOD.Hysteresis,
		MaxConcurrentTasks: s.MaxConcurrentTasks,
		Workers:            s.Workers,
		CollidersPerSecond: s.CollidersPerSecond,
		ColliderMaxLOD:     s.ColliderMaxLOD,
		MaterialMode:       material.DiscreteChannelSplatting.String(),
		Winding:            "normal_check",
		Generator:          DefaultGenerator(),
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (Terrain, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Terrain{}, err
	}
	c, err := Parse(raw)
	if err != nil {
		return Terrain{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML document on top of the defaults and validates it.
func Parse(raw []byte) (Terrain, error) {
	c := Default()
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Terrain{}, fmt.Errorf("terrain config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Terrain{}, err
	}
	return c, nil
}

// Validate clamps numeric fields to usable ranges and rejects unknown names.
func (c *Terrain) Validate() error {
	if c.Scale <= 0 {
		c.Scale = 1
	}
	c.SizeLog2 = clampU32(c.SizeLog2, 1, 24)
	c.MinChunkSizeLog2 = clampU32(c.MinChunkSizeLog2, 1, 8)
	if c.MinChunkSizeLog2 > c.SizeLog2 {
		c.MinChunkSizeLog2 = c.SizeLog2
	}
	c.ShellSize = clampInt(c.ShellSize, 2, 16)
	c.LODLevelCount = clampInt(c.LODLevelCount, 1, 32)
	if c.MaxChunkSizeLog2 < c.MinChunkSizeLog2 {
		c.MaxChunkSizeLog2 = c.MinChunkSizeLog2
	}
	if c.CameraHysteresis < 0 {
		c.CameraHysteresis = 0
	}
	c.MaxConcurrentTasks = clampInt(c.MaxConcurrentTasks, 1, 256)
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	c.CollidersPerSecond = clampInt(c.CollidersPerSecond, 1, 10000)
	if c.ColliderMaxLOD < -1 {
		c.ColliderMaxLOD = -1
	}

	if _, err := material.ParseMode(c.MaterialMode); err != nil {
		return err
	}
	if _, err := parseWinding(c.Winding); err != nil {
		return err
	}
	return c.Generator.validate()
}

// Settings converts the document into terrain settings.
func (c Terrain) Settings() terrain.Settings {
	mode, _ := material.ParseMode(c.MaterialMode)
	winding, _ := parseWinding(c.Winding)
	return terrain.Settings{
		Scale:    c.Scale,
		SizeLog2: c.SizeLog2,
		LOD: lod.Settings{
			Scale:            c.Scale,
			MinChunkSizeLog2: c.MinChunkSizeLog2,
			ShellSize:        c.ShellSize,
			LevelCount:       c.LODLevelCount,
			MaxChunkSizeLog2: c.MaxChunkSizeLog2,
			Hysteresis:       c.CameraHysteresis,
		},
		MaxConcurrentTasks: c.MaxConcurrentTasks,
		Workers:            c.Workers,
		CollidersPerSecond: c.CollidersPerSecond,
		ColliderMaxLOD:     c.ColliderMaxLOD,
		Mesh: meshing.Options{
			Sharp:           c.SharpFeatures,
			Cubic:           c.CubicVoxels,
			Clockwise:       c.Clockwise,
			Winding:         winding,
			SplitByMaterial: c.SplitByMaterial,
			MaterialMode:    mode,
		},
	}
}

var windingNames = map[string]meshing.Winding{
	"ccw":          meshing.ForceCCW,
	"cw":           meshing.ForceCW,
	"normal_check": meshing.FromNormalCheck,
}

func parseWinding(s string) (meshing.Winding, error) {
	w, ok := windingNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown winding %q", s)
	}
	return w, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampU32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
