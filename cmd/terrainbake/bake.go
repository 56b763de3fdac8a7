package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"sdfterrain/internal/meshing"
	"sdfterrain/internal/physics"
	"sdfterrain/internal/sdf"
	"sdfterrain/internal/storage"
	"sdfterrain/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultTimeout = 5 * time.Minute

func bakeAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	camera, err := parseVec3(c.String(flagCamera))
	if err != nil {
		return fmt.Errorf("--%s: %w", flagCamera, err)
	}

	tr := terrain.New(cfg.Settings(), cfg.Generator.Field(), terrain.WithLogger(logger))
	defer tr.Close()
	meshes := make(map[*terrain.Node]*meshing.MeshData)
	colliders := physics.NewColliders[*terrain.Node]()
	tr.OnMeshReady(func(n *terrain.Node, m *meshing.MeshData) {
		if m == nil {
			delete(meshes, n)
			colliders.Remove(n)
			return
		}
		meshes[n] = m
	})
	tr.OnCollider(func(n *terrain.Node, tris []mgl32.Vec3) {
		colliders.Set(n, n.Data.Mesh.Center, tris)
	})
	tr.SetCamera(camera)

	var store *storage.EditStore
	if path := c.String(flagDB); path != "" {
		if store, err = storage.OpenEditStore(path); err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, store.Close()) }()
	}

	ctx, cancel := context.WithTimeout(c.Context, c.Duration(flagTimeout))
	defer cancel()
	loop := terrain.NewLoop(tr, 0, nil)
	loop.LogEvery = 120
	if err := loop.RunUntilIdle(ctx); err != nil {
		return fmt.Errorf("initial build: %w", err)
	}

	if c.Bool(flagRestore) {
		if store == nil {
			return fmt.Errorf("--%s needs --%s", flagRestore, flagDB)
		}
		saved, info, err := store.Latest(ctx, c.String(flagName))
		if err != nil {
			return err
		}
		if err := tr.RestoreStorage(saved); err != nil {
			return err
		}
		logger.Info("restored snapshot", zap.Int64("id", info.ID), zap.Int("nodes", info.Nodes))
	}

	edits, err := parseEdits(c)
	if err != nil {
		return err
	}
	for _, m := range edits {
		tr.ModifyUsingSDF(m)
	}
	if err := loop.RunUntilIdle(ctx); err != nil {
		return fmt.Errorf("apply edits: %w", err)
	}

	files, err := writeOBJ(ctx, c.String(flagOut), meshes)
	if err != nil {
		return err
	}
	s := tr.Stats()
	logger.Info("bake finished",
		zap.Int("nodes", s.Nodes),
		zap.Int("meshes", s.Meshes),
		zap.Int("triangles", s.Triangles),
		zap.Strings("files", files),
		zap.Int("collider_triangles", colliders.Triangles()),
	)
	edge := float32(uint64(1)<<cfg.SizeLog2) * cfg.Scale
	if h, ok := colliders.GroundHeight(camera[0], camera[2], camera[1]+edge, 2*edge); ok {
		logger.Info("ground under camera", zap.Float32("height", h))
	}

	saved := tr.ExportStorage()
	if path := c.String(flagSnapshot); path != "" {
		if err := storage.WriteSnapshot(path, saved); err != nil {
			return err
		}
	}
	if store != nil && saved != nil {
		id, err := store.Save(ctx, c.String(flagName), cfg.SizeLog2, saved, time.Now())
		if err != nil {
			return err
		}
		logger.Info("stored snapshot", zap.Int64("id", id), zap.Int("nodes", saved.Count()))
	}
	return nil
}

// writeOBJ writes one OBJ file per LOD, in parallel.
func writeOBJ(ctx context.Context, dir string, meshes map[*terrain.Node]*meshing.MeshData) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	byLOD := make(map[int][]*meshing.MeshData)
	for _, m := range meshes {
		byLOD[m.LOD] = append(byLOD[m.LOD], m)
	}
	lods := make([]int, 0, len(byLOD))
	for l, ms := range byLOD {
		lods = append(lods, l)
		// Stable output for identical bakes.
		sort.Slice(ms, func(i, j int) bool { return lessVec(ms[i].Center, ms[j].Center) })
	}
	sort.Ints(lods)

	files := make([]string, len(lods))
	g, ctx := errgroup.WithContext(ctx)
	for i, l := range lods {
		l := l
		path := filepath.Join(dir, fmt.Sprintf("lod_%d.obj", l))
		files[i] = path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writeOBJFile(path, byLOD[l])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func writeOBJFile(path string, meshes []*meshing.MeshData) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()
	base := 0
	for _, m := range meshes {
		if base, err = m.WriteOBJ(f, base); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func lessVec(a, b mgl32.Vec3) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func parseEdits(c *cli.Context) ([]terrain.Modification, error) {
	var out []terrain.Modification
	for _, e := range []struct {
		flag string
		op   sdf.Operation
	}{{flagCarve, sdf.Subtraction}, {flagFill, sdf.Union}} {
		for _, s := range c.StringSlice(e.flag) {
			v, err := parseFloats(s, ":", 4)
			if err != nil {
				return nil, fmt.Errorf("--%s %q: %w", e.flag, s, err)
			}
			out = append(out, terrain.Modification{
				SDF:       sdf.Sphere{Radius: v[3]},
				Origin:    mgl32.Vec3{v[0], v[1], v[2]},
				Operation: e.op,
			})
		}
	}
	return out, nil
}

func parseVec3(s string) (mgl32.Vec3, error) {
	v, err := parseFloats(s, ",", 3)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return mgl32.Vec3{v[0], v[1], v[2]}, nil
}

// parseFloats reads n numbers joined by sep. Slice flags already split on
// commas, so repeatable flags use ":" instead.
func parseFloats(s, sep string, n int) ([]float32, error) {
	parts := strings.Split(s, sep)
	if len(parts) != n {
		return nil, fmt.Errorf("want %d numbers separated by %q, got %d", n, sep, len(parts))
	}
	out := make([]float32, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}
