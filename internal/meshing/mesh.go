package meshing

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"sdfterrain/internal/geom"
	"sdfterrain/internal/material"

	"github.com/go-gl/mathgl/mgl32"
)

// Options tune the extractor.
type Options struct {
	// Sharp places vertices with a QEF solve instead of the crossing average.
	Sharp bool
	// Cubic places vertices at cell centers (blocky look).
	Cubic bool
	// Clockwise emits clockwise front faces.
	Clockwise bool
	// Winding orients inner faces. ForceCCW trusts the sign bits.
	Winding Winding
	// SplitByMaterial produces one surface per material.
	SplitByMaterial bool
	MaterialMode    material.Mode
	// Colors overrides material.Color.
	Colors material.Mapper
}

func (o *Options) colors() material.Mapper {
	if o.Colors != nil {
		return o.Colors
	}
	return material.Color
}

// Surface is one indexed triangle list. Vertices are relative to the chunk
// center.
type Surface struct {
	Material uint32
	Vertices []mgl32.Vec3
	Normals  []mgl32.Vec3
	Colors   []mgl32.Vec4
	Indices  []int32
}

// EdgeKey addresses a boundary vertex: an inner cell coordinate, or a ring
// cell coordinate when Ring is set.
type EdgeKey struct {
	Ring bool
	Pos  [3]int32
}

// MeshData is the output of one extraction.
type MeshData struct {
	Center     mgl32.Vec3
	LOD        int
	Boundaries Boundaries
	EdgeChunk  bool
	Bounds     geom.Bounds
	Surfaces   []Surface
	Materials  []uint32
	// EdgeVertices maps boundary cells to their index in the unsplit vertex
	// list (see WorldVertex).
	EdgeVertices map[EdgeKey]int

	world []mgl32.Vec3
}

// WorldVertex returns a vertex of the unsplit list in world space.
func (m *MeshData) WorldVertex(i int) mgl32.Vec3 { return m.world[i] }

// VertexCount is the size of the unsplit vertex list.
func (m *MeshData) VertexCount() int { return len(m.world) }

// TriangleCount sums the triangles of all surfaces.
func (m *MeshData) TriangleCount() int {
	n := 0
	for _, s := range m.Surfaces {
		n += len(s.Indices) / 3
	}
	return n
}

// CollisionTriangles flattens all surfaces into a triangle soup in chunk
// local space.
func (m *MeshData) CollisionTriangles() []mgl32.Vec3 {
	out := make([]mgl32.Vec3, 0, m.TriangleCount()*3)
	for _, s := range m.Surfaces {
		for _, i := range s.Indices {
			out = append(out, s.Vertices[i])
		}
	}
	return out
}

// WriteOBJ writes the mesh in world space. base is the number of vertices
// already written to w; the new total is returned.
func (m *MeshData) WriteOBJ(w io.Writer, base int) (int, error) {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "o chunk_%d_%.0f_%.0f_%.0f\n", m.LOD, m.Center[0], m.Center[1], m.Center[2])
	for _, s := range m.Surfaces {
		for i, v := range s.Vertices {
			p := v.Add(m.Center)
			n := s.Normals[i]
			fmt.Fprintf(bw, "v %g %g %g\nvn %g %g %g\n", p[0], p[1], p[2], n[0], n[1], n[2])
		}
		fmt.Fprintf(bw, "usemtl material_%d\n", s.Material)
		for t := 0; t+2 < len(s.Indices); t += 3 {
			a, b, c := base+int(s.Indices[t])+1, base+int(s.Indices[t+1])+1, base+int(s.Indices[t+2])+1
			fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c)
		}
		base += len(s.Vertices)
	}
	if err := bw.Flush(); err != nil {
		return base, fmt.Errorf("write obj: %w", err)
	}
	return base, nil
}

// finish converts the builder into MeshData, splitting by material when
// requested.
func (s *surfaceBuilder) finish(ctx *ChunkContext, opts *Options, edges map[EdgeKey]int) *MeshData {
	s.finishNormals()
	if opts.Clockwise {
		for t := 0; t+2 < len(s.indices); t += 3 {
			s.indices[t+1], s.indices[t+2] = s.indices[t+2], s.indices[t+1]
		}
	}

	out := &MeshData{
		Center:       ctx.Center,
		LOD:          ctx.LOD,
		Boundaries:   ctx.Boundaries,
		EdgeChunk:    ctx.Boundaries.Coarser() != 0,
		Bounds:       geom.Empty(),
		EdgeVertices: edges,
		world:        s.positions,
	}
	local := make([]mgl32.Vec3, len(s.positions))
	for i, p := range s.positions {
		local[i] = p.Sub(ctx.Center)
		out.Bounds = out.Bounds.Union(geom.Bounds{Min: local[i], Max: local[i]})
	}

	if !opts.SplitByMaterial {
		out.Surfaces = []Surface{{
			Vertices: local,
			Normals:  s.normals,
			Colors:   s.colors,
			Indices:  s.indices,
		}}
		out.Materials = []uint32{0}
		return out
	}

	// A triangle belongs to the material of its first vertex.
	byMaterial := make(map[uint32]*Surface)
	remap := make(map[uint32]map[int32]int32)
	for t := 0; t+2 < len(s.indices); t += 3 {
		m := s.materials[s.indices[t]]
		surf, ok := byMaterial[m]
		if !ok {
			surf = &Surface{Material: m}
			byMaterial[m] = surf
			remap[m] = make(map[int32]int32)
		}
		for _, g := range s.indices[t : t+3] {
			li, ok := remap[m][g]
			if !ok {
				li = int32(len(surf.Vertices))
				remap[m][g] = li
				surf.Vertices = append(surf.Vertices, local[g])
				surf.Normals = append(surf.Normals, s.normals[g])
				surf.Colors = append(surf.Colors, s.colors[g])
			}
			surf.Indices = append(surf.Indices, li)
		}
	}
	for m := range byMaterial {
		out.Materials = append(out.Materials, m)
	}
	sort.Slice(out.Materials, func(i, j int) bool { return out.Materials[i] < out.Materials[j] })
	for _, m := range out.Materials {
		out.Surfaces = append(out.Surfaces, *byMaterial[m])
	}
	return out
}
