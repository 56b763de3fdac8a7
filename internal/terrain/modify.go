package terrain

import (
	"sdfterrain/internal/geom"
	"sdfterrain/internal/sdf"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// MaxEditRadius bounds the region an unbounded edit SDF (a plane, say) can
// touch around its origin.
const MaxEditRadius = 1000

// changedThreshold is the value change above which an edited node takes the
// edit's material.
const changedThreshold = 0.01

// ModifySettings is an edit in octree space.
type ModifySettings struct {
	SDF       sdf.Field
	Bounds    geom.Bounds
	Position  mgl32.Vec3
	Operation sdf.Operation
	Material  uint32
	SmoothK   float32
}

// Modification is an edit in world space: SDF is evaluated relative to
// Origin.
type Modification struct {
	SDF       sdf.Field
	Origin    mgl32.Vec3
	Operation sdf.Operation
	// Material defaults to 1.
	Material uint32
	// SmoothK defaults to 1 and is multiplied by the terrain scale.
	SmoothK float32
}

// ToSettings converts m into octree space around octreeCenter. The bounds
// are the SDF's bounds grown by buffer and clamped to MaxEditRadius.
func (m Modification) ToSettings(octreeCenter mgl32.Vec3, buffer float32) ModifySettings {
	pos := m.Origin.Sub(octreeCenter)
	var bounds geom.Bounds
	if m.SDF != nil {
		bounds = m.SDF.Bounds().Expand(buffer).Translate(pos).
			Intersect(geom.Cube(pos, MaxEditRadius+buffer))
	}
	s := ModifySettings{
		SDF:       m.SDF,
		Bounds:    bounds,
		Position:  pos,
		Operation: m.Operation,
		Material:  m.Material,
		SmoothK:   m.SmoothK,
	}
	if s.Material == 0 {
		s.Material = 1
	}
	if s.SmoothK == 0 {
		s.SmoothK = 1
	}
	return s
}

// ModifyUsingSDF queues an edit. It is applied by a later Process call.
func (t *Terrain) ModifyUsingSDF(m Modification) {
	if m.SDF == nil {
		t.logger.Warn("ignoring edit without sdf", zap.Stringer("op", m.Operation))
		return
	}
	s := m.ToSettings(t.root.Center(), t.settings.Scale*2)
	t.mu.Lock()
	t.edits = append(t.edits, s)
	t.mu.Unlock()
}

// processModifyQueue applies at most one queued edit.
func (t *Terrain) processModifyQueue() {
	t.mu.Lock()
	if len(t.edits) == 0 {
		t.mu.Unlock()
		return
	}
	s := t.edits[0]
	t.edits = t.edits[1:]
	t.mu.Unlock()

	t.Modify(s)
}

// Modify applies an edit immediately. Owner goroutine only, never during a
// build.
func (t *Terrain) Modify(s ModifySettings) {
	if s.SDF == nil {
		t.logger.Warn("ignoring edit without sdf", zap.Stringer("op", s.Operation))
		return
	}
	t.modify(t.root, &s)
	t.editCount.Add(1)
	t.logger.Debug("edit applied",
		zap.Stringer("op", s.Operation),
		zap.Float32s("position", s.Position[:]),
	)
}

func (t *Terrain) modify(n *Node, s *ModifySettings) {
	bounds := n.Bounds(t.settings.Scale)
	if !s.Bounds.Intersects(bounds) {
		return
	}

	n.Data.LOD = int32(t.policy.DesiredLOD(n.Center(), n.SizeLog2()))
	if !n.Data.Generated {
		base := sdf.At(t.field, n.Center())
		setValue(n, base.Value, base.Normal)
	}
	v := refresh(n)
	old := sdf.Sample{Value: v.Value, Normal: v.Normal}
	sub := sdf.At(s.SDF, n.Center().Sub(s.Position))
	res := sdf.Apply(s.Operation, old, sub, s.SmoothK*t.settings.Scale)

	if t.nearSurface(n, res.Value) {
		t.subdivide(n, inheritForEdit)
	} else if s.Bounds.Encloses(bounds) {
		t.prune(n)
	}

	setValue(n, res.Value, res.Normal)
	n.Data.Generated = true
	n.Data.Modified = true
	if abs32(res.Value-old.Value) > changedThreshold {
		n.Data.Material = s.Material
	}

	if n.IsLeaf() {
		markMaterialized(n)
	} else {
		for _, c := range n.Children() {
			t.modify(c, s)
		}
	}

	if t.isChunk(n) {
		t.EnqueueChunkUpdate(n)
	} else {
		t.releaseMesh(n)
	}
}

// inheritForEdit seeds children split by an edit. Below an untouched node
// the base field is still exact, so the children resample it.
func inheritForEdit(parent, child *Node) {
	inherit(parent, child)
	if !parent.Data.Modified {
		child.Data.Generated = false
	}
}
