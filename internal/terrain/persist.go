package terrain

import (
	"errors"
	"fmt"

	"sdfterrain/internal/storage"
)

// ExportStorage captures the edited part of the tree. Untouched subtrees are
// left out; the generator reproduces them. Owner goroutine only.
func (t *Terrain) ExportStorage() *storage.Tree {
	return exportNode(t.root)
}

func exportNode(n *Node) *storage.Tree {
	if !n.Data.Modified {
		return nil
	}
	if n.IsLeaf() {
		v := refresh(n)
		return &storage.Tree{
			Kind:     storage.Leaf,
			Value:    v.Value,
			Normal:   v.Normal,
			Material: v.Material,
		}
	}
	tr := &storage.Tree{Kind: storage.Inner}
	for i, c := range n.Children() {
		tr.Children[i] = exportNode(c)
	}
	return tr
}

// RestoreStorage replays an exported tree onto the terrain, subdividing
// where the stored tree is deeper, and queues the touched chunks for
// meshing. Owner goroutine only.
func (t *Terrain) RestoreStorage(tr *storage.Tree) error {
	if t.building.Load() {
		return errors.New("restore during build")
	}
	if err := t.restore(t.root, tr); err != nil {
		return fmt.Errorf("restore terrain: %w", err)
	}
	t.forceBuild.Store(true)
	return nil
}

func (t *Terrain) restore(n *Node, tr *storage.Tree) error {
	if tr == nil || tr.Kind == storage.Unedited {
		return nil
	}
	n.Data.LOD = int32(t.policy.DesiredLOD(n.Center(), n.SizeLog2()))

	switch tr.Kind {
	case storage.Inner:
		if n.IsLeaf() && !t.subdivide(n, inheritForEdit) {
			return fmt.Errorf("inner node stored below the smallest node size at %v", n.Center())
		}
		for i, c := range n.Children() {
			if err := t.restore(c, tr.Children[i]); err != nil {
				return err
			}
		}
		markDirty(n)
		refresh(n)
	case storage.Leaf:
		t.prune(n)
		setValue(n, tr.Value, tr.Normal)
		n.Data.Material = tr.Material
		if n.IsLeaf() {
			markMaterialized(n)
		}
	default:
		return fmt.Errorf("unknown node kind %v", tr.Kind)
	}
	n.Data.Generated = true
	n.Data.Modified = true

	if t.isChunk(n) {
		t.EnqueueChunkUpdate(n)
	} else {
		t.releaseMesh(n)
	}
	return nil
}
