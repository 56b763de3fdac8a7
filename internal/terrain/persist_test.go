package terrain

import (
	"bytes"
	"testing"

	"sdfterrain/internal/sdf"
	"sdfterrain/internal/storage"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
)

func TestExportUneditedIsEmpty(t *testing.T) {
	tr, _ := newTerrain(t, testSettings(6, 2), ground())
	settle(t, tr)
	if got := tr.ExportStorage(); got != nil {
		t.Fatalf("export of an unedited terrain: got %+v, want nil", got)
	}
}

func TestStorageRoundTrip(t *testing.T) {
	src, _ := newTerrain(t, testSettings(7, 3), ground())
	settle(t, src)
	src.Modify(Modification{
		SDF:       sdf.Sphere{Radius: 5},
		Origin:    mgl32.Vec3{-6, 0, 2},
		Operation: sdf.Subtraction,
		Material:  3,
	}.ToSettings(src.Root().Center(), 2))
	settle(t, src)

	want := src.ExportStorage()
	if want == nil || want.Kind != storage.Inner {
		t.Fatalf("export after edit: got %+v, want an inner root", want)
	}
	data, err := storage.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := storage.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	again, err := storage.Marshal(decoded)
	if err != nil {
		t.Fatalf("Marshal decoded: %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Fatalf("re-encoded tree: got %d bytes, want the original %d bytes", len(again), len(data))
	}

	dst, meshes := newTerrain(t, testSettings(7, 3), ground())
	settle(t, dst)
	if err := dst.RestoreStorage(decoded); err != nil {
		t.Fatalf("RestoreStorage: %v", err)
	}
	settle(t, dst)

	restored := dst.ExportStorage()
	if diff := cmp.Diff(want, restored); diff != "" {
		t.Fatalf("export after restore (-want +got):\n%s", diff)
	}
	if out, err := storage.Marshal(restored); err != nil || !bytes.Equal(out, data) {
		t.Fatalf("encoded export after restore: got %d bytes (%v), want the original %d bytes", len(out), err, len(data))
	}
	n := deepestAt(dst.Root(), mgl32.Vec3{-5.5, -1.5, 2.5})
	if v := refresh(n).Value; v <= 0 {
		t.Fatalf("restored crater: got value %v, want > 0", v)
	}
	if len(meshes) == 0 {
		t.Fatal("restored terrain has no meshes")
	}
}

func TestRestoreRejectsUnknownKind(t *testing.T) {
	tr, _ := newTerrain(t, testSettings(6, 2), ground())
	if err := tr.RestoreStorage(&storage.Tree{Kind: storage.Kind(9)}); err == nil {
		t.Fatal("got nil error for unknown kind")
	}
}
