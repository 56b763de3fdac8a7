package terrain

import (
	"context"
	"errors"
	"testing"
	"time"

	"sdfterrain/internal/meshing"
	"sdfterrain/internal/sdf"

	"github.com/benbjohnson/clock"
	"github.com/go-gl/mathgl/mgl32"
)

func TestLoopProcessesTicksUntilCanceled(t *testing.T) {
	tr, _ := newTerrain(t, testSettings(6, 2), sdf.Sphere{Radius: 10})
	mock := clock.NewMock()
	loop := NewLoop(tr, 10*time.Millisecond, mock)
	loop.LogEvery = 2

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	deadline := time.Now().Add(10 * time.Second)
	for tr.builds.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("loop never started a build")
		}
		mock.Add(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: got %v, want context.Canceled", err)
	}
}

func TestProcessCollidersRateLimit(t *testing.T) {
	s := testSettings(6, 2)
	s.CollidersPerSecond = 3
	tr := New(s, emptyField{})
	defer tr.Close()

	var got []*Node
	tr.OnCollider(func(n *Node, _ []mgl32.Vec3) { got = append(got, n) })

	var nodes []*Node
	for i := 0; i < 5; i++ {
		n := newChunkAt(mgl32.Vec3{float32(i), 0, 0}, 2, 0)
		n.Data.Mesh = &meshing.MeshData{}
		nodes = append(nodes, n)
		tr.colliders = append(tr.colliders, colliderRequest{node: n, gen: n.Data.Generation})
	}
	// A detached chunk is skipped without using up the budget.
	nodes[1].Data.Generation++

	tr.processColliders(time.Second)
	if len(got) != 3 || got[0] != nodes[0] || got[1] != nodes[2] || got[2] != nodes[3] {
		t.Fatalf("first second: got %d colliders, want nodes 0 2 3", len(got))
	}
	// Short frames still make progress.
	tr.processColliders(time.Millisecond)
	if len(got) != 4 || got[3] != nodes[4] || len(tr.colliders) != 0 {
		t.Fatalf("second frame: got %d colliders with %d left, want 4 and 0", len(got), len(tr.colliders))
	}
}

func TestRunUntilIdleSettles(t *testing.T) {
	tr, meshes := newTerrain(t, testSettings(6, 2), sdf.Sphere{Radius: 10})
	loop := NewLoop(tr, time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := loop.RunUntilIdle(ctx); err != nil {
		t.Fatalf("RunUntilIdle: %v", err)
	}
	if !tr.Idle() || len(meshes) == 0 {
		t.Fatalf("after RunUntilIdle: got idle=%v meshes=%d, want idle with meshes", tr.Idle(), len(meshes))
	}
}
