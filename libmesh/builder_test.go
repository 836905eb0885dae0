package libmesh_test

import (
	"errors"
	"testing"

	"github.com/oelwechsel/go-mesh2d/libmesh"
	"github.com/oelwechsel/go-mesh2d/mesh2d"
)

func place(t *testing.T, bld *libmesh.Builder, x, y float32) mesh2d.VtxID {
	t.Helper()
	vi, grabbed, err := bld.PlaceOrGrab(mesh2d.Vec2{X: x, Y: y})
	if err != nil {
		t.Fatal(err)
	}
	if grabbed {
		t.Fatalf("expected placement at (%v, %v), got grab of %d", x, y, vi)
	}
	return vi
}

func grab(t *testing.T, bld *libmesh.Builder, x, y float32) mesh2d.VtxID {
	t.Helper()
	vi, grabbed, err := bld.PlaceOrGrab(mesh2d.Vec2{X: x, Y: y})
	if err != nil {
		t.Fatal(err)
	}
	if !grabbed {
		t.Fatalf("expected grab at (%v, %v), got placement of %d", x, y, vi)
	}
	return vi
}

func wantTris(t *testing.T, bld *libmesh.Builder, want ...mesh2d.Tri) {
	t.Helper()
	tris := bld.Mesh().Tris()
	if len(tris) != len(want) {
		t.Fatalf("expected %d triangles, got %d", len(want), len(tris))
	}
	for i := range want {
		if tris[i] != want[i] {
			t.Fatalf("triangle %d: expected %v, got %v", i, want[i], tris[i])
		}
	}
}

// First triangle forms as soon as a third vertex is placed.
func TestFirstTriangle(t *testing.T) {
	bld := libmesh.NewBuilder()
	defer bld.Reclaim()
	bld.Start()

	place(t, bld, 0, 0)
	place(t, bld, 1, 0)
	if bld.Mesh().NumTris() != 0 {
		t.Fatal("no triangle expected below 3 vertices")
	}

	place(t, bld, 0, 1)
	wantTris(t, bld, mesh2d.Tri{0, 1, 2})
}

// A vertex placed near two co-triangled vertices fans onto them directly.
func TestSharedTrianglePlacement(t *testing.T) {
	bld := libmesh.NewBuilder()
	defer bld.Reclaim()
	bld.Start()

	place(t, bld, 0, 0)
	place(t, bld, 1, 0)
	place(t, bld, 0, 1)
	place(t, bld, 0.5, -1)

	wantTris(t, bld, mesh2d.Tri{0, 1, 2}, mesh2d.Tri{0, 1, 3})
}

// A vertex placed between two vertices that never shared a triangle, but whose
// triangle clusters meet at a common vertex, bridges with two triangles.
func TestBridgePlacement(t *testing.T) {
	bld := libmesh.NewBuilder()
	defer bld.Reclaim()
	bld.Start()

	place(t, bld, 0, 0)     // v0
	place(t, bld, 1, 0)     // v1
	place(t, bld, 0.5, 0.7) // v2 -> tri(0,1,2)
	place(t, bld, 1.5, 0.7) // v3 -> tri(1,2,3)
	wantTris(t, bld, mesh2d.Tri{0, 1, 2}, mesh2d.Tri{1, 2, 3})

	// Drag v1 and v2 out of the way so v0 and v3 become the two nearest
	// of the next placement. They share no triangle; vertex 1 joins their
	// clusters.
	if vi := grab(t, bld, 1, 0); vi != 1 {
		t.Fatal("grabbed wrong vertex")
	}
	if err := bld.DragTo(mesh2d.Vec2{X: 0.75, Y: -3}); err != nil {
		t.Fatal(err)
	}
	if err := bld.ReleaseDrag(); err != nil {
		t.Fatal(err)
	}

	if vi := grab(t, bld, 0.5, 0.7); vi != 2 {
		t.Fatal("grabbed wrong vertex")
	}
	if err := bld.DragTo(mesh2d.Vec2{X: 0.5, Y: 4}); err != nil {
		t.Fatal(err)
	}
	if err := bld.ReleaseDrag(); err != nil {
		t.Fatal(err)
	}

	place(t, bld, 0.7, 0.3) // v4
	wantTris(t, bld,
		mesh2d.Tri{0, 1, 2},
		mesh2d.Tri{1, 2, 3},
		mesh2d.Tri{0, 1, 4},
		mesh2d.Tri{3, 1, 4})
}

func TestDeleteLast(t *testing.T) {
	bld := libmesh.NewBuilder()
	defer bld.Reclaim()
	bld.Start()

	place(t, bld, 0, 0)
	place(t, bld, 1, 0)
	place(t, bld, 0, 1)
	place(t, bld, 0.5, -1)

	if err := bld.DeleteLast(); err != nil {
		t.Fatal(err)
	}
	wantTris(t, bld, mesh2d.Tri{0, 1, 2})

	for bld.Mesh().NumVerts() > 0 {
		if err := bld.DeleteLast(); err != nil {
			t.Fatal(err)
		}
	}
	if err := bld.DeleteLast(); !errors.Is(err, mesh2d.ErrIllegalState) {
		t.Fatal("expected ErrIllegalState on empty mesh")
	}
}

func TestDragSession(t *testing.T) {
	bld := libmesh.NewBuilder()
	defer bld.Reclaim()
	bld.Start()

	place(t, bld, 0, 0)

	// Releasing without an active drag is a benign no-op
	if err := bld.ReleaseDrag(); err != nil {
		t.Fatal(err)
	}

	// Grabbing binds the drag and leaves the mesh untouched
	grab(t, bld, 0.1, 0.1)
	if !bld.IsDragging() || bld.DragVtx() != 0 {
		t.Fatal("drag not bound")
	}
	if bld.Mesh().NumVerts() != 1 || bld.Mesh().NumTris() != 0 {
		t.Fatal("grab must not mutate the mesh")
	}

	// No placement while dragging
	if _, _, err := bld.PlaceOrGrab(mesh2d.Vec2{X: 5, Y: 5}); !errors.Is(err, mesh2d.ErrIllegalState) {
		t.Fatal("expected ErrIllegalState while dragging")
	}

	if err := bld.DragTo(mesh2d.Vec2{X: 2, Y: 3}); err != nil {
		t.Fatal(err)
	}
	if err := bld.ReleaseDrag(); err != nil {
		t.Fatal(err)
	}
	if v := bld.Mesh().Verts()[0]; v.X != 2 || v.Y != 3 {
		t.Fatal("drag did not move vertex")
	}

	if err := bld.DragTo(mesh2d.Vec2{}); !errors.Is(err, mesh2d.ErrIllegalState) {
		t.Fatal("expected ErrIllegalState after release")
	}

	// Deleting the dragged vertex unbinds the drag
	grab(t, bld, 2, 3)
	if err := bld.DeleteLast(); err != nil {
		t.Fatal(err)
	}
	if bld.IsDragging() {
		t.Fatal("drag must unbind when its vertex is deleted")
	}
}

func TestBuildStates(t *testing.T) {
	bld := libmesh.NewBuilder()
	defer bld.Reclaim()

	// Idle forbids everything but Start
	if _, _, err := bld.PlaceOrGrab(mesh2d.Vec2{}); !errors.Is(err, mesh2d.ErrIllegalState) {
		t.Fatal("expected ErrIllegalState")
	}
	if err := bld.DragTo(mesh2d.Vec2{}); !errors.Is(err, mesh2d.ErrIllegalState) {
		t.Fatal("expected ErrIllegalState")
	}
	if err := bld.ReleaseDrag(); !errors.Is(err, mesh2d.ErrIllegalState) {
		t.Fatal("expected ErrIllegalState")
	}
	if err := bld.Finish(); !errors.Is(err, mesh2d.ErrIllegalState) {
		t.Fatal("expected ErrIllegalState")
	}
	if err := bld.Reopen(); !errors.Is(err, mesh2d.ErrIllegalState) {
		t.Fatal("expected ErrIllegalState")
	}

	if err := bld.Start(); err != nil {
		t.Fatal(err)
	}
	if bld.State() != libmesh.StateBuilding {
		t.Fatal("expected Building")
	}
	if err := bld.Start(); !errors.Is(err, mesh2d.ErrIllegalState) {
		t.Fatal("Start while Building must fail")
	}
	if err := bld.Reopen(); !errors.Is(err, mesh2d.ErrIllegalState) {
		t.Fatal("Reopen while Building must fail")
	}

	place(t, bld, 0, 0)
	place(t, bld, 1, 0)
	place(t, bld, 0, 1)

	if err := bld.Finish(); err != nil {
		t.Fatal(err)
	}
	if bld.State() != libmesh.StateFinished {
		t.Fatal("expected Finished")
	}
	if _, _, err := bld.PlaceOrGrab(mesh2d.Vec2{}); !errors.Is(err, mesh2d.ErrIllegalState) {
		t.Fatal("no placement once Finished")
	}

	// Finished mesh stays intact through Reopen
	if err := bld.Reopen(); err != nil {
		t.Fatal(err)
	}
	if bld.Mesh().NumVerts() != 3 || bld.Mesh().NumTris() != 1 {
		t.Fatal("Reopen must preserve geometry")
	}

	bld.Clear()
	if bld.State() != libmesh.StateBuilding || bld.Mesh().NumVerts() != 0 {
		t.Fatal("Clear must leave an empty Building session")
	}

	place(t, bld, 0, 0)
	bld.Discard()
	if bld.State() != libmesh.StateIdle || bld.Mesh().NumVerts() != 0 {
		t.Fatal("Discard must reset to Idle")
	}

	// Starting over from Finished also resets the mesh
	bld.Start()
	place(t, bld, 0, 0)
	place(t, bld, 1, 0)
	place(t, bld, 0, 1)
	bld.Finish()
	if err := bld.Start(); err != nil {
		t.Fatal(err)
	}
	if bld.Mesh().NumVerts() != 0 {
		t.Fatal("Start must begin with an empty mesh")
	}
}

// Finish implicitly releases an active drag.
func TestFinishReleasesDrag(t *testing.T) {
	bld := libmesh.NewBuilder()
	defer bld.Reclaim()
	bld.Start()

	place(t, bld, 0, 0)
	grab(t, bld, 0, 0)

	if err := bld.Finish(); err != nil {
		t.Fatal(err)
	}
	if bld.IsDragging() {
		t.Fatal("Finish must release the drag")
	}
}
