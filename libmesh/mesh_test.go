package libmesh_test

import (
	"errors"
	"testing"

	"github.com/oelwechsel/go-mesh2d/libmesh"
	"github.com/oelwechsel/go-mesh2d/mesh2d"
)

func mustInit(t *testing.T, M *libmesh.Mesh, expr string) {
	t.Helper()
	if err := M.InitFromString(expr); err != nil {
		t.Fatal(err)
	}
}

func TestMeshBasics(t *testing.T) {
	M := libmesh.NewMesh(nil)
	defer M.Reclaim()

	mustInit(t, M, "(0 0) (1 0) (0 1) ; [1 2 3]")
	if M.NumVerts() != 3 || M.NumTris() != 1 {
		t.Fatal("init counts wrong")
	}

	if _, err := M.AddTriangle(0, 1, 3); !errors.Is(err, mesh2d.ErrInvalidIndex) {
		t.Fatal("expected ErrInvalidIndex for out of range index")
	}
	if _, err := M.AddTriangle(0, 1, 1); !errors.Is(err, mesh2d.ErrInvalidIndex) {
		t.Fatal("expected ErrInvalidIndex for repeated index")
	}

	if err := M.MoveVertex(3, mesh2d.Vec2{}); !errors.Is(err, mesh2d.ErrIndexOutOfRange) {
		t.Fatal("expected ErrIndexOutOfRange")
	}
	if err := M.MoveVertex(2, mesh2d.Vec2{X: 0, Y: 2}); err != nil {
		t.Fatal(err)
	}
	if M.Verts()[2].Y != 2 {
		t.Fatal("MoveVertex did not apply")
	}

	// Only the most recently added vertex can be removed
	if err := M.RemoveVertexAndDependents(0); !errors.Is(err, mesh2d.ErrIndexOutOfRange) {
		t.Fatal("expected ErrIndexOutOfRange for non-last vertex")
	}
	if err := M.RemoveVertexAndDependents(2); err != nil {
		t.Fatal(err)
	}
	if M.NumVerts() != 2 || M.NumTris() != 0 {
		t.Fatal("dependent triangle not removed")
	}
}

func TestNearestQueries(t *testing.T) {
	M := libmesh.NewMesh(nil)
	defer M.Reclaim()

	mustInit(t, M, "(0 0) (0.1 0) (5 5)")

	// First vertex within radius wins, in index order
	vi, ok := M.FindNearestVertex(mesh2d.Vec2{X: 0.05, Y: 0}, 0.2)
	if !ok || vi != 0 {
		t.Fatal("expected vertex 0")
	}
	if _, ok := M.FindNearestVertex(mesh2d.Vec2{X: 2, Y: 2}, 0.2); ok {
		t.Fatal("expected no hit")
	}

	va, vb := M.FindTwoNearest(mesh2d.Vec2{X: 0, Y: 0}, mesh2d.Nil)
	if va != 0 || vb != 1 {
		t.Fatal("two nearest wrong")
	}
	va, vb = M.FindTwoNearest(mesh2d.Vec2{X: 0, Y: 0}, 0)
	if va != 1 || vb != 2 {
		t.Fatal("exclude not honored")
	}

	M.Init(nil)
	M.AddVertex(mesh2d.Vec2{})
	va, vb = M.FindTwoNearest(mesh2d.Vec2{}, mesh2d.Nil)
	if va != 0 || vb != mesh2d.Nil {
		t.Fatal("expected Nil for missing second candidate")
	}
}

func TestExprRoundTrip(t *testing.T) {
	exprs := []string{
		"(0 0) (1 0) (0 1) ; [1 2 3]",
		"(0 0) (1 0) (0 1) (0.5 -1) ; [1 2 3] [1 2 4]",
		"(-1.25 0.5) (2 -3)",
	}

	M := libmesh.NewMesh(nil)
	defer M.Reclaim()

	for _, expr := range exprs {
		mustInit(t, M, expr)
		if got := string(M.AppendExprTo(nil)); got != expr {
			t.Fatalf("round trip failed: %q != %q", got, expr)
		}
	}

	if err := M.InitFromString("(0 0) (1 0 ; [1 2]"); !errors.Is(err, mesh2d.ErrBadMeshExpr) {
		t.Fatal("expected ErrBadMeshExpr")
	}
	if err := M.InitFromString("(0 0) (1 0) ; [1 2 3]"); !errors.Is(err, mesh2d.ErrBadMeshExpr) {
		t.Fatal("expected ErrBadMeshExpr for out of range triangle")
	}
}

func TestMeshDefRoundTrip(t *testing.T) {
	M := libmesh.NewMesh(nil)
	defer M.Reclaim()
	mustInit(t, M, "(0 0) (1 0) (0 1) (0.5 -1) ; [1 2 3] [1 2 4]")

	meshDef := M.ExportMeshDef()
	M2, err := libmesh.NewMeshFromDef(meshDef)
	if err != nil {
		t.Fatal(err)
	}
	defer M2.Reclaim()

	if string(M.AppendExprTo(nil)) != string(M2.AppendExprTo(nil)) {
		t.Fatal("def round trip mismatch")
	}

	info, err := libmesh.MeshEncoding(M.AppendMeshEncodingTo(nil)).GetInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.NumVerts != 4 || info.NumTris != 2 {
		t.Fatal("encoding header wrong")
	}
}

func TestExportBuffers(t *testing.T) {
	M := libmesh.NewMesh(nil)
	defer M.Reclaim()

	if _, _, err := M.ExportBuffers(); !errors.Is(err, mesh2d.ErrInsufficientGeometry) {
		t.Fatal("expected ErrInsufficientGeometry for empty mesh")
	}

	mustInit(t, M, "(0 0) (1 1)")
	if _, _, err := M.ExportBuffers(); !errors.Is(err, mesh2d.ErrInsufficientGeometry) {
		t.Fatal("expected ErrInsufficientGeometry below 3 vertices")
	}

	mustInit(t, M, "(0 0) (1 0) (0 1)")
	if _, _, err := M.ExportBuffers(); !errors.Is(err, mesh2d.ErrInsufficientGeometry) {
		t.Fatal("expected ErrInsufficientGeometry without triangles")
	}

	mustInit(t, M, "(0 0) (1 0) (0 1) (0.5 -1) ; [1 2 3] [1 2 4]")
	positions, indices, err := M.ExportBuffers()
	if err != nil {
		t.Fatal(err)
	}
	if len(positions) != 12 || len(indices) != 6 {
		t.Fatal("buffer sizes wrong")
	}
	for i := 2; i < len(positions); i += 3 {
		if positions[i] != 0 {
			t.Fatal("z component must be 0")
		}
	}

	M2 := libmesh.NewMesh(nil)
	defer M2.Reclaim()
	if err := M2.InitFromBuffers(positions, indices); err != nil {
		t.Fatal(err)
	}
	if string(M.AppendExprTo(nil)) != string(M2.AppendExprTo(nil)) {
		t.Fatal("buffer round trip mismatch")
	}
}

func TestFanStreams(t *testing.T) {
	if count := libmesh.EnumFanMeshes(3, 8).PullAll(); count != 6 {
		t.Fatalf("expected 6 fan meshes, got %d", count)
	}

	if count := libmesh.EnumFanMeshes(3, 8).DropDupes().PullAll(); count != 6 {
		t.Fatal("distinct fans should all pass DropDupes")
	}

	sel := libmesh.DefaultMeshSelector
	sel.Min.NumVerts = 5
	if count := libmesh.EnumFanMeshes(3, 8).SelectFromStream(sel).PullAll(); count != 4 {
		t.Fatal("selector bounds not honored")
	}

	// A fan of n vertices triangulates to n-2 triangles
	stream := libmesh.EnumFanMeshes(5, 5)
	M := stream.PullMesh()
	if M.NumVerts() != 5 || M.NumTris() != 3 {
		t.Fatal("fan shape wrong")
	}
	M.Reclaim()
	stream.PullAll()
}
