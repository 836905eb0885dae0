package libmesh

import (
	"github.com/oelwechsel/go-mesh2d/mesh2d"
)

// BuildState is the lifecycle state of a Builder.
type BuildState int32

const (
	StateIdle BuildState = iota
	StateBuilding
	StateFinished
)

func (state BuildState) String() string {
	switch state {
	case StateIdle:
		return "Idle"
	case StateBuilding:
		return "Building"
	case StateFinished:
		return "Finished"
	}
	return "?"
}

// Builder drives a Mesh through incremental, pointer-style construction:
// one vertex per placement, with triangles formed automatically by the
// two-nearest / bridge heuristic, plus vertex dragging and undo-by-removal.
//
// A Builder exclusively owns its Mesh for the duration of a build session.
// Every op runs to completion before the next input event is handled; there
// is no background work and no locking.
//
// Ops invoked in a state that forbids them return ErrIllegalState and never
// mutate the mesh.
type Builder struct {
	mesh    *Mesh
	state   BuildState
	dragVtx mesh2d.VtxID // vertex bound while dragging; Nil otherwise

	// PickRadius is the grab distance for PlaceOrGrab, in world units.
	PickRadius float32
}

// NewBuilder returns an Idle Builder bound to a fresh pooled Mesh.
func NewBuilder() *Builder {
	return &Builder{
		mesh:       NewMesh(nil),
		state:      StateIdle,
		dragVtx:    mesh2d.Nil,
		PickRadius: mesh2d.DefaultPickRadius,
	}
}

// Mesh exposes the builder's mesh for read-only overlay queries and export.
func (bld *Builder) Mesh() *Mesh {
	return bld.mesh
}

func (bld *Builder) State() BuildState {
	return bld.state
}

func (bld *Builder) IsDragging() bool {
	return bld.dragVtx != mesh2d.Nil
}

// DragVtx returns the vertex bound to the active drag, or mesh2d.Nil.
func (bld *Builder) DragVtx() mesh2d.VtxID {
	return bld.dragVtx
}

// Start begins a build session: Idle/Finished -> Building with an empty mesh.
func (bld *Builder) Start() error {
	if bld.state == StateBuilding {
		return mesh2d.ErrIllegalState
	}
	bld.mesh.Init(nil)
	bld.state = StateBuilding
	bld.dragVtx = mesh2d.Nil
	return nil
}

// PlaceOrGrab handles a pointer-down at pos.
//
// If an existing vertex lies within PickRadius, the builder enters the Dragging
// sub-state bound to that vertex and the mesh is untouched (grabbed == true).
// Otherwise a new vertex is appended and, once the mesh holds at least 3
// vertices, the bridge heuristic forms one or two triangles fanning the new
// vertex onto its two nearest predecessors.
func (bld *Builder) PlaceOrGrab(pos mesh2d.Vec2) (vi mesh2d.VtxID, grabbed bool, err error) {
	if bld.state != StateBuilding || bld.dragVtx != mesh2d.Nil {
		return mesh2d.Nil, false, mesh2d.ErrIllegalState
	}

	if hit, ok := bld.mesh.FindNearestVertex(pos, bld.PickRadius); ok {
		bld.dragVtx = hit
		return hit, true, nil
	}

	vi = bld.mesh.AddVertex(pos)
	if bld.mesh.NumVerts() >= 3 {
		bld.formTriangles(vi, pos)
	}
	return vi, false, nil
}

// formTriangles applies the bridge heuristic for a freshly placed vertex.
//
// This is a heuristic, not a triangulation: placing a vertex inside existing
// triangles can produce overlapping or degenerate geometry, which is accepted.
func (bld *Builder) formTriangles(vi mesh2d.VtxID, pos mesh2d.Vec2) {
	va, vb := bld.mesh.FindTwoNearest(pos, vi)
	if va == mesh2d.Nil || vb == mesh2d.Nil {
		return
	}

	if bld.mesh.VerticesOfSameTriangle(va, vb) {
		bld.mesh.AddTriangle(va, vb, vi)
		return
	}

	var scrapA, scrapB [8]mesh2d.TriID
	trisA := bld.mesh.TrianglesTouching(va, scrapA[:0])
	trisB := bld.mesh.TrianglesTouching(vb, scrapB[:0])

	// A shared "bridge" vertex joins the two nearest vertices' triangle
	// clusters; fan the new vertex across that boundary with two triangles.
	if vs, ok := bld.mesh.ShareVertex(trisA, trisB); ok {
		bld.mesh.AddTriangle(va, vs, vi)
		bld.mesh.AddTriangle(vb, vs, vi)
		return
	}

	bld.mesh.AddTriangle(va, vb, vi)
}

// DragTo moves the vertex bound by the active drag. Valid only while Dragging.
func (bld *Builder) DragTo(pos mesh2d.Vec2) error {
	if bld.state != StateBuilding || bld.dragVtx == mesh2d.Nil {
		return mesh2d.ErrIllegalState
	}
	return bld.mesh.MoveVertex(bld.dragVtx, pos)
}

// ReleaseDrag ends the Dragging sub-state.
// Releasing while Building but not dragging is a no-op, so pointer-up events
// never need state tracking on the caller's side.
func (bld *Builder) ReleaseDrag() error {
	if bld.state != StateBuilding {
		return mesh2d.ErrIllegalState
	}
	bld.dragVtx = mesh2d.Nil
	return nil
}

// DeleteLast removes the most-recently-added vertex and every triangle
// touching it. Triangles formed entirely on earlier vertices remain.
func (bld *Builder) DeleteLast() error {
	if bld.state != StateBuilding || bld.mesh.NumVerts() == 0 {
		return mesh2d.ErrIllegalState
	}

	last := mesh2d.VtxID(bld.mesh.NumVerts() - 1)
	if bld.dragVtx == last {
		bld.dragVtx = mesh2d.Nil
	}
	return bld.mesh.RemoveVertexAndDependents(last)
}

// Finish completes the session: Building -> Finished, releasing any active drag.
func (bld *Builder) Finish() error {
	if bld.state != StateBuilding {
		return mesh2d.ErrIllegalState
	}
	bld.dragVtx = mesh2d.Nil
	bld.state = StateFinished
	return nil
}

// Reopen re-enables editing of a completed mesh: Finished -> Building.
func (bld *Builder) Reopen() error {
	if bld.state != StateFinished {
		return mesh2d.ErrIllegalState
	}
	bld.state = StateBuilding
	return nil
}

// Clear discards all geometry and leaves the builder Building an empty mesh.
func (bld *Builder) Clear() {
	bld.mesh.Init(nil)
	bld.dragVtx = mesh2d.Nil
	bld.state = StateBuilding
}

// Discard discards all geometry and returns the builder to Idle.
func (bld *Builder) Discard() {
	bld.mesh.Init(nil)
	bld.dragVtx = mesh2d.Nil
	bld.state = StateIdle
}

// Reclaim recycles the builder's mesh. Caller asserts no references persist.
func (bld *Builder) Reclaim() {
	bld.mesh.Reclaim()
	bld.mesh = nil
}
