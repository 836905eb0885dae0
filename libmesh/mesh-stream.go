package libmesh

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/oelwechsel/go-mesh2d/mesh2d"
)

type AddMeshOpts struct {
	AutoCloseTarget bool
}

// MeshStream is a channel pipeline of meshes.
// Ownership of each Mesh travels with it; a stage that drops a mesh reclaims it.
type MeshStream struct {
	Outlet chan *Mesh
}

func NewMeshStream() *MeshStream {
	stream := &MeshStream{
		Outlet: make(chan *Mesh),
	}
	return stream
}

// StreamMesh emits a single copy of M.
func StreamMesh(M *Mesh) *MeshStream {
	next := NewMeshStream()

	go func() {
		next.Outlet <- NewMesh(M)
		next.Close()
	}()

	return next
}

// EnumFanMeshes emits one mesh for each vertex count v_lo..v_hi: a hub vertex
// at the origin with the remaining vertices on the unit circle, built through
// an actual Builder session so each mesh is a product of the bridge heuristic.
func EnumFanMeshes(v_lo, v_hi int) *MeshStream {
	if v_lo < 1 {
		v_lo = 1
	}

	next := &MeshStream{
		Outlet: make(chan *Mesh, 1),
	}

	go func() {
		for n := v_lo; n <= v_hi; n++ {
			bld := NewBuilder()
			bld.PickRadius = 0 // generated points always place, never grab
			bld.Start()

			bld.PlaceOrGrab(mesh2d.Vec2{})
			for i := 1; i < n; i++ {
				theta := 2 * math.Pi * float64(i-1) / float64(n-1)
				bld.PlaceOrGrab(mesh2d.Vec2{
					X: float32(math.Cos(theta)),
					Y: float32(math.Sin(theta)),
				})
			}
			bld.Finish()

			next.Outlet <- NewMesh(bld.Mesh())
			bld.Reclaim()
		}
		next.Close()
	}()

	return next
}

func (stream *MeshStream) Close() {
	if stream.Outlet != nil {
		close(stream.Outlet)
	}
}

func (stream *MeshStream) PushMesh(M *Mesh) {
	stream.Outlet <- NewMesh(M)
}

func (stream *MeshStream) PullMesh() *Mesh {
	M := <-stream.Outlet
	return M
}

// PullAll drains the stream, returning the number of meshes pulled.
func (stream *MeshStream) PullAll() int {
	count := int(0)
	for M := range stream.Outlet {
		count++
		M.Reclaim()
	}
	return count
}

func (stream *MeshStream) Print(
	out io.WriteCloser,
	opts mesh2d.PrintOpts) *MeshStream {

	next := &MeshStream{
		Outlet: make(chan *Mesh, 1),
	}

	go func() {
		buf := strings.Builder{}
		buf.Grow(256)

		count := 0
		for M := range stream.Outlet {
			if len(opts.Label) > 0 {
				buf.WriteString(opts.Label)
			}
			buf.WriteByte(',')

			count++
			fmt.Fprintf(&buf, "%06d,", count)
			M.WriteAsString(&buf, opts)
			out.Write([]byte(buf.String()))
			buf.Reset()
			next.Outlet <- M
		}
		out.Close()
		next.Close()
	}()

	return next
}

// AddTo feeds the stream into a MeshAdder, forwarding only meshes the target had not seen.
func (stream *MeshStream) AddTo(target MeshAdder, opts AddMeshOpts) *MeshStream {
	next := &MeshStream{
		Outlet: make(chan *Mesh, 1),
	}

	go func() {
		for M := range stream.Outlet {
			wasAdded := target.TryAddMesh(M)
			if wasAdded {
				next.Outlet <- M
			} else {
				M.Reclaim()
			}
		}
		if opts.AutoCloseTarget {
			target.Close()
		}
		next.Close()
	}()

	return next
}

// DropDupes forwards only the first instance of each distinct mesh encoding.
func (stream *MeshStream) DropDupes() *MeshStream {
	return stream.AddTo(NewDropDupes(DropDupeOpts{}), AddMeshOpts{
		AutoCloseTarget: true,
	})
}

func (stream *MeshStream) SelectFromStream(sel MeshSelector) *MeshStream {
	next := &MeshStream{
		Outlet: make(chan *Mesh, 1),
	}

	go func() {
		for M := range stream.Outlet {
			if sel.AllowMesh(M) {
				next.Outlet <- M
			} else {
				M.Reclaim()
			}
		}
		next.Close()
	}()

	return next
}

func SelectFromCatalog(cat Catalog, sel MeshSelector) *MeshStream {
	next := &MeshStream{
		Outlet: make(chan *Mesh, 1),
	}

	onHit := make(chan *Mesh, 4)

	go func() {
		cat.Select(sel, onHit)
		close(onHit)
	}()

	go func() {
		for M := range onHit {
			if sel.AllowMesh(M) {
				next.Outlet <- M
			} else {
				M.Reclaim()
			}
		}
		next.Close()
	}()

	return next
}
