package libmesh

import (
	"github.com/go-python/gpython/py"

	"github.com/oelwechsel/go-mesh2d/mesh2d"
)

// OnMeshHit is a callback channel used to return meshes meeting a set of selection criteria.
// Ownership of a Mesh also travels through the channel.
type OnMeshHit chan<- *Mesh

// OpenCatalog is a forward declared entry point (assigned by the catalog package),
// allowing Catalog implementations to decouple from the libmesh module.
var OpenCatalog func(ctx CatalogContext, opts CatalogOpts) (Catalog, error)

// CatalogContext is a container for open / active Catalog instances.
type CatalogContext interface {

	// Attaches the given Catalog to this context.
	AttachCatalog(cat Catalog)

	// Detaches the given Catalog from this context.
	DetachCatalog(cat Catalog)

	// Signals all open catalogs to close, then closes.
	Close()

	// Signals when Close() completed and all open Catalogs have been closed
	Done() <-chan struct{}
}

// CatalogOpts specifies params for opening a mesh Catalog
type CatalogOpts struct {
	DbPathName string // omit for an in-memory db
	ReadOnly   bool   // open in read-only mode
}

// MeshAdder is a sink that accepts meshes, dropping ones it has already seen.
type MeshAdder interface {

	// Tries to add the given mesh.
	// If true is returned, M did not exist and was added.
	TryAddMesh(M *Mesh) bool

	Close()
}

// Catalog wraps a database of mesh encodings.
type Catalog interface {
	MeshAdder

	// Returns true if this catalog was opened for read-only access.
	IsReadOnly() bool

	// NumMeshes returns the number of meshes in this catalog having the given vertex count.
	// NumMeshes(0) returns the total; an out of bounds vertex count returns 0.
	NumMeshes(forVtxCount int) int64

	// Type returns info for gpython support
	Type() *py.Type

	// Select pushes every stored mesh that meets the selection criteria to onHit.
	Select(sel MeshSelector, onHit OnMeshHit)
}

// MeshSelector is an operator that either selects a given Mesh or not.
type MeshSelector struct {
	Min mesh2d.MeshInfo // lower select bounds
	Max mesh2d.MeshInfo // upper select bounds
}

// DefaultMeshSelector selects every exportable mesh.
var DefaultMeshSelector = MeshSelector{
	Min: mesh2d.MeshInfo{
		NumVerts: 3,
		NumTris:  1,
	},
	Max: mesh2d.MeshInfo{
		NumVerts: 1 << 20,
		NumTris:  1 << 20,
	},
}

// AllowMesh is a convenience function used to see if a Mesh is selected according to a MeshSelector.
func (sel *MeshSelector) AllowMesh(M *Mesh) bool {
	info := M.GetInfo()
	if info.NumVerts < sel.Min.NumVerts || info.NumTris < sel.Min.NumTris {
		return false
	}
	if info.NumVerts > sel.Max.NumVerts || info.NumTris > sel.Max.NumTris {
		return false
	}
	return true
}
