package mesh2d

import (
	"encoding/binary"
	"math"
)

const (

	// DefaultPickRadius is the distance (in world units) within which a pointer position grabs an existing vertex rather than placing a new one.
	DefaultPickRadius float32 = 0.3

	// MeshEncodingHeaderSz is the max byte length of a MeshEncoding header (two varint counts).
	MeshEncodingHeaderSz = 2 * binary.MaxVarintLen32
)

// VtxID is a zero-based index that identifies a vertex within a given mesh.
//
// A VtxID is stable for the lifetime of the vertex: vertices are only ever appended,
// or removed from the end (which also removes every triangle referencing them).
// Two vertices at identical coordinates are distinct entities -- identity is the index, never the position.
type VtxID int32

// TriID is a zero-based index that identifies a triangle within a given mesh.
type TriID int32

// Nil denotes "no vertex" / "no triangle" for VtxID and TriID values.
const Nil = -1

// Vec2 is a 2D point or displacement in mesh space.
type Vec2 struct {
	X float32
	Y float32
}

// DistSqTo returns the squared Euclidean distance to b.
// Comparisons between candidate vertices use squared distances so no sqrt is needed.
func (v Vec2) DistSqTo(b Vec2) float32 {
	dx := v.X - b.X
	dy := v.Y - b.Y
	return dx*dx + dy*dy
}

// DistTo returns the Euclidean distance to b.
func (v Vec2) DistTo(b Vec2) float32 {
	return float32(math.Sqrt(float64(v.DistSqTo(b))))
}

// Tri is a triangle: three distinct vertex indices into a mesh's vertex sequence.
// A Tri stores topology only -- moving a vertex implicitly moves every Tri referencing it.
type Tri [3]VtxID

// Contains returns whether vi is one of this triangle's three vertices.
func (tri Tri) Contains(vi VtxID) bool {
	return tri[0] == vi || tri[1] == vi || tri[2] == vi
}

// MeshInfo summarizes a mesh's size.
type MeshInfo struct {
	NumVerts uint32
	NumTris  uint32
}

// AppendEncodingHeader appends the defining info about a mesh to the given buffer.
// Vertex count leads so that encodings sort by mesh size lexicographically.
func (info *MeshInfo) AppendEncodingHeader(prefix []byte) []byte {
	var scrap [binary.MaxVarintLen32]byte
	n := binary.PutUvarint(scrap[:], uint64(info.NumVerts))
	prefix = append(prefix, scrap[:n]...)
	n = binary.PutUvarint(scrap[:], uint64(info.NumTris))
	prefix = append(prefix, scrap[:n]...)
	return prefix
}

// PrintOpts specifies what is printed when printing a mesh
type PrintOpts struct {
	Label   string // Prefix label
	Expr    bool   // If set, prints the mesh construction expr
	Buffers bool   // If set, prints the exported vertex / index buffers
}

// DefaultPrintOpts{}
var DefaultPrintOpts = PrintOpts{
	Expr: true,
}
