package libmesh

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/gogo/protobuf/proto"

	"github.com/oelwechsel/go-mesh2d/libmesh/meshdef"
	"github.com/oelwechsel/go-mesh2d/mesh2d"
)

// NewMesh returns a pooled Mesh instance initialized as a copy of Msrc (or empty if Msrc is nil).
func NewMesh(Msrc *Mesh) *Mesh {
	M := meshPool.Get().(*Mesh)
	M.Init(Msrc)
	return M
}

// NewMeshFromDef returns a pooled Mesh instance assigned from a marshalled MeshDef.
func NewMeshFromDef(meshDef []byte) (*Mesh, error) {
	M := meshPool.Get().(*Mesh)
	err := M.InitFromDef(meshDef)
	if err != nil {
		M.Reclaim()
		return nil, err
	}
	return M, nil
}

// Mesh is an editable triangulated 2D mesh: an ordered vertex sequence plus a list of index-triple triangles.
//
// Vertices are the single source of truth for position; triangles are pure topology.
// All mutation goes through the op methods below, which maintain the invariant that every
// triangle's three indices are pairwise distinct and within [0, NumVerts).
//
// A Mesh is not safe for concurrent use; a single Builder (or caller) owns it at a time.
type Mesh struct {
	verts []mesh2d.Vec2
	tris  []mesh2d.Tri

	Def meshdef.MeshDef
}

func (M *Mesh) Verts() []mesh2d.Vec2 {
	return M.verts
}

func (M *Mesh) Tris() []mesh2d.Tri {
	return M.tris
}

func (M *Mesh) NumVerts() int {
	return len(M.verts)
}

func (M *Mesh) NumTris() int {
	return len(M.tris)
}

// Returns info about this mesh
func (M *Mesh) GetInfo() mesh2d.MeshInfo {
	return mesh2d.MeshInfo{
		NumVerts: uint32(len(M.verts)),
		NumTris:  uint32(len(M.tris)),
	}
}

func (M *Mesh) Init(Msrc *Mesh) {
	if M == Msrc {
		return
	}

	M.onMeshChanged()

	if Msrc == nil {
		M.verts = M.verts[:0]
		M.tris = M.tris[:0]
		M.Def.Clear()
		return
	}
	M.verts = append(M.verts[:0], Msrc.verts...)
	M.tris = append(M.tris[:0], Msrc.tris...)
	M.Def.AssignFrom(&Msrc.Def)
}

// AddVertex appends a vertex and returns its new index (always the previous vertex count).
func (M *Mesh) AddVertex(pos mesh2d.Vec2) mesh2d.VtxID {
	vi := mesh2d.VtxID(len(M.verts))
	M.verts = append(M.verts, pos)
	M.onMeshChanged()
	return vi
}

// MoveVertex overwrites the position of an existing vertex in place.
// Every triangle referencing vi reflects the move implicitly.
func (M *Mesh) MoveVertex(vi mesh2d.VtxID, pos mesh2d.Vec2) error {
	if vi < 0 || int(vi) >= len(M.verts) {
		return mesh2d.ErrIndexOutOfRange
	}
	M.verts[vi] = pos
	M.onMeshChanged()
	return nil
}

// AddTriangle appends the triangle (a, b, c) and returns its index.
// Fails with ErrInvalidIndex if the indices are not pairwise distinct or any is out of range.
func (M *Mesh) AddTriangle(a, b, c mesh2d.VtxID) (mesh2d.TriID, error) {
	Nv := mesh2d.VtxID(len(M.verts))
	if a < 0 || a >= Nv || b < 0 || b >= Nv || c < 0 || c >= Nv {
		return mesh2d.Nil, mesh2d.ErrInvalidIndex
	}
	if a == b || b == c || a == c {
		return mesh2d.Nil, mesh2d.ErrInvalidIndex
	}
	ti := mesh2d.TriID(len(M.tris))
	M.tris = append(M.tris, mesh2d.Tri{a, b, c})
	M.onMeshChanged()
	return ti, nil
}

// RemoveVertexAndDependents removes the given vertex and every triangle referencing it.
//
// Only the most-recently-added vertex may be removed: vi must equal NumVerts()-1, and any
// other index fails with ErrIndexOutOfRange. Restricting removal to the end of the sequence
// keeps every surviving triangle's indices valid without a reindexing pass.
func (M *Mesh) RemoveVertexAndDependents(vi mesh2d.VtxID) error {
	if vi < 0 || int(vi) != len(M.verts)-1 {
		return mesh2d.ErrIndexOutOfRange
	}

	D := 0
	for _, tri := range M.tris {
		if !tri.Contains(vi) {
			M.tris[D] = tri
			D++
		}
	}
	M.tris = M.tris[:D]
	M.verts = M.verts[:vi]
	M.onMeshChanged()
	return nil
}

// FindNearestVertex scans vertices in index order and returns the first one within maxDist
// of pos. Ties and near-ties resolve to the lowest index by construction of the scan.
func (M *Mesh) FindNearestVertex(pos mesh2d.Vec2, maxDist float32) (mesh2d.VtxID, bool) {
	maxSq := maxDist * maxDist
	for vi, v := range M.verts {
		if v.DistSqTo(pos) <= maxSq {
			return mesh2d.VtxID(vi), true
		}
	}
	return mesh2d.Nil, false
}

// FindTwoNearest returns the two vertices closest to pos by Euclidean distance,
// excluding the given vertex (pass mesh2d.Nil to exclude none).
//
// With fewer than two candidate vertices the missing slot(s) are mesh2d.Nil;
// callers wanting a defined result must guarantee at least two candidates.
func (M *Mesh) FindTwoNearest(pos mesh2d.Vec2, exclude mesh2d.VtxID) (va, vb mesh2d.VtxID) {
	va, vb = mesh2d.Nil, mesh2d.Nil
	dA, dB := float32(math.MaxFloat32), float32(math.MaxFloat32)

	for vi, v := range M.verts {
		if mesh2d.VtxID(vi) == exclude {
			continue
		}
		d := v.DistSqTo(pos)
		if d < dA {
			vb, dB = va, dA
			va, dA = mesh2d.VtxID(vi), d
		} else if d < dB {
			vb, dB = mesh2d.VtxID(vi), d
		}
	}
	return
}

// TrianglesTouching appends to dst the index of every triangle referencing vi.
func (M *Mesh) TrianglesTouching(vi mesh2d.VtxID, dst []mesh2d.TriID) []mesh2d.TriID {
	for ti, tri := range M.tris {
		if tri.Contains(vi) {
			dst = append(dst, mesh2d.TriID(ti))
		}
	}
	return dst
}

// ShareVertex returns a vertex index that appears in at least one triangle from each of the
// two given triangle sets (first match in scan order), or (Nil, false) if no such vertex exists.
func (M *Mesh) ShareVertex(trisA, trisB []mesh2d.TriID) (mesh2d.VtxID, bool) {
	for _, ta := range trisA {
		for _, vi := range M.tris[ta] {
			for _, tb := range trisB {
				if M.tris[tb].Contains(vi) {
					return vi, true
				}
			}
		}
	}
	return mesh2d.Nil, false
}

// VerticesOfSameTriangle returns whether some triangle contains both vertex indices a and b.
func (M *Mesh) VerticesOfSameTriangle(a, b mesh2d.VtxID) bool {
	for _, tri := range M.tris {
		if tri.Contains(a) && tri.Contains(b) {
			return true
		}
	}
	return false
}

// ExportBuffers exports this mesh as flat vertex / index buffers:
// one xyz float triple per vertex (z always 0) and one index triple per triangle.
//
// Fails with ErrInsufficientGeometry if the mesh holds fewer than 3 vertices or no triangle.
// Winding order is whatever insertion produced; it is not normalized here.
func (M *Mesh) ExportBuffers() (positions []float32, indices []int32, err error) {
	if len(M.verts) < 3 || len(M.tris) < 1 {
		return nil, nil, mesh2d.ErrInsufficientGeometry
	}

	positions = make([]float32, 0, 3*len(M.verts))
	for _, v := range M.verts {
		positions = append(positions, v.X, v.Y, 0)
	}

	indices = make([]int32, 0, 3*len(M.tris))
	for _, tri := range M.tris {
		indices = append(indices, int32(tri[0]), int32(tri[1]), int32(tri[2]))
	}
	return positions, indices, nil
}

// InitFromBuffers assigns this mesh from buffers previously produced by ExportBuffers.
// The z component of each position is dropped.
func (M *Mesh) InitFromBuffers(positions []float32, indices []int32) error {
	if len(positions)%3 != 0 || len(indices)%3 != 0 {
		return mesh2d.ErrBadEncoding
	}
	M.Init(nil)

	for i := 0; i < len(positions); i += 3 {
		M.AddVertex(mesh2d.Vec2{X: positions[i], Y: positions[i+1]})
	}
	for i := 0; i < len(indices); i += 3 {
		a := mesh2d.VtxID(indices[i])
		b := mesh2d.VtxID(indices[i+1])
		c := mesh2d.VtxID(indices[i+2])
		if _, err := M.AddTriangle(a, b, c); err != nil {
			return err
		}
	}
	return nil
}

func (M *Mesh) InitFromDef(meshDef []byte) error {
	M.Def.Clear()
	err := proto.Unmarshal(meshDef, &M.Def)
	if err != nil {
		return err
	}
	err = M.initFromEncoding(M.Def.MeshEncoding)
	if err != nil {
		return err
	}
	return nil
}

func (M *Mesh) ExportMeshDef() []byte {
	M.Def.MeshEncoding = M.AppendMeshEncodingTo(M.Def.MeshEncoding[:0])

	// MeshDef is bytes + strings only; reflection marshal cannot fail on it
	buf, _ := proto.Marshal(&M.Def)
	return buf
}

func (M *Mesh) onMeshChanged() {
	// Nothing derived to invalidate yet; mutation funnel kept so derived state
	// (e.g. a future spatial index) has a single hook.
}

func (M *Mesh) Println(prefix string) {
	b := strings.Builder{}
	b.Grow(192)
	b.WriteString(prefix)
	M.WriteAsString(&b, mesh2d.DefaultPrintOpts)
	fmt.Println(b.String())
}

var newline = []byte("\n")

func (M *Mesh) WriteAsString(out io.Writer, opts mesh2d.PrintOpts) {
	fmt.Fprintf(out, "v=%d,t=%d,", M.NumVerts(), M.NumTris())

	if opts.Expr {
		var buf [192]byte
		expr := M.AppendExprTo(buf[:0])
		fmt.Fprintf(out, "%q,", expr)
	}

	if opts.Buffers {
		M.writeBuffersAsCSV(out)
	}
	out.Write(newline)
}

func (M *Mesh) writeBuffersAsCSV(out io.Writer) {
	positions, indices, err := M.ExportBuffers()
	if err != nil {
		fmt.Fprintf(out, "(%v),", err)
		return
	}
	for _, f := range positions {
		fmt.Fprintf(out, "%g,", f)
	}
	for _, idx := range indices {
		fmt.Fprintf(out, "%d,", idx)
	}
}

func (M *Mesh) Reclaim() {
	if M != nil {
		meshPool.Put(M)
	}
}

var meshPool = sync.Pool{
	New: func() interface{} {
		return new(Mesh)
	},
}

// MeshEncoding is a fully serialized Mesh. See initFromEncoding() for format info.
type MeshEncoding []byte

// GetInfo decodes the encoding header (vertex and triangle counts).
func (Menc MeshEncoding) GetInfo() (mesh2d.MeshInfo, error) {
	var info mesh2d.MeshInfo

	Nv, n := binary.Uvarint(Menc)
	if n <= 0 {
		return info, mesh2d.ErrBadEncoding
	}
	Nt, n2 := binary.Uvarint(Menc[n:])
	if n2 <= 0 {
		return info, mesh2d.ErrBadEncoding
	}
	info.NumVerts = uint32(Nv)
	info.NumTris = uint32(Nt)
	return info, nil
}

// AppendMeshEncodingTo appends a canonical binary encoding of this mesh to buf:
//
//	uvarint(NumVerts)
//	uvarint(NumTris)
//	<1..NumVerts>
//	    uint32(X bits), uint32(Y bits)   (big-endian IEEE 754)
//	<1..NumTris>
//	    uvarint(a), uvarint(b), uvarint(c)
func (M *Mesh) AppendMeshEncodingTo(buf []byte) []byte {
	info := M.GetInfo()
	buf = info.AppendEncodingHeader(buf)

	var quad [8]byte
	for _, v := range M.verts {
		binary.BigEndian.PutUint32(quad[0:4], math.Float32bits(v.X))
		binary.BigEndian.PutUint32(quad[4:8], math.Float32bits(v.Y))
		buf = append(buf, quad[:]...)
	}

	var scrap [binary.MaxVarintLen32]byte
	for _, tri := range M.tris {
		for _, vi := range tri {
			n := binary.PutUvarint(scrap[:], uint64(vi))
			buf = append(buf, scrap[:n]...)
		}
	}
	return buf
}

// Assigns this Mesh from the given encoding generated by AppendMeshEncodingTo().
// Geometry only; M.Def is left as-is so a caller can unmarshal a def and then
// decode the encoding it carries.
func (M *Mesh) initFromEncoding(Menc MeshEncoding) error {
	M.verts = M.verts[:0]
	M.tris = M.tris[:0]
	M.onMeshChanged()

	info, err := MeshEncoding(Menc).GetInfo()
	if err != nil {
		return err
	}

	var hdr [mesh2d.MeshEncodingHeaderSz]byte
	idx := len(info.AppendEncodingHeader(hdr[:0]))

	// read vertices
	for i := uint32(0); i < info.NumVerts; i++ {
		if idx+8 > len(Menc) {
			return mesh2d.ErrBadEncoding
		}
		M.AddVertex(mesh2d.Vec2{
			X: math.Float32frombits(binary.BigEndian.Uint32(Menc[idx : idx+4])),
			Y: math.Float32frombits(binary.BigEndian.Uint32(Menc[idx+4 : idx+8])),
		})
		idx += 8
	}

	// read triangles -- AddTriangle re-checks the triangle invariant on the way in
	for i := uint32(0); i < info.NumTris; i++ {
		var tri mesh2d.Tri
		for k := 0; k < 3; k++ {
			vi, n := binary.Uvarint(Menc[idx:])
			if n <= 0 {
				return mesh2d.ErrBadEncoding
			}
			tri[k] = mesh2d.VtxID(vi)
			idx += n
		}
		if _, err := M.AddTriangle(tri[0], tri[1], tri[2]); err != nil {
			return mesh2d.ErrBadEncoding
		}
	}

	return nil
}
