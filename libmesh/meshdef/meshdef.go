package meshdef

import (
	"sort"

	"github.com/gogo/protobuf/proto"
)

// MeshDef is the stored form of a mesh: its binary encoding plus any known expr strings that produce it.
type MeshDef struct {
	MeshEncoding []byte   `protobuf:"bytes,1,opt,name=mesh_encoding,proto3" json:"mesh_encoding,omitempty"`
	MeshExprs    []string `protobuf:"bytes,2,rep,name=mesh_exprs,proto3" json:"mesh_exprs,omitempty"`
}

// MeshDef carries no generated marshal code: callers go through proto.Marshal /
// proto.Unmarshal, which walk the struct tags by reflection. Defining Marshal /
// Unmarshal methods here would satisfy gogo's Marshaler / Unmarshaler
// interfaces and route proto.Marshal straight back into them.
func (def *MeshDef) Reset()         { *def = MeshDef{} }
func (def *MeshDef) String() string { return proto.CompactTextString(def) }
func (*MeshDef) ProtoMessage()      {}

// Clear resets this MeshDef, retaining buffers for reuse.
func (def *MeshDef) Clear() {
	def.AssignFrom(nil)
}

// Adds the given mesh expr string to .MeshExprs[] if it is not already present.
// Returns true if the string was added.
// Pre + Post: MeshExprs[] is sorted.
func (def *MeshDef) TryAddMeshExpr(meshExprStr string) bool {

	// If duplicate, no-op and return false
	idx := sort.SearchStrings(def.MeshExprs, meshExprStr)
	if idx < len(def.MeshExprs) && def.MeshExprs[idx] == meshExprStr {
		return false
	}

	N := len(def.MeshExprs)
	if cap(def.MeshExprs) == N {
		capSz := 2 * N
		if capSz < 8 {
			capSz = 8
		}
		newBuf := make([]string, N, capSz)
		copy(newBuf, def.MeshExprs)
		def.MeshExprs = newBuf
	}

	def.MeshExprs = def.MeshExprs[:N+1]
	if idx < N {
		copy(def.MeshExprs[idx+1:], def.MeshExprs[idx:])
	}
	def.MeshExprs[idx] = meshExprStr
	return true
}

func (def *MeshDef) AssignFrom(src *MeshDef) {
	encBuf := def.MeshEncoding[:0]
	exprs := def.MeshExprs[:0]

	// Reuse allocs
	if src == nil {
		*def = MeshDef{}
		def.MeshEncoding = encBuf
		def.MeshExprs = exprs
	} else {
		*def = *src
		def.MeshEncoding = append(encBuf, src.MeshEncoding...)
		def.MeshExprs = append(exprs, src.MeshExprs...)
	}
}

// CatalogState is the mutable header entry of a mesh catalog db.
type CatalogState struct {
	MajorVers int32    `protobuf:"varint,1,opt,name=major_vers,proto3" json:"major_vers,omitempty"`
	MinorVers int32    `protobuf:"varint,2,opt,name=minor_vers,proto3" json:"minor_vers,omitempty"`
	NumMeshes []uint64 `protobuf:"varint,3,rep,packed,name=num_meshes,proto3" json:"num_meshes,omitempty"`
}

func (state *CatalogState) Reset()         { *state = CatalogState{} }
func (state *CatalogState) String() string { return proto.CompactTextString(state) }
func (*CatalogState) ProtoMessage()        {}

func init() {
	proto.RegisterType((*MeshDef)(nil), "meshdef.MeshDef")
	proto.RegisterType((*CatalogState)(nil), "meshdef.CatalogState")
}
