package libmesh

import (
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"

	"github.com/oelwechsel/go-mesh2d/mesh2d"
)

// Mesh expression strings are a printable literal form of a mesh:
//
//	(0 0) (1 0) (0 1) (0.5 -1) ; [1 2 3] [1 2 4]
//
// Vertices are coordinate pairs in placement order; triangles reference
// one-based vertex IDs (the Go API is zero-based; expr strings follow the
// one-based convention so a human can count vertices off the page).
type MeshExpr struct {
	Verts []*VtxExpr `parser:"@@*"`
	Tris  []*TriExpr `parser:"( ';' @@* )?"`
}

type VtxExpr struct {
	X float64 `parser:"'(' @Number"`
	Y float64 `parser:"@Number ')'"`
}

type TriExpr struct {
	A int64 `parser:"'[' @Number"`
	B int64 `parser:"@Number"`
	C int64 `parser:"@Number ']'"`
}

var sMeshLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `[-+]?[0-9]+(\.[0-9]+)?`},
	{Name: "Punct", Pattern: `[()\[\];]`},
	{Name: "whitespace", Pattern: `[ \t\r\n]+`},
})

var parseMeshExpr = participle.MustBuild[MeshExpr](
	participle.Lexer(sMeshLexer),
)

// InitFromString assigns this Mesh from a mesh expression string.
func (M *Mesh) InitFromString(meshExpr string) error {
	M.Init(nil)

	Mx, err := parseMeshExpr.ParseString("", meshExpr)
	if err != nil {
		return errors.Wrap(mesh2d.ErrBadMeshExpr, err.Error())
	}

	for _, v := range Mx.Verts {
		M.AddVertex(mesh2d.Vec2{X: float32(v.X), Y: float32(v.Y)})
	}

	for ti, tx := range Mx.Tris {
		a := mesh2d.VtxID(tx.A - 1)
		b := mesh2d.VtxID(tx.B - 1)
		c := mesh2d.VtxID(tx.C - 1)
		if _, err := M.AddTriangle(a, b, c); err != nil {
			return errors.Wrapf(mesh2d.ErrBadMeshExpr, "triangle #%d", ti+1)
		}
	}

	M.Def.TryAddMeshExpr(meshExpr)
	return nil
}

// AppendExprTo appends this mesh's expression string form to buf.
// The output parses back via InitFromString to an identical mesh.
func (M *Mesh) AppendExprTo(buf []byte) []byte {
	for i, v := range M.verts {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, '(')
		buf = appendCoord(buf, v.X)
		buf = append(buf, ' ')
		buf = appendCoord(buf, v.Y)
		buf = append(buf, ')')
	}

	if len(M.tris) > 0 {
		buf = append(buf, " ;"...)
		for _, tri := range M.tris {
			buf = append(buf, " ["...)
			for k, vi := range tri {
				if k > 0 {
					buf = append(buf, ' ')
				}
				buf = strconv.AppendInt(buf, int64(vi)+1, 10)
			}
			buf = append(buf, ']')
		}
	}
	return buf
}

// 'f' (never exponent) notation, so the output always re-lexes as a Number.
func appendCoord(buf []byte, f float32) []byte {
	return strconv.AppendFloat(buf, float64(f), 'f', -1, 32)
}
