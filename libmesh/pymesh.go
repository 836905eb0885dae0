package libmesh

// Copyright 2018 The go-python Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/go-python/gpython/py"

	"github.com/oelwechsel/go-mesh2d/mesh2d"
)

var (
	LIB_VERSION = "v1.2026.1"
)

var (
	PyMeshType       = py.NewType("Mesh", "a 2D triangle mesh of vertices and triangles")
	PyBuilderType    = py.NewType("Builder", "an interactive mesh building session")
	PyMeshStreamType = py.NewType("MeshStream", "libmesh.MeshStream")
	PyCatalogType    = py.NewType("Catalog", "libmesh.Catalog")
	PyWorkspaceType  = py.NewType("Workspace", "collects active session resources and catalogs")
)

// Arg 1 (int): v_lo
// Arg 2 (int): v_hi
func ph_EnumFanMeshes(module py.Object, args py.Tuple) (py.Object, error) {
	var v_min, v_max py.Object
	err := py.ParseTuple(args, "ii", &v_min, &v_max)
	if err != nil {
		return nil, err
	}

	n0 := int(v_min.(py.Int))
	n1 := int(v_max.(py.Int))
	stream := EnumFanMeshes(n0, n1)
	return py.Object(stream), nil
}

func (M *Mesh) Type() *py.Type {
	return PyMeshType
}

func (M *Mesh) M__str__() (py.Object, error) {
	writer := strings.Builder{}
	M.WriteAsString(&writer, mesh2d.DefaultPrintOpts)
	return py.String(writer.String()), nil
}

func (M *Mesh) M__repr__() (py.Object, error) {
	return M.M__str__()
}

func ph_NewMesh(module py.Object, args py.Tuple) (py.Object, error) {
	M := NewMesh(nil)
	if len(args) > 0 {
		expr, isStr := args[0].(py.String)
		if !isStr {
			return nil, py.ExceptionNewf(py.TypeError, "expected mesh expr string (got %v)", args[0].Type().Name)
		}
		if err := M.InitFromString(string(expr)); err != nil {
			M.Reclaim()
			return nil, py.ExceptionNewf(py.ValueError, "%v", err)
		}
	}
	return py.Object(M), nil
}

func ph_Mesh_NumVerts(self py.Object, args py.Tuple) (py.Object, error) {
	M := self.(*Mesh)
	return py.Object(py.Int(M.NumVerts())), nil
}

func ph_Mesh_NumTris(self py.Object, args py.Tuple) (py.Object, error) {
	M := self.(*Mesh)
	return py.Object(py.Int(M.NumTris())), nil
}

func ph_Mesh_Expr(self py.Object, args py.Tuple) (py.Object, error) {
	M := self.(*Mesh)
	return py.String(M.AppendExprTo(nil)), nil
}

// Exports the mesh as ([x,y,z, ...], [i0,i1,i2, ...])
func ph_Mesh_Export(self py.Object, args py.Tuple) (py.Object, error) {
	M := self.(*Mesh)

	positions, indices, err := M.ExportBuffers()
	if err != nil {
		return nil, py.ExceptionNewf(py.ValueError, "%v", err)
	}

	pos := make(py.Tuple, len(positions))
	for i, f := range positions {
		pos[i] = py.Float(f)
	}
	idx := make(py.Tuple, len(indices))
	for i, vi := range indices {
		idx[i] = py.Int(vi)
	}

	return py.Tuple{pos, idx}, nil
}

func ph_Mesh_Stream(self py.Object, args py.Tuple) (py.Object, error) {
	M := self.(*Mesh)
	next := StreamMesh(M)
	return py.Object(next), nil
}

func (bld *Builder) Type() *py.Type {
	return PyBuilderType
}

func ph_NewBuilder(module py.Object, args py.Tuple) (py.Object, error) {
	bld := NewBuilder()
	return py.Object(bld), nil
}

func getCoord(obj py.Object) (float32, error) {
	switch v := obj.(type) {
	case py.Float:
		return float32(v), nil
	case py.Int:
		return float32(v), nil
	}
	return 0, py.ExceptionNewf(py.TypeError, "expected coordinate number (got %v)", obj.Type().Name)
}

func getVec2(args py.Tuple) (pos mesh2d.Vec2, err error) {
	if len(args) < 2 {
		return pos, py.ExceptionNewf(py.TypeError, "expected (x, y) args")
	}
	if pos.X, err = getCoord(args[0]); err != nil {
		return
	}
	pos.Y, err = getCoord(args[1])
	return
}

func ph_Builder_Start(self py.Object, args py.Tuple) (py.Object, error) {
	bld := self.(*Builder)
	if err := bld.Start(); err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.None, nil
}

// Returns (vtxID, grabbed)
func ph_Builder_Place(self py.Object, args py.Tuple) (py.Object, error) {
	bld := self.(*Builder)
	pos, err := getVec2(args)
	if err != nil {
		return nil, err
	}
	vi, grabbed, err := bld.PlaceOrGrab(pos)
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	grabbedObj := py.Object(py.False)
	if grabbed {
		grabbedObj = py.True
	}
	return py.Tuple{py.Int(vi), grabbedObj}, nil
}

func ph_Builder_Drag(self py.Object, args py.Tuple) (py.Object, error) {
	bld := self.(*Builder)
	pos, err := getVec2(args)
	if err != nil {
		return nil, err
	}
	if err := bld.DragTo(pos); err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.None, nil
}

func ph_Builder_Release(self py.Object, args py.Tuple) (py.Object, error) {
	bld := self.(*Builder)
	if err := bld.ReleaseDrag(); err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.None, nil
}

func ph_Builder_DeleteLast(self py.Object, args py.Tuple) (py.Object, error) {
	bld := self.(*Builder)
	if err := bld.DeleteLast(); err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.None, nil
}

func ph_Builder_Finish(self py.Object, args py.Tuple) (py.Object, error) {
	bld := self.(*Builder)
	if err := bld.Finish(); err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.None, nil
}

func ph_Builder_Reopen(self py.Object, args py.Tuple) (py.Object, error) {
	bld := self.(*Builder)
	if err := bld.Reopen(); err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.None, nil
}

func ph_Builder_Clear(self py.Object, args py.Tuple) (py.Object, error) {
	bld := self.(*Builder)
	bld.Clear()
	return py.None, nil
}

func ph_Builder_Discard(self py.Object, args py.Tuple) (py.Object, error) {
	bld := self.(*Builder)
	bld.Discard()
	return py.None, nil
}

func ph_Builder_State(self py.Object, args py.Tuple) (py.Object, error) {
	bld := self.(*Builder)
	return py.String(bld.State().String()), nil
}

func ph_Builder_NumVerts(self py.Object, args py.Tuple) (py.Object, error) {
	bld := self.(*Builder)
	return py.Int(bld.Mesh().NumVerts()), nil
}

func ph_Builder_NumTris(self py.Object, args py.Tuple) (py.Object, error) {
	bld := self.(*Builder)
	return py.Int(bld.Mesh().NumTris()), nil
}

// Returns a copy of the session's mesh
func ph_Builder_Mesh(self py.Object, args py.Tuple) (py.Object, error) {
	bld := self.(*Builder)
	return py.Object(NewMesh(bld.Mesh())), nil
}

const (
	READ_ONLY = 0x01

	kWorkspaceAttr = "_Workspace"
)

type Workspace struct {
	CatalogCtx CatalogContext
}

func (ws *Workspace) Close() {
	ws.CatalogCtx.Close()
	<-ws.CatalogCtx.Done()
}

func (ws *Workspace) Type() *py.Type {
	return PyWorkspaceType
}

func ph_GetWorkspace(module py.Object, args py.Tuple) (py.Object, error) {
	wsObj, _ := py.GetAttrString(module, kWorkspaceAttr)
	if wsObj == nil {
		ws := &Workspace{
			CatalogCtx: NewCatalogContext(),
		}
		wsObj = ws
		py.SetAttrString(module, kWorkspaceAttr, wsObj)
	}
	return wsObj, nil
}

func ph_Workspace_CatalogExists(self py.Object, args py.Tuple) (py.Object, error) {
	_ = self.(*Workspace)

	var pathname string
	err := py.LoadTuple(args, []interface{}{&pathname})
	if err != nil {
		return nil, err
	}
	_, err = os.Stat(pathname)
	if os.IsNotExist(err) {
		return py.False, nil
	}
	return py.True, nil
}

func ph_Workspace_OpenCatalog(self py.Object, args py.Tuple) (py.Object, error) {
	ws := self.(*Workspace)

	var pathname string
	var flags int32
	err := py.LoadTuple(args, []interface{}{&pathname, &flags})
	if err != nil {
		return nil, err
	}

	opts := CatalogOpts{
		ReadOnly:   (flags & READ_ONLY) != 0,
		DbPathName: pathname,
	}

	cat, err := OpenCatalog(ws.CatalogCtx, opts)
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}

	return py.Object(cat), nil
}

func ph_Catalog_Close(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(Catalog)
	if cat != nil {
		cat.Close()
	}
	return py.None, nil
}

func ph_Catalog_Select(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(Catalog)
	sel := DefaultMeshSelector
	if err := getMeshSelector(args, &sel); err != nil {
		return nil, err
	}

	next := SelectFromCatalog(cat, sel)
	return py.Object(next), nil
}

func ph_Catalog_NumMeshes(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(Catalog)

	Nv := py.Int(0)
	if len(args) > 0 {
		var err error
		Nv, err = py.GetInt(args[0])
		if err != nil {
			return nil, err
		}
	}

	numMeshes := cat.NumMeshes(int(Nv))
	return py.Int(numMeshes), nil
}

func (stream *MeshStream) Type() *py.Type {
	return PyMeshStreamType
}

func ph_MeshStream_Go(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(*MeshStream)
	count := stream.PullAll()
	return py.Int(count), nil
}

type echoToWriter struct {
	stdout *os.File
	to     io.WriteCloser
}

func (echo *echoToWriter) Write(buf []byte) (int, error) {
	var (
		n   int
		err error
	)
	if echo.to == nil {
		n, err = echo.stdout.Write(buf)
	} else {
		n, err = echo.to.Write(buf)
	}
	return n, err
}

func (echo *echoToWriter) Close() error {
	if echo.to != nil {
		return echo.to.Close()
	}
	return nil
}

var gOutCount = int32(0)

func ph_MeshStream_Print(self py.Object, args py.Tuple, kwargs py.StringDict) (py.Object, error) {
	stream := self.(*MeshStream)
	var pathname string

	opts := mesh2d.DefaultPrintOpts

	py.LoadTuple(args, []interface{}{&opts.Label})
	if opts.Label == "" {
		py.LoadAttr(kwargs, "label", &opts.Label)
	}

	atomic.AddInt32(&gOutCount, 1)
	if opts.Label == "" {
		opts.Label = fmt.Sprintf("out[%d]", gOutCount)
	}

	py.LoadAttr(kwargs, "expr", &opts.Expr)
	py.LoadAttr(kwargs, "buffers", &opts.Buffers)
	py.LoadAttr(kwargs, "file", &pathname)

	writer := &echoToWriter{
		stdout: os.Stdout,
	}
	if len(pathname) > 0 {
		os.MkdirAll(filepath.Dir(pathname), 0700)

		file, err := os.OpenFile(string(pathname), os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0600)
		if err != nil {
			return nil, py.ExceptionNewf(py.FileNotFoundError, "%v", err)
		}
		writer.to = file
	}

	next := stream.Print(writer, opts)
	return py.Object(next), nil
}

func ph_MeshStream_AddTo(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(*MeshStream)
	cat, ok := args[0].(Catalog)
	if !ok {
		return nil, py.ExceptionNewf(py.TypeError, "expected Catalog object (got %v)", args[0].Type().Name)
	}
	if cat.IsReadOnly() {
		return nil, py.ExceptionNewf(py.PermissionError, "%v", errors.New("Catalog is in read-only mode"))
	}

	next := stream.AddTo(cat, AddMeshOpts{})
	return py.Object(next), nil
}

func ph_MeshStream_DropDupes(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(*MeshStream)
	next := stream.DropDupes()
	return py.Object(next), nil
}

func ph_MeshStream_Select(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(*MeshStream)
	sel := DefaultMeshSelector
	if err := getMeshSelector(args, &sel); err != nil {
		return nil, err
	}
	next := stream.SelectFromStream(sel)
	return py.Object(next), nil
}

func init() {

	/////////////////////////////////
	// Mesh
	{
		PyMeshType.Dict["NumVerts"] = py.MustNewMethod("NumVerts", ph_Mesh_NumVerts, 0, "")
		PyMeshType.Dict["NumTris"] = py.MustNewMethod("NumTris", ph_Mesh_NumTris, 0, "")
		PyMeshType.Dict["Expr"] = py.MustNewMethod("Expr", ph_Mesh_Expr, 0, "exports this Mesh as a mesh expr string")
		PyMeshType.Dict["Export"] = py.MustNewMethod("Export", ph_Mesh_Export, 0, "exports flat position and index buffers")
		PyMeshType.Dict["Stream"] = py.MustNewMethod("Stream", ph_Mesh_Stream, 0, "")
	}

	/////////////////////////////////
	// Builder
	{
		PyBuilderType.Dict["Start"] = py.MustNewMethod("Start", ph_Builder_Start, 0, "")
		PyBuilderType.Dict["Place"] = py.MustNewMethod("Place", ph_Builder_Place, 0, "places or grabs a vertex at (x, y)")
		PyBuilderType.Dict["Drag"] = py.MustNewMethod("Drag", ph_Builder_Drag, 0, "")
		PyBuilderType.Dict["Release"] = py.MustNewMethod("Release", ph_Builder_Release, 0, "")
		PyBuilderType.Dict["DeleteLast"] = py.MustNewMethod("DeleteLast", ph_Builder_DeleteLast, 0, "")
		PyBuilderType.Dict["Finish"] = py.MustNewMethod("Finish", ph_Builder_Finish, 0, "")
		PyBuilderType.Dict["Reopen"] = py.MustNewMethod("Reopen", ph_Builder_Reopen, 0, "")
		PyBuilderType.Dict["Clear"] = py.MustNewMethod("Clear", ph_Builder_Clear, 0, "")
		PyBuilderType.Dict["Discard"] = py.MustNewMethod("Discard", ph_Builder_Discard, 0, "")
		PyBuilderType.Dict["State"] = py.MustNewMethod("State", ph_Builder_State, 0, "")
		PyBuilderType.Dict["NumVerts"] = py.MustNewMethod("NumVerts", ph_Builder_NumVerts, 0, "")
		PyBuilderType.Dict["NumTris"] = py.MustNewMethod("NumTris", ph_Builder_NumTris, 0, "")
		PyBuilderType.Dict["Mesh"] = py.MustNewMethod("Mesh", ph_Builder_Mesh, 0, "")
	}

	/////////////////////////////////
	// Catalog
	{
		PyCatalogType.Dict["Select"] = py.MustNewMethod("Select", ph_Catalog_Select, 0, "")
		PyCatalogType.Dict["NumMeshes"] = py.MustNewMethod("NumMeshes", ph_Catalog_NumMeshes, 0, "")
		PyCatalogType.Dict["Close"] = py.MustNewMethod("Close", ph_Catalog_Close, 0, "")
	}

	/////////////////////////////////
	// Workspace
	{
		PyWorkspaceType.Dict["OpenCatalog"] = py.MustNewMethod("OpenCatalog", ph_Workspace_OpenCatalog, 0, "")
		PyWorkspaceType.Dict["CatalogExists"] = py.MustNewMethod("CatalogExists", ph_Workspace_CatalogExists, 0, "")
	}

	/////////////////////////////////
	// MeshStream
	{
		PyMeshStreamType.Dict["Go"] = py.MustNewMethod("Go", ph_MeshStream_Go, 0, "counts the number of meshes output from the MeshStream")
		PyMeshStreamType.Dict["Print"] = py.MustNewMethod("Print", ph_MeshStream_Print, 0, "prints each mesh from the MeshStream")
		PyMeshStreamType.Dict["AddTo"] = py.MustNewMethod("AddTo", ph_MeshStream_AddTo, 0, "")
		PyMeshStreamType.Dict["DropDupes"] = py.MustNewMethod("DropDupes", ph_MeshStream_DropDupes, 0, "")
		PyMeshStreamType.Dict["Select"] = py.MustNewMethod("Select", ph_MeshStream_Select, 0, "")
	}

	{
		methods := []*py.Method{
			py.MustNewMethod("NewMesh", ph_NewMesh, 0, ""),
			py.MustNewMethod("NewBuilder", ph_NewBuilder, 0, ""),
			py.MustNewMethod("EnumFanMeshes", ph_EnumFanMeshes, 0, ""),
			py.MustNewMethod("GetWorkspace", ph_GetWorkspace, 0, ""),
		}

		globals := py.StringDict{
			"LIB_VERSION": py.String(LIB_VERSION),
			"PICK_RADIUS": py.Float(mesh2d.DefaultPickRadius),
		}

		py.RegisterModule(&py.ModuleImpl{
			Info: py.ModuleInfo{
				Name: "mesh2d",
				Doc:  "interactive 2D mesh building gpython module",
			},
			Methods: methods,
			Globals: globals,
			OnContextClosed: func(m *py.Module) {
				wsObj, _ := py.GetAttrString(m, kWorkspaceAttr)
				if wsObj != nil {
					wsObj.(*Workspace).Close()
				}
			},
		})

	}
}

// getMeshSelector reads optional (min_verts, max_verts) int args into sel.
func getMeshSelector(args py.Tuple, sel *MeshSelector) error {
	if len(args) > 0 {
		minVerts, err := py.GetInt(args[0])
		if err != nil {
			return err
		}
		sel.Min.NumVerts = uint32(minVerts)
	}
	if len(args) > 1 {
		maxVerts, err := py.GetInt(args[1])
		if err != nil {
			return err
		}
		sel.Max.NumVerts = uint32(maxVerts)
	}
	return nil
}
