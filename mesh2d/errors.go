package mesh2d

import "errors"

// Errors
var (
	ErrUnmarshal            = errors.New("unmarshal failed")
	ErrBadCatalogParam      = errors.New("bad catalog param")
	ErrBadEncoding          = errors.New("bad mesh encoding")
	ErrBadMeshExpr          = errors.New("bad mesh expression")
	ErrIndexOutOfRange      = errors.New("vertex index out of range")
	ErrInvalidIndex         = errors.New("triangle indices must be distinct and in range")
	ErrIllegalState         = errors.New("operation not allowed in the current build state")
	ErrInsufficientGeometry = errors.New("mesh export requires at least 3 vertices and 1 triangle")
	ErrNilMesh              = errors.New("nil mesh")
)
