package catalog

import (
	"bytes"
	"runtime"

	"github.com/dgraph-io/badger/v3"
	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/go-python/gpython/py"
	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"

	"github.com/oelwechsel/go-mesh2d/libmesh"
	"github.com/oelwechsel/go-mesh2d/libmesh/meshdef"
	"github.com/oelwechsel/go-mesh2d/mesh2d"
)

// Catalog database format:
//
//	gCatalogStateKey => CatalogState
//
//	'm', MeshEncoding => MeshDef
//	...
//
// Mesh entries are content-addressed: the key embeds the full mesh encoding,
// so TryAddMesh dedupe is a single key lookup and iteration yields meshes
// ordered by their encodings (vertex count header first).

var (
	gCatalogStateKey = []byte{0x00, 0x00, 0x01}
	gMeshKeyPrefix   = []byte{'m'}
)

const (
	// Per-vertex-count tallies are tracked up to this count; NumMeshes[0] is the total.
	MaxTrackedVtx = 64

	catalogMajorVers = 2024
	catalogMinorVers = 1
)

// catalog is a db wrapper for a collection of finished meshes
type catalog struct {
	ctx        libmesh.CatalogContext
	readOnly   bool
	stateDirty bool
	state      meshdef.CatalogState
	db         *badger.DB

	// addCache remembers encodings seen this session so repeat offers
	// (e.g. a stream replayed into the same catalog) skip the db txn.
	addCache *redblacktree.Tree
}

func init() {
	libmesh.OpenCatalog = OpenCatalog
}

func OpenCatalog(ctx libmesh.CatalogContext, opts libmesh.CatalogOpts) (libmesh.Catalog, error) {

	cat := &catalog{
		ctx:      ctx,
		readOnly: opts.ReadOnly,
		addCache: redblacktree.NewWith(func(a, b interface{}) int {
			return bytes.Compare(a.([]byte), b.([]byte))
		}),
	}

	dbOpts := badger.DefaultOptions(opts.DbPathName)
	dbOpts.ReadOnly = opts.ReadOnly
	dbOpts.DetectConflicts = false // single writer so disable for performance
	dbOpts.Logger = nil

	// Badger for windows currently does not support read-only mode
	if runtime.GOOS == "windows" {
		dbOpts.ReadOnly = false
	}

	if len(opts.DbPathName) == 0 {
		if opts.ReadOnly {
			return nil, errors.Wrap(mesh2d.ErrBadCatalogParam, "DbPathName must be specified for read-only catalog")
		}
		dbOpts.InMemory = true
	}

	var err error
	cat.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}

	// Once the db is open, the catalog ctx holds this catalog open until it closes
	ctx.AttachCatalog(cat)

	err = cat.loadState()
	if err == badger.ErrKeyNotFound {
		err = nil
		cat.stateDirty = true
		cat.state.MajorVers = catalogMajorVers
		cat.state.MinorVers = catalogMinorVers
		cat.state.NumMeshes = make([]uint64, MaxTrackedVtx+1)
	}

	if err == nil {
		if cat.state.MajorVers != catalogMajorVers || cat.state.MinorVers != catalogMinorVers {
			err = errors.New("catalog version is incompatible")
		}
	}

	if err != nil {
		cat.Close()
		return nil, err
	}

	return cat, nil
}

func (cat *catalog) IsReadOnly() bool {
	return cat.readOnly
}

func (cat *catalog) NumMeshes(forVtxCount int) int64 {
	if forVtxCount < 0 || forVtxCount >= len(cat.state.NumMeshes) {
		return 0
	}
	return int64(cat.state.NumMeshes[forVtxCount])
}

func (cat *catalog) loadState() error {
	err := cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gCatalogStateKey)
		if err == nil {
			item.Value(func(val []byte) error {
				return proto.Unmarshal(val, &cat.state)
			})
		}
		return err
	})
	return err
}

func (cat *catalog) flushState() {
	if cat.stateDirty && !cat.readOnly {
		err := cat.db.Update(func(txn *badger.Txn) error {
			stateBuf, err := proto.Marshal(&cat.state)
			if err != nil {
				return err
			}
			return txn.Set(gCatalogStateKey, stateBuf)
		})
		if err != nil {
			klog.Errorf("mesh catalog state flush failed: %v", err)
			return
		}
		cat.stateDirty = false
	}
}

func (cat *catalog) Close() {
	cat.flushState()
	if cat.db != nil {
		if err := cat.db.Close(); err != nil {
			klog.Warningf("mesh catalog db close: %v", err)
		}
		cat.db = nil
		cat.ctx.DetachCatalog(cat)
		cat.ctx = nil
	}
}

func (cat *catalog) tallyAdded(info mesh2d.MeshInfo) {
	cat.state.NumMeshes[0]++
	if vi := int(info.NumVerts); vi >= 1 && vi <= MaxTrackedVtx {
		cat.state.NumMeshes[vi]++
	}
	cat.stateDirty = true
}

func formMeshKey(key []byte, M *libmesh.Mesh) []byte {
	key = append(key, gMeshKeyPrefix...)
	return M.AppendMeshEncodingTo(key)
}

// TryAddMesh adds the given mesh if its exact encoding isn't already stored.
//
// If true is returned, M was not present and was added.
func (cat *catalog) TryAddMesh(M *libmesh.Mesh) bool {
	var keyBuf [512]byte
	meshKey := formMeshKey(keyBuf[:0], M)

	if _, cached := cat.addCache.Get(meshKey); cached {
		return false
	}

	txn := cat.db.NewTransaction(!cat.readOnly)
	defer txn.Discard()

	_, err := txn.Get(meshKey)
	isNew := false
	if err == badger.ErrKeyNotFound {
		isNew = true
		err = nil
	}

	if isNew && !cat.readOnly {
		val := M.ExportMeshDef()
		err = txn.Set(append([]byte{}, meshKey...), val)
		if err == nil {
			err = txn.Commit()
		}
		if err == nil {
			cat.tallyAdded(M.GetInfo())
		}
	}

	if err != nil {
		panic(err)
	}

	cat.addCache.Put(append([]byte{}, meshKey...), struct{}{})
	return isNew && !cat.readOnly
}

// Select pushes each stored mesh matching the given criteria to onHit.
//
// Enumeration order follows key order (vertex count header first, then
// encoding bytes). Ownership of each pushed Mesh passes to the receiver.
func (cat *catalog) Select(sel libmesh.MeshSelector, onHit libmesh.OnMeshHit) {
	txn := cat.db.NewTransaction(false)
	defer txn.Discard()

	it := txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: true,
		PrefetchSize:   100,
		Prefix:         gMeshKeyPrefix,
	})
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()

		// Check the encoding header before loading the value
		info, err := libmesh.MeshEncoding(item.Key()[len(gMeshKeyPrefix):]).GetInfo()
		if err != nil {
			panic("bad mesh entry key")
		}
		if info.NumVerts < sel.Min.NumVerts || info.NumVerts > sel.Max.NumVerts ||
			info.NumTris < sel.Min.NumTris || info.NumTris > sel.Max.NumTris {
			continue
		}

		err = item.Value(func(val []byte) error {
			M, err := libmesh.NewMeshFromDef(val)
			if err != nil {
				return err
			}
			onHit <- M
			return nil
		})
		if err != nil {
			panic(err)
		}
	}
}

func (cat *catalog) Type() *py.Type {
	return libmesh.PyCatalogType
}
