package libmesh

import (
	"bytes"
	"hash/maphash"
)

type dropDupes struct {
	hashMap   map[uint64][]byte
	hasher    maphash.Hash
	bufPool   []byte
	bufPoolSz int
	opts      DropDupeOpts
}

const DefaultPoolSz = 32 * 1024

type DropDupeOpts struct {
	PoolSz int // 0 denotes DefaultPoolSz (32k)
}

// NewDropDupes returns a MeshAdder that accepts each distinct mesh encoding once.
func NewDropDupes(opts DropDupeOpts) MeshAdder {
	if opts.PoolSz <= 0 {
		opts.PoolSz = DefaultPoolSz
	}
	return &dropDupes{
		hashMap: make(map[uint64][]byte),
		opts:    opts,
	}
}

func (dd *dropDupes) Reset() {
	dd.bufPoolSz = 0
	for k := range dd.hashMap {
		delete(dd.hashMap, k)
	}
}

func (dd *dropDupes) Close() {
	dd.Reset()
	dd.hashMap = nil
}

func (dd *dropDupes) TryAddMesh(M *Mesh) bool {
	var keyBuf [512]byte
	Mkey := M.AppendMeshEncodingTo(keyBuf[:0])

	dd.hasher.Reset()
	dd.hasher.Write(Mkey)
	hash := dd.hasher.Sum64()

	existing, found := dd.hashMap[hash]
	for found {
		if bytes.Equal(existing, Mkey) {
			return false
		}
		hash++
		existing, found = dd.hashMap[hash]
	}

	// If we've gotten here, it means this is a new entry.
	// Place a copy of the key in our backing buf (in the heap).
	// If we run out of space in our pool, we start a new pool.
	pos := dd.bufPoolSz
	itemLen := len(Mkey)
	if pos+itemLen > cap(dd.bufPool) {
		allocSz := dd.opts.PoolSz
		if itemLen > allocSz {
			allocSz = itemLen
		}
		dd.bufPool = make([]byte, allocSz)
		dd.bufPoolSz = 0
		pos = 0
	}

	// Place the backed copy of the mesh key at the open hash spot
	dd.hashMap[hash] = append(dd.bufPool[pos:pos], Mkey...)
	dd.bufPoolSz += itemLen
	return true
}
