// Package ldb is the default engine.Backend: a single
// github.com/syndtr/goleveldb LSM-tree store with families multiplexed
// as disjoint key-prefix namespaces, grounded on
// pkg/sorted/leveldb/leveldb.go's kvis type. Where that teacher file
// wraps one flat sorted.KeyValue, this adapter adds the Family
// dimension spec.md §4.2 requires column-family-style isolation for,
// and a per-call Strict/Sync/compression translation of
// engine.FamilyOptions that the teacher's single process-wide
// readOpts/writeOpts pair did not need.
package ldb

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	goiterator "github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"seqtopic/pkg/engine"
)

// sep separates a family name from the caller's key within the single
// flat goleveldb keyspace. It is a control byte no family name or user
// key produced by pkg/record or pkg/topiciter ever contains.
const sep = '\x1f'

// metaFamily is a reserved family holding bookkeeping the backend
// itself owns (today: only the declared-families list), never exposed
// through engine.Backend's family-scoped methods.
const metaFamily = "\x00meta"

const familiesKey = "families"

// Backend implements engine.Backend on one goleveldb database file.
type Backend struct {
	db   *leveldb.DB
	path string

	mu       sync.RWMutex
	families map[string]engine.FamilyOptions

	cache *engine.Cache
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// Option configures Open.
type Option func(*Backend)

// WithCache attaches a shared engine.Cache consulted on Get before the
// goleveldb read path.
func WithCache(c *engine.Cache) Option {
	return func(b *Backend) { b.cache = c }
}

// Open opens (creating if necessary) a goleveldb store at path. It
// mirrors leveldb.newKeyValueFromJSONConfig's option construction: a
// bloom filter tuned the same way (10 bits/key), and a non-syncing
// default write policy overridden on single-key Put and Delete calls by
// engine.FamilyOptions.Sync; batch commits are always written without
// sync.
func Open(path string, opts ...Option) (*Backend, error) {
	ldbOpts := &opt.Options{
		Filter: filter.NewBloomFilter(10),
		Strict: opt.DefaultStrict,
	}
	db, err := leveldb.OpenFile(path, ldbOpts)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	b := &Backend{
		db:       db,
		path:     path,
		families: make(map[string]engine.FamilyOptions),
		enc:      enc,
		dec:      dec,
	}
	for _, o := range opts {
		o(b)
	}
	if err := b.loadFamilies(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// ListFamilies opens path just long enough to read its declared family
// list, per spec.md §4.2's "list_families MUST be usable before the
// store is otherwise opened." It is safe to call concurrently with
// another process holding the database closed, but not while it is
// open for writes (goleveldb takes an exclusive file lock).
func ListFamilies(path string) ([]string, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{ErrorIfMissing: true})
	if err != nil {
		return nil, err
	}
	defer db.Close()
	names, err := readFamilies(db)
	if err != nil {
		return nil, err
	}
	return names, nil
}

func readFamilies(db *leveldb.DB) ([]string, error) {
	raw, err := db.Get(metaKey(familiesKey), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (b *Backend) loadFamilies() error {
	names, err := readFamilies(b.db)
	if err != nil {
		return err
	}
	for _, n := range names {
		b.families[n] = engine.DefaultFamilyOptions()
	}
	return nil
}

func metaKey(userKey string) []byte {
	return familyKey(metaFamily, []byte(userKey))
}

func familyKey(family string, userKey []byte) []byte {
	out := make([]byte, 0, len(family)+1+len(userKey))
	out = append(out, family...)
	out = append(out, sep)
	out = append(out, userKey...)
	return out
}

func (b *Backend) EnsureFamilies(opts map[string]engine.FamilyOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	changed := false
	for name, fo := range opts {
		if _, ok := b.families[name]; !ok {
			changed = true
		}
		b.families[name] = fo
	}
	if !changed {
		return nil
	}
	names := make([]string, 0, len(b.families))
	for n := range b.families {
		names = append(names, n)
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return b.db.Put(metaKey(familiesKey), raw, nil)
}

func (b *Backend) Families() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.families))
	for n := range b.families {
		names = append(names, n)
	}
	return names
}

func readOpts(fo engine.FamilyOptions) *opt.ReadOptions {
	strict := opt.DefaultStrict
	if fo.VerifyChecksums {
		strict = opt.StrictBlockChecksum
	}
	return &opt.ReadOptions{Strict: strict}
}

func writeOpts(fo engine.FamilyOptions) *opt.WriteOptions {
	return &opt.WriteOptions{Sync: fo.Sync}
}

func (b *Backend) encode(family string, fo engine.FamilyOptions, value []byte) ([]byte, error) {
	if fo.Compression != engine.CompressionZstd {
		return value, nil
	}
	return b.enc.EncodeAll(value, make([]byte, 0, len(value))), nil
}

func (b *Backend) decode(family string, fo engine.FamilyOptions, value []byte) ([]byte, error) {
	if fo.Compression != engine.CompressionZstd || value == nil {
		return value, nil
	}
	out, err := b.dec.DecodeAll(value, nil)
	if err != nil {
		return nil, &engine.DeserializationError{Family: family, Err: err}
	}
	return out, nil
}

func (b *Backend) Get(family string, key []byte, fo engine.FamilyOptions) ([]byte, error) {
	if v, ok := b.cache.Get(family, key); ok {
		return v, nil
	}
	raw, err := b.db.Get(familyKey(family, key), readOpts(fo))
	if err == leveldb.ErrNotFound {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, &engine.EngineError{Op: "get", Name: family, Err: err}
	}
	val, err := b.decode(family, fo, raw)
	if err != nil {
		return nil, err
	}
	b.cache.Put(family, key, val)
	return val, nil
}

func (b *Backend) Put(family string, key, value []byte, fo engine.FamilyOptions) error {
	raw, err := b.encode(family, fo, value)
	if err != nil {
		return &engine.SerializationError{Family: family, Err: err}
	}
	if err := b.db.Put(familyKey(family, key), raw, writeOpts(fo)); err != nil {
		return &engine.EngineError{Op: "put", Name: family, Err: err}
	}
	b.cache.Invalidate(family, key)
	return nil
}

func (b *Backend) Delete(family string, key []byte, fo engine.FamilyOptions) error {
	if err := b.db.Delete(familyKey(family, key), writeOpts(fo)); err != nil {
		return &engine.EngineError{Op: "delete", Name: family, Err: err}
	}
	b.cache.Invalidate(family, key)
	return nil
}

// batch implements engine.Batch on top of a single *leveldb.Batch,
// mirroring lvbatch in pkg/sorted/leveldb/leveldb.go. Unlike lvbatch it
// needs no sticky size-check error: this module does not impose
// perkeep's key/value size ceiling.
type batch struct {
	be      *Backend
	lb      *leveldb.Batch
	touched []batchKey
}

// batchKey is one key a batch writes or deletes, dropped from the
// shared cache once the batch has been committed.
type batchKey struct {
	family string
	key    []byte
}

func (b *batch) Put(family string, key, value []byte) {
	b.be.mu.RLock()
	fo := b.be.families[family]
	b.be.mu.RUnlock()
	raw, _ := b.be.encode(family, fo, value)
	b.lb.Put(familyKey(family, key), raw)
	b.touched = append(b.touched, batchKey{family: family, key: bytes.Clone(key)})
}

func (b *batch) Delete(family string, key []byte) {
	b.lb.Delete(familyKey(family, key))
	b.touched = append(b.touched, batchKey{family: family, key: bytes.Clone(key)})
}

func (b *Backend) NewBatch() engine.Batch {
	return &batch{be: b, lb: new(leveldb.Batch)}
}

func (b *Backend) CommitBatch(eb engine.Batch) error {
	lb, ok := eb.(*batch)
	if !ok {
		return engine.ErrFamilyNotFound
	}
	if err := b.db.Write(lb.lb, &opt.WriteOptions{Sync: false}); err != nil {
		return &engine.EngineError{Op: "commit batch", Err: err}
	}
	for _, k := range lb.touched {
		b.cache.Invalidate(k.family, k.key)
	}
	return nil
}

type snapshot struct {
	snap *leveldb.Snapshot
	be   *Backend
}

func (b *Backend) Snapshot() (engine.Snapshot, error) {
	snap, err := b.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &snapshot{snap: snap, be: b}, nil
}

func (s *snapshot) Get(h engine.Handle, key []byte) ([]byte, error) {
	raw, err := s.snap.Get(familyKey(h.Name(), key), readOpts(h.Options()))
	if err == leveldb.ErrNotFound {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, &engine.EngineError{Op: "get", Name: h.Name(), Err: err}
	}
	return s.be.decode(h.Name(), h.Options(), raw)
}

func (s *snapshot) PrefixIterator(h engine.Handle, prefix []byte) engine.Iterator {
	r := util.BytesPrefix(familyKey(h.Name(), prefix))
	return newIter(s.snap.NewIterator(r, readOpts(h.Options())), h.Name(), s.be, h.Options())
}

func (s *snapshot) Iterator(h engine.Handle, start []byte) engine.Iterator {
	r := &util.Range{Start: familyKey(h.Name(), start), Limit: familyLimit(h.Name())}
	return newIter(s.snap.NewIterator(r, readOpts(h.Options())), h.Name(), s.be, h.Options())
}

func (s *snapshot) Release() {
	s.snap.Release()
}

// familyLimit returns the exclusive upper bound of family's keyspace:
// the smallest key strictly greater than every key under that family
// prefix, obtained by incrementing the separator byte.
func familyLimit(family string) []byte {
	out := make([]byte, len(family)+1)
	copy(out, family)
	out[len(family)] = sep + 1
	return out
}

func (b *Backend) PrefixIterator(family string, prefix []byte, fo engine.FamilyOptions) engine.Iterator {
	r := util.BytesPrefix(familyKey(family, prefix))
	return newIter(b.db.NewIterator(r, readOpts(fo)), family, b, fo)
}

func (b *Backend) Iterator(family string, start []byte, fo engine.FamilyOptions) engine.Iterator {
	r := &util.Range{Start: familyKey(family, start), Limit: familyLimit(family)}
	return newIter(b.db.NewIterator(r, readOpts(fo)), family, b, fo)
}

// iter adapts goleveldb's iterator.Iterator to engine.Iterator,
// stripping the family prefix off returned keys and decompressing
// values, mirroring the "iter" type in
// pkg/sorted/leveldb/leveldb.go.
type iter struct {
	it     goiterator.Iterator
	family string
	prefix int
	be     *Backend
	fo     engine.FamilyOptions
	err    error
}

func newIter(it goiterator.Iterator, family string, be *Backend, fo engine.FamilyOptions) *iter {
	return &iter{it: it, family: family, prefix: len(family) + 1, be: be, fo: fo}
}

func (it *iter) Next() bool {
	if it.err != nil {
		return false
	}
	return it.it.Next()
}

func (it *iter) Key() []byte {
	k := it.it.Key()
	if len(k) < it.prefix {
		return nil
	}
	return bytes.Clone(k[it.prefix:])
}

func (it *iter) Value() []byte {
	v, err := it.be.decode(it.family, it.fo, it.it.Value())
	if err != nil {
		it.err = err
		return nil
	}
	return bytes.Clone(v)
}

func (it *iter) Close() error {
	it.it.Release()
	if it.err != nil {
		return it.err
	}
	return it.it.Error()
}

// CacheStats reports the shared engine.Cache's current size and
// capacity, or (0, 0) if this Backend was opened without WithCache.
func (b *Backend) CacheStats() (entries, capacity int) {
	return b.cache.Len(), b.cache.Capacity()
}

func (b *Backend) Close() error {
	return b.db.Close()
}
