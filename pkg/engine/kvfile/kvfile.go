// Package kvfile is an alternate engine.Backend on modernc.org/kv, the
// actively maintained, API-compatible successor to the vendored
// github.com/cznic/kv this module's teacher depends on in
// pkg/sorted/kvfile/kvfile.go. It exists for spec.md §1's "pluggable
// storage engine" requirement: callers that want a pure-Go engine with
// no cgo and no external SSTable format can open a kvfile.Backend
// instead of ldb.Backend without pkg/table or pkg/topic noticing the
// difference.
//
// modernc.org/kv has no native snapshot primitive the way goleveldb
// does; Snapshot here is a documented best-effort approximation (see
// the snapshot type below), not a true MVCC view.
package kvfile

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"modernc.org/kv"

	"seqtopic/pkg/engine"
)

const sep = '\x1f'
const metaFamily = "\x00meta"
const familiesKey = "families"

// Backend implements engine.Backend on one modernc.org/kv database
// file, families multiplexed as key-prefix namespaces exactly as
// pkg/engine/ldb does.
type Backend struct {
	db   *kv.DB
	path string

	txmu sync.Mutex

	mu       sync.RWMutex
	families map[string]engine.FamilyOptions

	cache *engine.Cache
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// Option configures Open.
type Option func(*Backend)

// WithCache attaches a shared engine.Cache consulted on Get.
func WithCache(c *engine.Cache) Option {
	return func(b *Backend) { b.cache = c }
}

// Open opens (creating if necessary) a modernc.org/kv store at path,
// mirroring kvfile.newKeyValueFromJSONConfig's use of kv.Options{}
// defaults.
func Open(path string, opts ...Option) (*Backend, error) {
	kvOpts := &kv.Options{}
	db, err := kv.Open(path, kvOpts)
	if err != nil {
		db, err = kv.Create(path, kvOpts)
		if err != nil {
			return nil, err
		}
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
// list, mirroring ldb.ListFamilies.
func ListFamilies(path string) ([]string, error) {
	db, err := kv.Open(path, &kv.Options{})
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return readFamilies(db)
}

func readFamilies(db *kv.DB) ([]string, error) {
	raw, err := db.Get(nil, metaKey(familiesKey))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return decodeNames(raw), nil
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

// encodeNames/decodeNames use a NUL-joined list rather than JSON:
// modernc.org/kv values are opaque blobs and this module keeps its own
// metadata encoding independent of any marshalling package.
func encodeNames(names []string) []byte {
	return []byte(joinNUL(names))
}

func joinNUL(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += "\x00"
		}
		out += n
	}
	return out
}

func decodeNames(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	parts := bytes.Split(raw, []byte{0})
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = string(p)
	}
	return names
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
	return b.db.Set(metaKey(familiesKey), encodeNames(names))
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
	raw, err := b.db.Get(nil, familyKey(family, key))
	if err != nil {
		return nil, &engine.EngineError{Op: "get", Name: family, Err: err}
	}
	if raw == nil {
		return nil, engine.ErrNotFound
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
	if err := b.db.Set(familyKey(family, key), raw); err != nil {
		return &engine.EngineError{Op: "put", Name: family, Err: err}
	}
	b.cache.Invalidate(family, key)
	return nil
}

func (b *Backend) Delete(family string, key []byte, fo engine.FamilyOptions) error {
	if err := b.db.Delete(familyKey(family, key)); err != nil {
		return &engine.EngineError{Op: "delete", Name: family, Err: err}
	}
	b.cache.Invalidate(family, key)
	return nil
}

// mutation is one staged write or delete, the batch's unit of work,
// applied inside a single modernc.org/kv transaction on commit.
type mutation struct {
	family string
	key    []byte
	value  []byte
	delete bool
}

// batch mirrors pkg/sorted/kvfile/kvfile.go's CommitBatch: it stages
// mutations and applies them inside BeginTransaction/Commit, rolling
// back on any failure.
type batch struct {
	muts []mutation
}

func (b *batch) Put(family string, key, value []byte) {
	b.muts = append(b.muts, mutation{family: family, key: bytes.Clone(key), value: bytes.Clone(value)})
}

func (b *batch) Delete(family string, key []byte) {
	b.muts = append(b.muts, mutation{family: family, key: bytes.Clone(key), delete: true})
}

func (be *Backend) NewBatch() engine.Batch {
	return &batch{}
}

func (be *Backend) CommitBatch(eb engine.Batch) error {
	b, ok := eb.(*batch)
	if !ok {
		return engine.ErrFamilyNotFound
	}
	be.txmu.Lock()
	defer be.txmu.Unlock()

	good := false
	defer func() {
		if !good {
			be.db.Rollback()
		}
	}()

	if err := be.db.BeginTransaction(); err != nil {
		return &engine.EngineError{Op: "begin transaction", Err: err}
	}
	for _, m := range b.muts {
		fo := be.optionsFor(m.family)
		if m.delete {
			if err := be.db.Delete(familyKey(m.family, m.key)); err != nil {
				return &engine.EngineError{Op: "delete", Name: m.family, Err: err}
			}
			be.cache.Invalidate(m.family, m.key)
			continue
		}
		raw, err := be.encode(m.family, fo, m.value)
		if err != nil {
			return &engine.SerializationError{Family: m.family, Err: err}
		}
		if err := be.db.Set(familyKey(m.family, m.key), raw); err != nil {
			return &engine.EngineError{Op: "put", Name: m.family, Err: err}
		}
		be.cache.Invalidate(m.family, m.key)
	}
	good = true
	if err := be.db.Commit(); err != nil {
		return &engine.EngineError{Op: "commit transaction", Err: err}
	}
	return nil
}

func (be *Backend) optionsFor(family string) engine.FamilyOptions {
	be.mu.RLock()
	defer be.mu.RUnlock()
	if fo, ok := be.families[family]; ok {
		return fo
	}
	return engine.DefaultFamilyOptions()
}

// snapshot is a best-effort point-in-time view: modernc.org/kv exposes
// no MVCC snapshot handle, so Get and the iterators it returns read
// through to the live database. Callers needing the strict isolation
// spec.md §3's snapshot guarantee describes should use pkg/engine/ldb.
type snapshot struct {
	be *Backend
}

func (be *Backend) Snapshot() (engine.Snapshot, error) {
	return &snapshot{be: be}, nil
}

func (s *snapshot) Get(h engine.Handle, key []byte) ([]byte, error) {
	return s.be.Get(h.Name(), key, h.Options())
}

func (s *snapshot) PrefixIterator(h engine.Handle, prefix []byte) engine.Iterator {
	return s.be.PrefixIterator(h.Name(), prefix, h.Options())
}

func (s *snapshot) Iterator(h engine.Handle, start []byte) engine.Iterator {
	return s.be.Iterator(h.Name(), start, h.Options())
}

func (s *snapshot) Release() {}

func (b *Backend) PrefixIterator(family string, prefix []byte, fo engine.FamilyOptions) engine.Iterator {
	full := familyKey(family, prefix)
	it := &iter{be: b, family: family, fo: fo, prefixLen: len(family) + 1, boundary: full}
	it.enum, _, it.err = b.db.Seek(full)
	return it
}

func (b *Backend) Iterator(family string, start []byte, fo engine.FamilyOptions) engine.Iterator {
	full := familyKey(family, start)
	it := &iter{be: b, family: family, fo: fo, prefixLen: len(family) + 1, boundary: familyKey(family, nil)}
	it.enum, _, it.err = b.db.Seek(full)
	return it
}

// iter adapts modernc.org/kv's Enumerator to engine.Iterator, mirroring
// the io.EOF sentinel handling in pkg/sorted/kvfile/kvfile.go's iter.
// boundary bounds how far the scan may run before it has left the
// requested family (or prefix within it): every key from enum.Next()
// must carry boundary as a byte prefix.
type iter struct {
	be        *Backend
	family    string
	fo        engine.FamilyOptions
	prefixLen int
	boundary  []byte

	enum *kv.Enumerator

	key, val []byte
	valid    bool
	err      error
	done     bool
}

func (it *iter) Next() bool {
	if it.err != nil || it.done {
		return false
	}
	k, v, err := it.enum.Next()
	if err == io.EOF {
		it.done = true
		it.valid = false
		return false
	}
	if err != nil {
		it.err = err
		it.valid = false
		return false
	}
	if !bytes.HasPrefix(k, it.boundary) {
		it.done = true
		it.valid = false
		return false
	}
	it.key, it.val = k, v
	it.valid = true
	return true
}

func (it *iter) Key() []byte {
	if !it.valid || len(it.key) < it.prefixLen {
		return nil
	}
	return bytes.Clone(it.key[it.prefixLen:])
}

func (it *iter) Value() []byte {
	if !it.valid {
		return nil
	}
	v, err := it.be.decode(it.family, it.fo, it.val)
	if err != nil {
		it.err = err
		return nil
	}
	return bytes.Clone(v)
}

func (it *iter) Close() error {
	return it.err
}

// CacheStats reports the shared engine.Cache's current size and
// capacity, or (0, 0) if this Backend was opened without WithCache.
func (b *Backend) CacheStats() (entries, capacity int) {
	return b.cache.Len(), b.cache.Capacity()
}

func (b *Backend) Close() error {
	return b.db.Close()
}
