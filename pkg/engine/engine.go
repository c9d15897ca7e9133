// Package engine is the thin, typed façade over an ordered key-value
// store described in spec.md §4.2. It depends only on the narrow
// contract spec.md §6 names — bytewise key comparison, atomic
// multi-put, per-family option bundles, and snapshots — and leaks no
// engine-specific type to the packages built on top of it (pkg/table,
// pkg/topic, pkg/topiciter).
//
// Grounded on the interface shape of perkeep-perkeep's
// pkg/sorted.KeyValue (a sorted, enumerable, batch-mutable interface
// with a small registry of interchangeable backends), generalized with
// a Family dimension the way original_source/src/table.rs's
// column-family-scoped TableImpl generalizes a single RocksDB handle.
package engine

import "errors"

// ErrNotFound is returned by Get (and by Snapshot.Get) when the key is
// absent, mirroring sorted.ErrNotFound in pkg/sorted/kv.go.
var ErrNotFound = errors.New("engine: key not found")

// ErrFamilyNotFound is spec.md §7's FamilyNotFound: a declared table is
// missing at open time, or an ad-hoc lookup fails.
var ErrFamilyNotFound = errors.New("engine: family not found")

// CompressionType selects the value codec a family applies to stored
// payloads, per spec.md §6's "Compression type is caller-configurable
// (none/zstd/lz4/…)".
type CompressionType int

const (
	// CompressionNone stores payloads verbatim.
	CompressionNone CompressionType = iota
	// CompressionZstd compresses payloads with klauspost/compress/zstd.
	CompressionZstd
)

// FamilyOptions bundles the per-family read/write policy spec.md §4.2
// and §4.3 describe: a checksum-verification policy (read), a
// durability policy (write), and a compression policy (column-family
// option contract, §6). It is intentionally small and backend-agnostic;
// each Backend interprets it with whatever native knobs it has.
type FamilyOptions struct {
	// VerifyChecksums requests block-checksum verification on reads
	// from this family. Setting it to false does not turn verification
	// off on either shipped backend: pkg/engine/ldb opens its database
	// in goleveldb's default strict mode, which already verifies block
	// checksums on every read, and pkg/engine/kvfile ignores the field.
	VerifyChecksums bool
	// Sync forces a durable fsync on single-key Put and Delete calls
	// against this family on pkg/engine/ldb. Batch commits are written
	// without fsync, and pkg/engine/kvfile ignores the field.
	Sync bool
	// Compression selects the value codec applied transparently to
	// puts/gets against this family.
	Compression CompressionType
}

// DefaultFamilyOptions is used for families opened without an explicit
// declaration (the storebuilder.BuildAll maintenance path, spec.md
// §4.6).
func DefaultFamilyOptions() FamilyOptions {
	return FamilyOptions{VerifyChecksums: true, Sync: false, Compression: CompressionNone}
}

// Handle is a lightweight, shareable reference to a declared family.
// Unlike the raw rocksdb_column_family_handle_t pointers in
// original_source/src/handle.rs, it carries no manual Send/Sync
// assertions: it is a plain value wrapping a family name and the
// Backend that owns it, safe to copy and share because the Backend
// itself is the thing with a lifetime (per spec.md §3's "Ownership":
// family handles are shared between the engine instance and all
// Table/Topic wrappers referencing them; lifetime equals the longest
// holder).
type Handle struct {
	backend Backend
	name    string
	opts    FamilyOptions
}

// Name returns the family name this handle addresses.
func (h Handle) Name() string { return h.name }

// Options returns the FamilyOptions this handle was declared with.
func (h Handle) Options() FamilyOptions { return h.opts }

// Batch accumulates puts and deletes, possibly across multiple
// families, for atomic application via Engine.WriteBatch. Concrete
// batch types are backend-specific (mirroring lvbatch in
// pkg/sorted/leveldb/leveldb.go and batchTx in
// pkg/sorted/sqlkv/sqlkv.go); CommitBatch type-asserts its own kind and
// rejects any other.
type Batch interface {
	Put(family string, key, value []byte)
	Delete(family string, key []byte)
}

// Iterator walks key/value pairs within one family in ascending key
// order. It must be closed after use.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Close() error
}

// Snapshot is a consistent, immutable point-in-time view acquired from
// Engine.Snapshot. Iterators built from a Snapshot observe no writes
// committed after the snapshot was taken, per spec.md §3's "Ownership"
// and §5's ordering guarantees.
type Snapshot interface {
	Get(h Handle, key []byte) ([]byte, error)
	PrefixIterator(h Handle, prefix []byte) Iterator
	Iterator(h Handle, start []byte) Iterator
	Release()
}

// Backend is the narrow contract an ordered key-value store must
// satisfy to back an Engine. Two adapters ship with this module:
// pkg/engine/ldb (the default, LSM-tree-based github.com/syndtr/goleveldb
// backend) and pkg/engine/kvfile (an alternate embedded engine on
// modernc.org/kv). Both multiplex families as disjoint key-prefix
// namespaces within one physical store; see each package's doc comment
// for the specifics spec.md §1 treats as "external collaborator"
// details (block caching, compression, SSTable management).
type Backend interface {
	// EnsureFamilies atomically declares the families named in opts,
	// creating any that do not yet exist. It is idempotent: declaring
	// an already-known family with the same options is a no-op.
	EnsureFamilies(opts map[string]FamilyOptions) error

	// Families lists every family this backend currently knows about,
	// whether declared via EnsureFamilies or discovered on disk.
	Families() []string

	Get(family string, key []byte, opts FamilyOptions) ([]byte, error)
	Put(family string, key, value []byte, opts FamilyOptions) error
	Delete(family string, key []byte, opts FamilyOptions) error

	NewBatch() Batch
	CommitBatch(b Batch) error

	Snapshot() (Snapshot, error)

	PrefixIterator(family string, prefix []byte, opts FamilyOptions) Iterator
	Iterator(family string, start []byte, opts FamilyOptions) Iterator

	// CacheStats reports the entry count and capacity of whatever
	// engine.Cache this backend was opened with (WithCache), or (0, 0)
	// if none was attached. It backs Engine.Stats's cache fields,
	// spec.md's supplemented engine/cache stats feature.
	CacheStats() (entries, capacity int)

	Close() error
}

// Engine is the façade spec.md §4.2 describes: open/closed over a
// Backend, handing out Handles for declared families and forwarding
// every read/write/iterate/snapshot operation to the backend with the
// right per-family options attached.
type Engine struct {
	backend  Backend
	handles  map[string]Handle
	metrics  *Metrics
}

// Open declares the given families against backend (creating any that
// are missing) and returns a ready Engine. It mirrors
// original_source/src/builder.rs's Builder::build, minus the
// migration/version gate, which lives in internal/schemaver and is
// applied by pkg/storebuilder.
func Open(backend Backend, families map[string]FamilyOptions) (*Engine, error) {
	if err := backend.EnsureFamilies(families); err != nil {
		return nil, err
	}
	e := &Engine{
		backend: backend,
		handles: make(map[string]Handle, len(families)),
		metrics: newMetrics(),
	}
	for name, opts := range families {
		e.handles[name] = Handle{backend: backend, name: name, opts: opts}
	}
	return e, nil
}

// Family returns the Handle for a declared family. Unknown names are
// fatal for the calling operation, per spec.md §4.3: "Tables are
// declared at builder time; unknown names at runtime are fatal."
func (e *Engine) Family(name string) (Handle, error) {
	h, ok := e.handles[name]
	if !ok {
		return Handle{}, &FamilyNotFoundError{Family: name}
	}
	return h, nil
}

// AdoptFamily registers a Handle for a family the backend already
// knows about but that was not declared through Open — the
// storebuilder.BuildAll maintenance path (spec.md §4.6).
func (e *Engine) AdoptFamily(name string, opts FamilyOptions) Handle {
	h := Handle{backend: e.backend, name: name, opts: opts}
	e.handles[name] = h
	return h
}

func (e *Engine) Get(h Handle, key []byte) ([]byte, error) {
	val, err := e.backend.Get(h.name, key, h.opts)
	if err == nil {
		e.metrics.recordGet(h.name)
	}
	return val, err
}

func (e *Engine) Put(h Handle, key, value []byte) error {
	err := e.backend.Put(h.name, key, value, h.opts)
	if err == nil {
		e.metrics.recordPut(h.name)
	}
	return err
}

func (e *Engine) Delete(h Handle, key []byte) error {
	return e.backend.Delete(h.name, key, h.opts)
}

// NewBatch returns a fresh, empty Batch for accumulating mutations
// across one or more families.
func (e *Engine) NewBatch() Batch {
	return e.backend.NewBatch()
}

// WriteBatch atomically applies every mutation staged in b. Atomicity
// is required of every Backend implementation (spec.md §4.2).
func (e *Engine) WriteBatch(b Batch) error {
	err := e.backend.CommitBatch(b)
	if err == nil {
		e.metrics.recordBatchCommit()
	}
	return err
}

// Snapshot acquires a consistent point-in-time view of the whole
// engine, across all families.
func (e *Engine) Snapshot() (Snapshot, error) {
	return e.backend.Snapshot()
}

// PrefixIterator returns a forward iterator seeked to prefix within h's
// family, with prefix-same-as-start semantics (spec.md §4.2).
func (e *Engine) PrefixIterator(h Handle, prefix []byte) Iterator {
	return e.backend.PrefixIterator(h.name, prefix, h.opts)
}

// Iterator returns a forward iterator over h's family starting at
// start (inclusive).
func (e *Engine) Iterator(h Handle, start []byte) Iterator {
	return e.backend.Iterator(h.name, start, h.opts)
}

// Metrics exposes the Prometheus collectors registered for this
// engine's operations (spec.md supplement, §2 of SPEC_FULL.md).
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Stats snapshots the engine's current counters and cache occupancy as
// a plain Go struct, the supplemented engine/cache stats feature
// SPEC_FULL.md §4 grounds on original_source/src/stats.rs's Stats.
// Topic-level fields (Appends, Flushes) reflect whatever pkg/topic
// instances share this Engine's Metrics;
// an Engine with no topic bound to it reports them as zero.
func (e *Engine) Stats() Stats {
	entries, capacity := e.backend.CacheStats()
	e.metrics.SetCacheStats(entries, capacity)
	return Stats{
		CacheEntries:  entries,
		CacheCapacity: capacity,
		Puts:          e.metrics.putCount.Load(),
		Gets:          e.metrics.getCount.Load(),
		BatchCommits:  e.metrics.batchCommitCount.Load(),
		Appends:       e.metrics.appendCount.Load(),
		Flushes:       e.metrics.flushCount.Load(),
	}
}

// Close releases the underlying backend's resources.
func (e *Engine) Close() error {
	return e.backend.Close()
}
