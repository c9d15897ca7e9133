// Package topic implements the append-only topic: a Table whose
// keyspace holds user payload records under the "topic:" prefix
// (pkg/record), per-iterator cursors under "iter:<name>", and a
// durable last-insert marker under "last". Grounded on
// original_source/src/topic.rs's TopicImpl and src/writer.rs's
// WriteBuffer, reconciling the two sources' diverging recovery designs
// (see the package-level recovery doc on Open) in favor of the
// tail-scan-is-authoritative rule.
package topic

import (
	"github.com/pkg/errors"

	"seqtopic/pkg/record"
	"seqtopic/pkg/seqid"
	"seqtopic/pkg/table"
)

// LastInsertKey is the durable marker WriteBuffer.Flush advances
// alongside every batch of payload puts, the Go counterpart of
// TOPIC_LAST_INSERT_KEY / WriteBuffer::LAST_INSERT_KEY.
const LastInsertKey = "last"

// IteratorKeyPrefix namespaces durable named-iterator cursors, the Go
// counterpart of TOPIC_ITERATOR_KEY_PREFIX ("iterator" in one source
// revision, "iter" in another and in spec.md; this module follows
// spec.md's "iter:<name>").
const IteratorKeyPrefix = "iter:"

// CursorKey returns the engine key a named window iterator's durable
// cursor is stored under.
func CursorKey(name string) []byte {
	return []byte(IteratorKeyPrefix + name)
}

// Topic is a single-writer append log bound to one Table.
type Topic struct {
	table *table.Table
	name  string
	buf   *WriteBuffer

	// nextInsert is the durable write frontier: one past the last SeqId
	// committed by a flush (or found by Open's tail scan). Ids handed
	// out to appended but not yet flushed payloads are tracked by buf.
	nextInsert seqid.SeqId
}

// Open binds a Topic to tbl and recovers nextInsert by a bounded tail
// scan of the topic: prefix, per spec.md §4.4: "the persisted
// last-insert marker may lag if the process died between staging and
// flush; scanning is authoritative." The scan honors Record.IsValid so
// co-resident non-payload keys (iterator cursors, the marker itself)
// never perturb it.
func Open(tbl *table.Table) (*Topic, error) {
	max, err := tailScanMax(tbl)
	if err != nil {
		return nil, errors.Wrap(err, "topic: recovering last-insert by tail scan")
	}
	next := seqid.Default(record.TopicPrefix)
	if max.Valid() {
		next = max.Next()
	}
	t := &Topic{table: tbl, name: tbl.Name(), nextInsert: next}
	t.buf = newWriteBuffer(t)
	return t, nil
}

func tailScanMax(tbl *table.Table) (seqid.SeqId, error) {
	it := tbl.PrefixIterator([]byte(record.TopicPrefix + ":"))
	defer it.Close()

	var max seqid.SeqId
	for it.Next() {
		r := record.FromKV(it.Key(), it.Value())
		if !r.IsValid() {
			continue
		}
		if !max.Valid() || max.Less(r.Key) {
			max = r.Key
		}
	}
	return max, nil
}

// Name returns the underlying table's family name.
func (t *Topic) Name() string { return t.name }

// Table exposes the bound Table, used by pkg/topiciter to build
// iterators and by callers that need the engine.Handle directly.
func (t *Topic) Table() *table.Table { return t.table }

// NextInsert returns one past the last SeqId made durable by a flush
// (or found by Open's tail scan). Appends that are still staged in the
// write buffer do not advance it. It is the write-side view of the
// sequence used by tail-distance accounting.
func (t *Topic) NextInsert() seqid.SeqId { return t.nextInsert }

// Append stages payload in the in-memory write buffer, flushing
// automatically once the configured byte threshold is crossed, per
// spec.md §4.4's WriteBuffer description, and returns the record
// payload was assigned — the SeqId it reports is valid immediately,
// whether or not this call also triggered a flush. Callers needing a
// durability guarantee on this specific payload should call
// Flush(true) afterward.
func (t *Topic) Append(payload []byte) (record.Record, error) {
	return t.buf.add(payload)
}

// Flush forces (or, if force is false, conditionally triggers) an
// atomic batch commit of every staged payload plus the advanced
// last-insert marker, mirroring WriteBuffer::flush.
func (t *Topic) Flush(force bool) error {
	return t.buf.flush(force)
}
