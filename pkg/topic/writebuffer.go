package topic

import (
	"sync"

	"github.com/pkg/errors"

	"seqtopic/pkg/record"
	"seqtopic/pkg/seqid"
)

// flushThresholdBytes mirrors writer.rs's WriteBuffer::txn_size default
// of 64512 bytes: the Append that brings the staged payloads to this
// many bytes or more triggers an automatic flush.
const flushThresholdBytes = 64512

// staged is one payload waiting to be flushed, already bound to the
// SeqId it will occupy: ids are handed out at stage time (add), not at
// flush time, so Append can report a payload's id to its caller
// immediately, per spec.md §4.4's TopicImpl::append returning the
// SeqRecord it just wrote.
type staged struct {
	id      seqid.SeqId
	payload []byte
}

// WriteBuffer stages appended payloads in memory and flushes them to
// the engine as a single atomic batch, grounded on
// original_source/src/writer.rs's WriteBuffer.
type WriteBuffer struct {
	topic *Topic

	mu        sync.Mutex
	buffer    []staged
	bufferLen int

	// nextID is the SeqId the next staged payload will receive. It
	// advances on every add, independently of flush: two payloads
	// staged back to back before any flush still get distinct,
	// correctly ordered ids.
	nextID seqid.SeqId
}

func newWriteBuffer(t *Topic) *WriteBuffer {
	return &WriteBuffer{topic: t, nextID: t.nextInsert}
}

// add stages value under the next available SeqId, then flushes if
// the staged total has reached the threshold, mirroring WriteBuffer::add
// followed by an implicit flush check (spec.md §4.4 folds the two into
// one caller-facing Append). It returns the record value will occupy
// once flushed.
func (w *WriteBuffer) add(value []byte) (record.Record, error) {
	w.mu.Lock()
	id := w.nextID
	w.nextID = w.nextID.Next()
	w.buffer = append(w.buffer, staged{id: id, payload: value})
	w.bufferLen += len(value)
	shouldFlush := w.bufferLen >= flushThresholdBytes
	bufferLen := w.bufferLen
	w.mu.Unlock()

	t := w.topic
	metrics := t.table.Engine().Metrics()
	metrics.RecordAppend(t.name)
	metrics.SetBufferedBytes(t.name, bufferLen)

	rec := record.Record{Key: id, Payload: value}
	if shouldFlush {
		if err := w.flush(false); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// flush mirrors WriteBuffer::flush: if !force and the buffer is still
// under the threshold, it is a no-op. Otherwise every staged payload
// is committed under its already-assigned SeqId in one atomic batch
// alongside the advanced last-insert marker. On any commit failure,
// staged payloads are kept and nextInsert is not advanced (spec.md §7:
// "the append path holds the buffer on failure; flush is retryable").
func (w *WriteBuffer) flush(force bool) error {
	w.mu.Lock()
	if !force && w.bufferLen < flushThresholdBytes {
		w.mu.Unlock()
		return nil
	}
	batch := w.buffer
	w.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	t := w.topic
	eng := t.table.Engine()

	wb := eng.NewBatch()
	last := batch[len(batch)-1]
	for _, s := range batch {
		wb.Put(t.name, s.id.Bytes(), s.payload)
	}
	wb.Put(t.name, []byte(LastInsertKey), last.id.Bytes())

	if err := eng.WriteBatch(wb); err != nil {
		return errors.Wrap(err, "topic: committing flush batch")
	}

	w.mu.Lock()
	w.buffer = w.buffer[len(batch):]
	newLen := 0
	for _, s := range w.buffer {
		newLen += len(s.payload)
	}
	w.bufferLen = newLen
	w.mu.Unlock()

	t.nextInsert = last.id.Next()

	metrics := eng.Metrics()
	metrics.RecordFlush(t.name)
	metrics.SetBufferedBytes(t.name, newLen)
	return nil
}
