// Package topiciter implements the three read-side iterator shapes
// spec.md §4.5 describes: a stateless single-record iterator, a named
// durable-cursor batch ("window") iterator, and a fixed-size sliding
// window built atop it. Grounded on original_source/src/iterator_single.rs
// (SingleIterator), src/iterators.rs (BatchIterator/StatefulIter), and
// src/window.rs (SlideWindow).
package topiciter

import (
	"seqtopic/pkg/engine"
	"seqtopic/pkg/record"
	"seqtopic/pkg/table"
)

// SingleIterator walks topic records one at a time in insertion order,
// stopping at the first invalid (non-topic) key it encounters,
// mirroring IteratorSingle::next.
type SingleIterator struct {
	it engine.Iterator
}

// NewSingle returns a SingleIterator over tbl starting at the
// beginning of the topic keyspace.
func NewSingle(tbl *table.Table) *SingleIterator {
	return &SingleIterator{it: tbl.PrefixIterator([]byte(record.TopicPrefix + ":"))}
}

// Next returns the next valid record, or ok=false once the iterator is
// exhausted or the first non-topic key is reached.
func (s *SingleIterator) Next() (rec record.Record, ok bool) {
	if !s.it.Next() {
		return record.Record{}, false
	}
	rec = record.FromKV(s.it.Key(), s.it.Value())
	if !rec.IsValid() {
		return record.Record{}, false
	}
	return rec, true
}

// Close releases the underlying engine iterator.
func (s *SingleIterator) Close() error {
	return s.it.Close()
}
