// Package record defines the (SeqId, payload) tuple appended to and
// read back from a topic, grounded on original_source/src/record.rs's
// SeqRecord.
package record

import "seqtopic/pkg/seqid"

// TopicPrefix is the SeqId prefix every topic record key carries, the
// Go counterpart of original_source/src/topic.rs's TOPIC_KEY_PREFIX
// constant ("topic"). It is a fixed constant, not a per-topic setting:
// distinct topics are isolated at the engine-family level (see
// pkg/table), not by varying this prefix.
const TopicPrefix = "topic"

// Record pairs a SeqId with an opaque byte payload. Payloads are never
// interpreted by the core; callers own their own encoding.
type Record struct {
	Key     seqid.SeqId
	Payload []byte
}

// New constructs a Record.
func New(key seqid.SeqId, payload []byte) Record {
	return Record{Key: key, Payload: payload}
}

// FromKV reconstructs a Record from a raw engine key/value pair,
// parsing key as a SeqId. The resulting Record's IsValid reflects both
// a successful parse and the TopicPrefix fencing check, mirroring
// SeqRecord::is_valid in original_source/src/record.rs.
func FromKV(key, value []byte) Record {
	id := seqid.Parse(string(key))
	r := Record{Key: id, Payload: value}
	if !r.IsValid() {
		r.Key = seqid.Invalid()
	}
	return r
}

// IsValid reports whether this Record carries a valid SeqId. Iterators
// use this as the fencing mechanism that separates topic payload
// records from co-resident keys (iterator cursors, the last-insert
// marker, arbitrary user metadata) sharing the same family, per
// spec.md §3.
func (r Record) IsValid() bool {
	return r.Key.Valid() && r.Key.Prefix() == TopicPrefix
}

// Size returns the payload length in bytes.
func (r Record) Size() int {
	return len(r.Payload)
}
