package topiciter

import (
	"math/big"

	"github.com/pkg/errors"

	"seqtopic/pkg/engine"
	"seqtopic/pkg/record"
	"seqtopic/pkg/seqid"
	"seqtopic/pkg/topic"
)

// BatchIterator is a named, durable-cursor window iterator, grounded
// on original_source/src/iterators.rs's StatefulIter/BatchIterator
// trait. Its cursor is persisted under topic.CursorKey(name) at the
// end of every non-empty Next() call, before Next() returns — the
// at-least-once commit rule spec.md §4.5 specifies.
type BatchIterator struct {
	topic     *topic.Topic
	name      string
	batchSize int

	it engine.Iterator
}

// NewBatch opens (or resumes) a named window iterator over t with the
// given fixed batch size, mirroring StatefulIter::new: the starting
// position is read from the iterator's durable cursor, defaulting to
// the beginning of the topic keyspace if no cursor exists yet or it
// fails to parse.
func NewBatch(t *topic.Topic, name string, batchSize int) (*BatchIterator, error) {
	start, err := startFromCursor(t, name)
	if err != nil {
		return nil, err
	}
	b := &BatchIterator{
		topic:     t,
		name:      name,
		batchSize: batchSize,
		it:        t.Table().Iterator(start),
	}
	return b, nil
}

func startFromCursor(t *topic.Topic, name string) ([]byte, error) {
	raw, err := t.Table().Get(topic.CursorKey(name))
	if err == engine.ErrNotFound {
		return []byte(record.TopicPrefix + ":"), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "topiciter: reading durable cursor")
	}
	from := seqid.Parse(string(raw))
	if !from.Valid() {
		return []byte(record.TopicPrefix + ":"), nil
	}
	return from.Next().Bytes(), nil
}

// Next pulls up to batchSize valid records starting where the last
// call (or the durable cursor, on the first call) left off. If the
// returned batch is non-empty, the cursor is persisted to the last
// record's key before Next returns success; on persist failure the
// error is returned and the cursor is left untouched, matching
// spec.md §4.5's commit rule exactly.
func (b *BatchIterator) Next() ([]record.Record, error) {
	var out []record.Record
	for len(out) < b.batchSize {
		if !b.it.Next() {
			break
		}
		rec := record.FromKV(b.it.Key(), b.it.Value())
		if !rec.IsValid() {
			break
		}
		out = append(out, rec)
	}

	if len(out) == 0 {
		return out, nil
	}

	last := out[len(out)-1]
	if err := b.topic.Table().Insert(topic.CursorKey(b.name), last.Key.Bytes()); err != nil {
		return nil, errors.Wrap(err, "topiciter: persisting durable cursor")
	}
	return out, nil
}

// TailDistance reports the number of records the writer has produced
// that this iterator's durable cursor has not yet advanced past,
// mirroring StatefulIter::tail_distance (left as `todo!()` in the
// source; spec.md §4.5 specifies the formula this implements:
// distance(topic.next_insert_writer_view, cursor_checkpoint)).
func (b *BatchIterator) TailDistance() (*big.Int, error) {
	dist, err := b.tailDistance()
	if err != nil {
		return nil, err
	}
	b.topic.Table().Engine().Metrics().SetTailDistance(b.name, distanceFloat(dist))
	return dist, nil
}

func (b *BatchIterator) tailDistance() (*big.Int, error) {
	raw, err := b.topic.Table().Get(topic.CursorKey(b.name))
	if err == engine.ErrNotFound {
		return seqid.Distance(b.topic.NextInsert(), seqid.Default(record.TopicPrefix)), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "topiciter: reading durable cursor for tail distance")
	}
	checkpoint := seqid.Parse(string(raw))
	if !checkpoint.Valid() {
		return seqid.Distance(b.topic.NextInsert(), seqid.Default(record.TopicPrefix)), nil
	}
	return seqid.Distance(b.topic.NextInsert(), checkpoint.Next()), nil
}

// distanceFloat converts a tail distance to float64 for the Prometheus
// gauge, saturating rather than overflowing for distances too large to
// represent exactly (which only matters at an astronomically backed-up
// cursor, far past any realistic operating range).
func distanceFloat(d *big.Int) float64 {
	f := new(big.Float).SetInt(d)
	v, _ := f.Float64()
	return v
}

// Close releases the underlying engine iterator.
func (b *BatchIterator) Close() error {
	return b.it.Close()
}
