package topic

import (
	"context"

	"seqtopic/pkg/record"
)

// Stream is a supplemented convenience not present in
// original_source/src/topic.rs: it adapts SingleIterator-style
// sequential reading to a channel, for callers that prefer ranging
// over records with a for/range loop instead of driving Next() by
// hand. It is a thin wrapper, not a new delivery mechanism: closing
// ctx stops the goroutine and closes the channel without draining the
// remaining records.
func (t *Topic) Stream(ctx context.Context) <-chan record.Record {
	out := make(chan record.Record)
	go func() {
		defer close(out)
		it := t.table.PrefixIterator([]byte(record.TopicPrefix + ":"))
		defer it.Close()
		for it.Next() {
			r := record.FromKV(it.Key(), it.Value())
			if !r.IsValid() {
				return
			}
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
