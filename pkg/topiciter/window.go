package topiciter

import (
	"math/big"

	"seqtopic/pkg/record"
)

func bigFromInt(n int) *big.Int { return big.NewInt(int64(n)) }

// SlideWindow is a fixed-size sliding window over a BatchIterator,
// grounded on original_source/src/window.rs's SlideWindow. Next only
// ever returns complete windows: it checks TailDistance before pulling
// and returns ok=false (no pull, no cursor movement) if fewer than
// size records are currently available, per spec.md §4.5's "this
// guarantees complete windows only; a partial window is never
// emitted."
//
// The wrapped BatchIterator's own batch size need not equal (or even
// divide) size: a pull that returns more records than the current
// window needs keeps the remainder in pending rather than discarding
// it, since the iterator's cursor has already durably advanced past
// those records and they would otherwise be lost to any future
// iterator instance resuming from that cursor.
type SlideWindow struct {
	size    int
	iter    *BatchIterator
	pending []record.Record
}

// NewSlideWindow wraps iter, yielding windows of exactly size records.
func NewSlideWindow(iter *BatchIterator, size int) *SlideWindow {
	return &SlideWindow{size: size, iter: iter}
}

// Next returns the next complete window, or ok=false if fewer than
// size records (counting both pending and not-yet-pulled ones) are
// currently available.
func (s *SlideWindow) Next() (batch []record.Record, ok bool, err error) {
	if len(s.pending) < s.size {
		dist, err := s.iter.TailDistance()
		if err != nil {
			return nil, false, err
		}
		need := bigFromInt(s.size - len(s.pending))
		if dist.Cmp(need) < 0 {
			return nil, false, nil
		}
	}

	for len(s.pending) < s.size {
		got, err := s.iter.Next()
		if err != nil {
			return nil, false, err
		}
		if len(got) == 0 {
			break
		}
		s.pending = append(s.pending, got...)
	}
	if len(s.pending) < s.size {
		return nil, false, nil
	}

	out := make([]record.Record, s.size)
	copy(out, s.pending[:s.size])
	s.pending = s.pending[s.size:]
	return out, true, nil
}

// Close releases the underlying BatchIterator.
func (s *SlideWindow) Close() error {
	return s.iter.Close()
}
