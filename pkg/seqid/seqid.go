// Package seqid implements the monotonic, lexicographically sortable
// identifier that backs every appended record in a topic.
//
// A SeqId's textual form is "<prefix>:<zero-padded-digits>". The digit
// run is fixed-width (see Width), so bytewise comparison of the textual
// form agrees with numeric comparison of the digits for any two ids
// sharing a prefix: spec.md §4.1 permits this simpler fixed-width
// encoding in place of the width-growing scheme as long as the
// sort-order property holds.
package seqid

import (
	"math/big"
	"strings"
)

// Width is the number of decimal digits in the zero-padded suffix. It
// comfortably bounds every value a uint128 (2^128-1, 39 digits) can
// hold, per spec.md §4.1's allowance for "fixed-width 128-bit
// zero-padded decimal".
const Width = 39

// SeqId is an immutable, monotonic identifier. The zero value is not
// valid; construct one with Default or Parse.
type SeqId struct {
	prefix string
	num    *big.Int
	valid  bool
}

// Default returns the first id for a fresh sequence under prefix.
func Default(prefix string) SeqId {
	return SeqId{prefix: prefix, num: big.NewInt(1), valid: true}
}

// Invalid returns the sentinel invalid SeqId used when parsing fails.
// Its String method still returns a deterministic (if meaningless)
// value; callers must check Valid before trusting it.
func Invalid() SeqId {
	return SeqId{num: big.NewInt(0), valid: false}
}

// Next returns the successor of x: x.Next() always compares greater
// than x under both String order and Compare.
func (x SeqId) Next() SeqId {
	n := new(big.Int).Add(x.num, big.NewInt(1))
	return SeqId{prefix: x.prefix, num: n, valid: true}
}

// Valid reports whether x was produced by Default/Next or by a
// successful Parse.
func (x SeqId) Valid() bool {
	return x.valid
}

// Prefix returns the configured textual prefix (e.g. "topic").
func (x SeqId) Prefix() string {
	return x.prefix
}

// String renders the "<prefix>:<zero-padded-digits>" textual form.
// Invalid ids render as the prefix-less zero value; callers must not
// persist the string form of an invalid id.
func (x SeqId) String() string {
	digits := x.num.String()
	if len(digits) > Width {
		// A value that no longer fits the fixed width; render it
		// verbatim rather than silently truncating. This cannot
		// happen for any id produced by Default/Next within the
		// lifetime of a process handling fewer than 10^39 records.
		return x.prefix + ":" + digits
	}
	return x.prefix + ":" + strings.Repeat("0", Width-len(digits)) + digits
}

// Bytes returns the UTF-8 bytes of String, suitable for use as an
// engine key.
func (x SeqId) Bytes() []byte {
	return []byte(x.String())
}

// Parse decodes a "<prefix>:<digits>" string produced by String. On
// any malformed input it returns an invalid SeqId; Parse never
// returns an error, matching spec.md §4.1's "parse failures produce
// an invalid SeqId; they do not raise."
func Parse(s string) SeqId {
	idx := strings.LastIndexByte(s, ':')
	if idx < 0 || idx == len(s)-1 {
		return Invalid()
	}
	prefix, digits := s[:idx], s[idx+1:]
	if len(digits) != Width {
		return Invalid()
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return Invalid()
		}
	}
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Invalid()
	}
	return SeqId{prefix: prefix, num: n, valid: true}
}

// Compare returns -1, 0 or 1 as x is numerically less than, equal to,
// or greater than y. It panics if x or y is invalid, matching the
// expectation that callers fence invalid ids before comparing them.
func (x SeqId) Compare(y SeqId) int {
	if !x.valid || !y.valid {
		panic("seqid: Compare called on an invalid SeqId")
	}
	return x.num.Cmp(y.num)
}

// Less reports whether x sorts strictly before y, both by numeric
// value and by the bytewise order of their String forms (the two
// agree by construction for ids sharing a prefix).
func (x SeqId) Less(y SeqId) bool {
	return x.Compare(y) < 0
}

// Distance returns max(0, x.num - y.num), per spec.md §4.1. The
// result is represented as a *big.Int to honor the "unsigned-128"
// contract without risking silent overflow; callers needing a machine
// word can call the result's Uint64 method, whose value is only
// meaningful when the distance fits in a uint64 (big.Int.Uint64 does
// not saturate).
func Distance(x, y SeqId) *big.Int {
	d := new(big.Int).Sub(x.num, y.num)
	if d.Sign() < 0 {
		return big.NewInt(0)
	}
	return d
}

// Uint64 returns x's numeric value, saturating at math.MaxUint64 if it
// does not fit. Intended for call sites (metrics gauges, tests) that
// cannot reasonably exceed that range in practice.
func (x SeqId) Uint64() uint64 {
	if !x.num.IsUint64() {
		return ^uint64(0)
	}
	return x.num.Uint64()
}
