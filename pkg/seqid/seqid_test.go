package seqid_test

import (
	"testing"

	"seqtopic/pkg/seqid"
)

func TestDefault(t *testing.T) {
	id := seqid.Default("topic")
	if !id.Valid() {
		t.Fatal("Default id should be valid")
	}
	want := "topic:000000000000000000000000000000000000001"
	if got := id.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestNextOrdering(t *testing.T) {
	id := seqid.Default("topic")
	for i := 0; i < 1000; i++ {
		next := id.Next()
		if !id.Less(next) {
			t.Fatalf("iteration %d: expected id < next, got id=%s next=%s", i, id, next)
		}
		if next.String() <= id.String() {
			t.Fatalf("iteration %d: String() order violated: %q should sort after %q", i, next, id)
		}
		id = next
	}
}

func TestParseRoundTrip(t *testing.T) {
	id := seqid.Default("topic")
	for i := 0; i < 20; i++ {
		id = id.Next()
	}
	s := id.String()
	parsed := seqid.Parse(s)
	if !parsed.Valid() {
		t.Fatalf("Parse(%q) should be valid", s)
	}
	if parsed.String() != s {
		t.Fatalf("round trip mismatch: parsed.String() = %q, want %q", parsed.String(), s)
	}
	if parsed.Compare(id) != 0 {
		t.Fatalf("parsed id should equal original numerically")
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []string{
		"",
		"no-colon-here",
		"topic:",
		"topic:abc",
		"topic:12",
		"topic:-000000000000000000000000000000000001",
	}
	for _, c := range cases {
		if seqid.Parse(c).Valid() {
			t.Errorf("Parse(%q) should be invalid", c)
		}
	}
}

func TestDistance(t *testing.T) {
	a := seqid.Default("topic")
	b := a
	for i := 0; i < 5; i++ {
		b = b.Next()
	}
	if got := seqid.Distance(b, a).Uint64(); got != 5 {
		t.Fatalf("Distance(b, a) = %d, want 5", got)
	}
	if got := seqid.Distance(a, b).Uint64(); got != 0 {
		t.Fatalf("Distance(a, b) = %d, want 0 (clamped)", got)
	}
}

func TestDistanceAccumulatesOverKSteps(t *testing.T) {
	origin := seqid.Default("topic")
	cur := origin
	const k = 2500
	for i := 0; i < k; i++ {
		cur = cur.Next()
	}
	if got := seqid.Distance(cur, origin).Uint64(); got != k {
		t.Fatalf("Distance after %d Next() calls = %d, want %d", k, got, k)
	}
}

func TestWidenessAcrossPowerOfTenBoundaries(t *testing.T) {
	id := seqid.Default("topic")
	prev := id.String()
	// Walk past several power-of-ten boundaries and confirm the
	// textual form keeps sorting with the numeric value at each step.
	boundaries := []int{9, 10, 99, 100, 999, 1000, 9999, 10000}
	n := 1
	bi := 0
	for bi < len(boundaries) {
		id = id.Next()
		n++
		cur := id.String()
		if cur <= prev {
			t.Fatalf("at n=%d: %q did not sort after %q", n, cur, prev)
		}
		prev = cur
		if n == boundaries[bi] {
			bi++
		}
	}
}
