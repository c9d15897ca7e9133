// Package enginetest is a conformance suite any engine.Backend
// implementation must pass, grounded on pkg/sorted/kvtest/kvtest.go's
// TestSorted: both exercise a fresh, empty store through
// set/get/delete, ranged enumeration, and the family/column-family
// framing kvtest.go didn't need because sorted.KeyValue has no family
// dimension.
package enginetest

import (
	"testing"

	"seqtopic/pkg/engine"
)

// TestBackend runs the full conformance suite against a freshly opened,
// empty b. The caller declares family on b before calling TestBackend;
// the suite itself declares family+"-other" for its isolation check.
func TestBackend(t *testing.T, b engine.Backend, family string) {
	t.Helper()
	fo := engine.DefaultFamilyOptions()

	if !isEmpty(t, b, family, fo) {
		t.Fatal("backend for test is expected to be initially empty in the given family")
	}

	set := func(k, v string) {
		if err := b.Put(family, []byte(k), []byte(v), fo); err != nil {
			t.Fatalf("Put(%q, %q): %v", k, v, err)
		}
	}
	set("foo", "bar")
	if isEmpty(t, b, family, fo) {
		t.Fatal("backend reports empty after Put(foo, bar)")
	}
	if v, err := b.Get(family, []byte("foo"), fo); err != nil || string(v) != "bar" {
		t.Errorf("Get(foo) = %q, %v; want bar, nil", v, err)
	}
	if _, err := b.Get(family, []byte("NOT_EXIST"), fo); err != engine.ErrNotFound {
		t.Errorf("Get(NOT_EXIST) err = %v; want engine.ErrNotFound", err)
	}
	for i := 0; i < 2; i++ {
		if err := b.Delete(family, []byte("foo"), fo); err != nil {
			t.Errorf("Delete(foo) (loop %d/2): %v", i+1, err)
		}
	}

	set("a", "av")
	set("b", "bv")
	set("c", "cv")
	testPrefixScan(t, b, family, fo, "", "av", "bv", "cv")
	testPrefixScan(t, b, family, fo, "a", "av")

	testIterate(t, b, family, fo, "", "av", "bv", "cv")
	testIterate(t, b, family, fo, "b", "bv", "cv")

	testFamilyIsolation(t, b, family, fo)
	testBatch(t, b, family, fo)
}

func testFamilyIsolation(t *testing.T, b engine.Backend, family string, fo engine.FamilyOptions) {
	t.Helper()
	other := family + "-other"
	if err := b.EnsureFamilies(map[string]engine.FamilyOptions{other: fo}); err != nil {
		t.Fatalf("EnsureFamilies(%q): %v", other, err)
	}
	if err := b.Put(other, []byte("a"), []byte("other-av"), fo); err != nil {
		t.Fatalf("Put into isolated family: %v", err)
	}
	v, err := b.Get(family, []byte("a"), fo)
	if err != nil || string(v) != "av" {
		t.Fatalf("cross-family leakage: Get(%q, a) = %q, %v; want av, nil", family, v, err)
	}
	v, err = b.Get(other, []byte("a"), fo)
	if err != nil || string(v) != "other-av" {
		t.Fatalf("Get(%q, a) = %q, %v; want other-av, nil", other, v, err)
	}
}

func testBatch(t *testing.T, b engine.Backend, family string, fo engine.FamilyOptions) {
	t.Helper()
	batch := b.NewBatch()
	batch.Put(family, []byte("batch1"), []byte("v1"))
	batch.Put(family, []byte("batch2"), []byte("v2"))
	batch.Delete(family, []byte("a"))
	if err := b.CommitBatch(batch); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}
	if v, err := b.Get(family, []byte("batch1"), fo); err != nil || string(v) != "v1" {
		t.Errorf("after batch, Get(batch1) = %q, %v; want v1, nil", v, err)
	}
	if _, err := b.Get(family, []byte("a"), fo); err != engine.ErrNotFound {
		t.Errorf("after batch, Get(a) err = %v; want ErrNotFound (deleted in batch)", err)
	}
}

func testPrefixScan(t *testing.T, b engine.Backend, family string, fo engine.FamilyOptions, prefix string, want ...string) {
	t.Helper()
	it := b.PrefixIterator(family, []byte(prefix), fo)
	defer it.Close()
	var got []string
	for it.Next() {
		got = append(got, string(it.Value()))
	}
	assertEqual(t, "PrefixIterator("+prefix+")", got, want)
}

func testIterate(t *testing.T, b engine.Backend, family string, fo engine.FamilyOptions, start string, want ...string) {
	t.Helper()
	it := b.Iterator(family, []byte(start), fo)
	defer it.Close()
	var got []string
	for it.Next() {
		got = append(got, string(it.Value()))
	}
	assertEqual(t, "Iterator("+start+")", got, want)
}

func assertEqual(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("%s: got %q, want %q", label, got, want)
		return
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("%s: got %q, want %q", label, got, want)
			return
		}
	}
}

func isEmpty(t *testing.T, b engine.Backend, family string, fo engine.FamilyOptions) bool {
	t.Helper()
	it := b.Iterator(family, nil, fo)
	defer it.Close()
	return !it.Next()
}
