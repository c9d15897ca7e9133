package ldb_test

import (
	"testing"

	"seqtopic/pkg/engine"
	"seqtopic/pkg/engine/enginetest"
	"seqtopic/pkg/engine/ldb"
)

func openTestBackend(t *testing.T) *ldb.Backend {
	t.Helper()
	b, err := ldb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("ldb.Open: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	if err := b.EnsureFamilies(map[string]engine.FamilyOptions{"widgets": engine.DefaultFamilyOptions()}); err != nil {
		t.Fatalf("EnsureFamilies: %v", err)
	}
	return b
}

func TestConformance(t *testing.T) {
	b := openTestBackend(t)
	enginetest.TestBackend(t, b, "widgets")
}

func TestSnapshotIsolation(t *testing.T) {
	b := openTestBackend(t)
	fo := engine.DefaultFamilyOptions()
	if err := b.Put("widgets", []byte("k"), []byte("v1"), fo); err != nil {
		t.Fatalf("Put: %v", err)
	}
	snap, err := b.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	defer snap.Release()

	if err := b.Put("widgets", []byte("k"), []byte("v2"), fo); err != nil {
		t.Fatalf("Put after snapshot: %v", err)
	}

	h, err := engineHandle(b, "widgets", fo)
	if err != nil {
		t.Fatal(err)
	}
	v, err := snap.Get(h, []byte("k"))
	if err != nil || string(v) != "v1" {
		t.Fatalf("snapshot.Get(k) = %q, %v; want v1, nil (should not observe post-snapshot write)", v, err)
	}
	live, err := b.Get("widgets", []byte("k"), fo)
	if err != nil || string(live) != "v2" {
		t.Fatalf("live Get(k) = %q, %v; want v2, nil", live, err)
	}
}

func TestCompression(t *testing.T) {
	b := openTestBackend(t)
	fo := engine.FamilyOptions{VerifyChecksums: true, Compression: engine.CompressionZstd}
	if err := b.EnsureFamilies(map[string]engine.FamilyOptions{"compressed": fo}); err != nil {
		t.Fatalf("EnsureFamilies: %v", err)
	}
	payload := []byte("repeat-repeat-repeat-repeat-repeat-repeat")
	if err := b.Put("compressed", []byte("k"), payload, fo); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := b.Get("compressed", []byte("k"), fo)
	if err != nil || string(got) != string(payload) {
		t.Fatalf("Get(k) = %q, %v; want %q, nil", got, err, payload)
	}
}

// engineHandle opens an engine.Engine over b with family declared and
// returns that family's Handle, so the test can read through a
// Snapshot with a real Handle.
func engineHandle(b *ldb.Backend, family string, fo engine.FamilyOptions) (engine.Handle, error) {
	e, err := engine.Open(b, map[string]engine.FamilyOptions{family: fo})
	if err != nil {
		return engine.Handle{}, err
	}
	return e.Family(family)
}
