package kvfile_test

import (
	"path/filepath"
	"testing"

	"seqtopic/pkg/engine"
	"seqtopic/pkg/engine/enginetest"
	"seqtopic/pkg/engine/kvfile"
)

func openTestBackend(t *testing.T) *kvfile.Backend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.kv")
	b, err := kvfile.Open(path)
	if err != nil {
		t.Fatalf("kvfile.Open: %v", err)
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

func TestReopenPreservesFamilies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.kv")
	b, err := kvfile.Open(path)
	if err != nil {
		t.Fatalf("kvfile.Open: %v", err)
	}
	if err := b.EnsureFamilies(map[string]engine.FamilyOptions{"a": engine.DefaultFamilyOptions(), "b": engine.DefaultFamilyOptions()}); err != nil {
		t.Fatalf("EnsureFamilies: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	names, err := kvfile.ListFamilies(path)
	if err != nil {
		t.Fatalf("ListFamilies: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("ListFamilies = %v, want 2 entries", names)
	}

	b2, err := kvfile.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b2.Close()
	if got := len(b2.Families()); got != 2 {
		t.Fatalf("after reopen, Families() has %d entries, want 2", got)
	}
}
