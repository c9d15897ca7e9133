package table_test

import (
	"errors"
	"path/filepath"
	"testing"

	"seqtopic/pkg/engine"
	"seqtopic/pkg/engine/ldb"
	"seqtopic/pkg/table"
)

func openTestTable(t *testing.T) (*engine.Engine, *table.Table) {
	t.Helper()
	backend, err := ldb.Open(filepath.Join(t.TempDir(), "store.ldb"))
	if err != nil {
		t.Fatalf("ldb.Open: %v", err)
	}
	e, err := engine.Open(backend, map[string]engine.FamilyOptions{"widgets": engine.DefaultFamilyOptions()})
	if err != nil {
		t.Fatalf("engine.Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	tbl, err := table.Open(e, "widgets")
	if err != nil {
		t.Fatalf("table.Open: %v", err)
	}
	return e, tbl
}

func TestGetInsertRemoveContainsKey(t *testing.T) {
	_, tbl := openTestTable(t)

	if ok, err := tbl.ContainsKey([]byte("k")); err != nil || ok {
		t.Fatalf("ContainsKey before insert = %v, %v; want false, nil", ok, err)
	}
	if err := tbl.Insert([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if ok, err := tbl.ContainsKey([]byte("k")); err != nil || !ok {
		t.Fatalf("ContainsKey after insert = %v, %v; want true, nil", ok, err)
	}
	v, err := tbl.Get([]byte("k"))
	if err != nil || string(v) != "v" {
		t.Fatalf("Get = %q, %v; want v, nil", v, err)
	}
	if err := tbl.Remove([]byte("k")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ok, err := tbl.ContainsKey([]byte("k")); err != nil || ok {
		t.Fatalf("ContainsKey after remove = %v, %v; want false, nil", ok, err)
	}
}

func TestOpenUnknownFamilyFails(t *testing.T) {
	e, _ := openTestTable(t)
	if _, err := table.Open(e, "does-not-exist"); !errors.Is(err, engine.ErrFamilyNotFound) {
		t.Fatalf("Open(unknown) err = %v; want engine.ErrFamilyNotFound", err)
	}
}

func TestSnapshotViewIsolatedFromLiveWrites(t *testing.T) {
	_, tbl := openTestTable(t)
	if err := tbl.Insert([]byte("k"), []byte("v1")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	e := tbl.Engine()
	snap, err := e.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	defer snap.Release()
	view := tbl.Snapshot(snap)

	if err := tbl.Insert([]byte("k"), []byte("v2")); err != nil {
		t.Fatalf("Insert after snapshot: %v", err)
	}

	got, err := view.Get([]byte("k"))
	if err != nil || string(got) != "v1" {
		t.Fatalf("SnapshotView.Get = %q, %v; want v1, nil", got, err)
	}
}
