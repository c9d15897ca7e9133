package storebuilder_test

import (
	"path/filepath"
	"testing"

	"seqtopic/internal/schemaver"
	"seqtopic/pkg/engine"
	"seqtopic/pkg/engine/ldb"
	"seqtopic/pkg/storebuilder"
)

func TestBuildDeclaresFamilies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.ldb")
	backend, err := ldb.Open(path)
	if err != nil {
		t.Fatalf("ldb.Open: %v", err)
	}
	e, err := storebuilder.New(backend).
		WithTable("a", engine.DefaultFamilyOptions()).
		WithTable("b", engine.DefaultFamilyOptions()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()

	if _, err := e.Family("a"); err != nil {
		t.Errorf("Family(a): %v", err)
	}
	if _, err := e.Family("b"); err != nil {
		t.Errorf("Family(b): %v", err)
	}
}

func TestBuildAppliesVersionGate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.ldb")
	backend, err := ldb.Open(path)
	if err != nil {
		t.Fatalf("ldb.Open: %v", err)
	}
	want := schemaver.Semver{1, 0, 0}
	e, err := storebuilder.New(backend).
		WithTable("a", engine.DefaultFamilyOptions()).
		WithVersion(want).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	got, ok, err := (schemaver.DefaultProvider{}).GetVersion(e)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if !ok || got.Compare(want) != 0 {
		t.Fatalf("GetVersion = %s, %v; want %s, true", got, ok, want)
	}
	e.Close()

	backend2, err := ldb.Open(path)
	if err != nil {
		t.Fatalf("reopen ldb.Open: %v", err)
	}
	e2, err := storebuilder.New(backend2).
		WithTable("a", engine.DefaultFamilyOptions()).
		WithVersion(want).
		Build()
	if err != nil {
		t.Fatalf("reopen Build with matching version: %v", err)
	}
	e2.Close()
}

func TestBuildAllAdoptsExistingFamilies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.ldb")
	backend, err := ldb.Open(path)
	if err != nil {
		t.Fatalf("ldb.Open: %v", err)
	}
	e, err := storebuilder.New(backend).
		WithTable("a", engine.DefaultFamilyOptions()).
		WithTable("b", engine.DefaultFamilyOptions()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	e.Close()

	backend2, err := ldb.Open(path)
	if err != nil {
		t.Fatalf("reopen ldb.Open: %v", err)
	}
	e2, tables, err := storebuilder.BuildAll(backend2)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	defer e2.Close()

	if len(tables) < 2 {
		t.Fatalf("BuildAll adopted %d tables, want at least 2", len(tables))
	}
	if _, ok := tables["a"]; !ok {
		t.Error("BuildAll did not adopt family \"a\"")
	}
	if _, ok := tables["b"]; !ok {
		t.Error("BuildAll did not adopt family \"b\"")
	}
}
