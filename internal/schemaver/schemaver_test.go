package schemaver_test

import (
	"path/filepath"
	"testing"

	"seqtopic/internal/schemaver"
	"seqtopic/pkg/engine"
	"seqtopic/pkg/engine/ldb"
)

func openEngine(t *testing.T) *engine.Engine {
	t.Helper()
	backend, err := ldb.Open(filepath.Join(t.TempDir(), "store.ldb"))
	if err != nil {
		t.Fatalf("ldb.Open: %v", err)
	}
	e, err := engine.Open(backend, map[string]engine.FamilyOptions{
		schemaver.MetaFamily: engine.DefaultFamilyOptions(),
	})
	if err != nil {
		t.Fatalf("engine.Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestFreshStoreIsStampedDirectly(t *testing.T) {
	e := openEngine(t)
	want := schemaver.Semver{2, 0, 0}
	if err := schemaver.EnsureVersion(e, schemaver.DefaultProvider{}, want, nil); err != nil {
		t.Fatalf("EnsureVersion: %v", err)
	}
	got, ok, err := (schemaver.DefaultProvider{}).GetVersion(e)
	if err != nil || !ok || got.Compare(want) != 0 {
		t.Fatalf("GetVersion = %s, %v, %v; want %s, true, nil", got, ok, err, want)
	}
}

func TestNewerStoredVersionIsRejected(t *testing.T) {
	e := openEngine(t)
	if err := (schemaver.DefaultProvider{}).SetVersion(e, schemaver.Semver{3, 0, 0}); err != nil {
		t.Fatalf("SetVersion: %v", err)
	}
	err := schemaver.EnsureVersion(e, schemaver.DefaultProvider{}, schemaver.Semver{2, 0, 0}, nil)
	if err == nil {
		t.Fatal("expected EnsureVersion to reject a stored version newer than what this binary wants")
	}
}

func TestMigrationIsAppliedInOrder(t *testing.T) {
	e := openEngine(t)
	if err := (schemaver.DefaultProvider{}).SetVersion(e, schemaver.Semver{1, 0, 0}); err != nil {
		t.Fatalf("SetVersion: %v", err)
	}
	applied := []schemaver.Semver{}
	migrations := []schemaver.Migration{
		func(e *engine.Engine) (schemaver.Semver, error) {
			v := schemaver.Semver{1, 1, 0}
			applied = append(applied, v)
			return v, nil
		},
		func(e *engine.Engine) (schemaver.Semver, error) {
			v := schemaver.Semver{2, 0, 0}
			applied = append(applied, v)
			return v, nil
		},
	}
	want := schemaver.Semver{2, 0, 0}
	if err := schemaver.EnsureVersion(e, schemaver.DefaultProvider{}, want, migrations); err != nil {
		t.Fatalf("EnsureVersion: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("applied %d migrations, want 2", len(applied))
	}
	got, ok, err := (schemaver.DefaultProvider{}).GetVersion(e)
	if err != nil || !ok || got.Compare(want) != 0 {
		t.Fatalf("GetVersion = %s, %v, %v; want %s, true, nil", got, ok, err, want)
	}
}
