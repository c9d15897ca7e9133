// Package schemaver is the migration/version gate, grounded on
// original_source/src/builder.rs's VersionProvider trait and
// DefaultVersionProvider: a 3-byte semver stored under a well-known
// key in a reserved family, checked (and optionally migrated) once at
// open time.
package schemaver

import (
	"fmt"

	"seqtopic/pkg/engine"
)

// Semver is the simplest stored version: three raw bytes
// (major, minor, patch), matching builder.rs's `type Semver = [u8; 3]`.
type Semver [3]byte

func (s Semver) String() string {
	return fmt.Sprintf("%d.%d.%d", s[0], s[1], s[2])
}

// Compare returns -1, 0, 1 as s sorts before, equal to, or after o.
func (s Semver) Compare(o Semver) int {
	for i := range s {
		if s[i] != o[i] {
			if s[i] < o[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// VersionError reports that the version stamped on a store cannot be
// reconciled with the version a binary wants, either because the
// stored version is newer than any migration this binary knows, or
// because applying every known migration did not land on the wanted
// version. Satisfies spec.md §7's VersionError kind.
type VersionError struct {
	Stored, Want Semver
	Reason       string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("schemaver: %s (stored %s, want %s)", e.Reason, e.Stored, e.Want)
}

// Provider reads and writes the schema version stamped on a store.
// DefaultProvider is the only implementation this module ships, but
// the interface lets pkg/storebuilder accept a caller-supplied one for
// stores that keep their version somewhere other than the metadata
// family.
type Provider interface {
	GetVersion(e *engine.Engine) (Semver, bool, error)
	SetVersion(e *engine.Engine, v Semver) error
}

// MetaFamily is the reserved family DefaultProvider reads and writes,
// the counterpart of builder.rs's "default" column family.
const MetaFamily = "\x00schema"

const versionKey = "weedb_version"

// DefaultProvider stores the version under versionKey in MetaFamily,
// mirroring DefaultVersionProvider.
type DefaultProvider struct{}

// GetVersion mirrors DefaultVersionProvider::get_version. The second
// return value is false if no version has ever been set (a fresh
// store).
func (DefaultProvider) GetVersion(e *engine.Engine) (Semver, bool, error) {
	h, err := e.Family(MetaFamily)
	if err != nil {
		return Semver{}, false, err
	}
	raw, err := e.Get(h, []byte(versionKey))
	if err == engine.ErrNotFound {
		return Semver{}, false, nil
	}
	if err != nil {
		return Semver{}, false, err
	}
	if len(raw) != 3 {
		return Semver{}, false, fmt.Errorf("schemaver: stored version has %d bytes, want 3", len(raw))
	}
	return Semver{raw[0], raw[1], raw[2]}, true, nil
}

// SetVersion mirrors DefaultVersionProvider::set_version.
func (DefaultProvider) SetVersion(e *engine.Engine, v Semver) error {
	h, err := e.Family(MetaFamily)
	if err != nil {
		return err
	}
	return e.Put(h, []byte(versionKey), v[:])
}

// Migration upgrades a store from whatever version it is currently at
// to a newer one, the Go counterpart of builder.rs's
// `type Migration = Box<dyn Fn(&StructDB) -> Result<Semver, Error>>`.
type Migration func(e *engine.Engine) (Semver, error)

// EnsureVersion applies the gate: if the store has no stored version,
// it is stamped with want directly (a fresh store needs no migration).
// If it has an older version, every migration in order is applied and
// the result is checked to match want; mismatches and migration
// failures are returned as errors rather than silently accepted.
func EnsureVersion(e *engine.Engine, p Provider, want Semver, migrations []Migration) error {
	cur, ok, err := p.GetVersion(e)
	if err != nil {
		return err
	}
	if !ok {
		return p.SetVersion(e, want)
	}
	if cur.Compare(want) == 0 {
		return nil
	}
	if cur.Compare(want) > 0 {
		return &VersionError{Stored: cur, Want: want, Reason: "stored version is newer than this binary knows how to read"}
	}
	got := cur
	for _, m := range migrations {
		got, err = m(e)
		if err != nil {
			return fmt.Errorf("schemaver: migration from %s failed: %w", cur, err)
		}
	}
	if got.Compare(want) != 0 {
		return &VersionError{Stored: got, Want: want, Reason: "migrations did not produce the wanted version"}
	}
	return p.SetVersion(e, want)
}
