// Package table binds a typed, single-family view over an
// *engine.Engine, grounded on original_source/src/table.rs's
// TableImpl<T>: a column-family handle plus a cached read/write option
// bundle, with get/insert/remove/contains_key/iterator/prefix_iterator
// all forwarding through that one family. Unlike TableImpl<T>'s
// compile-time Table trait (Rust associated consts), Table here is
// parameterized by an ordinary runtime name — Go has no const generics
// to mirror T::NAME with, and every caller in this module already
// knows its family name as a plain string (pkg/topic, pkg/storebuilder).
package table

import (
	"seqtopic/pkg/engine"
)

// Table is a typed handle over one declared engine family.
type Table struct {
	e *engine.Engine
	h engine.Handle
}

// Open resolves name against e's declared families, mirroring
// TableImpl::new's db.cf_handle(T::NAME).unwrap() — an unknown name is
// a caller bug, not a recoverable runtime condition, so it is
// surfaced as an error rather than a panic only because this module's
// ambient error-handling convention (pkg/errors-wrapped returns)
// prefers that over Rust's .unwrap().
func Open(e *engine.Engine, name string) (*Table, error) {
	h, err := e.Family(name)
	if err != nil {
		return nil, err
	}
	return &Table{e: e, h: h}, nil
}

// Name returns the family name this Table is bound to.
func (t *Table) Name() string { return t.h.Name() }

// Handle exposes the underlying engine.Handle for callers (pkg/topic,
// pkg/topiciter) that need to build a Snapshot-scoped view.
func (t *Table) Handle() engine.Handle { return t.h }

// Engine exposes the underlying *engine.Engine, for callers (pkg/topic)
// that need to build a cross-key atomic batch against this table's
// family rather than go through the single-key Get/Insert/Remove path.
func (t *Table) Engine() *engine.Engine { return t.e }

// Get mirrors TableImpl::get.
func (t *Table) Get(key []byte) ([]byte, error) {
	return t.e.Get(t.h, key)
}

// Insert mirrors TableImpl::insert.
func (t *Table) Insert(key, value []byte) error {
	return t.e.Put(t.h, key, value)
}

// Remove mirrors TableImpl::remove.
func (t *Table) Remove(key []byte) error {
	return t.e.Delete(t.h, key)
}

// ContainsKey mirrors TableImpl::contains_key.
func (t *Table) ContainsKey(key []byte) (bool, error) {
	_, err := t.Get(key)
	if err == engine.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Iterator returns a forward iterator over this family starting at
// start (inclusive), mirroring TableImpl::iterator.
func (t *Table) Iterator(start []byte) engine.Iterator {
	return t.e.Iterator(t.h, start)
}

// PrefixIterator returns a forward iterator seeked to prefix, mirroring
// TableImpl::prefix_iterator's set_prefix_same_as_start(true) policy:
// Next stops yielding once the key no longer carries prefix.
func (t *Table) PrefixIterator(prefix []byte) engine.Iterator {
	return t.e.PrefixIterator(t.h, prefix)
}

// RawIterator returns a forward iterator over the whole family,
// mirroring TableImpl::raw_iterator.
func (t *Table) RawIterator() engine.Iterator {
	return t.e.Iterator(t.h, nil)
}

// SnapshotView binds this family against a previously acquired
// engine.Snapshot rather than the live engine, used by pkg/topiciter
// to give a window iterator a consistent view across several calls.
type SnapshotView struct {
	snap engine.Snapshot
	h    engine.Handle
}

// Snapshot returns a SnapshotView of this table's family pinned to
// snap.
func (t *Table) Snapshot(snap engine.Snapshot) SnapshotView {
	return SnapshotView{snap: snap, h: t.h}
}

func (v SnapshotView) Get(key []byte) ([]byte, error) {
	return v.snap.Get(v.h, key)
}

func (v SnapshotView) Iterator(start []byte) engine.Iterator {
	return v.snap.Iterator(v.h, start)
}

func (v SnapshotView) PrefixIterator(prefix []byte) engine.Iterator {
	return v.snap.PrefixIterator(v.h, prefix)
}
