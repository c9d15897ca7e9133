package topic_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"seqtopic/pkg/engine"
	"seqtopic/pkg/engine/ldb"
	"seqtopic/pkg/storebuilder"
	"seqtopic/pkg/table"
	"seqtopic/pkg/topic"
)

func openTopic(t *testing.T, path string) (*engine.Engine, *topic.Topic) {
	t.Helper()
	backend, err := ldb.Open(path)
	if err != nil {
		t.Fatalf("ldb.Open: %v", err)
	}
	b := storebuilder.New(backend).WithTable("my-topic", engine.DefaultFamilyOptions())
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tbl, err := table.Open(e, "my-topic")
	if err != nil {
		t.Fatalf("table.Open: %v", err)
	}
	tp, err := topic.Open(tbl)
	if err != nil {
		t.Fatalf("topic.Open: %v", err)
	}
	return e, tp
}

func TestBasicAppendAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.ldb")
	e, tp := openTopic(t, path)
	defer e.Close()

	var firstID, lastID string
	for i := 0; i < 101; i++ {
		payload := []byte(fmt.Sprintf("topic-value-%d", i))
		rec, err := tp.Append(payload)
		if err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
		if !rec.IsValid() {
			t.Fatalf("Append(%d) returned an invalid record", i)
		}
		if rec.Size() != len(payload) {
			t.Fatalf("Append(%d).Size() = %d, want %d", i, rec.Size(), len(payload))
		}
		if i == 0 {
			firstID = rec.Key.String()
		}
		lastID = rec.Key.String()
	}
	if firstID == lastID {
		t.Fatalf("first and last appended records share the same id %q", firstID)
	}
	if err := tp.Flush(true); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	tbl := tp.Table()
	it := tbl.PrefixIterator([]byte("topic:"))
	defer it.Close()

	count := 0
	for it.Next() {
		count++
	}
	if count != 101 {
		t.Fatalf("got %d records, want 101", count)
	}
}

func TestAppendReportsIdBeforeFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.ldb")
	e, tp := openTopic(t, path)
	defer e.Close()

	rec1, err := tp.Append([]byte("a"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	rec2, err := tp.Append([]byte("b"))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !rec1.Key.Less(rec2.Key) {
		t.Fatalf("rec1.Key=%s is not less than rec2.Key=%s before any flush", rec1.Key, rec2.Key)
	}

	if err := tp.Flush(true); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got, err := tp.Table().Get(rec1.Key.Bytes())
	if err != nil || string(got) != "a" {
		t.Fatalf("Get(rec1.Key) = %q, %v; want \"a\", nil", got, err)
	}
	got, err = tp.Table().Get(rec2.Key.Bytes())
	if err != nil || string(got) != "b" {
		t.Fatalf("Get(rec2.Key) = %q, %v; want \"b\", nil", got, err)
	}
}

func TestDurableResumeAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.ldb")

	func() {
		e, tp := openTopic(t, path)
		defer e.Close()
		for i := 0; i < 100; i++ {
			if _, err := tp.Append([]byte(fmt.Sprintf("v%d", i))); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}
		if err := tp.Flush(true); err != nil {
			t.Fatalf("Flush: %v", err)
		}
	}()

	e, tp := openTopic(t, path)
	defer e.Close()

	tbl := tp.Table()
	it := tbl.PrefixIterator([]byte("topic:"))
	count := 0
	for it.Next() {
		count++
	}
	it.Close()
	if count != 100 {
		t.Fatalf("after reopen, got %d records, want 100", count)
	}

	if _, err := tp.Append([]byte("v100")); err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}
	if err := tp.Flush(true); err != nil {
		t.Fatalf("Flush after reopen: %v", err)
	}

	it2 := tbl.PrefixIterator([]byte("topic:"))
	defer it2.Close()
	count2 := 0
	for it2.Next() {
		count2++
	}
	if count2 != 101 {
		t.Fatalf("after resumed append, got %d records, want 101 (ids must not collide)", count2)
	}
}
