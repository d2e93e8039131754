package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FocuswithJustin/excite/core/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history", "runs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(input string) Run {
	return Run{
		InputPath:      input,
		OutputPath:     input,
		InputHash:      "aaaa",
		OutputHash:     "bbbb",
		CitationStyle:  "square-brace",
		ReferenceStyle: "digit-dot",
		OrderPolicy:    "citation-first",
		Citations:      3,
		References:     2,
		Labels:         2,
	}
}

func TestRecordFillsIDAndTimestamp(t *testing.T) {
	store := openTestStore(t)

	run, err := store.Record(sampleRun("/tmp/a.pages"))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if run.ID == "" {
		t.Error("Record should assign an ID")
	}
	if run.CreatedAt.IsZero() {
		t.Error("Record should assign a timestamp")
	}
}

func TestRecordAndGet(t *testing.T) {
	store := openTestStore(t)

	in := sampleRun("/tmp/paper.pages")
	in.BackupPath = "/tmp/backups/paper.tar.xz"
	recorded, err := store.Record(in)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := store.Get(recorded.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.InputPath != in.InputPath || got.BackupPath != in.BackupPath {
		t.Errorf("Get returned %+v, want paths from %+v", got, in)
	}
	if got.Citations != 3 || got.References != 2 || got.Labels != 2 {
		t.Errorf("Get counts = %d/%d/%d, want 3/2/2", got.Citations, got.References, got.Labels)
	}
	if !got.CreatedAt.Equal(recorded.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, recorded.CreatedAt)
	}
}

func TestGetUnknownRun(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get("no-such-run")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Get unknown should wrap ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		run := sampleRun("/tmp/" + name + ".pages")
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := store.Record(run); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	runs, err := store.List(0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("List returned %d runs, want 3", len(runs))
	}
	if runs[0].InputPath != "/tmp/third.pages" || runs[2].InputPath != "/tmp/first.pages" {
		t.Errorf("List order wrong: %q then %q", runs[0].InputPath, runs[2].InputPath)
	}

	limited, err := store.List(2)
	if err != nil {
		t.Fatalf("List(2) failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d runs, want 2", len(limited))
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.xml")
	if err := os.WriteFile(path, []byte("<doc/>"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	h1, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}

	h2, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if h1 != h2 {
		t.Error("HashFile should be deterministic")
	}

	if err := os.WriteFile(path, []byte("<doc>changed</doc>"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	h3, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if h3 == h1 {
		t.Error("different content should hash differently")
	}

	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("HashFile should fail for a missing file")
	}
}
