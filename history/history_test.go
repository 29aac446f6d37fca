package history

import (
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openStore(t)

	entry := Entry{
		Root:      "/data",
		Status:    "completed",
		TotalSize: 123456,
		Files:     42,
		Dirs:      7,
		ElapsedMS: 1500,
		When:      time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := s.Put(entry); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, found, err := s.Get("/data")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found {
		t.Fatal("entry not found")
	}
	if got.TotalSize != entry.TotalSize || got.Files != entry.Files || !got.When.Equal(entry.When) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if _, found, _ := s.Get("/absent"); found {
		t.Fatal("unexpected entry for unknown root")
	}
}

func TestPutReplacesPriorEntry(t *testing.T) {
	s := openStore(t)

	if err := s.Put(Entry{Root: "/data", TotalSize: 100}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(Entry{Root: "/data", TotalSize: 200}); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, _, err := s.Get("/data")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalSize != 200 {
		t.Fatalf("expected replacement, got size %d", got.TotalSize)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
}

func TestDelete(t *testing.T) {
	s := openStore(t)
	if err := s.Put(Entry{Root: "/data", TotalSize: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete("/data"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, _ := s.Get("/data"); found {
		t.Fatal("entry survived deletion")
	}
}
