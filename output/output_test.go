package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"duscan/config"
	"duscan/scanner"
)

func TestWriteDocument(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.bin"), make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	cfg := &config.Config{
		Media:            "hdd",
		WorkerCap:        16,
		ProgressInterval: 10 * time.Millisecond,
		CancelCheckEvery: 100,
	}
	sess, err := scanner.NewScheduler(cfg).Start(root)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	res := sess.Wait()

	path := filepath.Join(t.TempDir(), "result.json")
	if err := Write(path, NewDocument(sess, res)); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var doc struct {
		Summary Summary `json:"summary"`
		Tree    struct {
			Kind     string `json:"kind"`
			Size     int64  `json:"size"`
			Children []struct {
				Name string `json:"name"`
				Size int64  `json:"size"`
			} `json:"children"`
		} `json:"tree"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if doc.Summary.SchemaVersion != SchemaVersion {
		t.Fatalf("schema version = %q", doc.Summary.SchemaVersion)
	}
	if doc.Summary.Status != "completed" || doc.Summary.TotalSize != 2048 {
		t.Fatalf("unexpected summary: %+v", doc.Summary)
	}
	if doc.Summary.MediaType != "hdd" || doc.Summary.Workers != 1 {
		t.Fatalf("policy not recorded: %+v", doc.Summary)
	}
	if doc.Tree.Kind != "dir" || doc.Tree.Size != 2048 || len(doc.Tree.Children) != 1 {
		t.Fatalf("unexpected tree: %+v", doc.Tree)
	}
}

func TestWriteToUnwritablePath(t *testing.T) {
	doc := &Document{}
	if err := Write(filepath.Join(t.TempDir(), "missing", "out.json"), doc); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
