package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"duscan/config"
	"duscan/history"
	"duscan/logger"
	"duscan/scanner"
	"duscan/volume"
)

func TestFormatDelta(t *testing.T) {
	if got := formatDelta(1024, 2048); got != "+1.0 KiB" {
		t.Fatalf("growth delta = %q", got)
	}
	if got := formatDelta(2048, 1024); got != "-1.0 KiB" {
		t.Fatalf("shrink delta = %q", got)
	}
	if got := formatDelta(100, 100); got != "unchanged" {
		t.Fatalf("flat delta = %q", got)
	}
}

func TestPrintVolumes(t *testing.T) {
	var buf bytes.Buffer
	printVolumes(&buf, []volume.Volume{
		{Path: "/", Device: "/dev/sda1", Fstype: "ext4", Total: 1 << 30, Free: 1 << 29, Media: volume.MediaSSD},
	})
	out := buf.String()
	for _, want := range []string{"/dev/sda1", "ext4", "ssd", "1.0 GiB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("volume table missing %q:\n%s", want, out)
		}
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, []history.Entry{
		{Root: "/data", Status: "completed", TotalSize: 1 << 20, Files: 10, Dirs: 2, When: time.Now()},
	})
	out := buf.String()
	for _, want := range []string{"/data", "completed", "1.0 MiB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("history table missing %q:\n%s", want, out)
		}
	}
}

func TestRunHistoryCommandForget(t *testing.T) {
	logger.Init("error")

	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Put(history.Entry{Root: "/data", TotalSize: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}
	store.Close()

	cfg := &config.Config{HistoryFile: path, HistoryForget: "/data"}
	if err := runHistoryCommand(cfg); err != nil {
		t.Fatalf("forget: %v", err)
	}

	store, err = history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	if _, found, _ := store.Get("/data"); found {
		t.Fatal("entry survived forget")
	}
}

func TestHandleSignalEventCancelsSession(t *testing.T) {
	logger.Init("error")

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "f.bin"), make([]byte, 64), 0o644); err != nil {
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

	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	go func() {
		handleSignalEvent(sess, sigChan)
		close(done)
	}()

	sigChan <- syscall.SIGTERM

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("signal handler did not return")
	}

	res := sess.Wait()
	if res.Status != scanner.StatusCompleted && res.Status != scanner.StatusCancelled {
		t.Fatalf("unexpected terminal status: %v", res.Status)
	}
}

func TestPrintSummaryListsLargestEntries(t *testing.T) {
	root := t.TempDir()
	for name, size := range map[string]int{"big.bin": 4096, "small.bin": 16} {
		if err := os.WriteFile(filepath.Join(root, name), make([]byte, size), 0o644); err != nil {
			t.Fatalf("fixture: %v", err)
		}
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

	var buf bytes.Buffer
	printSummary(&buf, sess, res, 1)
	out := buf.String()
	if !strings.Contains(out, "big.bin") {
		t.Fatalf("summary missing largest entry:\n%s", out)
	}
	if strings.Contains(out, "small.bin") {
		t.Fatalf("summary should truncate to top entries:\n%s", out)
	}
	if !strings.Contains(out, "1 more entries") {
		t.Fatalf("summary missing truncation marker:\n%s", out)
	}
}
