package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"duscan/config"
	"duscan/diag"
	"duscan/history"
	"duscan/logger"
	"duscan/output"
	"duscan/scanner"
	"duscan/volume"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	if cfg.ListVolumes {
		volumes, err := volume.List()
		if err != nil {
			logger.Fatalf("Failed to enumerate volumes: %v", err)
		}
		printVolumes(os.Stdout, volumes)
		return
	}
	if cfg.HistoryList || cfg.HistoryForget != "" {
		if err := runHistoryCommand(cfg); err != nil {
			logger.Fatalf("%v", err)
		}
		return
	}

	if abs, err := filepath.Abs(cfg.RootPath); err == nil {
		if v, ok := volume.Find(abs); ok {
			logger.Infof("Volume %s: %s %s, %s free of %s",
				v.Path, v.Device, v.Fstype, humanize.IBytes(v.Free), humanize.IBytes(v.Total))
		}
	}

	sess, err := scanner.NewScheduler(cfg).Start(cfg.RootPath)
	if err != nil {
		logger.Fatalf("Failed to start scan: %v", err)
	}
	logger.Infof("Scanning %s (media=%s, workers=%d)", cfg.RootPath, sess.Media(), sess.Workers())

	go handleSignalEvent(sess, newSignalChannel())

	diagCtx, stopDiag := context.WithCancel(context.Background())
	watchdog := diag.NewController(diag.Options{
		StallThreshold: cfg.DiagStallDump,
		Dir:            cfg.DiagDir,
		GoroutineLeak:  cfg.DiagGoroutineLeak,
		ProgressFn:     sess.ProgressCount,
	})
	watchdog.Start(diagCtx)
	defer func() {
		stopDiag()
		watchdog.Close()
	}()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Scanning"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetVisibility(progressVisible()),
		progressbar.OptionFullWidth(),
	)
	for snap := range sess.Progress() {
		bar.Describe(fmt.Sprintf("Scanning %s (%d files, %d errors)",
			humanize.IBytes(snap.BytesTotal), snap.FilesScanned, snap.Errors))
		_ = bar.Set64(snap.FilesScanned + snap.DirsScanned)
	}
	_ = bar.Clear()

	res := sess.Wait()
	printSummary(os.Stdout, sess, res, cfg.TopEntries)

	if cfg.HistoryFile != "" {
		recordHistory(cfg.HistoryFile, res)
	}
	if cfg.OutputFile != "" {
		if err := output.Write(cfg.OutputFile, output.NewDocument(sess, res)); err != nil {
			logger.Errorf("Failed to write scan result: %v", err)
		} else {
			logger.Infof("Scan result written to %s", cfg.OutputFile)
		}
	}

	if res.Status == scanner.StatusFailed {
		logger.Fatalf("Scan failed: %v", sess.Err())
	}
}

func newSignalChannel() chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	return sigChan
}

func handleSignalEvent(sess *scanner.Session, sigChan <-chan os.Signal) {
	select {
	case <-sigChan:
		logger.Info("Interrupt received. Cancelling scan...")
		sess.Cancel()
	case <-sess.Done():
	}
}

func printVolumes(w io.Writer, volumes []volume.Volume) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MOUNT\tDEVICE\tFS\tTOTAL\tFREE\tMEDIA")
	for _, v := range volumes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.Path, v.Device, v.Fstype,
			humanize.IBytes(v.Total), humanize.IBytes(v.Free), v.Media)
	}
	tw.Flush()
}

func printSummary(w io.Writer, sess *scanner.Session, res *scanner.Result, top int) {
	fmt.Fprintf(w, "\n%s: %s in %d files, %d dirs (%s, %d errors)\n",
		res.Root.Path, humanize.IBytes(res.TotalSize), res.Files, res.Dirs,
		res.Status, res.Errors)
	fmt.Fprintf(w, "Scanned in %s at %s/s\n",
		time.Duration(res.ElapsedMS)*time.Millisecond,
		humanize.IBytes(uint64(res.ThroughputBPS)))

	children := res.Root.Children()
	if len(children) > top {
		children = children[:top]
	}
	for _, c := range children {
		marker := ""
		if c.Kind == scanner.KindDir {
			marker = string(os.PathSeparator)
		}
		fmt.Fprintf(w, "  %10s  %s%s\n", humanize.IBytes(uint64(c.Size())), c.Name, marker)
	}
	if rest := len(res.Root.Children()) - top; rest > 0 {
		fmt.Fprintf(w, "  ... and %d more entries\n", rest)
	}
}

func runHistoryCommand(cfg *config.Config) error {
	store, err := history.Open(cfg.HistoryFile)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.HistoryForget != "" {
		if err := store.Delete(cfg.HistoryForget); err != nil {
			return fmt.Errorf("failed to forget %s: %w", cfg.HistoryForget, err)
		}
		logger.Infof("Removed history entry for %s", cfg.HistoryForget)
		return nil
	}

	entries, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list scan history: %w", err)
	}
	printHistory(os.Stdout, entries)
	return nil
}

func printHistory(w io.Writer, entries []history.Entry) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROOT\tWHEN\tSTATUS\tSIZE\tFILES\tDIRS\tERRORS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			e.Root, humanize.Time(e.When), e.Status, humanize.IBytes(e.TotalSize),
			e.Files, e.Dirs, e.Errors)
	}
	tw.Flush()
}

func recordHistory(path string, res *scanner.Result) {
	store, err := history.Open(path)
	if err != nil {
		logger.Warnf("Scan history unavailable: %v", err)
		return
	}
	defer store.Close()

	if prev, found, err := store.Get(res.Root.Path); err != nil {
		logger.Warnf("Failed to read scan history: %v", err)
	} else if found {
		logger.Infof("Previous scan %s: %s (%s)",
			humanize.Time(prev.When), humanize.IBytes(prev.TotalSize),
			formatDelta(prev.TotalSize, res.TotalSize))
	}

	err = store.Put(history.Entry{
		Root:      res.Root.Path,
		Status:    res.Status.String(),
		TotalSize: res.TotalSize,
		Files:     res.Files,
		Dirs:      res.Dirs,
		Errors:    res.Errors,
		ElapsedMS: res.ElapsedMS,
		When:      time.Now().UTC(),
	})
	if err != nil {
		logger.Warnf("Failed to record scan history: %v", err)
	}
}

// formatDelta renders the growth between two scans of the same root.
func formatDelta(prev, cur uint64) string {
	switch {
	case cur > prev:
		return "+" + humanize.IBytes(cur-prev)
	case cur < prev:
		return "-" + humanize.IBytes(prev-cur)
	default:
		return "unchanged"
	}
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("DUSCAN_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}
