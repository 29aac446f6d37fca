// Package scanner walks a directory tree, aggregates sizes bottom-up,
// and adapts its concurrency to the storage medium: a bounded worker
// pool on flash, a single serial walker on spinning or unclassified
// media.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"duscan/config"
	"duscan/logger"
	"duscan/utils"
	"duscan/volume"

	"github.com/djherbis/times"
	"golang.org/x/time/rate"
)

type Status int32

const (
	StatusIdle Status = iota
	StatusRunning
	StatusCompleted
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the finalized (or partial, when cancelled) outcome of one
// scan session.
type Result struct {
	Root          *Node
	Status        Status
	TotalSize     uint64
	Files         int64
	Dirs          int64
	Errors        int64
	ElapsedMS     int64
	ThroughputBPS float64
}

// Scheduler resolves the media type and concurrency policy for a root
// path and launches scan sessions. Sessions are fully independent; the
// scheduler holds no per-scan state.
type Scheduler struct {
	cfg     *config.Config
	mediaFn func(string) volume.MediaType
}

func NewScheduler(cfg *config.Config) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		mediaFn: volume.MediaTypeFor,
	}
}

// Start launches a background scan of root and returns its session
// handle immediately.
func (s *Scheduler) Start(root string) (*Session, error) {
	return s.StartWithToken(root, NewToken())
}

// StartWithToken launches a scan observing an externally owned
// cancellation token.
func (s *Scheduler) StartWithToken(root string, token *Token) (*Session, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root unavailable: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	media, forced := volume.ParseMediaType(s.cfg.Media)
	if !forced {
		media = s.mediaFn(root)
	}

	workers := s.cfg.Workers
	if !s.cfg.WorkersSet || workers < 1 {
		limit := s.cfg.WorkerCap
		if limit < 1 {
			limit = DefaultWorkerCap
		}
		workers = Workers(media, runtime.NumCPU(), limit)
	}

	sess := &Session{
		root:       root,
		media:      media,
		workers:    workers,
		token:      token,
		reporter:   NewReporter(s.cfg.ProgressInterval),
		builder:    NewTreeBuilder(root),
		retries:    s.cfg.RetryCount,
		checkEvery: s.cfg.CancelCheckEvery,
		doneCh:     make(chan struct{}),
	}
	if sess.checkEvery < 1 {
		sess.checkEvery = 100
	}
	if s.cfg.MaxIOPerSecond > 0 {
		sess.limiter = rate.NewLimiter(rate.Limit(s.cfg.MaxIOPerSecond), s.cfg.MaxIOPerSecond)
	}
	if workers > 1 {
		// Spare slots beyond the goroutine that drives the root.
		sess.slots = make(chan struct{}, workers-1)
	}
	sess.status.Store(int32(StatusIdle))

	go sess.run()
	return sess, nil
}

// Session is one in-flight or finished scan. It owns its token,
// counters, and tree; concurrent sessions never share state.
type Session struct {
	root       string
	media      volume.MediaType
	workers    int
	retries    int
	checkEvery int

	token    *Token
	reporter *Reporter
	builder  *TreeBuilder
	limiter  *rate.Limiter

	status   atomic.Int32
	inflight atomic.Int64
	peak     atomic.Int64
	started  time.Time
	err      error
	result   *Result
	doneCh   chan struct{}

	// slots gates parallel directory expansion; nil means serial.
	slots chan struct{}
}

func (s *Session) run() {
	s.started = time.Now()
	s.status.CompareAndSwap(int32(StatusIdle), int32(StatusRunning))
	s.reporter.Start()
	logger.Debugf("Scanning %s: media=%s workers=%d", s.root, s.media, s.workers)

	s.enterWorker()
	fatal := s.scanDir(s.builder.Root())
	s.exitWorker()

	switch {
	case fatal != nil:
		logger.Errorf("Scan of %s failed: %v", s.root, fatal)
		s.err = fatal
		s.status.CompareAndSwap(int32(StatusRunning), int32(StatusFailed))
	case s.token.Cancelled():
		s.status.CompareAndSwap(int32(StatusRunning), int32(StatusCancelled))
	default:
		s.status.CompareAndSwap(int32(StatusRunning), int32(StatusCompleted))
	}

	final := s.reporter.Finish()
	root := s.builder.Root()
	s.result = &Result{
		Root:          root,
		Status:        s.Status(),
		TotalSize:     uint64(root.Size()),
		Files:         final.FilesScanned,
		Dirs:          final.DirsScanned,
		Errors:        final.Errors,
		ElapsedMS:     final.ElapsedMS,
		ThroughputBPS: final.ThroughputBPS,
	}
	close(s.doneCh)
}

// scanDir expands one directory and blocks until its whole subtree has
// settled. The returned error is non-nil only when the scan root
// itself cannot be listed; everything below the root degrades to a
// counted, skipped entry.
func (s *Session) scanDir(n *Node) error {
	if s.token.Cancelled() {
		return nil
	}
	s.reporter.SetCurrentPath(n.Path)

	entries, err := readDirRetry(n.Path, s.retries)
	if err != nil {
		if n.Parent() == nil {
			return err
		}
		logger.Debugf("Skipping %s: %v", n.Path, err)
		s.reporter.AddError()
		s.builder.Settle(n, false)
		return nil
	}

	var wg sync.WaitGroup
	cancelled := false
	for i, entry := range entries {
		if i%s.checkEvery == 0 && s.token.Cancelled() {
			cancelled = true
			break
		}

		mode := entry.Type()
		switch {
		case mode&fs.ModeSymlink != 0:
			// Links are never followed as directories, so filesystem
			// cycles cannot become graph cycles.
			continue
		case entry.IsDir():
			child := s.builder.NewChild(n, entry.Name(), KindDir, 0)
			s.reporter.AddDir()
			select {
			case s.slots <- struct{}{}:
				wg.Add(1)
				go func(c *Node) {
					defer wg.Done()
					defer func() { <-s.slots }()
					s.enterWorker()
					defer s.exitWorker()
					_ = s.scanDir(c)
				}(child)
			default:
				// Pool saturated (or serial policy): expand inline.
				_ = s.scanDir(child)
			}
		case mode.IsRegular():
			s.throttle()
			info, err := statRetry(entry, s.retries)
			if err != nil {
				logger.Debugf("Skipping %s: %v", filepath.Join(n.Path, entry.Name()), err)
				s.reporter.AddError()
				continue
			}
			child := s.builder.NewChild(n, entry.Name(), KindFile, info.Size())
			ts := times.Get(info)
			child.ModTime = ts.ModTime()
			child.AccessTime = ts.AccessTime()
			s.builder.Settle(child, true)
			s.reporter.AddFile(info.Size())
		default:
			// Sockets, devices, and pipes occupy no space worth counting.
			continue
		}
	}

	wg.Wait()
	if s.token.Cancelled() {
		cancelled = true
	}
	s.builder.Settle(n, !cancelled)
	return nil
}

func (s *Session) throttle() {
	if s.limiter == nil {
		return
	}
	_ = s.limiter.Wait(s.token.Context())
}

func (s *Session) enterWorker() {
	cur := s.inflight.Add(1)
	for {
		peak := s.peak.Load()
		if cur <= peak || s.peak.CompareAndSwap(peak, cur) {
			return
		}
	}
}

func (s *Session) exitWorker() {
	s.inflight.Add(-1)
}

// Cancel requests a cooperative stop. Idempotent.
func (s *Session) Cancel() {
	s.token.Cancel()
}

// Done is closed once the session reaches a terminal status.
func (s *Session) Done() <-chan struct{} {
	return s.doneCh
}

// Wait blocks until the session finishes and returns its result.
func (s *Session) Wait() *Result {
	<-s.doneCh
	return s.result
}

// Progress delivers periodic snapshots plus one final snapshot; the
// channel is closed when the session ends.
func (s *Session) Progress() <-chan Snapshot {
	return s.reporter.Snapshots()
}

func (s *Session) Status() Status {
	return Status(s.status.Load())
}

func (s *Session) Root() *Node {
	return s.builder.Root()
}

func (s *Session) Media() volume.MediaType {
	return s.media
}

// Workers is the policy-selected worker bound for this session.
func (s *Session) Workers() int {
	return s.workers
}

// ProgressCount returns the monotonic count of processed entries, a
// stall-detection signal.
func (s *Session) ProgressCount() int64 {
	return s.reporter.Count()
}

// PeakWorkers reports the highest number of concurrently running
// expansion workers observed.
func (s *Session) PeakWorkers() int64 {
	return s.peak.Load()
}

// Err is the fatal error for a failed session, nil otherwise.
func (s *Session) Err() error {
	return s.err
}

// UpdateAfterDeletion reflects an out-of-band deletion in the settled
// tree. Valid only on a terminal session and for nodes inside the scan
// root.
func (s *Session) UpdateAfterDeletion(n *Node) error {
	switch s.Status() {
	case StatusCompleted, StatusCancelled:
	default:
		return fmt.Errorf("session is %s; tree not available for mutation", s.Status())
	}
	if !utils.IsPathWithin(n.Path, s.root) {
		return fmt.Errorf("node %s is outside scan root %s", n.Path, s.root)
	}
	return s.builder.UpdateAfterDeletion(n)
}
