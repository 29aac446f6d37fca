package scanner

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is one progress observation. A final snapshot additionally
// carries the throughput over the whole scan.
type Snapshot struct {
	FilesScanned  int64
	DirsScanned   int64
	BytesTotal    uint64
	CurrentPath   string
	Errors        int64
	ElapsedMS     int64
	Final         bool
	ThroughputBPS float64
}

// Reporter aggregates counters from any number of workers and emits
// snapshots at a fixed wall-clock cadence, decoupled from scan speed.
// Counter updates are independent atomics; no worker ever blocks on a
// slow consumer, periodic snapshots are dropped instead.
type Reporter struct {
	files  atomic.Int64
	dirs   atomic.Int64
	bytes  atomic.Uint64
	errors atomic.Int64

	current atomic.Value // string

	interval time.Duration
	ch       chan Snapshot
	started  time.Time

	stopOnce sync.Once
	stop     chan struct{}
	loopDone chan struct{}
}

func NewReporter(interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	r := &Reporter{
		interval: interval,
		ch:       make(chan Snapshot, 16),
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	r.current.Store("")
	return r
}

// Start begins periodic emission.
func (r *Reporter) Start() {
	r.started = time.Now()
	go r.loop()
}

func (r *Reporter) loop() {
	defer close(r.loopDone)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			select {
			case r.ch <- r.snapshot(false):
			default:
				// Consumer is behind; drop rather than stall workers.
			}
		}
	}
}

func (r *Reporter) AddFile(size int64) {
	r.files.Add(1)
	if size > 0 {
		r.bytes.Add(uint64(size))
	}
}

func (r *Reporter) AddDir() {
	r.dirs.Add(1)
}

func (r *Reporter) AddError() {
	r.errors.Add(1)
}

func (r *Reporter) SetCurrentPath(path string) {
	r.current.Store(path)
}

// Count returns files+dirs scanned, a monotonic progress signal for
// stall detection.
func (r *Reporter) Count() int64 {
	return r.files.Load() + r.dirs.Load()
}

// Snapshots is the consumer side. Closed after the final snapshot.
func (r *Reporter) Snapshots() <-chan Snapshot {
	return r.ch
}

// Finish stops periodic emission, queues one final snapshot carrying
// the throughput, closes the channel, and returns that snapshot. The
// channel never closes without the final snapshot: when the buffer is
// full of unconsumed periodic snapshots, stale ones are evicted to
// make room.
func (r *Reporter) Finish() Snapshot {
	final := r.snapshot(true)
	r.stopOnce.Do(func() {
		close(r.stop)
		<-r.loopDone
		// The emit loop has stopped, so nothing else sends; each pass
		// either lands the final snapshot or evicts a stale one.
		for {
			select {
			case r.ch <- final:
				close(r.ch)
				return
			default:
			}
			select {
			case <-r.ch:
			default:
			}
		}
	})
	return final
}

func (r *Reporter) snapshot(final bool) Snapshot {
	elapsed := time.Since(r.started)
	s := Snapshot{
		FilesScanned: r.files.Load(),
		DirsScanned:  r.dirs.Load(),
		BytesTotal:   r.bytes.Load(),
		CurrentPath:  r.current.Load().(string),
		Errors:       r.errors.Load(),
		ElapsedMS:    elapsed.Milliseconds(),
		Final:        final,
	}
	if final && elapsed > 0 {
		s.ThroughputBPS = float64(s.BytesTotal) / elapsed.Seconds()
	}
	return s
}
