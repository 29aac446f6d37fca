package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"duscan/version"
)

type Config struct {
	RootPath          string        `json:"root_path"`
	ListVolumes       bool          `json:"list_volumes"`
	Workers           int           `json:"workers"`
	WorkerCap         int           `json:"worker_cap"`
	Media             string        `json:"media"`
	ProgressInterval  time.Duration `json:"progress_interval"`
	CancelCheckEvery  int           `json:"cancel_check_every"`
	RetryCount        int           `json:"retry_count"`
	MaxIOPerSecond    int           `json:"max_io_per_second"`
	LogLevel          string        `json:"log_level"`
	OutputFile        string        `json:"output_file"`
	HistoryFile       string        `json:"history_file"`
	HistoryList       bool          `json:"-"`
	HistoryForget     string        `json:"-"`
	TopEntries        int           `json:"top_entries"`
	DiagStallDump     time.Duration `json:"diag_stall_dump"`
	DiagDir           string        `json:"diag_dir"`
	DiagGoroutineLeak bool          `json:"diag_goroutine_leak"`
	ConfigFile        string        `json:"-"`
	WorkersSet        bool          `json:"-"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		RootPath:         ".",
		Workers:          0,
		WorkerCap:        16,
		Media:            "auto",
		ProgressInterval: 100 * time.Millisecond,
		CancelCheckEvery: 100,
		RetryCount:       1,
		MaxIOPerSecond:   0,
		LogLevel:         "info",
		TopEntries:       15,
		DiagStallDump:    0,
		DiagDir:          ".",
	}

	rootPath := flag.String("path", cfg.RootPath, fmt.Sprintf("Directory to scan (default: %s).", cfg.RootPath))
	listVolumes := flag.Bool("volumes", cfg.ListVolumes, "List mounted volumes with capacity and media type, then exit.")
	workers := flag.Int("workers", cfg.Workers, "Worker count override. 0 selects by media type (default: 0).")
	workerCap := flag.Int("worker-cap", cfg.WorkerCap, fmt.Sprintf("Upper bound on parallel workers for solid-state media (default: %d).", cfg.WorkerCap))
	media := flag.String("media", cfg.Media, "Media type override: auto, ssd, or hdd (default: auto).")
	progressInterval := flag.Duration("progress-interval", cfg.ProgressInterval, "Progress snapshot cadence (default: 100ms).")
	cancelCheckEvery := flag.Int("cancel-check-every", cfg.CancelCheckEvery, fmt.Sprintf("Entries processed between cancellation checks within a directory (default: %d).", cfg.CancelCheckEvery))
	retryCount := flag.Int("retry-count", cfg.RetryCount, fmt.Sprintf("Retries for transient I/O errors before skipping an entry (default: %d).", cfg.RetryCount))
	maxIO := flag.Int("max-io-per-second", cfg.MaxIOPerSecond, "Maximum filesystem operations per second, 0 for unlimited (default: 0).")
	logLevel := flag.String("log-level", cfg.LogLevel, fmt.Sprintf("Log level: debug, info, warn, error, fatal, or panic (default: %s).", cfg.LogLevel))
	outputFile := flag.String("output", cfg.OutputFile, "Write the scan result as JSON to this file (default: none).")
	historyFile := flag.String("history-file", cfg.HistoryFile, "Path to the scan history database (default: none, history disabled).")
	historyList := flag.Bool("history-list", cfg.HistoryList, "List recorded scans from the history database, then exit.")
	historyForget := flag.String("history-forget", cfg.HistoryForget, "Remove the history entry for this root path, then exit.")
	topEntries := flag.Int("top", cfg.TopEntries, fmt.Sprintf("Number of largest entries to print per level (default: %d).", cfg.TopEntries))
	diagStallDump := flag.Duration("diag-stall-dump", cfg.DiagStallDump, "If positive, emit diagnostics when scan progress stalls for this duration (default: 0/off).")
	diagDir := flag.String("diag-dir", cfg.DiagDir, "Diagnostics output directory (default: current directory).")
	diagGoroutineLeak := flag.Bool("diag-goroutine-leak", cfg.DiagGoroutineLeak, "Write goroutine leak profile on shutdown (default: false).")
	configFile := flag.String("config", "", "Path to JSON configuration file (default: none).")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("duscan version %s\n", version.Version)
		os.Exit(0)
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "path":
			cfg.RootPath = *rootPath
		case "volumes":
			cfg.ListVolumes = *listVolumes
		case "workers":
			cfg.Workers = *workers
			cfg.WorkersSet = true
		case "worker-cap":
			cfg.WorkerCap = *workerCap
		case "media":
			cfg.Media = strings.ToLower(*media)
		case "progress-interval":
			cfg.ProgressInterval = *progressInterval
		case "cancel-check-every":
			cfg.CancelCheckEvery = *cancelCheckEvery
		case "retry-count":
			cfg.RetryCount = *retryCount
		case "max-io-per-second":
			cfg.MaxIOPerSecond = *maxIO
		case "log-level":
			cfg.LogLevel = *logLevel
		case "output":
			cfg.OutputFile = *outputFile
		case "history-file":
			cfg.HistoryFile = *historyFile
		case "history-list":
			cfg.HistoryList = *historyList
		case "history-forget":
			cfg.HistoryForget = *historyForget
		case "top":
			cfg.TopEntries = *topEntries
		case "diag-stall-dump":
			cfg.DiagStallDump = *diagStallDump
		case "diag-dir":
			cfg.DiagDir = *diagDir
		case "diag-goroutine-leak":
			cfg.DiagGoroutineLeak = *diagGoroutineLeak
		}
	})

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if c.Workers > 0 {
		c.WorkersSet = true
	}
	return nil
}

func (c *Config) validate() error {
	if !c.ListVolumes && !c.HistoryList && c.HistoryForget == "" && c.RootPath == "" {
		return fmt.Errorf("a scan path is required")
	}
	if (c.HistoryList || c.HistoryForget != "") && c.HistoryFile == "" {
		return fmt.Errorf("history commands require a history-file")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be zero or positive")
	}
	if c.WorkerCap < 1 {
		return fmt.Errorf("worker-cap must be at least 1")
	}
	switch c.Media {
	case "auto", "ssd", "hdd":
	default:
		return fmt.Errorf("invalid media type %q: must be auto, ssd, or hdd", c.Media)
	}
	if c.ProgressInterval <= 0 {
		return fmt.Errorf("progress-interval must be positive")
	}
	if c.CancelCheckEvery < 1 {
		return fmt.Errorf("cancel-check-every must be at least 1")
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("retry-count must be zero or positive")
	}
	if c.MaxIOPerSecond < 0 {
		return fmt.Errorf("max-io-per-second must be zero or positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.TopEntries < 1 {
		return fmt.Errorf("top must be at least 1")
	}
	return nil
}
