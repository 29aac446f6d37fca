package scanner

import (
	"errors"
	"io/fs"
	"os"
)

type errKind int

const (
	errPermission errKind = iota
	errVanished
	errTransient
)

// classify buckets a per-entry failure. Permission problems and
// vanished paths are never retried; anything else is treated as
// transient and gets the configured bounded retry.
func classify(err error) errKind {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return errPermission
	case errors.Is(err, fs.ErrNotExist):
		return errVanished
	default:
		return errTransient
	}
}

// retryTransient runs op, retrying transient failures up to retries
// extra attempts with no backoff. Permission and vanished errors fail
// on the first attempt. Per-entry responsiveness beats completeness
// here.
func retryTransient[T any](retries int, op func() (T, error)) (T, error) {
	v, err := op()
	for attempt := 0; err != nil && classify(err) == errTransient && attempt < retries; attempt++ {
		v, err = op()
	}
	return v, err
}

func readDirRetry(path string, retries int) ([]os.DirEntry, error) {
	return retryTransient(retries, func() ([]os.DirEntry, error) {
		return os.ReadDir(path)
	})
}

func statRetry(entry os.DirEntry, retries int) (fs.FileInfo, error) {
	return retryTransient(retries, entry.Info)
}
