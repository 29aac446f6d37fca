// Package output serializes a finished scan into a machine-readable
// JSON document: a summary header followed by the full tree.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"duscan/scanner"
	"duscan/version"
)

const SchemaVersion = "2"

type Summary struct {
	SchemaVersion string  `json:"schema_version"`
	Tool          string  `json:"tool"`
	GeneratedAt   string  `json:"generated_at"`
	Root          string  `json:"root"`
	Status        string  `json:"status"`
	MediaType     string  `json:"media_type"`
	Workers       int     `json:"workers"`
	TotalSize     uint64  `json:"total_size"`
	Files         int64   `json:"files"`
	Dirs          int64   `json:"dirs"`
	Errors        int64   `json:"errors"`
	ElapsedMS     int64   `json:"elapsed_ms"`
	ThroughputBPS float64 `json:"throughput_bytes_per_sec"`
}

type Document struct {
	Summary Summary       `json:"summary"`
	Tree    *scanner.Node `json:"tree"`
}

// NewDocument assembles the output document for a terminal session.
func NewDocument(sess *scanner.Session, res *scanner.Result) *Document {
	return &Document{
		Summary: Summary{
			SchemaVersion: SchemaVersion,
			Tool:          "duscan " + version.Version,
			GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
			Root:          res.Root.Path,
			Status:        res.Status.String(),
			MediaType:     sess.Media().String(),
			Workers:       sess.Workers(),
			TotalSize:     res.TotalSize,
			Files:         res.Files,
			Dirs:          res.Dirs,
			Errors:        res.Errors,
			ElapsedMS:     res.ElapsedMS,
			ThroughputBPS: res.ThroughputBPS,
		},
		Tree: res.Root,
	}
}

// Write stores the document at path, buffered, pretty-printed.
func Write(path string, doc *Document) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	buf := bufio.NewWriterSize(f, 1024*1024)
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode scan result: %w", err)
	}
	return buf.Flush()
}
