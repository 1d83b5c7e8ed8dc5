// Package logsink implements the per-VM append-only log writer from
// spec.md §4.4: given (vm_id, bytes), append atomically to a file under
// the configured log directory.
//
// Grounded on the plain os.OpenFile/os.File usage throughout
// internal/file (stlalpha-vision3) — no example repo in the pack reaches
// for a third-party library for basic append-mode file I/O, so this stays
// on the standard library; see DESIGN.md.
package logsink

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sink appends console byte streams to per-VM files under Dir.
type Sink struct {
	Dir string
}

// New returns a Sink rooted at dir. dir must already exist; callers create
// it during startup per spec.md §6/§7.
func New(dir string) *Sink {
	return &Sink{Dir: dir}
}

// Append opens <dir>/<vmID> in append-binary mode (creating it if needed)
// and writes data. Multiple calls from the same connection are ordered by
// the caller (the Connection Driver serializes them); this method opens a
// fresh handle per call, so it performs no cross-call buffering itself.
func (s *Sink) Append(vmID string, data []byte) error {
	if vmID == "" {
		return fmt.Errorf("logsink: empty vm id")
	}
	path := filepath.Join(s.Dir, vmID)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("logsink: open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("logsink: write %s: %w", path, err)
	}
	return nil
}

// Path returns the file path a given vm_id would be logged to, without
// touching the filesystem. Used by the HTTP retrieval surface.
func (s *Sink) Path(vmID string) string {
	return filepath.Join(s.Dir, vmID)
}

// EnsureDir creates the log directory (and parents) if it does not
// already exist.
func EnsureDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("logsink: serial_log_dir is not specified")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("logsink: create log directory %s: %w", dir, err)
	}
	return nil
}
