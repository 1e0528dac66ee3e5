// Package report renders a collected report to its JSON document on disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Checker-Finance/bankin-collector/pkg/model"
)

// Marshal renders r as a 2-space indented JSON array.
func Marshal(r model.Report) ([]byte, error) {
	if r == nil {
		r = model.Report{}
	}
	return json.MarshalIndent(r, "", "  ")
}

// WriteFile writes r to path. The document is written to a temporary file in
// the same directory and renamed over path, so readers never see a partial file.
func WriteFile(path string, r model.Report) error {
	data, err := Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod report: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}
