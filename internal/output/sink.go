// Package output writes generated profiles to disk.
package output

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Agrid-Dev/hpelec/internal/dataset"
)

// FileSink writes each profile as a csv file under Dir. A profile is first
// written to a temporary file in Dir and renamed into place, so readers
// never observe a partial file.
type FileSink struct {
	Dir string
}

func (s FileSink) WriteProfile(ctx context.Context, name string, t *dataset.Table) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	w := bufio.NewWriter(tmp)
	if err := t.WriteCSV(w); err != nil {
		tmp.Close()
		return "", err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("flush %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", tmp.Name(), err)
	}

	path := filepath.Join(s.Dir, name)
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename to %s: %w", path, err)
	}
	return path, nil
}
