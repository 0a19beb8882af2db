// Package output persists assembled results as a directory per video holding
// results.csv and a copy of every frame that produced a detection.
package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

const (
	// ResultsFilename is the CSV written into each video directory
	ResultsFilename = "results.csv"

	lockFilename = ".autotag.lock"
)

// VideoDir returns the output directory for a video: the video filename
// without its extension, under root.
func VideoDir(root, videoPath string) string {
	base := filepath.Base(videoPath)
	return filepath.Join(root, strings.TrimSuffix(base, filepath.Ext(base)))
}

// Writer writes the results of one video
type Writer struct {
	dir    string
	lock   *flock.Flock
	file   *os.File
	csv    *csv.Writer
	copied map[string]bool
	count  int
}

// NewWriter creates dir if needed, takes an exclusive lock on it and opens
// results.csv for writing. The lock is held until Close.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFilename))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock output directory: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("output directory %s is in use by another run", dir)
	}

	file, err := os.Create(filepath.Join(dir, ResultsFilename))
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to create results file: %w", err)
	}

	return &Writer{
		dir:    dir,
		lock:   lock,
		file:   file,
		csv:    csv.NewWriter(file),
		copied: make(map[string]bool),
	}, nil
}

// Dir returns the directory being written
func (w *Writer) Dir() string {
	return w.dir
}

// Count returns the number of rows written so far
func (w *Writer) Count() int {
	return w.count
}

// Write copies the result's frame into the directory and appends a row whose
// first column is the frame's base filename.
func (w *Writer) Write(r models.Result) error {
	if !w.copied[r.Image] {
		dst := filepath.Join(w.dir, filepath.Base(r.Image))
		if err := copyFile(r.Image, dst); err != nil {
			return err
		}
		w.copied[r.Image] = true
	}

	if err := w.csv.Write(r.WithBaseImage().Row()); err != nil {
		return fmt.Errorf("failed to write result row: %w", err)
	}
	w.count++

	return nil
}

// WriteResults implements the pipeline's result sink interface
func (w *Writer) WriteResults(ctx context.Context, results []models.Result) error {
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes results.csv and releases the directory lock
func (w *Writer) Close() error {
	w.csv.Flush()
	flushErr := w.csv.Error()
	closeErr := w.file.Close()
	unlockErr := w.lock.Unlock()
	_ = os.Remove(filepath.Join(w.dir, lockFilename))

	if flushErr != nil {
		return fmt.Errorf("failed to flush results: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close results: %w", closeErr)
	}
	if unlockErr != nil {
		return fmt.Errorf("failed to unlock output directory: %w", unlockErr)
	}
	return nil
}

// ReadResults reads a results.csv written by Writer
func ReadResults(path string) ([]models.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(models.ResultColumns)

	var results []models.Result
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read results: %w", err)
		}
		r, _ := models.ResultFromRow(row)
		results = append(results, r)
	}

	return results, nil
}

func copyFile(src, dst string) error {
	if src == dst {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open frame: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create frame copy: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy frame: %w", err)
	}

	return out.Close()
}
